// Package dialogue implements sequential multi-model orchestration: two or
// more backends take turns speaking on a topic until a turn budget or a
// dynamic termination signal ends the session, after which a neutral
// synthesis closes it out.
//
// The package splits the loop into small, separately testable parts:
//
//   - Scheduler picks the speaker for each turn index
//   - ComposePrompt renders the full-history prompt for one turn
//   - DetectTermination scans the recent window for concession or stalemate
//   - Synthesizer produces the closing summary
//   - Orchestrator wires the above into the session state machine
//   - Manager runs many independent sessions concurrently
//
// Sessions are strictly sequential internally; concurrency exists only
// across sessions. All mutable state lives in the per-session
// types.DialogueSession owned by a single goroutine.
package dialogue
