package dialogue

import (
	"fmt"
	"strings"

	"github.com/dlorp/synapse-engine-sub010/types"
)

// PromptInput carries everything one turn's prompt is built from. All fields
// are inputs; composition never mutates them.
type PromptInput struct {
	Topic           string
	Mode            types.Mode
	Speaker         types.Participant
	Participants    []types.Participant
	Transcript      []types.DialogueTurn
	TurnNumber      int
	ExternalContext string
}

// ComposePrompt renders the complete prompt for one turn: topic, the
// speaker's persona and position, the full transcript, and the instruction
// for this turn. Identical inputs yield byte-identical prompts.
//
// The transcript is always included whole. Context-window pressure is the
// backend's problem to report (CONTEXT_TOO_LONG), not something to paper
// over by silently dropping turns.
func ComposePrompt(in PromptInput) string {
	var b strings.Builder

	switch in.Mode {
	case types.ModeAdversarial:
		b.WriteString("You are taking part in a structured debate.\n\n")
	default:
		b.WriteString("You are taking part in a structured consensus discussion.\n\n")
	}

	b.WriteString("Topic: ")
	b.WriteString(in.Topic)
	b.WriteString("\n\n")

	if in.Speaker.Persona != "" {
		b.WriteString("Your persona: ")
		b.WriteString(in.Speaker.Persona)
		b.WriteString("\n")
	}

	if in.Mode == types.ModeAdversarial {
		b.WriteString("Your position: ")
		b.WriteString(string(in.Speaker.Role))
		if in.Speaker.Role == types.RolePro {
			b.WriteString(". You argue in favor of the topic")
		} else {
			b.WriteString(". You argue against the topic")
		}
		if opp, ok := opponentOf(in.Speaker, in.Participants); ok {
			fmt.Fprintf(&b, "; your opponent argues the %s position", opp.Role)
		}
		b.WriteString(".\n")
	} else if in.Speaker.Role != "" {
		b.WriteString("Your role on the panel: ")
		b.WriteString(string(in.Speaker.Role))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if in.ExternalContext != "" {
		b.WriteString("Relevant context:\n")
		b.WriteString(in.ExternalContext)
		b.WriteString("\n\n")
	}

	b.WriteString("Transcript so far:\n")
	if len(in.Transcript) == 0 {
		b.WriteString("(no messages yet; you are giving the opening statement)\n")
	} else {
		for _, turn := range in.Transcript {
			fmt.Fprintf(&b, "[Turn %d] %s: %s\n", turn.TurnNumber, speakerLabel(turn), turn.Content)
		}
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Instructions for turn %d:\n", in.TurnNumber)
	if len(in.Transcript) == 0 {
		b.WriteString("Give your opening statement on the topic.\n")
	} else {
		last := in.Transcript[len(in.Transcript)-1]
		if in.Mode == types.ModeAdversarial {
			fmt.Fprintf(&b,
				"Address the most recent points made by %s directly: quote or name the specific claims you are rebutting instead of restating your opening position.\n",
				speakerLabel(last))
		} else {
			fmt.Fprintf(&b,
				"Engage with the most recent points made by %s directly: respond to specific claims instead of repeating your earlier statements.\n",
				speakerLabel(last))
		}
	}
	b.WriteString("Reply with your contribution only, without any preamble.")

	return b.String()
}

// speakerLabel names a turn's author in transcript lines: the role when one
// is set, otherwise the participant ID.
func speakerLabel(turn types.DialogueTurn) string {
	if turn.Role != "" {
		return string(turn.Role)
	}
	return turn.SpeakerID
}

// opponentOf finds the other party in a two-participant session.
func opponentOf(speaker types.Participant, participants []types.Participant) (types.Participant, bool) {
	for _, p := range participants {
		if p.ID != speaker.ID {
			return p, true
		}
	}
	return types.Participant{}, false
}
