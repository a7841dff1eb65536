package persona

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/dlorp/synapse-engine-sub010/types"
)

// ClassicDebateProfile pairs two rigorous debaters arguing a motion head-on.
func ClassicDebateProfile() *Profile {
	return &Profile{
		Name:        "classic",
		Mode:        types.ModeAdversarial,
		Description: "Formal debate: each side builds its strongest case and rebuts directly.",
		Pro: "You are a rigorous debater arguing in favor of the motion. Build the " +
			"strongest affirmative case from evidence and first principles. Rebut the " +
			"opposing side's most recent points directly before extending your own argument. " +
			"Concede a point only when it is genuinely indefensible.",
		Con: "You are a rigorous debater arguing against the motion. Expose the hidden " +
			"assumptions and weakest links in the affirmative case. Rebut the opposing " +
			"side's most recent points directly before extending your own argument. " +
			"Concede a point only when it is genuinely indefensible.",
	}
}

// SocraticProfile pits a relentless questioner against a position defender.
func SocraticProfile() *Profile {
	return &Profile{
		Name:        "socratic",
		Mode:        types.ModeAdversarial,
		Description: "Socratic examination: one side probes with questions, the other defends.",
		Pro: "You defend the motion under Socratic examination. Answer the questioner's " +
			"probes honestly and precisely, repair the weaknesses they expose, and restate " +
			"your position only as strongly as your answers can support.",
		Con: "You are a Socratic questioner challenging the motion. Do not lecture: advance " +
			"your case primarily through pointed questions that expose contradictions, " +
			"unstated assumptions, and untested edge cases in the defender's latest answer.",
	}
}

// SteelmanProfile requires each side to state the opponent's best case first.
func SteelmanProfile() *Profile {
	return &Profile{
		Name:        "steelman",
		Mode:        types.ModeAdversarial,
		Description: "Steelman debate: restate the opponent's best argument before rebutting it.",
		Pro: "You argue for the motion, but every turn must begin by restating the strongest " +
			"version of your opponent's latest argument in one or two sentences, charitably " +
			"enough that they would endorse it. Only then rebut it and advance your case.",
		Con: "You argue against the motion, but every turn must begin by restating the strongest " +
			"version of your opponent's latest argument in one or two sentences, charitably " +
			"enough that they would endorse it. Only then rebut it and advance your case.",
	}
}

// PanelProfile is a general-purpose consensus panel of complementary thinkers.
func PanelProfile() *Profile {
	return &Profile{
		Name:        "panel",
		Mode:        types.ModeConsensus,
		Description: "General deliberation panel working toward a shared recommendation.",
		Roles: []RolePersona{
			{Role: "optimist", Persona: "You are the panel's optimist. Surface the upside scenarios " +
				"and enabling conditions the others discount, but ground every claim in a mechanism, " +
				"not a mood."},
			{Role: "skeptic", Persona: "You are the panel's skeptic. Stress-test every proposal for " +
				"failure modes, hidden costs, and base-rate neglect. Object to specific claims made " +
				"by prior speakers, not to the topic in general."},
			{Role: "pragmatist", Persona: "You are the panel's pragmatist. Translate the discussion " +
				"into what can actually be executed: sequencing, cost, reversibility. Push the panel " +
				"from positions toward an implementable middle ground."},
		},
	}
}

// ProductReviewProfile is a consensus panel shaped like a product review.
func ProductReviewProfile() *Profile {
	return &Profile{
		Name:        "product_review",
		Mode:        types.ModeConsensus,
		Description: "Cross-functional product review converging on a ship/no-ship recommendation.",
		Roles: []RolePersona{
			{Role: "product_manager", Persona: "You represent product. Frame the user problem, the " +
				"success metric, and the opportunity cost of each alternative raised so far."},
			{Role: "engineer", Persona: "You represent engineering. Assess feasibility, operational " +
				"load, and failure surface of what prior speakers proposed; flag anything that " +
				"sounds simple but is not."},
			{Role: "designer", Persona: "You represent design. Evaluate every proposal from the " +
				"first-session user's point of view and call out where the flow would confuse or " +
				"mislead them."},
			{Role: "user_advocate", Persona: "You represent the end user. Weigh each argument by its " +
				"real effect on the people using the product, especially those the team is not " +
				"thinking about."},
		},
	}
}

// genericFallbacks are the deterministic personas assigned round-robin by
// participant index when neither an explicit persona nor a profile applies.
var genericFallbacks = []string{
	"a pragmatic analyst who weighs claims by evidence and operational cost",
	"a creative thinker who reframes the problem and explores unconventional angles",
	"a detail-oriented skeptic who probes edge cases and unstated assumptions",
	"a systems strategist who reasons about second-order effects and incentives",
	"an empathetic advocate who judges every argument by its effect on the people involved",
	"a historian of the field who tests ideas against how similar attempts played out before",
}

// fallbackPersona builds the generic instruction text for one participant.
func fallbackPersona(index int) string {
	return fmt.Sprintf("You are %s. Engage with the other speakers' most recent points "+
		"directly and in your own voice.", genericFallbacks[index%len(genericFallbacks)])
}

// RegisterBuiltins installs every built-in profile into the registry.
func RegisterBuiltins(r *Registry) error {
	profiles := []*Profile{
		ClassicDebateProfile(),
		SocraticProfile(),
		SteelmanProfile(),
		PanelProfile(),
		ProductReviewProfile(),
	}
	for _, p := range profiles {
		if err := r.Register(p); err != nil {
			return fmt.Errorf("failed to register profile %s: %w", p.Name, err)
		}
	}
	return nil
}

// DefaultRegistry returns a registry pre-loaded with the built-in profiles.
func DefaultRegistry(logger *zap.Logger) *Registry {
	r := NewRegistry(logger)
	_ = RegisterBuiltins(r) // built-in profiles are statically valid
	return r
}
