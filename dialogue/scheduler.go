package dialogue

import (
	"github.com/dlorp/synapse-engine-sub010/types"
)

// Scheduler decides which participant speaks at each turn index. Turn order
// is a pure function of the index, so replaying a transcript always yields
// the same speaker sequence.
type Scheduler struct {
	policy       types.OrderPolicy
	participants []types.Participant
}

// NewScheduler builds a scheduler over a fixed participant list. The list is
// copied; turn order never changes mid-session.
func NewScheduler(policy types.OrderPolicy, participants []types.Participant) *Scheduler {
	ps := make([]types.Participant, len(participants))
	copy(ps, participants)
	return &Scheduler{policy: policy, participants: ps}
}

// Next returns the speaker for the given zero-based turn index. ALTERNATING
// and ROUND_ROBIN both reduce to index modulo participant count; alternating
// is the two-party special case.
func (s *Scheduler) Next(turnIndex int) types.Participant {
	return s.participants[turnIndex%len(s.participants)]
}

// Policy returns the order policy the scheduler was built with.
func (s *Scheduler) Policy() types.OrderPolicy {
	return s.policy
}
