package persona

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dlorp/synapse-engine-sub010/types"
)

// Manager resolves the participant→persona mapping for a session.
type Manager struct {
	registry *Registry
	logger   *zap.Logger
}

// NewManager creates a persona manager backed by the given registry.
func NewManager(registry *Registry, logger *zap.Logger) *Manager {
	if registry == nil {
		registry = DefaultRegistry(logger)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		registry: registry,
		logger:   logger.With(zap.String("component", "persona_manager")),
	}
}

// Registry exposes the backing profile registry.
func (m *Manager) Registry() *Registry { return m.registry }

// Resolve maps every participant ID to its persona instructions. Priority,
// first match wins:
//
//  1. the request's explicit Personas map (must cover every participant)
//  2. the named profile, when ProfileName is set
//  3. the generic fallback assigned round-robin by participant index
//
// Pure: the request is never mutated. Called once per session, before the
// first turn; every failure here is a configuration error.
func (m *Manager) Resolve(req *types.DialogueRequest) (map[string]string, error) {
	if req == nil {
		return nil, types.NewConfigurationError("dialogue request must not be nil")
	}
	switch req.Mode {
	case types.ModeAdversarial:
		if len(req.Participants) != 2 {
			return nil, types.NewConfigurationError(fmt.Sprintf(
				"adversarial mode requires exactly 2 participants, got %d", len(req.Participants)))
		}
	case types.ModeConsensus:
		if len(req.Participants) < 3 {
			return nil, types.NewConfigurationError(fmt.Sprintf(
				"consensus mode requires at least 3 participants, got %d", len(req.Participants)))
		}
	default:
		return nil, types.NewConfigurationError(fmt.Sprintf("unknown mode %q", req.Mode))
	}

	// An explicit personas map is all-or-nothing: a partial map is a caller
	// mistake, not a fallback opportunity.
	if len(req.Personas) > 0 {
		resolved := make(map[string]string, len(req.Participants))
		for _, part := range req.Participants {
			explicit, ok := req.Personas[part.ID]
			if !ok || strings.TrimSpace(explicit) == "" {
				return nil, types.NewConfigurationError(fmt.Sprintf(
					"personas map is missing participant %q", part.ID))
			}
			resolved[part.ID] = explicit
		}
		return resolved, nil
	}

	var profile *Profile
	if req.ProfileName != "" {
		p, ok := m.registry.Get(req.ProfileName)
		if !ok {
			return nil, types.NewConfigurationError(fmt.Sprintf(
				"unknown persona profile %q (available: %s)",
				req.ProfileName, strings.Join(m.registry.List(), ", ")))
		}
		if p.Mode != req.Mode {
			return nil, types.NewConfigurationError(fmt.Sprintf(
				"persona profile %q targets %s mode, request uses %s",
				req.ProfileName, p.Mode, req.Mode))
		}
		profile = p
	}

	resolved := make(map[string]string, len(req.Participants))
	for i, part := range req.Participants {
		if profile != nil {
			if p := profile.personaFor(part, i); p != "" {
				resolved[part.ID] = p
				continue
			}
		}
		resolved[part.ID] = fallbackPersona(i)
	}

	m.logger.Debug("personas resolved",
		zap.Int("participants", len(resolved)),
		zap.String("profile", req.ProfileName))
	return resolved, nil
}
