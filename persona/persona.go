// Package persona resolves the speaking instructions handed to each dialogue
// participant. Resolution happens exactly once per session, before the first
// turn, with a fixed priority: an explicit caller-supplied persona wins over a
// named profile, and a deterministic generic fallback covers everything else.
package persona

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/dlorp/synapse-engine-sub010/types"
)

// RolePersona is one named entry of a consensus profile.
type RolePersona struct {
	// Role is the free-form role name participants can bind to ("skeptic").
	Role string `json:"role" yaml:"role"`
	// Persona is the instruction text injected into that role's prompts.
	Persona string `json:"persona" yaml:"persona"`
}

// Profile is a named, reusable persona set for one dialogue mode.
// Adversarial profiles fill the Pro/Con pair; consensus profiles carry an
// ordered role list assigned to participants by role name or, when the name
// does not match, round-robin by participant index.
type Profile struct {
	Name        string        `json:"name" yaml:"name"`
	Mode        types.Mode    `json:"mode" yaml:"mode"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Pro         string        `json:"pro,omitempty" yaml:"pro,omitempty"`
	Con         string        `json:"con,omitempty" yaml:"con,omitempty"`
	Roles       []RolePersona `json:"roles,omitempty" yaml:"roles,omitempty"`
}

// Validate checks the profile is complete for its mode.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return types.NewConfigurationError("persona profile name must not be empty")
	}
	switch p.Mode {
	case types.ModeAdversarial:
		if p.Pro == "" || p.Con == "" {
			return types.NewConfigurationError(fmt.Sprintf(
				"adversarial profile %q must define both pro and con personas", p.Name))
		}
	case types.ModeConsensus:
		if len(p.Roles) == 0 {
			return types.NewConfigurationError(fmt.Sprintf(
				"consensus profile %q must define at least one role persona", p.Name))
		}
	default:
		return types.NewConfigurationError(fmt.Sprintf(
			"profile %q has unknown mode %q", p.Name, p.Mode))
	}
	return nil
}

// personaFor returns the profile's persona for the given participant, or ""
// when the profile has nothing to offer (mismatched adversarial role).
func (p *Profile) personaFor(part types.Participant, index int) string {
	switch p.Mode {
	case types.ModeAdversarial:
		switch part.Role {
		case types.RolePro:
			return p.Pro
		case types.RoleCon:
			return p.Con
		}
		return ""
	case types.ModeConsensus:
		for _, rp := range p.Roles {
			if rp.Role == string(part.Role) {
				return rp.Persona
			}
		}
		// No role-name match: assign by position, wrapping round-robin.
		return p.Roles[index%len(p.Roles)].Persona
	}
	return ""
}

// Registry is the static profile store: built-ins plus caller-supplied
// overrides, read-only once the session loop starts.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
	logger   *zap.Logger
}

// NewRegistry creates an empty profile registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		profiles: make(map[string]*Profile),
		logger:   logger.With(zap.String("component", "persona_registry")),
	}
}

// Register adds a profile. Re-registering a name replaces the previous
// profile, so caller-supplied overrides can shadow built-ins.
func (r *Registry) Register(p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.profiles[p.Name]; exists {
		r.logger.Info("persona profile overridden", zap.String("name", p.Name))
	}
	r.profiles[p.Name] = p
	return nil
}

// Get returns the named profile.
func (r *Registry) Get(name string) (*Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[name]
	return p, ok
}

// List returns registered profile names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
