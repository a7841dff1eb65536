package persona

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dlorp/synapse-engine-sub010/types"
)

func TestProfile_Validate(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		wantErr bool
	}{
		{"valid adversarial", Profile{Name: "a", Mode: types.ModeAdversarial, Pro: "p", Con: "c"}, false},
		{"valid consensus", Profile{Name: "b", Mode: types.ModeConsensus, Roles: []RolePersona{{Role: "r", Persona: "x"}}}, false},
		{"missing name", Profile{Mode: types.ModeAdversarial, Pro: "p", Con: "c"}, true},
		{"adversarial missing con", Profile{Name: "c", Mode: types.ModeAdversarial, Pro: "p"}, true},
		{"consensus without roles", Profile{Name: "d", Mode: types.ModeConsensus}, true},
		{"unknown mode", Profile{Name: "e", Mode: "TRIBUNAL", Pro: "p", Con: "c"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, types.ErrConfiguration, types.GetErrorCode(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegistry_RegisterAndOverride(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	require.NoError(t, r.Register(&Profile{Name: "x", Mode: types.ModeAdversarial, Pro: "p1", Con: "c1"}))

	got, ok := r.Get("x")
	require.True(t, ok)
	assert.Equal(t, "p1", got.Pro)

	// re-registering the same name shadows the earlier profile
	require.NoError(t, r.Register(&Profile{Name: "x", Mode: types.ModeAdversarial, Pro: "p2", Con: "c2"}))
	got, _ = r.Get("x")
	assert.Equal(t, "p2", got.Pro)
}

func TestRegistry_RejectsInvalid(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	err := r.Register(&Profile{Name: "broken", Mode: types.ModeAdversarial})
	require.Error(t, err)
	assert.Equal(t, types.ErrConfiguration, types.GetErrorCode(err))
}

func TestDefaultRegistry_Builtins(t *testing.T) {
	r := DefaultRegistry(zap.NewNop())
	assert.Equal(t, []string{"classic", "panel", "product_review", "socratic", "steelman"}, r.List())

	classic, ok := r.Get("classic")
	require.True(t, ok)
	assert.Equal(t, types.ModeAdversarial, classic.Mode)
	assert.NotEmpty(t, classic.Pro)
	assert.NotEmpty(t, classic.Con)

	panel, ok := r.Get("panel")
	require.True(t, ok)
	assert.Equal(t, types.ModeConsensus, panel.Mode)
	assert.NotEmpty(t, panel.Roles)
}
