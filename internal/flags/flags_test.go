package flags

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_Enabled(t *testing.T) {
	tests := []struct {
		name     string
		registry *Registry
		flag     string
		expected bool
	}{
		{
			name:     "style-diff on",
			registry: New(map[string]bool{FlagStyleDiff: true}),
			flag:     FlagStyleDiff,
			expected: true,
		},
		{
			name:     "process-workers off",
			registry: New(map[string]bool{FlagProcessWorkers: false}),
			flag:     FlagProcessWorkers,
			expected: false,
		},
		{
			name:     "flag missing from config",
			registry: New(map[string]bool{FlagStyleDiff: true}),
			flag:     "unknown-flag",
			expected: false,
		},
		{
			name:     "nil registry",
			registry: nil,
			flag:     "any-flag",
			expected: false,
		},
		{
			name:     "empty flags section",
			registry: New(map[string]bool{}),
			flag:     "any-flag",
			expected: false,
		},
		{
			name:     "no flags section",
			registry: New(nil),
			flag:     "any-flag",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.registry.Enabled(tt.flag)
			require.Equal(t, tt.expected, result)
		})
	}
}

func TestRegistry_Enabled_MultipleFlags(t *testing.T) {
	r := New(map[string]bool{
		FlagStyleDiff:        true,
		FlagProcessWorkers:   false,
		"experimental-align": true,
	})

	require.True(t, r.Enabled(FlagStyleDiff))
	require.False(t, r.Enabled(FlagProcessWorkers))
	require.True(t, r.Enabled("experimental-align"))
	require.False(t, r.Enabled("retired-flag")) // unknown
}

func TestRegistry_All(t *testing.T) {
	tests := []struct {
		name     string
		registry *Registry
		expected map[string]bool
	}{
		{
			name:     "returns all flags",
			registry: New(map[string]bool{"a": true, "b": false}),
			expected: map[string]bool{"a": true, "b": false},
		},
		{
			name:     "returns empty map for nil registry",
			registry: nil,
			expected: map[string]bool{},
		},
		{
			name:     "returns empty map for empty registry",
			registry: New(map[string]bool{}),
			expected: map[string]bool{},
		},
		{
			name:     "returns empty map for nil flags",
			registry: New(nil),
			expected: map[string]bool{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.registry.All()
			require.Equal(t, tt.expected, result)
		})
	}
}

func TestRegistry_All_IsACopy(t *testing.T) {
	r := New(map[string]bool{FlagStyleDiff: true})

	all := r.All()
	all[FlagStyleDiff] = false
	all[FlagProcessWorkers] = true

	require.True(t, r.Enabled(FlagStyleDiff))
	require.False(t, r.Enabled(FlagProcessWorkers))
	require.Equal(t, map[string]bool{FlagStyleDiff: true}, r.All())
}

func TestRegistry_KnownFlags(t *testing.T) {
	r := New(map[string]bool{
		FlagStyleDiff:      true,
		FlagProcessWorkers: false,
	})

	require.True(t, r.Enabled(FlagStyleDiff))
	require.False(t, r.Enabled(FlagProcessWorkers))
	require.Equal(t, "style-diff", FlagStyleDiff)
	require.Equal(t, "process-workers", FlagProcessWorkers)
}

func TestRegistry_Status(t *testing.T) {
	r := New(map[string]bool{
		FlagProcessWorkers: true,
		"zeta":             true,
		"alpha":            false,
	})

	status := r.Status()
	require.Len(t, status, 4)
	require.Equal(t, FlagStyleDiff, status[0].Name)
	require.False(t, status[0].Enabled)
	require.Equal(t, FlagProcessWorkers, status[1].Name)
	require.True(t, status[1].Enabled)
	require.Equal(t, "alpha", status[2].Name)
	require.Equal(t, "zeta", status[3].Name)
	require.Equal(t, "unknown flag", status[3].Description)
}

func TestRegistry_Status_NilRegistry(t *testing.T) {
	var r *Registry
	status := r.Status()
	require.Len(t, status, len(Known))
	for _, info := range status {
		require.False(t, info.Enabled)
	}
}
