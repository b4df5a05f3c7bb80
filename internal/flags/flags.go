// Package flags provides feature flag support for controlled feature rollout.
// Flags are read-only after initialization and provide safe defaults for unknown flags.
package flags

import (
	"maps"
	"slices"

	"github.com/zjrosen/difflens/internal/log"
)

// Flag name constants for type-safe flag access.
const (
	// FlagStyleDiff makes the change navigator report style-only chunks
	// using the attributes selected under scrollmap.highlight.
	FlagStyleDiff = "style-diff"

	// FlagProcessWorkers hosts diff-engine functions in `difflens worker`
	// subprocesses instead of in-process goroutines.
	FlagProcessWorkers = "process-workers"
)

// Registry holds feature flag state loaded from configuration.
// Flags are read-only after initialization.
type Registry struct {
	flags map[string]bool
}

// New creates a Registry from a config map.
// If flags is nil, an empty registry is created (all flags disabled).
func New(flags map[string]bool) *Registry {
	if flags == nil {
		flags = make(map[string]bool)
	}
	r := &Registry{flags: flags}
	log.Debug(log.CatConfig, "Feature flags initialized", "count", len(flags), "flags", r.All())
	return r
}

// Enabled returns true if the named flag is enabled.
// Returns false for unknown flags (safe default).
// Returns false when called on nil registry (nil-safe).
func (r *Registry) Enabled(name string) bool {
	if r == nil || r.flags == nil {
		return false
	}
	value, exists := r.flags[name]
	if !exists {
		log.Debug(log.CatConfig, "Unknown flag accessed", "flag", name, "result", false)
		return false
	}
	return value
}

// All returns a copy of all flags (for debugging/logging).
// Returns an empty map if the registry is nil.
func (r *Registry) All() map[string]bool {
	if r == nil || r.flags == nil {
		return make(map[string]bool)
	}
	result := make(map[string]bool, len(r.flags))
	maps.Copy(result, r.flags)
	return result
}

// Info describes a flag difflens understands.
type Info struct {
	Name        string
	Description string
	Enabled     bool
}

// Known lists the flags difflens reads, in display order.
var Known = []Info{
	{Name: FlagStyleDiff, Description: "report style-only changes in 'scrollmap changes'"},
	{Name: FlagProcessWorkers, Description: "host diff functions in subprocess workers"},
}

// Status returns Known with each flag's current value, followed by any
// configured flags difflens does not recognize (sorted by name).
func (r *Registry) Status() []Info {
	all := r.All()
	out := make([]Info, 0, len(Known)+len(all))
	for _, k := range Known {
		k.Enabled = all[k.Name]
		delete(all, k.Name)
		out = append(out, k)
	}
	for _, name := range slices.Sorted(maps.Keys(all)) {
		out = append(out, Info{Name: name, Description: "unknown flag", Enabled: all[name]})
	}
	return out
}
