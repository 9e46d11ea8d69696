package preset

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ErikKalkoken/go-set"
	"github.com/google/uuid"
)

// Registry holds the built-in presets in canonical order followed by custom
// presets in creation order. Ids are unique across both.
//
// A Registry is not safe for concurrent use; Manager serialises access.
type Registry struct {
	builtins   []Preset
	builtinIDs set.Set[string]
	custom     []Preset
}

// NewRegistry seeds a registry with builtins. At least one built-in is
// required so that a selection fallback always exists.
func NewRegistry(builtins []Preset) (*Registry, error) {
	if len(builtins) == 0 {
		return nil, errors.New("registry needs at least one built-in preset")
	}
	r := &Registry{builtinIDs: set.Of[string]()}
	for _, p := range builtins {
		if p.ID == "" {
			return nil, fmt.Errorf("built-in %q: %w: id is empty", p.Label, ErrInvalidPreset)
		}
		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("built-in %q: %w", p.ID, err)
		}
		if r.builtinIDs.Contains(p.ID) {
			return nil, fmt.Errorf("built-in %q: %w", p.ID, ErrDuplicateID)
		}
		p.Origin = OriginBuiltin
		r.builtinIDs.Add(p.ID)
		r.builtins = append(r.builtins, p)
	}
	return r, nil
}

// List returns all presets: built-ins first, then customs.
func (r *Registry) List() []Preset {
	out := make([]Preset, 0, len(r.builtins)+len(r.custom))
	out = append(out, r.builtins...)
	return append(out, r.custom...)
}

// Custom returns the custom presets in creation order.
func (r *Registry) Custom() []Preset {
	return slices.Clone(r.custom)
}

// Get returns the preset with id.
func (r *Registry) Get(id string) (Preset, bool) {
	for _, p := range r.builtins {
		if p.ID == id {
			return p, true
		}
	}
	if i := r.customIndex(id); i >= 0 {
		return r.custom[i], true
	}
	return Preset{}, false
}

// Default returns the first built-in preset.
func (r *Registry) Default() Preset {
	return r.builtins[0]
}

// Add stores p as a custom preset and returns its id. An empty id is replaced
// with a generated one in the custom namespace.
func (r *Registry) Add(p Preset) (string, error) {
	if err := p.validate(); err != nil {
		return "", err
	}
	if p.ID == "" {
		p.ID = CustomPrefix + uuid.New().String()
	}
	if _, ok := r.Get(p.ID); ok {
		return "", fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
	}
	p.Origin = OriginCustom
	r.custom = append(r.custom, p)
	return p.ID, nil
}

// Remove deletes the custom preset with id.
func (r *Registry) Remove(id string) error {
	if r.builtinIDs.Contains(id) {
		return fmt.Errorf("%w: %s", ErrNotDeletable, id)
	}
	i := r.customIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r.custom = slices.Delete(r.custom, i, i+1)
	return nil
}

// load replaces the custom presets with persisted ones. Entries that are
// invalid or collide with an earlier id are skipped and returned.
func (r *Registry) load(custom []Preset) []Preset {
	r.custom = nil
	var skipped []Preset
	for _, p := range custom {
		if p.ID == "" {
			skipped = append(skipped, p)
			continue
		}
		if _, err := r.Add(p); err != nil {
			skipped = append(skipped, p)
		}
	}
	return skipped
}

// rollback lets Manager undo a mutation it failed to persist.
func (r *Registry) rollback(custom []Preset) {
	r.custom = custom
}

func (r *Registry) customIndex(id string) int {
	return slices.IndexFunc(r.custom, func(p Preset) bool {
		return p.ID == id
	})
}
