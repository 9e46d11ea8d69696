package preset

import "fmt"

// SelectionChange describes a move of the active selection.
type SelectionChange struct {
	Previous string `json:"previous"`
	Current  string `json:"current"`
	// Fallback is set when the change was forced by removal of the
	// previously selected preset.
	Fallback bool `json:"fallback"`
}

// Controller tracks the single active preset of a registry. The selected id
// always resolves in the registry as long as removals are reported through
// OnPresetRemoved.
type Controller struct {
	registry *Registry
	selected string
}

// NewController starts with the registry default selected.
func NewController(r *Registry) *Controller {
	return &Controller{registry: r, selected: r.Default().ID}
}

// Select makes id the active preset.
func (c *Controller) Select(id string) (SelectionChange, error) {
	if _, ok := c.registry.Get(id); !ok {
		return SelectionChange{}, fmt.Errorf("%w: %s", ErrUnknownPreset, id)
	}
	ch := SelectionChange{Previous: c.selected, Current: id}
	c.selected = id
	return ch, nil
}

// OnPresetRemoved must be called after id was removed from the registry.
// If id was selected, the selection falls back to the registry default and
// the change is returned with ok set.
func (c *Controller) OnPresetRemoved(id string) (ch SelectionChange, ok bool) {
	if id != c.selected {
		return SelectionChange{}, false
	}
	def := c.registry.Default().ID
	c.selected = def
	return SelectionChange{Previous: id, Current: def, Fallback: true}, true
}

// SelectedID returns the id of the active preset.
func (c *Controller) SelectedID() string {
	return c.selected
}

// Current returns the active preset.
func (c *Controller) Current() Preset {
	p, ok := c.registry.Get(c.selected)
	if !ok {
		// Only reachable if a removal bypassed OnPresetRemoved.
		return c.registry.Default()
	}
	return p
}
