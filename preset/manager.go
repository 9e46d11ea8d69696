package preset

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/maniartech/signals"
)

// Manager is the single owner of the preset registry, the selection and
// their persisted state. It is safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	store    Store
	registry *Registry
	selector *Controller
	changed  signals.Signal[SelectionChange]
}

// NewManager builds a registry from builtins and restores custom presets and
// the selection from store. Persisted entries that no longer fit the registry
// are dropped with a warning instead of failing startup.
func NewManager(store Store, builtins []Preset) (*Manager, error) {
	r, err := NewRegistry(builtins)
	if err != nil {
		return nil, err
	}
	st, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load presets: %w", err)
	}
	for _, p := range r.load(st.Custom) {
		slog.Warn("Dropping persisted preset", "id", p.ID, "label", p.Label)
	}
	c := NewController(r)
	if st.Selected != "" {
		if _, err := c.Select(st.Selected); err != nil {
			slog.Warn("Persisted selection no longer exists", "id", st.Selected, "fallback", c.SelectedID())
		}
	}
	m := &Manager{
		store:    store,
		registry: r,
		selector: c,
		changed:  signals.NewSync[SelectionChange](),
	}
	return m, nil
}

// List returns a snapshot of all presets.
func (m *Manager) List() []Preset {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registry.List()
}

func (m *Manager) Get(id string) (Preset, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registry.Get(id)
}

// Current returns the active preset.
func (m *Manager) Current() Preset {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selector.Current()
}

// Views returns the render state of every preset.
func (m *Manager) Views() []ViewState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	selected := m.selector.SelectedID()
	presets := m.registry.List()
	views := make([]ViewState, len(presets))
	for i, p := range presets {
		views[i] = NewViewState(p, p.ID == selected)
	}
	return views
}

// Add creates a custom preset and persists it.
func (m *Manager) Add(p Preset) (Preset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.registry.Custom()
	id, err := m.registry.Add(p)
	if err != nil {
		return Preset{}, err
	}
	if err := m.persist(); err != nil {
		m.registry.rollback(prev)
		return Preset{}, err
	}
	added, _ := m.registry.Get(id)
	return added, nil
}

// Remove deletes a custom preset. If it was selected the selection falls back
// to the first built-in and observers are notified.
func (m *Manager) Remove(id string) error {
	ch, changed, err := m.remove(id)
	if err != nil {
		return err
	}
	if changed {
		m.changed.Emit(context.Background(), ch)
	}
	return nil
}

func (m *Manager) remove(id string) (SelectionChange, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.registry.Custom()
	prevSelected := m.selector.SelectedID()
	if err := m.registry.Remove(id); err != nil {
		return SelectionChange{}, false, err
	}
	ch, changed := m.selector.OnPresetRemoved(id)
	if err := m.persist(); err != nil {
		m.registry.rollback(prev)
		m.selector.selected = prevSelected
		return SelectionChange{}, false, err
	}
	return ch, changed, nil
}

// Select makes id the active preset and returns it.
func (m *Manager) Select(id string) (Preset, error) {
	p, ch, err := m.selectID(id)
	if err != nil {
		return Preset{}, err
	}
	if ch.Previous != ch.Current {
		m.changed.Emit(context.Background(), ch)
	}
	return p, nil
}

func (m *Manager) selectID(id string) (Preset, SelectionChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, err := m.selector.Select(id)
	if err != nil {
		return Preset{}, ch, err
	}
	if ch.Previous != ch.Current {
		if err := m.persist(); err != nil {
			m.selector.selected = ch.Previous
			return Preset{}, ch, err
		}
	}
	return m.selector.Current(), ch, nil
}

// OnSelectionChanged registers fn under key. Listeners run synchronously
// after the change is committed and may call back into the manager.
func (m *Manager) OnSelectionChanged(key string, fn func(ctx context.Context, ch SelectionChange)) {
	m.changed.AddListener(fn, key)
}

func (m *Manager) RemoveSelectionListener(key string) {
	m.changed.RemoveListener(key)
}

// persist must be called with m.mu held.
func (m *Manager) persist() error {
	st := State{Custom: m.registry.Custom(), Selected: m.selector.SelectedID()}
	if err := m.store.Save(st); err != nil {
		return fmt.Errorf("save presets: %w", err)
	}
	return nil
}
