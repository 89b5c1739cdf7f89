package scene

import (
	"errors"
	"fmt"
	"sync"

	"github.com/signalsfoundry/neuromesh/core"
)

// ErrAlreadyAttached is returned when a handle is attached twice.
var ErrAlreadyAttached = errors.New("entity already attached")

// ErrNotAttached is returned for handles the registry does not hold.
var ErrNotAttached = errors.New("entity not attached")

// EventType indicates what kind of change happened in the registry.
type EventType int

const (
	EventAttached EventType = iota
	EventDetached
)

// Event is emitted to subscribers when a renderable enters or leaves the
// scene.
type Event struct {
	Type       EventType
	Renderable Renderable
}

type entry struct {
	r       Renderable
	surface Surface
}

// Registry is a thread-safe index from entity handles to the surfaces a
// Scene created for them.
type Registry struct {
	mu sync.RWMutex

	scene     Scene
	materials *MaterialTable
	entries   map[core.Handle]*entry
	// order keeps attach order so material updates are deterministic.
	order []core.Handle

	subs   []subscriber
	nextID int
}

type subscriber struct {
	id int
	fn func(Event)
}

// NewRegistry attaches renderables to s. A nil table uses DefaultMaterials.
func NewRegistry(s Scene, materials *MaterialTable) *Registry {
	if materials == nil {
		materials = DefaultMaterials()
	}
	return &Registry{
		scene:     s,
		materials: materials,
		entries:   make(map[core.Handle]*entry),
	}
}

// Materials returns the lookup table used by ApplyMaterials.
func (reg *Registry) Materials() *MaterialTable { return reg.materials }

// Attach adds r to the scene and notifies subscribers.
func (reg *Registry) Attach(r Renderable) error {
	reg.mu.Lock()
	if _, exists := reg.entries[r.Handle]; exists {
		reg.mu.Unlock()
		return fmt.Errorf("attach %s: %w", r.Handle, ErrAlreadyAttached)
	}
	surface := reg.scene.Add(r)
	reg.entries[r.Handle] = &entry{r: r, surface: surface}
	reg.order = append(reg.order, r.Handle)
	subs := reg.subscribers()
	reg.mu.Unlock()

	// Notify outside the lock so subscribers may query the registry.
	ev := Event{Type: EventAttached, Renderable: r}
	for _, fn := range subs {
		fn(ev)
	}
	return nil
}

// Detach removes the renderable of h from the scene.
func (reg *Registry) Detach(h core.Handle) error {
	reg.mu.Lock()
	e, ok := reg.entries[h]
	if !ok {
		reg.mu.Unlock()
		return fmt.Errorf("detach %s: %w", h, ErrNotAttached)
	}
	reg.scene.Remove(e.surface)
	delete(reg.entries, h)
	for i, o := range reg.order {
		if o == h {
			reg.order = append(reg.order[:i], reg.order[i+1:]...)
			break
		}
	}
	subs := reg.subscribers()
	reg.mu.Unlock()

	ev := Event{Type: EventDetached, Renderable: e.r}
	for _, fn := range subs {
		fn(ev)
	}
	return nil
}

// Surface returns the surface attached for h.
func (reg *Registry) Surface(h core.Handle) (Surface, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	e, ok := reg.entries[h]
	if !ok {
		return nil, false
	}
	return e.surface, true
}

// Renderable returns the renderable attached for h.
func (reg *Registry) Renderable(h core.Handle) (Renderable, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	e, ok := reg.entries[h]
	if !ok {
		return Renderable{}, false
	}
	return e.r, true
}

// Renderables returns a snapshot of every attached renderable in attach
// order.
func (reg *Registry) Renderables() []Renderable {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	res := make([]Renderable, 0, len(reg.order))
	for _, h := range reg.order {
		res = append(res, reg.entries[h].r)
	}
	return res
}

// Len returns the number of attached renderables.
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.entries)
}

// ApplyMaterials sets the material of every surface from the current band
// of its entity. glowPass selects the emissive pass rendition.
func (reg *Registry) ApplyMaterials(net *core.Network, glowPass bool) error {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	for _, h := range reg.order {
		band, suppressed, err := net.Band(h)
		if err != nil {
			return fmt.Errorf("apply materials: %w", err)
		}
		reg.entries[h].surface.SetMaterial(reg.materials.Resolve(h.Kind, band, suppressed, glowPass))
	}
	return nil
}

// Subscribe registers a callback for registry events. It returns an
// unsubscribe function.
func (reg *Registry) Subscribe(fn func(Event)) (unsubscribe func()) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.nextID++
	id := reg.nextID
	reg.subs = append(reg.subs, subscriber{id: id, fn: fn})

	return func() {
		reg.mu.Lock()
		defer reg.mu.Unlock()
		for i, sub := range reg.subs {
			if sub.id == id {
				reg.subs = append(reg.subs[:i], reg.subs[i+1:]...)
				return
			}
		}
	}
}

// subscribers snapshots the callbacks in subscription order. Callers hold mu.
func (reg *Registry) subscribers() []func(Event) {
	fns := make([]func(Event), len(reg.subs))
	for i, sub := range reg.subs {
		fns[i] = sub.fn
	}
	return fns
}
