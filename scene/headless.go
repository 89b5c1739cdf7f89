package scene

import (
	"context"
	"sync"
)

// HeadlessSurface is the surface HeadlessScene hands out. It remembers the
// last material it was given.
type HeadlessSurface struct {
	Renderable Renderable

	mu       sync.Mutex
	material Material
	set      bool
}

// SetMaterial records m.
func (s *HeadlessSurface) SetMaterial(m Material) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.material = m
	s.set = true
}

// Material returns the current material and whether one was ever set.
func (s *HeadlessSurface) Material() (Material, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.material, s.set
}

// PassStats summarises one rendered pass.
type PassStats struct {
	Name     string
	Frames   uint64
	Surfaces int
	// Lit counts surfaces whose material was not black.
	Lit int
}

// HeadlessScene is an in-memory Scene for drivers without a display. Its
// composers only tally what would have been drawn.
type HeadlessScene struct {
	mu       sync.RWMutex
	surfaces []*HeadlessSurface
	passes   map[string]*PassStats
}

// NewHeadlessScene returns an empty scene.
func NewHeadlessScene() *HeadlessScene {
	return &HeadlessScene{passes: make(map[string]*PassStats)}
}

// Add implements Scene.
func (s *HeadlessScene) Add(r Renderable) Surface {
	s.mu.Lock()
	defer s.mu.Unlock()
	surf := &HeadlessSurface{Renderable: r}
	s.surfaces = append(s.surfaces, surf)
	return surf
}

// Remove implements Scene.
func (s *HeadlessScene) Remove(surf Surface) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.surfaces {
		if Surface(o) == surf {
			s.surfaces = append(s.surfaces[:i], s.surfaces[i+1:]...)
			return
		}
	}
}

// Surfaces returns a snapshot of the attached surfaces in attach order.
func (s *HeadlessScene) Surfaces() []*HeadlessSurface {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*HeadlessSurface(nil), s.surfaces...)
}

// Composer returns a composer that records frames under name.
func (s *HeadlessScene) Composer(name string) Composer {
	return headlessPass{scene: s, name: name}
}

// Pass returns the stats of the last frame rendered under name.
func (s *HeadlessScene) Pass(name string) (PassStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.passes[name]
	if !ok {
		return PassStats{}, false
	}
	return *p, true
}

type headlessPass struct {
	scene *HeadlessScene
	name  string
}

func (p headlessPass) Render(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := p.scene
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.passes[p.name]
	if !ok {
		st = &PassStats{Name: p.name}
		s.passes[p.name] = st
	}
	st.Frames++
	st.Surfaces = len(s.surfaces)
	st.Lit = 0
	for _, surf := range s.surfaces {
		if m, set := surf.Material(); set && m.Color.Hex() != "#000000" {
			st.Lit++
		}
	}
	return nil
}
