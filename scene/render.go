// Package scene turns a Network into renderable meshes and drives an
// external renderer through a handful of small interfaces.
//
// The package never draws anything itself. A renderer implements Scene,
// Surface, Picker and Composer; the Registry keeps every attached surface
// in step with the state of the entity behind it.
package scene

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/neuromesh/core"
	"github.com/signalsfoundry/neuromesh/geometry"
)

// Renderable is a mesh placed in the scene together with the handle of the
// entity it depicts.
type Renderable struct {
	Handle      core.Handle
	Mesh        *geometry.Mesh
	Translation r3.Vec
}

// Surface is a renderer-side object whose material can be swapped.
type Surface interface {
	SetMaterial(Material)
}

// Scene accepts renderables and hands back their surfaces.
type Scene interface {
	Add(Renderable) Surface
	Remove(Surface)
}

// Picker hit-tests normalised device coordinates and returns the nearest
// entity under the pointer.
type Picker interface {
	Pick(ndcX, ndcY float64) (core.Handle, bool)
}

// Composer renders one pass of the scene.
type Composer interface {
	Render(ctx context.Context) error
}

// RenderTwoPass draws the emissive glow pass and then the final pass.
// Materials are reapplied before each pass so that suppressed entities are
// dark in the glow pass only.
func RenderTwoPass(ctx context.Context, reg *Registry, net *core.Network, glow, final Composer) error {
	if err := reg.ApplyMaterials(net, true); err != nil {
		return err
	}
	if err := glow.Render(ctx); err != nil {
		return fmt.Errorf("glow pass: %w", err)
	}
	if err := reg.ApplyMaterials(net, false); err != nil {
		return err
	}
	if err := final.Render(ctx); err != nil {
		return fmt.Errorf("final pass: %w", err)
	}
	return nil
}
