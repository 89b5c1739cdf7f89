package scene

import (
	"context"
	"fmt"

	"github.com/signalsfoundry/neuromesh/core"
	"github.com/signalsfoundry/neuromesh/internal/logging"
)

// DefaultPointerStrength is the excitation a clicked neuron receives.
const DefaultPointerStrength = 10.0

// PointerEvent is a pointer press in client pixels on a viewport of the
// given size.
type PointerEvent struct {
	ClientX, ClientY float64
	Width, Height    float64
}

// NDC converts the event to normalised device coordinates, x right and y
// up, both in [-1, 1].
func (e PointerEvent) NDC() (x, y float64) {
	return (e.ClientX/e.Width)*2 - 1, -(e.ClientY/e.Height)*2 + 1
}

// PointerDown hit-tests ev and forces the entity under the pointer to fire.
// It reports which entity was hit, if any. A miss is not an error.
func PointerDown(net *core.Network, picker Picker, ev PointerEvent, strength float64) (core.Handle, bool, error) {
	if ev.Width <= 0 || ev.Height <= 0 {
		return core.Handle{}, false, fmt.Errorf("pointer down: viewport %vx%v", ev.Width, ev.Height)
	}
	h, ok := picker.Pick(ev.NDC())
	if !ok {
		return core.Handle{}, false, nil
	}
	if err := net.Activate(h, strength); err != nil {
		return h, true, fmt.Errorf("pointer down: %w", err)
	}
	return h, true, nil
}

// ActivationRecorder counts pointer activations per entity kind.
type ActivationRecorder interface {
	RecordPointerActivation(kind core.EntityKind)
}

// InputHandler routes pointer presses to a network.
type InputHandler struct {
	Net      *core.Network
	Picker   Picker
	Strength float64

	Recorder ActivationRecorder
	Log      logging.Logger
}

// PointerDown is like the package function, and additionally logs and
// counts every hit.
func (ih *InputHandler) PointerDown(ctx context.Context, ev PointerEvent) (core.Handle, bool, error) {
	h, ok, err := PointerDown(ih.Net, ih.Picker, ev, ih.Strength)
	if err != nil || !ok {
		return h, ok, err
	}
	if ih.Recorder != nil {
		ih.Recorder.RecordPointerActivation(h.Kind)
	}
	if ih.Log != nil {
		ih.Log.Debug(ctx, "pointer activation", logging.String("entity", h.String()))
	}
	return h, true, nil
}
