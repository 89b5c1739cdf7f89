package scene

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/neuromesh/core"
	"github.com/signalsfoundry/neuromesh/geometry"
	"github.com/signalsfoundry/neuromesh/internal/logging"
)

const tracerName = "github.com/signalsfoundry/neuromesh/scene"

// GeometryRecorder observes how long each entity mesh took to build.
type GeometryRecorder interface {
	ObserveGeometryBuild(kind core.EntityKind, d time.Duration)
}

// Builder produces the renderables of a network.
type Builder struct {
	net    *core.Network
	noise  geometry.NoiseSampler
	params Params

	workers  int
	log      logging.Logger
	recorder GeometryRecorder

	sphereOnce sync.Once
	sphere     *geometry.Mesh
}

// BuilderOption customises Builder construction.
type BuilderOption func(*Builder)

// WithWorkers bounds how many synapse meshes are built concurrently by All.
func WithWorkers(n int) BuilderOption {
	return func(b *Builder) {
		b.workers = n
	}
}

// WithBuildLogger attaches a structured logger.
func WithBuildLogger(l logging.Logger) BuilderOption {
	return func(b *Builder) {
		b.log = l
	}
}

// WithGeometryRecorder attaches a build time recorder.
func WithGeometryRecorder(r GeometryRecorder) BuilderOption {
	return func(b *Builder) {
		b.recorder = r
	}
}

// NewBuilder returns a builder for net. noise bends synapse tubes and may
// be nil. It must be safe for concurrent use.
func NewBuilder(net *core.Network, noise geometry.NoiseSampler, p Params, opts ...BuilderOption) *Builder {
	b := &Builder{
		net:     net,
		noise:   noise,
		params:  p,
		workers: runtime.GOMAXPROCS(0),
		log:     logging.Noop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.workers < 1 {
		b.workers = 1
	}
	if b.log == nil {
		b.log = logging.Noop()
	}
	return b
}

// Params returns the sizes the builder uses.
func (b *Builder) Params() Params { return b.params }

// Neuron returns the sphere renderable of neuron id. Every neuron shares
// one sphere mesh, placed by its translation.
func (b *Builder) Neuron(id core.NeuronID) (Renderable, error) {
	n := b.net.Neuron(id)
	if n == nil {
		return Renderable{}, fmt.Errorf("neuron mesh %d: %w", id, core.ErrNeuronNotFound)
	}
	b.sphereOnce.Do(func() {
		start := time.Now()
		b.sphere = geometry.Sphere(b.params.NeuronRadius, b.params.NeuronSegments, b.params.NeuronSegments)
		b.observe(core.KindNeuron, time.Since(start))
	})
	return Renderable{
		Handle:      core.NeuronHandle(id),
		Mesh:        b.sphere,
		Translation: r3.Scale(b.params.WorldScale, n.Position),
	}, nil
}

// Synapse returns the tube renderable of synapse id. The tube is built in
// scene coordinates, so its translation is zero.
func (b *Builder) Synapse(id core.SynapseID) (Renderable, error) {
	s := b.net.Synapse(id)
	if s == nil {
		return Renderable{}, fmt.Errorf("synapse mesh %d: %w", id, core.ErrSynapseNotFound)
	}
	a, z := b.net.Neuron(s.A), b.net.Neuron(s.B)

	start := time.Now()
	m, err := geometry.Build(SynapseDesign(a.Position, z.Position, b.noise, b.params))
	if err != nil {
		return Renderable{}, fmt.Errorf("synapse mesh %d: %w", id, err)
	}
	b.observe(core.KindSynapse, time.Since(start))
	return Renderable{Handle: core.SynapseHandle(id), Mesh: m}, nil
}

func (b *Builder) observe(kind core.EntityKind, d time.Duration) {
	if b.recorder != nil {
		b.recorder.ObserveGeometryBuild(kind, d)
	}
}

// All builds every renderable of the network: neurons in ID order followed
// by synapses in ID order. Synapse tubes are built concurrently. The first
// malformed tube aborts the build.
func (b *Builder) All(ctx context.Context) ([]Renderable, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "scene.Builder.All",
		trace.WithAttributes(
			attribute.Int("network.neurons", b.net.NumNeurons()),
			attribute.Int("network.synapses", b.net.NumSynapses()),
		))
	defer span.End()

	out := make([]Renderable, b.net.NumNeurons()+b.net.NumSynapses())
	for i := 0; i < b.net.NumNeurons(); i++ {
		r, err := b.Neuron(core.NeuronID(i))
		if err != nil {
			return nil, err
		}
		out[i] = r
	}

	base := b.net.NumNeurons()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i := 0; i < b.net.NumSynapses(); i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := b.Synapse(core.SynapseID(i))
			if err != nil {
				return err
			}
			out[base+i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("build scene: %w", err)
	}

	b.log.Debug(ctx, "scene geometry built",
		logging.Int("neurons", b.net.NumNeurons()),
		logging.Int("synapses", b.net.NumSynapses()),
	)
	return out, nil
}

// Populate builds every renderable and attaches it to reg.
func (b *Builder) Populate(ctx context.Context, reg *Registry) error {
	rs, err := b.All(ctx)
	if err != nil {
		return err
	}
	for _, r := range rs {
		if err := reg.Attach(r); err != nil {
			return err
		}
	}
	return nil
}
