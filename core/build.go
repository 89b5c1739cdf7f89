package core

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/neuromesh/internal/logging"
	"github.com/signalsfoundry/neuromesh/model"
)

const tracerName = "github.com/signalsfoundry/neuromesh/core"

// BuildOptions controls how a source mesh is turned into a network.
type BuildOptions struct {
	NeuronParams  NeuronParams
	SynapseParams SynapseParams

	// DedupTolerance merges source vertices closer than this into one
	// neuron. The first vertex seen keeps its position.
	DedupTolerance float64

	// MatchTolerance is how close a feature edge endpoint must be to a
	// neuron for the edge to become a synapse.
	MatchTolerance float64

	// EdgeThresholdAngle is the minimum dihedral angle, in degrees, for an
	// interior mesh edge to count as a feature edge.
	EdgeThresholdAngle float64

	Logger logging.Logger
}

// DefaultBuildOptions returns the tolerances the stock brain mesh was
// tuned with.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		NeuronParams:       DefaultNeuronParams(),
		SynapseParams:      DefaultSynapseParams(),
		DedupTolerance:     0.01,
		MatchTolerance:     1e-5,
		EdgeThresholdAngle: 1,
	}
}

// BuildSummary reports what BuildNetwork produced.
type BuildSummary struct {
	Vertices     int
	Neurons      int
	FeatureEdges int
	Synapses     int
	// DroppedEdges counts feature edges whose endpoints could not both be
	// resolved to distinct neurons.
	DroppedEdges int
}

// BuildNetwork grows a network from src: every deduplicated vertex becomes a
// neuron and every feature edge whose endpoints resolve to two distinct
// neurons becomes a synapse. Unresolved edges are dropped and counted, they
// are not an error.
func BuildNetwork(ctx context.Context, src model.SourceMesh, opts BuildOptions) (*Network, BuildSummary, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "core.BuildNetwork",
		trace.WithAttributes(
			attribute.Int("mesh.vertices", len(src.Positions)),
			attribute.Int("mesh.faces", len(src.Faces)),
		))
	defer span.End()

	log := opts.Logger
	if log == nil {
		log = logging.Noop()
	}

	var sum BuildSummary
	if err := src.Validate(); err != nil {
		span.RecordError(err)
		return nil, sum, fmt.Errorf("build network: %w", err)
	}

	nw := NewNetwork(opts.NeuronParams, opts.SynapseParams)
	idx := newPointIndex()

	sum.Vertices = len(src.Positions)
	for _, p := range src.Positions {
		if _, dupe := idx.nearest(p, opts.DedupTolerance); dupe {
			continue
		}
		id := nw.AddNeuron(p)
		idx.insert(id, p)
	}
	sum.Neurons = nw.NumNeurons()

	edges := FeatureEdges(src, opts.EdgeThresholdAngle)
	sum.FeatureEdges = len(edges)
	for _, e := range edges {
		a, okA := idx.nearest(e.From, opts.MatchTolerance)
		b, okB := idx.nearest(e.To, opts.MatchTolerance)
		if !okA || !okB {
			sum.DroppedEdges++
			continue
		}
		if _, err := nw.Connect(a, b); err != nil {
			sum.DroppedEdges++
			continue
		}
	}
	sum.Synapses = nw.NumSynapses()

	span.SetAttributes(
		attribute.Int("network.neurons", sum.Neurons),
		attribute.Int("network.synapses", sum.Synapses),
		attribute.Int("network.dropped_edges", sum.DroppedEdges),
	)
	if sum.DroppedEdges > 0 {
		log.Debug(ctx, "dropped unresolved feature edges",
			logging.Int("dropped", sum.DroppedEdges),
			logging.Int("feature_edges", sum.FeatureEdges),
		)
	}
	return nw, sum, nil
}
