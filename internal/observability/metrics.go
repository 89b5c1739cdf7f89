package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalsfoundry/neuromesh/core"
)

// SimCollector bundles Prometheus metrics for the simulation loop. It
// satisfies core.TickMetricsRecorder.
type SimCollector struct {
	gatherer prometheus.Gatherer

	Ticks              prometheus.Counter
	TickDuration       prometheus.Histogram
	NeuronFirings      prometheus.Counter
	SpontaneousFirings prometheus.Counter
	SynapseFirings     prometheus.Counter
	ActiveNeurons      prometheus.Gauge
	ActiveSynapses     prometheus.Gauge

	NetworkNeurons  prometheus.Gauge
	NetworkSynapses prometheus.Gauge
	DroppedEdges    prometheus.Counter
}

// NewSimCollector registers simulation metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &SimCollector{gatherer: gatherer}
	var err error

	counters := []struct {
		dst  *prometheus.Counter
		name string
		help string
	}{
		{&c.Ticks, "neuromesh_ticks_total", "Completed simulation ticks."},
		{&c.NeuronFirings, "neuromesh_neuron_firings_total", "Neurons that entered the firing state."},
		{&c.SpontaneousFirings, "neuromesh_spontaneous_firings_total", "Spontaneous background excitations."},
		{&c.SynapseFirings, "neuromesh_synapse_firings_total", "Synapses that entered the firing state."},
		{&c.DroppedEdges, "neuromesh_dropped_edges_total", "Feature edges that could not be resolved to a synapse."},
	}
	for _, spec := range counters {
		*spec.dst, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Name: spec.name,
			Help: spec.help,
		}), spec.name)
		if err != nil {
			return nil, err
		}
	}

	gauges := []struct {
		dst  *prometheus.Gauge
		name string
		help string
	}{
		{&c.ActiveNeurons, "neuromesh_active_neurons", "Neurons firing after the last tick."},
		{&c.ActiveSynapses, "neuromesh_active_synapses", "Synapses firing after the last tick."},
		{&c.NetworkNeurons, "neuromesh_network_neurons", "Neurons in the network."},
		{&c.NetworkSynapses, "neuromesh_network_synapses", "Synapses in the network."},
	}
	for _, spec := range gauges {
		*spec.dst, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: spec.name,
			Help: spec.help,
		}), spec.name)
		if err != nil {
			return nil, err
		}
	}

	c.TickDuration, err = registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "neuromesh_tick_duration_seconds",
		Help:    "Wall time spent in one propagate and commit cycle.",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	}), "neuromesh_tick_duration_seconds")
	if err != nil {
		return nil, err
	}
	return c, nil
}

// RecordTick implements core.TickMetricsRecorder.
func (c *SimCollector) RecordTick(st core.TickStats) {
	if c == nil {
		return
	}
	c.Ticks.Inc()
	c.TickDuration.Observe(st.Duration.Seconds())
	c.NeuronFirings.Add(float64(st.FiredNeurons))
	c.SpontaneousFirings.Add(float64(st.SpontaneousFirings))
	c.SynapseFirings.Add(float64(st.FiredSynapses))
	c.ActiveNeurons.Set(float64(st.ActiveNeurons))
	c.ActiveSynapses.Set(float64(st.ActiveSynapses))
}

// RecordBuild publishes the size of a freshly built network.
func (c *SimCollector) RecordBuild(sum core.BuildSummary) {
	if c == nil {
		return
	}
	c.NetworkNeurons.Set(float64(sum.Neurons))
	c.NetworkSynapses.Set(float64(sum.Synapses))
	c.DroppedEdges.Add(float64(sum.DroppedEdges))
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SimCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
