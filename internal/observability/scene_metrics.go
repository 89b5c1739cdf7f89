package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/neuromesh/core"
	"github.com/signalsfoundry/neuromesh/scene"
)

// SceneCollector exposes scene construction and input metrics. It
// satisfies scene.GeometryRecorder and scene.ActivationRecorder.
type SceneCollector struct {
	gatherer prometheus.Gatherer

	GeometryBuildDuration *prometheus.HistogramVec
	PointerActivations    *prometheus.CounterVec
	AttachedSurfaces      prometheus.Gauge
}

// NewSceneCollector registers scene metrics against the provided registerer.
func NewSceneCollector(reg prometheus.Registerer) (*SceneCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	build := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "neuromesh_geometry_build_seconds",
		Help:    "Time spent building one entity mesh, labeled by entity kind.",
		Buckets: []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	}, []string{"kind"})
	build, err := registerHistogramVec(reg, build, "neuromesh_geometry_build_seconds")
	if err != nil {
		return nil, err
	}

	pointer := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "neuromesh_pointer_activations_total",
		Help: "Entities forced to fire by pointer input, labeled by entity kind.",
	}, []string{"kind"})
	pointer, err = registerCounterVec(reg, pointer, "neuromesh_pointer_activations_total")
	if err != nil {
		return nil, err
	}

	attached, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "neuromesh_attached_surfaces",
		Help: "Renderables currently attached to the scene.",
	}), "neuromesh_attached_surfaces")
	if err != nil {
		return nil, err
	}

	return &SceneCollector{
		gatherer:              gatherer,
		GeometryBuildDuration: build,
		PointerActivations:    pointer,
		AttachedSurfaces:      attached,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SceneCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveGeometryBuild records one mesh build.
func (c *SceneCollector) ObserveGeometryBuild(kind core.EntityKind, d time.Duration) {
	if c == nil || c.GeometryBuildDuration == nil {
		return
	}
	c.GeometryBuildDuration.WithLabelValues(kind.String()).Observe(d.Seconds())
}

// RecordPointerActivation counts one pointer hit.
func (c *SceneCollector) RecordPointerActivation(kind core.EntityKind) {
	if c == nil || c.PointerActivations == nil {
		return
	}
	c.PointerActivations.WithLabelValues(kind.String()).Inc()
}

// Track keeps the attached surface gauge in step with reg. It returns the
// unsubscribe function.
func (c *SceneCollector) Track(reg *scene.Registry) func() {
	if c == nil || c.AttachedSurfaces == nil {
		return func() {}
	}
	c.AttachedSurfaces.Set(float64(reg.Len()))
	return reg.Subscribe(func(ev scene.Event) {
		switch ev.Type {
		case scene.EventAttached:
			c.AttachedSurfaces.Inc()
		case scene.EventDetached:
			c.AttachedSurfaces.Dec()
		}
	})
}
