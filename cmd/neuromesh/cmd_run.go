package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/signalsfoundry/neuromesh/core"
	"github.com/signalsfoundry/neuromesh/internal/config"
	"github.com/signalsfoundry/neuromesh/internal/logging"
	"github.com/signalsfoundry/neuromesh/internal/observability"
	"github.com/signalsfoundry/neuromesh/model"
	"github.com/signalsfoundry/neuromesh/noise"
	"github.com/signalsfoundry/neuromesh/scene"
	"github.com/signalsfoundry/neuromesh/timectrl"
)

// Headless viewport used for synthetic pointer presses.
const (
	viewportWidth  = 1280
	viewportHeight = 720
)

type runOptions struct {
	ObjPath     string
	PressEvery  time.Duration
	Output      io.Writer
	Registerer  prometheus.Registerer
	LogOutput   io.Writer
	HandleCtrlC bool
}

type runReport struct {
	RunID          string        `json:"run_id"`
	Neurons        int           `json:"neurons"`
	Synapses       int           `json:"synapses"`
	DroppedEdges   int           `json:"dropped_edges"`
	Ticks          uint64        `json:"ticks"`
	Elapsed        time.Duration `json:"elapsed"`
	Frames         uint64        `json:"frames"`
	NeuronFirings  int           `json:"neuron_firings"`
	SynapseFirings int           `json:"synapse_firings"`
	Spontaneous    int           `json:"spontaneous_firings"`
	ActiveNeurons  int           `json:"active_neurons"`
	ActiveSynapses int           `json:"active_synapses"`
	PointerPresses int           `json:"pointer_presses"`
	PointerHits    int           `json:"pointer_hits"`
	GlowLit        int           `json:"glow_lit"`
	FinalLit       int           `json:"final_lit"`
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build the network and run the simulation headlessly",
		Long: `Build a neuron network from the configured source mesh, populate a
headless scene with its geometry and run the activation simulation on the
configured tick. A realtime run with no duration lasts until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("duration") {
				cfg.Simulation.Duration, _ = flags.GetDuration("duration")
			}
			if flags.Changed("mode") {
				cfg.Simulation.Mode, _ = flags.GetString("mode")
			}
			if flags.Changed("seed") {
				cfg.Simulation.Seed, _ = flags.GetUint64("seed")
			}
			if flags.Changed("source") {
				cfg.Network.Source, _ = flags.GetString("source")
			}
			if flags.Changed("metrics-addr") {
				cfg.Metrics.Addr, _ = flags.GetString("metrics-addr")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			opts := runOptions{
				Output:      cmd.OutOrStdout(),
				LogOutput:   cmd.ErrOrStderr(),
				HandleCtrlC: true,
			}
			opts.ObjPath, _ = flags.GetString("obj")
			opts.PressEvery, _ = flags.GetDuration("press-every")

			report, err := runSimulation(cmd.Context(), cfg, opts)
			if err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			return printReport(opts.Output, report, jsonOut)
		},
	}

	cmd.Flags().Duration("duration", 0, "Simulated run length (0 runs until interrupted)")
	cmd.Flags().String("mode", "", "Clock mode: realtime or accelerated")
	cmd.Flags().Uint64("seed", 0, "Seed for spontaneous firing and noise")
	cmd.Flags().String("source", "", "Source mesh: an OBJ path or \"icosphere\"")
	cmd.Flags().String("metrics-addr", "", "Listen address for Prometheus /metrics")
	cmd.Flags().String("obj", "", "Write the final scene to this OBJ file (an .mtl is written alongside)")
	cmd.Flags().Duration("press-every", 0, "Simulated time between random pointer presses (0 disables)")
	return cmd
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

func loadSource(nc config.NetworkConfig) (model.SourceMesh, error) {
	if nc.Source == config.SourceIcosphere {
		return scene.Icosphere(nc.Subdivisions), nil
	}
	return scene.LoadOBJ(nc.Source)
}

func runSimulation(ctx context.Context, cfg config.Config, opts runOptions) (runReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.HandleCtrlC {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt)
		defer stop()
	}

	lc := cfg.LoggerConfig()
	lc.Output = opts.LogOutput
	ctx, log := logging.WithRunLogger(ctx, logging.New(lc))
	report := runReport{RunID: logging.RunIDFromContext(ctx)}

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return report, fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn(ctx, "tracing shutdown failed", logging.Err(err))
		}
	}()

	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	simMetrics, err := observability.NewSimCollector(reg)
	if err != nil {
		return report, fmt.Errorf("init metrics: %w", err)
	}
	sceneMetrics, err := observability.NewSceneCollector(reg)
	if err != nil {
		return report, fmt.Errorf("init metrics: %w", err)
	}
	if srv := serveMetrics(cfg.Metrics.Addr, simMetrics.Handler(), log); srv != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	src, err := loadSource(cfg.Network)
	if err != nil {
		return report, err
	}
	buildOpts := cfg.BuildOptions()
	buildOpts.Logger = log
	nw, sum, err := core.BuildNetwork(ctx, src, buildOpts)
	if err != nil {
		return report, err
	}
	simMetrics.RecordBuild(sum)
	report.Neurons, report.Synapses, report.DroppedEdges = sum.Neurons, sum.Synapses, sum.DroppedEdges
	log.Info(ctx, "network built",
		logging.String("source", cfg.Network.Source),
		logging.Int("neurons", sum.Neurons),
		logging.Int("synapses", sum.Synapses),
		logging.Int("dropped_edges", sum.DroppedEdges),
	)

	field, err := noise.New(cfg.NoiseConfig())
	if err != nil {
		return report, err
	}
	materials, err := cfg.MaterialTable()
	if err != nil {
		return report, err
	}
	headless := scene.NewHeadlessScene()
	registry := scene.NewRegistry(headless, materials)
	defer sceneMetrics.Track(registry)()

	builder := scene.NewBuilder(nw, field, cfg.Geometry,
		scene.WithBuildLogger(log),
		scene.WithGeometryRecorder(sceneMetrics),
	)
	if err := builder.Populate(ctx, registry); err != nil {
		return report, err
	}

	for _, st := range cfg.Simulation.Stimuli {
		n := nw.Neuron(core.NeuronID(st.Neuron))
		if n == nil {
			log.Warn(ctx, "skipping stimulus for missing neuron", logging.Int("neuron", st.Neuron))
			continue
		}
		n.ReceiveExcitation(st.Strength)
	}

	engine := core.NewSimulationEngine(nw,
		core.WithSeed(cfg.Simulation.Seed),
		core.WithMetricsRecorder(simMetrics),
		core.WithLogger(log),
	)

	input := &scene.InputHandler{
		Net:      nw,
		Picker:   scene.NewRayPicker(scene.DefaultCamera(float64(viewportWidth)/viewportHeight), registry),
		Strength: cfg.Input.PointerStrength,
		Recorder: sceneMetrics,
		Log:      log,
	}
	presses := rand.New(rand.NewPCG(cfg.Simulation.Seed, cfg.Simulation.Seed+1))
	glow, final := headless.Composer("glow"), headless.Composer("final")

	// Listeners run on the controller goroutine; mu guards report against
	// the read after the loop ends.
	var mu sync.Mutex
	var sincePress time.Duration

	tc := timectrl.NewTimeController(cfg.Simulation.TickInterval, cfg.Mode())
	tc.AddListener(func(uint64) {
		st := engine.Step(ctx)
		mu.Lock()
		report.NeuronFirings += st.FiredNeurons
		report.SynapseFirings += st.FiredSynapses
		report.Spontaneous += st.SpontaneousFirings
		report.ActiveNeurons, report.ActiveSynapses = st.ActiveNeurons, st.ActiveSynapses
		mu.Unlock()
	})
	tc.AddFrameListener(func(delta time.Duration) {
		if opts.PressEvery > 0 {
			sincePress += delta
			if sincePress >= opts.PressEvery {
				sincePress = 0
				ev := scene.PointerEvent{
					ClientX: presses.Float64() * viewportWidth,
					ClientY: presses.Float64() * viewportHeight,
					Width:   viewportWidth,
					Height:  viewportHeight,
				}
				_, hit, err := input.PointerDown(ctx, ev)
				if err != nil {
					log.Warn(ctx, "pointer press failed", logging.Err(err))
				}
				mu.Lock()
				report.PointerPresses++
				if hit {
					report.PointerHits++
				}
				mu.Unlock()
			}
		}
		if err := scene.RenderTwoPass(ctx, registry, nw, glow, final); err != nil && ctx.Err() == nil {
			log.Warn(ctx, "render failed", logging.Err(err))
		}
	})

	log.Info(ctx, "starting simulation",
		logging.Duration("tick", cfg.Simulation.TickInterval),
		logging.Duration("duration", cfg.Simulation.Duration),
		logging.String("mode", cfg.Mode().String()),
	)
	<-tc.Start(ctx, cfg.Simulation.Frame, cfg.Simulation.Duration)

	mu.Lock()
	report.Ticks = tc.Ticks()
	report.Elapsed = tc.Elapsed()
	if ps, ok := headless.Pass("glow"); ok {
		report.Frames = ps.Frames
		report.GlowLit = ps.Lit
	}
	if ps, ok := headless.Pass("final"); ok {
		report.FinalLit = ps.Lit
	}
	mu.Unlock()

	log.Info(ctx, "simulation complete",
		logging.Uint64("ticks", report.Ticks),
		logging.Duration("elapsed", report.Elapsed),
		logging.Int("neuron_firings", report.NeuronFirings),
		logging.Int("synapse_firings", report.SynapseFirings),
	)

	if opts.ObjPath != "" {
		if err := exportScene(opts.ObjPath, headless, materials); err != nil {
			return report, err
		}
		log.Info(ctx, "scene exported", logging.String("path", opts.ObjPath))
	}
	return report, nil
}

// exportScene writes path and a sibling .mtl holding the materials.
func exportScene(path string, headless *scene.HeadlessScene, materials *scene.MaterialTable) error {
	mtlPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".mtl"

	obj, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export scene: %w", err)
	}
	werr := scene.WriteOBJ(obj, headless.Surfaces(), filepath.Base(mtlPath))
	if err := errors.Join(werr, obj.Close()); err != nil {
		return fmt.Errorf("export scene: %w", err)
	}

	mtl, err := os.Create(mtlPath)
	if err != nil {
		return fmt.Errorf("export materials: %w", err)
	}
	werr = scene.WriteMTL(mtl, materials)
	if err := errors.Join(werr, mtl.Close()); err != nil {
		return fmt.Errorf("export materials: %w", err)
	}
	return nil
}

func printReport(w io.Writer, r runReport, jsonOut bool) error {
	if jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	fmt.Fprintf(w, "Network: %d neurons, %d synapses (%d edges dropped)\n", r.Neurons, r.Synapses, r.DroppedEdges)
	fmt.Fprintf(w, "Ran %d ticks over %s in %d frames\n", r.Ticks, r.Elapsed, r.Frames)
	fmt.Fprintf(w, "Firings: %d neuron, %d synapse, %d spontaneous\n", r.NeuronFirings, r.SynapseFirings, r.Spontaneous)
	fmt.Fprintf(w, "Active at end: %d neurons, %d synapses\n", r.ActiveNeurons, r.ActiveSynapses)
	if r.PointerPresses > 0 {
		fmt.Fprintf(w, "Pointer presses: %d (%d hits)\n", r.PointerPresses, r.PointerHits)
	}
	fmt.Fprintf(w, "Lit surfaces: %d glow, %d final\n", r.GlowLit, r.FinalLit)
	return nil
}
