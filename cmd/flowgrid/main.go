package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flowgrid/flowgrid/internal/engine"
	"github.com/flowgrid/flowgrid/internal/node"
	"github.com/flowgrid/flowgrid/internal/nodes"
	"github.com/flowgrid/flowgrid/internal/platform/config"
	"github.com/flowgrid/flowgrid/internal/platform/logger"
	"github.com/flowgrid/flowgrid/internal/platform/validate"
	"github.com/flowgrid/flowgrid/internal/workflow"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	triggerName := fs.String("trigger", "", "trigger node to fire (run mode)")
	_ = fs.Parse(os.Args[2:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.Logger)

	reg := node.NewRegistry(validate.New())
	if err := nodes.RegisterBuiltins(reg, nodes.BuiltinOptions{
		WebhookAddr: cfg.Webhook.Addr,
	}); err != nil {
		log.Error("register built-in nodes", "error", err)
		os.Exit(1)
	}

	switch cmd {
	case "run":
		os.Exit(runOnce(fs.Args(), *triggerName, cfg, reg, log))
	case "serve":
		os.Exit(serve(fs.Args(), cfg, reg, log))
	case "nodes":
		listNodes(reg)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  flowgrid run [--trigger name] [--config file] <workflow.json>
  flowgrid serve [--config file] <workflow.json>
  flowgrid nodes`)
}

// loadWorkflow reads a workflow file, falling back to the configured engine
// defaults where the envelope leaves settings unset.
func loadWorkflow(args []string, cfg *config.Config, reg *node.Registry) (*workflow.Workflow, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("workflow file is required")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, err
	}
	return workflow.Import(data, reg, workflow.ImportOptions{
		DefaultSettings: &workflow.Settings{
			EnableParallelExecution: cfg.Engine.EnableParallelExecution,
			MaxParallelExecutions:   cfg.Engine.MaxParallelExecutions,
		},
		DefaultRetryWaitMs: cfg.Engine.DefaultRetryWaitMs,
	})
}

// runOnce fires one trigger (the named one, or the workflow's only trigger)
// and prints the run outcome.
func runOnce(args []string, triggerName string, cfg *config.Config, reg *node.Registry, log logger.Logger) int {
	wf, err := loadWorkflow(args, cfg, reg)
	if err != nil {
		log.Error("load workflow", "error", err)
		return 1
	}

	if triggerName == "" {
		triggers := wf.Triggers()
		if len(triggers) != 1 {
			log.Error("workflow needs exactly one trigger or an explicit --trigger")
			return 1
		}
		triggerName = triggers[0].Name
	}

	eng := engine.New(
		engine.WithLogger(log),
		engine.WithMetrics(engine.NewMetrics(prometheus.DefaultRegisterer)),
	)
	binding, err := eng.Bind(wf, triggerName)
	if err != nil {
		log.Error("bind trigger", "error", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	run, err := binding.Fire(ctx, nil)
	if err != nil {
		log.Error("run failed", "workflow", wf.Name, "error", err)
		return 1
	}
	log.Info("run finished",
		"workflow", wf.Name,
		"run", run.ID,
		"status", run.Status,
		"duration", run.FinishedAt.Sub(run.StartedAt).String(),
	)
	for name, st := range run.State.Statuses() {
		log.Info("node result", "node", name, "state", st.State, "attempts", st.Attempts)
	}
	return 0
}

// serve starts every trigger that owns an event source and blocks until a
// shutdown signal.
func serve(args []string, cfg *config.Config, reg *node.Registry, log logger.Logger) int {
	wf, err := loadWorkflow(args, cfg, reg)
	if err != nil {
		log.Error("load workflow", "error", err)
		return 1
	}

	metrics := engine.NewMetrics(prometheus.DefaultRegisterer)
	eng := engine.New(engine.WithLogger(log), engine.WithMetrics(metrics))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var bindings []*engine.Binding
	for _, t := range wf.Triggers() {
		if _, ok := t.Source(); !ok {
			continue
		}
		binding, err := eng.Bind(wf, t.Name)
		if err != nil {
			log.Error("bind trigger", "trigger", t.Name, "error", err)
			return 1
		}
		if err := binding.Start(ctx); err != nil {
			log.Error("start trigger", "trigger", t.Name, "error", err)
			return 1
		}
		log.Info("trigger started", "trigger", t.Name, "type", t.Type)
		bindings = append(bindings, binding)
	}
	if len(bindings) == 0 {
		log.Error("workflow has no startable triggers")
		return 1
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics listener", "error", err)
			}
		}()
		log.Info("metrics exposed", "addr", cfg.Metrics.Addr)
	}

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	for _, b := range bindings {
		if err := b.Stop(shutdownCtx); err != nil {
			log.Warn("stop trigger", "trigger", b.TriggerName(), "error", err)
		}
	}
	if metricsServer != nil {
		_ = metricsServer.Shutdown(shutdownCtx)
	}
	return 0
}

func listNodes(reg *node.Registry) {
	for _, def := range reg.List() {
		kind := "node"
		if def.IsTrigger {
			kind = "trigger"
		}
		fmt.Printf("%-18s %-8s %-8s %s\n", def.Type, def.Version, kind, def.Description)
	}
}
