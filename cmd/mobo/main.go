package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThoriDay/cpoi-mobo/internal/loop"
	"github.com/ThoriDay/cpoi-mobo/internal/momf"
	"github.com/ThoriDay/cpoi-mobo/pkg/config"
	"github.com/ThoriDay/cpoi-mobo/pkg/logger"
)

func main() {
	var configPath string
	var problemName string
	var resumePath string
	var savePath string
	var iterations int
	var seed int64
	var logLevel string

	flag.StringVar(&configPath, "config", "", "path to the experiment YAML (optional, defaults per problem)")
	flag.StringVar(&problemName, "problem", "bi-sphere", "benchmark problem (four-bar-truss, vehicle-crash, bi-sphere)")
	flag.StringVar(&resumePath, "resume", "", "observation log to resume from")
	flag.StringVar(&savePath, "save", "", "path to save the observation log on exit")
	flag.IntVar(&iterations, "iterations", 0, "override the iteration budget")
	flag.Int64Var(&seed, "seed", 0, "override the experiment seed")
	flag.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flag.Parse()

	problem, err := momf.ByName(problemName)
	if err != nil {
		logger.Error("unknown problem", "error", err)
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			logger.Error("failed to load configuration", "path", configPath, "error", err)
			os.Exit(1)
		}
	} else {
		cfg.Objectives = problem.Objectives()
		for _, b := range problem.Bounds() {
			cfg.Domain.Bounds = append(cfg.Domain.Bounds, config.Bound{Min: b[0], Max: b[1]})
		}
		cfg.Acquisition.EmptyFront = config.EmptyFrontImproveEverywhere
	}
	if iterations > 0 {
		cfg.Termination.MaxIterations = iterations
	}
	if seed != 0 {
		cfg.Seed = seed
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger.SetDefault(logger.NewText(cfg.LogLevel, os.Stdout))

	// Map each configured fidelity onto an evaluation resolution, cheapest
	// first, with the last tier exact
	resolutions := make([]float64, len(cfg.Fidelities))
	for i := range resolutions {
		resolutions[i] = momf.MaxResolution * float64(i+1) / float64(len(resolutions))
	}
	evaluator, err := momf.NewEvaluator(problem, resolutions, momf.ErrLinear)
	if err != nil {
		logger.Error("failed to build evaluator", "error", err)
		os.Exit(1)
	}

	l, err := loop.New(cfg, evaluator, logger.Default)
	if err != nil {
		logger.Error("failed to build optimization loop", "error", err)
		os.Exit(1)
	}

	if resumePath != "" {
		log, err := loop.LoadObservationLog(resumePath)
		if err != nil {
			logger.Error("failed to load observation log", "path", resumePath, "error", err)
			os.Exit(1)
		}
		if err := l.Resume(log); err != nil {
			logger.Error("failed to resume", "error", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting optimization",
		"problem", problem.Name(),
		"objectives", cfg.Objectives,
		"fidelities", len(cfg.Fidelities),
		"seed", cfg.Seed)

	result, err := l.Run(ctx)
	if savePath != "" {
		if saveErr := l.Log().Save(savePath); saveErr != nil {
			logger.Error("failed to save observation log", "path", savePath, "error", saveErr)
		}
	}
	if err != nil {
		logger.Error("optimization failed", "error", err)
		os.Exit(1)
	}

	logger.Info("optimization finished",
		"state", result.State.String(),
		"reason", result.Reason,
		"iterations", result.Iterations,
		"cost", result.TotalCost,
		"observations", result.Observations,
		"front_size", len(result.Front))
	for _, p := range result.Front {
		logger.Info("front member", "objectives", p.Objectives, "iteration", p.Tag)
	}
}
