package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	synapse "github.com/dlorp/synapse-engine-sub010"
	"github.com/dlorp/synapse-engine-sub010/config"
	"github.com/dlorp/synapse-engine-sub010/internal/metrics"
	"github.com/dlorp/synapse-engine-sub010/internal/server"
	"github.com/dlorp/synapse-engine-sub010/internal/telemetry"
	"github.com/dlorp/synapse-engine-sub010/llm/observability"
	"github.com/dlorp/synapse-engine-sub010/types"
)

// =============================================================================
// 🗣️ run 命令
// =============================================================================

func runDialogue(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	topic := fs.String("topic", "", "Dialogue topic (required)")
	mode := fs.String("mode", "adversarial", "Dialogue mode: adversarial or consensus")
	pro := fs.String("pro", "pro", "PRO-side backend (adversarial mode)")
	con := fs.String("con", "con", "CON-side backend (adversarial mode)")
	panel := fs.String("panel", "", "Comma-separated panelist backends (consensus mode)")
	maxTurns := fs.Int("max-turns", 0, "Turn budget (0 = mode default)")
	dynamic := fs.Bool("dynamic-termination", false, "Stop early on concession or stalemate")
	profile := fs.String("profile", "", "Persona profile name")
	contextFile := fs.String("context-file", "", "File injected as external context")
	temperature := fs.Float64("temperature", 0, "Sampling temperature (0 = engine default)")
	maxTokens := fs.Int("max-tokens", 0, "Per-turn token cap (0 = engine default)")
	timeout := fs.Duration("timeout", 0, "Overall run timeout (0 = none)")
	withMetrics := fs.Bool("metrics", false, "Serve Prometheus metrics during the run")
	jsonOut := fs.Bool("json", false, "Print the result as JSON")
	fs.Parse(args)

	if *topic == "" {
		fmt.Fprintln(os.Stderr, "Error: --topic is required")
		os.Exit(1)
	}

	cfg := loadConfig(*configPath)
	logger := buildLogger(cfg)
	defer logger.Sync()

	logger.Info("Starting Synapse",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	// OpenTelemetry 上报
	otel, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if otel != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otel.Shutdown(ctx); err != nil {
				logger.Warn("telemetry shutdown error", zap.Error(err))
			}
		}
	}()

	engineOpts := []synapse.Option{synapse.WithLogger(logger)}
	if cfg.Telemetry.Enabled {
		obs, err := observability.NewMetrics()
		if err != nil {
			logger.Warn("failed to create observability metrics", zap.Error(err))
		} else {
			engineOpts = append(engineOpts, synapse.WithObservability(obs))
		}
	}
	if *withMetrics {
		engineOpts = append(engineOpts,
			synapse.WithCollector(metrics.NewCollector("synapse", logger)))
	}

	eng, err := synapse.FromConfig(cfg, engineOpts...)
	if err != nil {
		logger.Error("failed to build engine", zap.Error(err))
		os.Exit(1)
	}
	defer eng.Close()

	if *withMetrics {
		if m := startMetricsServer(cfg, eng, logger); m != nil {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				m.Shutdown(ctx)
			}()
		}
	}

	// 信号取消：已完成的回合仍会渲染
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	reqOpts := buildRequestOptions(*maxTurns, *dynamic, *profile, *contextFile, *temperature, *maxTokens, logger)

	var result *types.DialogueResult
	switch *mode {
	case "adversarial":
		result, err = eng.Debate(ctx, *topic, *pro, *con, reqOpts...)
	case "consensus":
		backends := splitList(*panel)
		if len(backends) < 3 {
			fmt.Fprintln(os.Stderr, "Error: consensus mode needs --panel with at least 3 backends")
			os.Exit(1)
		}
		result, err = eng.Consensus(ctx, *topic, backends, reqOpts...)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown mode %q (adversarial or consensus)\n", *mode)
		os.Exit(1)
	}

	if result != nil {
		render(result, *jsonOut)
	}
	if err != nil {
		if result == nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// =============================================================================
// 🔧 装配辅助
// =============================================================================

func loadConfig(path string) *config.Config {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func buildLogger(cfg *config.Config) *zap.Logger {
	logger, err := synapse.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func buildRequestOptions(maxTurns int, dynamic bool, profile, contextFile string, temperature float64, maxTokens int, logger *zap.Logger) []synapse.RequestOption {
	var opts []synapse.RequestOption
	if maxTurns > 0 {
		opts = append(opts, synapse.WithMaxTurns(maxTurns))
	}
	if dynamic {
		opts = append(opts, synapse.WithDynamicTermination())
	}
	if profile != "" {
		opts = append(opts, synapse.WithProfile(profile))
	}
	if contextFile != "" {
		data, err := os.ReadFile(contextFile)
		if err != nil {
			logger.Error("failed to read context file", zap.String("path", contextFile), zap.Error(err))
			os.Exit(1)
		}
		opts = append(opts, synapse.WithExternalContext(string(data)))
	}
	if temperature > 0 {
		opts = append(opts, synapse.WithTemperature(temperature))
	}
	if maxTokens > 0 {
		opts = append(opts, synapse.WithMaxTokens(maxTokens))
	}
	return opts
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// =============================================================================
// 📊 Metrics 边车
// =============================================================================

func startMetricsServer(cfg *config.Config, eng *synapse.Engine, logger *zap.Logger) *server.Manager {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		statuses := eng.Health(ctx)
		ready := len(statuses) > 0
		for _, status := range statuses {
			if !status.Healthy {
				ready = false
				break
			}
		}
		w.Header().Set("Content-Type", "application/json")
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(statuses)
	})

	m := server.NewManager(mux, server.Config{
		Addr:            cfg.Server.MetricsAddr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)
	if err := m.Start(); err != nil {
		logger.Warn("metrics server failed to start", zap.Error(err))
		return nil
	}
	logger.Info("metrics server started", zap.String("addr", m.Addr()))
	return m
}

// =============================================================================
// 📝 结果渲染
// =============================================================================

func render(result *types.DialogueResult, asJSON bool) {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(result)
		return
	}

	fmt.Printf("Topic:   %s\nMode:    %s\nSession: %s\n\n", result.Topic, result.Mode, result.SessionID)
	for _, turn := range result.Turns {
		role := ""
		if turn.Role != "" {
			role = fmt.Sprintf(" [%s]", turn.Role)
		}
		fmt.Printf("--- Turn %d · %s%s ---\n%s\n\n", turn.TurnNumber, turn.SpeakerID, role, turn.Content)
	}
	if result.SynthesisAvailable {
		fmt.Printf("=== Synthesis ===\n%s\n\n", result.Synthesis)
	}
	fmt.Printf("Status: %s", result.Status)
	if result.TerminationReason != "" {
		fmt.Printf(" (%s)", result.TerminationReason)
	}
	fmt.Printf("\nTurns: %d  Tokens: %d  Elapsed: %s\n",
		len(result.Turns), result.TotalTokens,
		(time.Duration(result.TotalTimeMs) * time.Millisecond).Round(time.Millisecond))
	if result.Error != "" {
		fmt.Printf("Error: %s\n", result.Error)
	}
}
