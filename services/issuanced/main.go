package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	deployment "chronicles/config"
	"chronicles/core/events"
	"chronicles/core/genesis"
	"chronicles/core/state"
	"chronicles/gateway/middleware"
	"chronicles/native/issuance"
	"chronicles/observability/logging"
	telemetry "chronicles/observability/otel"
	"chronicles/services/issuanced/broker"
	"chronicles/services/issuanced/config"
	"chronicles/services/issuanced/index"
	"chronicles/services/issuanced/server"
	"chronicles/storage"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "services/issuanced/config.yaml", "path to issuanced configuration file")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("issuanced: load config: %v", err)
	}

	env := strings.TrimSpace(cfg.Environment)
	logger := logging.SetupWithOptions("issuanced", env, logging.Options{
		Level: cfg.Logging.Level,
		File:  cfg.Logging.File,
	})

	shutdownTelemetry, err := telemetry.Init(context.Background(), cfg.Telemetry)
	if err != nil {
		log.Fatalf("issuanced: init telemetry: %v", err)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	if err := run(cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("issuanced exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dep, err := deployment.Load(cfg.Deployment)
	if err != nil {
		return err
	}
	resolved, err := dep.Resolve()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return err
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		return err
	}
	defer db.Close()
	store := state.NewStore(db)
	if err := state.EnsureStateVersion(rootCtx, store); err != nil {
		return err
	}

	engine, err := issuance.NewEngine(resolved.Program, resolved.Seed)
	if err != nil {
		return err
	}
	engine.SetStore(store)
	engine.SetLogger(logger)

	hub := server.NewHub(cfg.Stream.Buffer, logger)
	emitters := events.Multi{hub}

	var mintIndex server.MintIndex
	if strings.TrimSpace(cfg.Index.DSN) != "" {
		idx, err := index.Open(cfg.Index.Driver, cfg.Index.DSN, logger)
		if err != nil {
			return err
		}
		defer idx.Close()
		mintIndex = idx
		emitters = append(emitters, idx)
	}

	if strings.TrimSpace(cfg.Broker.URL) != "" {
		nats, err := broker.Connect(cfg.Broker.URL, cfg.Broker.SubjectPrefix, logger)
		if err != nil {
			return err
		}
		defer nats.Close()
		emitters = append(emitters, nats)
	}
	engine.SetEmitter(emitters)

	if _, err := genesis.Apply(rootCtx, engine, store, resolved, logger); err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		ListenAddress:      cfg.ListenAddress,
		ShutdownTimeout:    cfg.ShutdownTimeout.Duration,
		StreamWriteTimeout: cfg.Stream.WriteTimeout.Duration,
		StreamOrigins:      cfg.CORS.AllowedOrigins,
		CORS:               cfg.CORS,
	}, server.Options{
		Engine:        engine,
		Hub:           hub,
		Index:         mintIndex,
		Auth:          middleware.NewAuthenticator(cfg.Auth, logger),
		Limiter:       middleware.NewRateLimiter(cfg.RateLimits, logger),
		Observability: middleware.NewObservability(cfg.Observability, logger),
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	logger.Info("issuanced starting",
		"program", resolved.Program.String(),
		"seed", resolved.Seed,
		"config", engine.Authorities().Config.String(),
		logging.MaskField("index_dsn", cfg.Index.DSN))
	return srv.Run(rootCtx)
}
