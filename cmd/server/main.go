package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"thermal-backend/internal/api"
	"thermal-backend/internal/artifact"
	"thermal-backend/internal/comfort"
	"thermal-backend/internal/database"
	"thermal-backend/internal/features"
	"thermal-backend/internal/mqtt"
	"thermal-backend/internal/services"
	"thermal-backend/internal/thinq"
	"thermal-backend/pkg/config"
	"thermal-backend/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Env); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Create context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Fatalf("Thermal backend stopped: %v", err)
	}
	logger.Info("Shutdown complete")
}

// run loads the model, then binds the port and serves until ctx is done.
// A missing or invalid artifact aborts before anything listens.
func run(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ln, err := net.Listen("tcp", cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Addr(), err)
	}
	return a.serve(ctx, ln)
}

// app holds the wired services for one server process
type app struct {
	cfg     *config.Config
	handler http.Handler
	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger.Info("Starting thermal backend...")
	a := &app{cfg: cfg}

	set, err := features.Lookup(cfg.Model.FeatureSet)
	if err != nil {
		return nil, err
	}

	// === Load model artifact ===
	bundle, err := artifact.LoadEnsemble(cfg.Model.ArtifactPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}

	predictionConfig := services.PredictionServiceConfig{
		FeatureSet: set,
		Preset:     comfort.Serving,
		DeviceID:   cfg.ThinQ.DeviceID,
	}

	// === Initialize ClickHouse prediction log ===
	if cfg.ClickHouse.Enabled {
		db, err := database.NewClickHouseDB(ctx, cfg.ClickHouse.Addr, cfg.ClickHouse.Database, cfg.ClickHouse.User, cfg.ClickHouse.Password)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to initialize ClickHouse: %w", err)
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		predictionConfig.Recorder = db
	}

	// === Initialize MQTT decision publisher ===
	if cfg.MQTT.Enabled {
		client, err := mqtt.NewClient(cfg.MQTT)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to initialize MQTT client: %w", err)
		}
		a.closers = append(a.closers, client.Close)

		publisherConfig := mqtt.DefaultPublisherConfig()
		publisherConfig.DecisionTopic = cfg.MQTT.DecisionTopic
		publisherConfig.QoS = cfg.MQTT.QoS
		publisher := mqtt.NewPublisher(client.GetNativeClient(), publisherConfig)
		go publisher.Start(ctx)
		predictionConfig.Publisher = publisher
	}

	predictor, err := services.NewPredictionService(bundle, predictionConfig)
	if err != nil {
		a.close()
		return nil, err
	}

	// === Initialize air conditioner relay ===
	var aircon api.Aircon
	if cfg.ThinQ.Token != "" && cfg.ThinQ.DeviceID != "" {
		client := thinq.NewClient(thinq.ClientConfig{
			BaseURL:            cfg.ThinQ.BaseURL,
			Token:              cfg.ThinQ.Token,
			APIKey:             cfg.ThinQ.APIKey,
			Country:            cfg.ThinQ.Country,
			ClientID:           cfg.ThinQ.ClientID,
			Timeout:            cfg.ThinQ.Timeout,
			ConditionalControl: cfg.ThinQ.ConditionalControl,
		})
		aircon = services.NewAirconService(client, cfg.ThinQ.DeviceID)
	} else {
		logger.Warn("ThinQ credentials not set, air conditioner relay disabled")
	}

	accessLog := zap.NewStdLog(logger.Get().Desugar()).Writer()
	a.handler = api.NewRouter(predictor, aircon, api.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AccessLog:      accessLog,
	})

	logger.Infof("Model: %s (%s, %d features) from %s",
		bundle.ModelType, bundle.FeatureSet, len(bundle.Features), cfg.Model.ArtifactPath)
	logger.Infof("ClickHouse prediction log: %v, MQTT decisions: %v", cfg.ClickHouse.Enabled, cfg.MQTT.Enabled)
	return a, nil
}

// serve runs the HTTP server on ln until ctx is done, then shuts down
func (a *app) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      a.handler,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	logger.Infof("=== Thermal backend listening on %s ===", ln.Addr())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)

	case <-ctx.Done():
		logger.Info("Shutdown signal received, stopping server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	}
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
