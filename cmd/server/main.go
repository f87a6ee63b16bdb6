// Command server runs the mystery box HTTP API, the notification dispatcher and the scheduler.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aimd54/mystery-box/internal/api"
	"github.com/aimd54/mystery-box/internal/api/admin"
	"github.com/aimd54/mystery-box/internal/api/dashboard"
	"github.com/aimd54/mystery-box/internal/api/webhook"
	"github.com/aimd54/mystery-box/internal/auth"
	"github.com/aimd54/mystery-box/internal/catalog"
	"github.com/aimd54/mystery-box/internal/config"
	"github.com/aimd54/mystery-box/internal/discord"
	"github.com/aimd54/mystery-box/internal/notify"
	"github.com/aimd54/mystery-box/internal/repository"
	"github.com/aimd54/mystery-box/internal/service/allocation"
	"github.com/aimd54/mystery-box/internal/service/claims"
	"github.com/aimd54/mystery-box/internal/service/payments"
	"github.com/aimd54/mystery-box/internal/service/scheduler"
	"github.com/aimd54/mystery-box/internal/stripe"
	"github.com/aimd54/mystery-box/pkg/logger"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("mystery-box %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", buildDate)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log := logger.Get()
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Server exited with error")
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.NewDB(&cfg.Database.Postgres, log)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if cfg.Database.Postgres.MigrateOnStart {
		if err := db.Migrate(); err != nil {
			return err
		}
	}

	redisClient, err := notify.NewRedisClient(ctx, cfg.Database.Redis)
	if err != nil {
		return err
	}
	defer func() { _ = redisClient.Close() }()
	queue := notify.NewQueue(redisClient, cfg.Notifications.QueueKey)

	prizes, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return err
	}
	log.Info().
		Int("prizes", len(prizes.Entries())).
		Int("boxes", prizes.TotalBoxes()).
		Str("source", orBuiltin(cfg.Catalog.Path)).
		Msg("Prize catalog loaded")

	claimRepo := repository.NewClaimRepository(db)
	userRepo := repository.NewUserRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	prizeTypeRepo := repository.NewPrizeTypeRepository(db)

	engine := allocation.NewEngine(prizes, cfg.Allocation.WeightConstant, prizeTypeRepo)
	claimService := claims.NewService(claimRepo, userRepo, paymentRepo, notificationRepo, engine, queue, log.Component("claims"))
	gateway := stripe.NewGateway(cfg.Stripe, cfg.Server.BaseURL)
	paymentService := payments.NewService(gateway, paymentRepo, userRepo, claimService, log.Component("payments"))

	sched := scheduler.NewService(&cfg.Scheduler, claimService, queue, queue, log.Component("scheduler"))
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	sink := discord.NewClient(&cfg.Discord, log.Component("discord"))
	dispatcher := notify.NewDispatcher(
		queue,
		sink,
		cfg.Notifications.MaxAttempts,
		cfg.Notifications.BaseBackoffDuration(),
		cfg.Notifications.PollIntervalDuration(),
		log.Component("dispatcher"),
	)
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Run(ctx)
	}()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.NewRouter(api.RouterConfig{
		Admin:     admin.NewHandler(claimService, notificationRepo, log),
		Dashboard: dashboard.NewHandler(paymentService, claimService, log),
		Webhook:   webhook.NewHandler(paymentService, log),
		Verifier:  auth.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Users:     userRepo,
		Gate:      auth.NewGate(cfg.Auth),
		Database:  db,
		Log:       log,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	servers := []*http.Server{srv}
	if cfg.Metrics.Prometheus.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Prometheus.Path, promhttp.Handler())
		servers = append(servers, &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Prometheus.Port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	errCh := make(chan error, len(servers))
	for _, s := range servers {
		go func(s *http.Server) {
			log.Info().Str("addr", s.Addr).Msg("Listening")
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("server %s: %w", s.Addr, err)
			}
		}(s)
	}

	log.Info().
		Str("environment", cfg.Server.Environment).
		Str("version", version).
		Msg("Mystery box server started")

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server...")
	case serveErr = <-errCh:
		log.Error().Err(serveErr).Msg("Server failed, shutting down")
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	for _, s := range servers {
		if err := s.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Str("addr", s.Addr).Msg("Server shutdown error")
		}
	}
	<-dispatcherDone

	log.Info().Msg("Server stopped")
	return serveErr
}

func orBuiltin(path string) string {
	if path == "" {
		return "builtin"
	}
	return path
}
