package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wellness-check-service/internal/app"
	"wellness-check-service/internal/config"
	"wellness-check-service/internal/infra/memory"
	"wellness-check-service/internal/infra/postgres"
	redisinfra "wellness-check-service/internal/infra/redis"
	"wellness-check-service/internal/infra/ses"
	"wellness-check-service/internal/logger"
	transport "wellness-check-service/internal/transport/http"
	"wellness-check-service/internal/wellness"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the wellness check server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	settings, err := wellnessSettings(cfg.Wellness)
	if err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var (
		loader   memory.DelegateLoader = memory.NewStaticDelegateLoader(nil)
		recorder app.AttemptRecorder   = memory.NewAttemptLog(log)
	)
	if cfg.Postgres.URL != "" {
		db := openBun(cfg.Postgres.URL)
		defer db.Close()
		if err := runMigrations(ctx, db, log); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = postgres.NewDelegateLoader(pool)
		recorder = postgres.NewAttemptRecorder(db)
	} else {
		log.Warn("postgres not configured: attempts stay in memory and no delegates are known")
	}

	delegateTTL := config.DurationOr(cfg.Wellness.DelegateCacheTTL, 10*time.Minute)
	sessionTTL := config.DurationOr(cfg.Redis.TTL, 10*time.Minute)

	var (
		directory app.DelegateDirectory
		trackers  app.TrackerStore
		sessions  app.SessionRepository
	)
	if redisClient != nil {
		directory = redisinfra.NewDelegateDirectory(redisClient, loader, delegateTTL)
		trackers = redisinfra.NewTrackerStore(redisClient, settings.FailureWindow)
		sessions = redisinfra.NewSessionStore(redisClient, sessionTTL)
	} else {
		directory = memory.NewDelegateDirectory(loader, delegateTTL)
		trackers = memory.NewTrackerStore()
		sessions = memory.NewSessionStore()
	}

	var notifier app.Notifier = memory.NewOutbox(log)
	if cfg.Notify.SES.FromEmail != "" {
		notifier, err = ses.NewNotifier(ctx, ses.Config{
			Region:     cfg.Notify.SES.Region,
			FromEmail:  cfg.Notify.SES.FromEmail,
			FromName:   cfg.Notify.SES.FromName,
			AppBaseURL: cfg.Notify.SES.AppBaseURL,
		}, log)
		if err != nil {
			return err
		}
	}

	sideEffectTimeout := config.DurationOr(cfg.Wellness.SideEffectTimeout, 10*time.Second)
	dispatcher := app.NewDispatcher(recorder, directory, notifier, trackers, sideEffectTimeout, log)
	service := app.NewWellnessService(sessions, trackers, dispatcher, settings, log)
	wsHandler := transport.NewWSHandler(service, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting wellness check service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down server")
	case err := <-serveErr:
		log.Error("server stopped", zap.Error(err))
		service.CloseAll(context.Background())
		dispatcher.Wait()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	// Closed sessions stop dispatching and every side effect is bounded by its own timeout,
	// so draining terminates.
	service.CloseAll(shutdownCtx)
	dispatcher.Wait()
	return err
}

func wellnessSettings(cfg config.Wellness) (app.Settings, error) {
	policy, err := wellness.ParseEscalationPolicy(cfg.EscalationPolicy)
	if err != nil {
		return app.Settings{}, err
	}
	pools, err := wellness.PoolsOrDefault(cfg.WordSets, cfg.Distractors)
	if err != nil {
		return app.Settings{}, err
	}
	defaults := wellness.DefaultTimings()
	timings := wellness.Timings{
		Study:    config.DurationOr(cfg.Study, defaults.Study),
		GetReady: config.DurationOr(cfg.GetReady, defaults.GetReady),
		Response: config.DurationOr(cfg.Response, defaults.Response),
	}
	if err := timings.Validate(); err != nil {
		return app.Settings{}, err
	}
	return app.Settings{
		Timings:          timings,
		FailureWindow:    config.DurationOr(cfg.FailureWindow, wellness.DefaultFailureWindow),
		FailureThreshold: cfg.FailureThreshold,
		Policy:           policy,
		Pools:            pools,
	}, nil
}
