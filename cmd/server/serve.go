package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/PJ1229/OOTD/internal/catalog"
	"github.com/PJ1229/OOTD/internal/config"
	"github.com/PJ1229/OOTD/internal/database"
	"github.com/PJ1229/OOTD/internal/fashn"
	"github.com/PJ1229/OOTD/internal/feed"
	"github.com/PJ1229/OOTD/internal/handlers"
	"github.com/PJ1229/OOTD/internal/logging"
	"github.com/PJ1229/OOTD/internal/server"
	"github.com/PJ1229/OOTD/internal/storage"
	"github.com/PJ1229/OOTD/internal/supabase"
	"github.com/PJ1229/OOTD/internal/swipe"
	"github.com/PJ1229/OOTD/internal/tryon"
)

func newServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Example: `  # Start on $PORT (default 8080) and apply migrations first
  ootd serve --migrate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := logging.New(cfg.LogLevel, cfg.Environment)
			return serve(cmd.Context(), cfg, logger, migrate)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "Apply pending migrations before serving")

	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logger zerolog.Logger, migrate bool) error {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	sb, err := supabase.NewClient(cfg)
	if err != nil {
		return err
	}

	var (
		db       *supabase.DatabaseClient
		store    supabase.PostStore
		registry *feed.Registry
		realtime *supabase.RealtimeClient
		jobs     handlers.TryOnJobLister
		recorder tryon.JobRecorder
	)
	store = sb.Posts()
	ready := map[string]handlers.Pinger{}
	if cfg.DatabaseURL == "" {
		logger.Warn().Msg("DATABASE_URL not set: live feeds, job history and migrations are disabled")
	} else {
		if migrate {
			if err := runMigrations(ctx, cfg, logger); err != nil {
				return err
			}
		}

		db, err = supabase.NewDatabaseClient(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		store, jobs, recorder = db, db, db
		ready["database"] = db

		realtime = supabase.NewRealtimeClient(cfg.DatabaseURL, logger)
		defer realtime.Close()
		registry = feed.NewRegistry(&supabase.PostsFeed{Store: db, Realtime: realtime}, logger)
		defer registry.Close()
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}

	tryOnService, err := newTryOnService(ctx, cfg, logger, sb, recorder)
	if err != nil {
		return err
	}

	// Library garments are the only images fetched server side; redirects
	// away from the catalog host are not followed.
	garmentClient := &http.Client{
		Timeout:       30 * time.Second,
		CheckRedirect: noRedirect,
	}

	key := feed.Key{Channel: database.PostsChannel, Table: database.PostsTable}
	router := server.NewRouter(cfg, logger, server.Handlers{
		Auth:        handlers.NewAuthHandler(sb.Auth()),
		Posts:       handlers.NewPostsHandler(store, sb.Storage(cfg.SupabaseStorageBucket), registry, key, logger),
		Swipe:       handlers.NewSwipeHandler(swipe.NewDecks(store, cfg.SwipeThreshold, cfg.SwipeSettleDelay), store),
		Leaderboard: handlers.NewLeaderboardHandler(store, registry, key, logger),
		Catalog:     handlers.NewCatalogHandler(cat),
		TryOn:       handlers.NewTryOnHandler(tryOnService, cat, cfg.BaseURL, garmentClient, jobs),
		Ready:       ready,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("environment", cfg.Environment).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		return err
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// SSE handlers only return once their request context ends, so streams
	// are cut before waiting on the server.
	if registry != nil {
		registry.Close()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	if err := tryOnService.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("try-on jobs still polling at shutdown")
	}
	logger.Info().Msg("server stopped")
	return nil
}

func noRedirect(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

func runMigrations(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	migrator, err := database.NewMigrator(cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer migrator.Close()

	if _, err := migrator.Run(ctx); err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}
	return nil
}

// newTryOnService wires the synthesis client and the configured archive
// backend. recorder may be nil.
func newTryOnService(ctx context.Context, cfg *config.Config, logger zerolog.Logger, sb *supabase.Client, recorder tryon.JobRecorder) (*tryon.Service, error) {
	api := fashn.NewClient(cfg.FashnBaseURL, cfg.FashnAPIKey)

	var archive storage.ObjectStore
	switch cfg.TryOnArchive {
	case config.ArchiveSupabase:
		archive = sb.Storage(cfg.TryOnBucket)
	case config.ArchiveS3:
		s3Store, err := storage.NewS3Store(ctx, cfg.AWSRegion, cfg.AWSS3Bucket)
		if err != nil {
			return nil, err
		}
		archive = s3Store
	}

	return tryon.NewService(api, tryon.Options{
		Poll: tryon.PollConfig{
			Interval:    cfg.TryOnPollInterval,
			MaxAttempts: cfg.TryOnPollMaxAttempts,
			Timeout:     cfg.TryOnPollTimeout,
		},
		SessionTTL: cfg.TryOnSessionTTL,
		Category:   cfg.TryOnCategory,
		Recorder:   recorder,
		Archive:    archive,
		Downloader: api,
		Logger:     logger,
	}), nil
}
