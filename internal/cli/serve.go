package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"adeptly/internal/cache"
	"adeptly/internal/graph"
	"adeptly/internal/models"
	"adeptly/internal/observability"
	"adeptly/internal/oss"
	"adeptly/internal/routers"
	"adeptly/internal/scheduler"
	"adeptly/internal/services"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer e.close()
		return serve(cmd.Context(), e)
	},
}

func serve(ctx context.Context, e *env) error {
	cfg, log := e.cfg, e.log

	if _, err := models.SeedDefaults(ctx, e.db); err != nil {
		return fmt.Errorf("seed defaults: %w", err)
	}
	ranks, err := models.LoadRankTable(ctx, e.db)
	if err != nil {
		return err
	}

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	// Optional backends stay nil interfaces when disabled.
	var mirror services.GraphMirror
	if cfg.GraphDatabase.Neo4j.Enabled {
		client, err := graph.NewNeo4jClient(ctx, graph.ConfigFrom(cfg.GraphDatabase.Neo4j), log)
		if err != nil {
			log.Warn("neo4j unavailable, topic graph disabled", "error", err)
		} else {
			defer client.Close(context.Background())
			mirror = graph.NewTopicGraphService(client)
			log.Info("topic graph enabled", "uri", cfg.GraphDatabase.Neo4j.URI)
		}
	}

	var diagrams services.DiagramStore
	if cfg.OSS.Enabled {
		store, err := oss.NewDiagramStore(cfg.OSS)
		if err != nil {
			log.Warn("diagram store misconfigured, diagrams disabled", "error", err)
		} else if err := store.EnsureBucket(ctx); err != nil {
			log.Warn("diagram bucket unavailable, diagrams disabled", "bucket", store.Bucket(), "error", err)
		} else {
			diagrams = store
			log.Info("diagram store enabled", "bucket", store.Bucket())
		}
	}

	var lbCache services.LeaderboardCache
	if cfg.Redis.Enabled {
		c, err := cache.NewLeaderboardCache(ctx, cfg.Redis)
		if err != nil {
			log.Warn("redis unavailable, leaderboard cache disabled", "error", err)
		} else {
			defer c.Close()
			lbCache = c
			log.Info("leaderboard cache enabled", "addr", cfg.Redis.Addr)
		}
	}

	runner := services.NewSessionRunner(e.db, services.NewExperienceEngine(ranks), mirror, lbCache, diagrams, log)
	app := &routers.App{
		DB:          e.db,
		Config:      cfg,
		Log:         log,
		Selector:    services.NewSessionSelector(e.db, nil, cfg.Training.FallbackAverageMinutes, log),
		Runner:      runner,
		Leaderboard: services.NewLeaderboardService(e.db, lbCache, runner, cfg.Training.LeaderboardSize, log),
		Profile:     services.NewProfileService(e.db),
		Catalog:     services.NewCatalogService(e.db, mirror, diagrams, log),
	}

	if cfg.Audit.Enabled {
		sched := scheduler.New(services.NewLedgerAuditor(e.db, log), cfg.Audit.Interval, log)
		if err := sched.Start(); err != nil {
			return fmt.Errorf("start audit scheduler: %w", err)
		}
		defer sched.Stop()
	}

	srv := &http.Server{
		Addr:              cfg.GetServerAddr(),
		Handler:           routers.NewEngine(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}
