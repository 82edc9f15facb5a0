package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/api"
	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/auth"
	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/config"
	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/engine"
	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/metric"
	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/mirror"
	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/permission"
	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/provider"
	"github.com/alessandro-lagamba/wellness-coach-sub007/internal/snapshot"
	httptransport "github.com/alessandro-lagamba/wellness-coach-sub007/internal/transport/http"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("invalid timezone %q: %v", cfg.Timezone, err)
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	producer := mirror.NewSnapshotProducer(cfg.KafkaBrokers)
	defer producer.Close()

	store := mirror.NewStore(pool)
	dispatcher := mirror.NewDispatcher(pool, producer, cfg.MirrorPollInterval, cfg.MirrorBatchSize)
	go dispatcher.Start(ctx)

	readers, permSource := buildProviders(cfg)
	tracker := permission.NewTracker(permSource)
	cache := snapshot.New()

	coordinator := engine.New(cfg.UserID, readers, tracker, cache, store,
		engine.WithDebounce(cfg.SyncDebounce),
		engine.WithCycleTimeout(cfg.SyncCycleTimeout),
		engine.WithLocation(loc),
	)

	handler := api.NewHandler(coordinator)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}, func(r *http.Request) bool {
		return r.URL.Path == "/healthz" || r.URL.Path == "/metrics"
	})

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address: cfg.HTTPAddress,
	}, authMiddleware.Wrap(mux))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("health engine listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	dispatcher.Wait()
}

// buildProviders wires one paged reader per configured bridge endpoint.
// Without bridges (local dev) a scripted in-memory provider stands in, so
// the engine is exercisable end to end on a laptop.
func buildProviders(cfg config.Config) ([]provider.Reader, permission.Source) {
	if len(cfg.BridgeURLs) == 0 {
		mem := provider.NewMemoryProvider("dev.local.phone")
		seedDevRecords(mem)
		return []provider.Reader{mem}, permission.NewStaticSource(
			metric.CategorySteps,
			metric.CategoryHeartRate,
			metric.CategorySleep,
			metric.CategoryHRV,
		)
	}

	readers := make([]provider.Reader, 0, len(cfg.BridgeURLs))
	for i, url := range cfg.BridgeURLs {
		origin := fmt.Sprintf("bridge-%d", i)
		readers = append(readers, provider.NewPagedReader(provider.NewHTTPBridge(origin, url, cfg.BridgeTimeout)))
	}
	return readers, permission.NewHTTPSource(cfg.BridgeURLs[0], cfg.BridgeTimeout)
}

func seedDevRecords(mem *provider.MemoryProvider) {
	now := time.Now()
	morning := time.Date(now.Year(), now.Month(), now.Day(), 7, 30, 0, 0, time.Local)

	mem.Add(metric.CategorySteps, metric.RawRecord{
		OriginID: mem.Origin(), Type: metric.CategorySteps,
		Start: morning, End: morning.Add(30 * time.Minute), Value: 2400, MetadataID: "seed-steps",
	})
	mem.Add(metric.CategoryHeartRate, metric.RawRecord{
		OriginID: mem.Origin(), Type: metric.CategoryHeartRate,
		Start: morning, End: morning, Value: 64, MetadataID: "seed-hr",
	})
	mem.Add(metric.CategorySleep, metric.RawRecord{
		OriginID: mem.Origin(), Type: metric.CategorySleep,
		Start: morning.Add(-8 * time.Hour), End: morning.Add(-30 * time.Minute),
		MetadataID: "seed-sleep",
		Stages: []metric.StageInterval{
			{Stage: "Deep sleep", Start: morning.Add(-8 * time.Hour), End: morning.Add(-6 * time.Hour)},
			{Stage: "REM", Start: morning.Add(-6 * time.Hour), End: morning.Add(-5 * time.Hour)},
			{Stage: "Light", Start: morning.Add(-5 * time.Hour), End: morning.Add(-30 * time.Minute)},
		},
	})
}
