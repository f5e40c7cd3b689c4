package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/voyagen/streamplus/internal/cache"
	"github.com/voyagen/streamplus/internal/config"
	"github.com/voyagen/streamplus/internal/engine"
	"github.com/voyagen/streamplus/internal/prober"
	"github.com/voyagen/streamplus/internal/progress"
	"github.com/voyagen/streamplus/internal/server"
	"github.com/voyagen/streamplus/internal/service"
	"github.com/voyagen/streamplus/internal/store"
)

func main() {
	configPath := flag.String("config", "", "Optional config file path (YAML); else use env DATABASE_URL")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Run migrations.
	absMigrations, err := filepath.Abs("migrations")
	if err != nil {
		absMigrations = "migrations"
	}
	if _, err := os.Stat(absMigrations); err != nil {
		if exe, e := os.Executable(); e == nil {
			absMigrations = filepath.Join(filepath.Dir(exe), "migrations")
		}
	}
	migrationsPath := "file://" + absMigrations
	if err := store.RunMigrations(cfg.DatabaseURL, migrationsPath); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}

	pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "db: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()

	// Connect to Redis if REDIS_URL is configured.
	var rds *cache.Redis
	var appStore store.Store = pg
	if cfg.RedisURL != "" {
		rds, err = cache.New(cfg.RedisURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "redis: %v\n", err)
			os.Exit(1)
		}
		defer rds.Close()

		if err := rds.Ping(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "redis ping: %v\n", err)
			os.Exit(1)
		}

		appStore = store.NewCachedStore(pg, rds)
		fmt.Fprintln(os.Stderr, "redis connected (caching enabled)")
	} else {
		fmt.Fprintln(os.Stderr, "redis disabled (REDIS_URL not set)")
	}

	pr := prober.NewFFProbe(cfg.FFProbePath, cfg.ProbeTimeout)

	var locker engine.Locker
	if rds != nil {
		locker = engine.NewRedisLocker(rds)
	}
	hub := progress.NewHub()
	eng := engine.New(appStore, pr, hub, locker, cfg.ProbeConcurrency)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start the background probe job worker if Redis is available.
	if rds != nil {
		go runProbeWorker(ctx, rds, appStore, pr, cfg.ProbeConcurrency)
	}

	srv := server.New(appStore, cfg, eng, hub, pr, rds)
	if err := srv.ListenAndServe(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

// runProbeWorker continuously dequeues probe jobs from Redis and processes
// them. It stops when ctx is cancelled (graceful shutdown).
func runProbeWorker(ctx context.Context, rds *cache.Redis, s store.Store, pr prober.Prober, concurrency int) {
	log.Println("probe worker started")
	for {
		select {
		case <-ctx.Done():
			log.Println("probe worker stopping")
			return
		default:
		}

		job, err := cache.Dequeue(ctx, rds, cache.DefaultQueue, 5*time.Second)
		if err != nil {
			log.Printf("probe worker: dequeue error: %v", err)
			time.Sleep(2 * time.Second)
			continue
		}
		if job == nil {
			continue // timeout, loop back to check ctx
		}

		log.Printf("probe worker: processing job account_id=%d account=%q force=%v",
			job.AccountID, job.AccountName, job.Force)

		tested, failed, err := service.RefreshStats(ctx, s, pr, *job, concurrency)
		if err != nil {
			log.Printf("probe worker: RefreshStats error: %v", err)
			continue
		}
		log.Printf("probe worker: account %q done, %d tested, %d failed", job.AccountName, tested, failed)
	}
}
