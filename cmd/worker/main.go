// Worker purges expired OAuth states and issued-token records from a shared store.
// Use it when several server replicas point at one Postgres or SQLite database; the
// in-process janitor in cmd/server covers single-node deployments.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lunchpaillola/docusign-voice/internal/config"
	"github.com/lunchpaillola/docusign-voice/internal/oauth/repository"
	"github.com/lunchpaillola/docusign-voice/internal/server"
)

func main() {
	once := flag.Bool("once", false, "Purge once and exit (for cron)")
	interval := flag.Duration("interval", server.DefaultPurgeInterval, "Purge interval")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.StoreDriver == config.StoreMemory {
		log.Fatal("worker: STORE_DRIVER=memory has nothing to purge out of process")
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With(slog.String("component", "worker"))

	stores, err := repository.Open(cfg.StoreDriver, cfg.DatabaseURL, cfg.AutoMigrate)
	if err != nil {
		log.Fatalf("worker: %v", err)
	}
	defer stores.Close()

	tasks := map[string]server.PurgeFunc{
		"states": func(ctx context.Context) (int64, error) {
			return stores.States.DeleteExpired(ctx, time.Now().UTC())
		},
		"tokens": func(ctx context.Context) (int64, error) {
			return stores.Tokens.DeleteExpired(ctx, time.Now().UTC())
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once {
		for _, name := range []string{"states", "tokens"} {
			server.PurgeOnce(ctx, logger, name, tasks[name])
		}
		return
	}
	logger.Info("worker: purging expired records", slog.Duration("interval", *interval))
	server.RunJanitor(ctx, *interval, logger, tasks)
	logger.Info("worker: stopped")
}
