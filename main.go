package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"AvatarElite/ai"
	"AvatarElite/bot"
	"AvatarElite/core"
	"AvatarElite/gen"
	"AvatarElite/holder"
	"AvatarElite/ledger"
	"AvatarElite/lib/sl"
	"AvatarElite/payment"
	"AvatarElite/storage"
	"AvatarElite/web"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {

	configPath := flag.String("conf", "config.yml", "path to config file")
	flag.Parse()

	conf := core.MustLoad(*configPath)
	log := setupLogger(conf.Env)
	log.With(
		slog.String("config", *configPath),
		slog.String("env", conf.Env),
		slog.String("backend", conf.Backend),
		slog.String("storage", conf.Storage.Mode),
	).Info("starting avatar bot")

	store := setupStorage(conf, log)
	if store == nil {
		log.Warn("no account storage configured, credit checks fail open")
	}

	led := ledger.New(store, log)
	sessions := holder.NewManager()
	payments := payment.NewService(conf, log)

	var backend ai.ImageGenerator
	switch conf.Backend {
	case core.BackendSeedream:
		backend = ai.NewSeedream(conf.SeedreamKey, log)
	default:
		backend = ai.NewNanoBanana(conf.NanoBananaKey, log)
	}

	tgBot, err := bot.NewTgBot(conf, log, sessions, led, payments)
	if err != nil {
		log.Error("creating telegram bot", sl.Err(err))
		return
	}

	// The bot is both the notifier and the file fetcher, so the
	// orchestrator is wired in after construction
	orch := gen.NewOrchestrator(backend, led, tgBot, tgBot, log, conf.RefundOnFailure)
	tgBot.SetOrchestrator(orch)

	srv := web.New(conf.Listen, payments, led, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return tgBot.Start()
	})
	group.Go(func() error {
		return srv.Run()
	})
	group.Go(func() error {
		<-groupCtx.Done()
		tgBot.Stop()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	log.Info("bot started")

	if err := group.Wait(); err != nil {
		log.Error("stopped with error", sl.Err(err))
	}

	if store != nil {
		if err := store.Close(); err != nil {
			log.Error("closing storage", sl.Err(err))
		}
	}

	log.Info("shutdown complete")
}

// setupStorage picks the account store from config, falling back to
// memory when the durable option is unreachable. A nil return means the
// deliberate no-store degraded mode.
func setupStorage(conf *core.Config, log *slog.Logger) storage.AccountStorage {
	switch conf.Storage.Mode {
	case core.StorageMongo:
		store, err := storage.NewMongoStorage(conf.MongoURI(), conf.Storage.Mongo.Database, log)
		if err != nil {
			log.With(
				slog.String("db", conf.Storage.Mongo.Database),
				slog.String("host", conf.Storage.Mongo.Host),
			).Error("falling back to memory", sl.Err(err))
			return storage.NewMemoryStorage()
		}
		log.Info("using MongoDB storage")
		return store
	case core.StorageSQLite:
		store, err := storage.NewSQLiteStorage(conf.Storage.SQLitePath)
		if err != nil {
			log.With(
				slog.String("path", conf.Storage.SQLitePath),
			).Error("falling back to memory", sl.Err(err))
			return storage.NewMemoryStorage()
		}
		log.Info("using SQLite storage")
		return store
	case core.StorageNone:
		return nil
	default:
		log.Info("using in-memory storage")
		return storage.NewMemoryStorage()
	}
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
