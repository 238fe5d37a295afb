package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"hotel_ops/internal/adapters/observability"
	"hotel_ops/internal/app"
	"hotel_ops/internal/shared"
	mysqlrepo "hotel_ops/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()
	file := flag.String("file", cfg.SeedFile, "seed JSON file")
	workers := flag.Int("workers", cfg.SeedWorkers, "concurrent inserts")
	flag.Parse()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("file", *file).Int("workers", *workers).Msg("seeder starting")

	f, err := os.Open(*file)
	if err != nil {
		log.Fatal().Err(err).Msg("open seed file failed")
	}
	data, err := app.ParseSeed(f)
	_ = f.Close()
	if err != nil {
		log.Fatal().Err(err).Msg("parse seed file failed")
	}

	db, err := mysqlrepo.Open(ctx, cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("mysql connect failed")
	}
	defer db.Close()
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	seeder := app.NewSeeder(app.NewRoomService(repo, nil), app.NewGuestService(repo))

	rep, err := seeder.Import(ctx, data, *workers)
	if err != nil {
		log.Error().Err(err).Msg("seeding interrupted")
	}
	log.Info().
		Int64("created", rep.Created).
		Int64("skipped", rep.Skipped).
		Int64("failed", rep.Failed).
		Msg("seeding completed")
	if rep.Failed > 0 || err != nil {
		stop()
		db.Close()
		os.Exit(1)
	}
}
