package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	server "hotel_ops/internal/adapters/http_server"
	"hotel_ops/internal/adapters/memlock"
	"hotel_ops/internal/adapters/observability"
	"hotel_ops/internal/adapters/rabbitmq"
	redisad "hotel_ops/internal/adapters/redis"
	"hotel_ops/internal/app"
	"hotel_ops/internal/domain"
	"hotel_ops/internal/shared"
	"hotel_ops/internal/storage/memory"
	mysqlrepo "hotel_ops/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	policy, err := app.ParseDeletePolicy(cfg.DeletePolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid BOOKING_DELETE_POLICY")
	}

	// storage
	var store domain.Store
	switch cfg.Storage {
	case "memory":
		store = memory.New()
		log.Warn().Msg("using in-memory storage; data is lost on exit")
	default:
		db, err := mysqlrepo.Open(ctx, cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("mysql connect failed")
		}
		defer db.Close()
		store = mysqlrepo.New(db)
		log.Info().Msg("database connection ok")
	}

	// cache + room lock
	var (
		cache  domain.Cache
		locker domain.RoomLocker = memlock.New()
	)
	if cfg.RedisAddr != "" {
		rc, err := redisad.NewClient(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis connect failed")
		}
		defer rc.Close()
		cache = redisad.NewCache(rc)
		locker = redisad.NewRoomLocker(rc, cfg.LockTTL)
		log.Info().Str("addr", cfg.RedisAddr).Msg("redis cache and room lock enabled")
	}

	// events
	var events domain.EventPublisher = app.NopPublisher{}
	if cfg.RabbitURL != "" {
		pub, err := rabbitmq.Dial(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			log.Fatal().Err(err).Msg("rabbitmq connect failed")
		}
		defer pub.Close()
		events = pub
		log.Info().Str("queue", cfg.RabbitQueue).Msg("event publishing enabled")
	}

	// http
	reg := observability.InitRegistry()
	srv := server.New(cfg.RateLimitRPS)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Rooms:    app.NewRoomService(store, cache),
		Guests:   app.NewGuestService(store),
		Pricing:  app.NewPricingService(store, cache),
		Avail:    app.NewAvailabilityChecker(store),
		Bookings: app.NewBookingService(store, locker, events, policy),
		Payments: app.NewPaymentService(store, events),
		Q:        app.NewQueryService(store, cache, cfg.CacheTTL),
	})
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return observability.Serve(gctx, cfg.MetricsAddr, reg) })
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Str("storage", cfg.Storage).Str("delete_policy", string(policy)).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		return
	}
	log.Info().Msg("shutdown complete")
}
