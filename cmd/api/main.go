package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/noticecast/api/routes"
	"github.com/angelmondragon/noticecast/internal/broadcast"
	"github.com/angelmondragon/noticecast/internal/notices"
	"github.com/angelmondragon/noticecast/pkg/config"
	"github.com/angelmondragon/noticecast/pkg/db"
	"github.com/angelmondragon/noticecast/pkg/instance"
	"github.com/angelmondragon/noticecast/pkg/logger"
	"github.com/angelmondragon/noticecast/pkg/metrics"
	"github.com/angelmondragon/noticecast/pkg/migrate"
	"github.com/angelmondragon/noticecast/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(cfg.Service.Kind),
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	broadcastMetrics := metrics.NewBroadcastMetrics(reg)
	hub := broadcast.NewHub(cfg.Broadcast.SubscriberBuffer, broadcastMetrics)

	var publisher broadcast.Publisher
	if cfg.FeatureFlags.RedisRelay {
		channel := redisClient.ChannelName(cfg.Broadcast.Channel)
		relay, err := broadcast.NewRelay(broadcast.RelayParams{
			Subscriber: redisClient,
			Channel:    channel,
			Hub:        hub,
			Logger:     logg,
		})
		if err != nil {
			logg.Error(ctx, "failed to create broadcast relay", err)
			os.Exit(1)
		}
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(ctx, "broadcast relay stopped", err)
			}
		}()
		publisher, err = broadcast.NewRedisPublisher(broadcast.RedisPublisherParams{
			Client:  redisClient,
			Channel: channel,
			Hub:     hub,
			Relay:   relay,
			Logger:  logg,
			Metrics: broadcastMetrics,
		})
		if err != nil {
			logg.Error(ctx, "failed to create redis publisher", err)
			os.Exit(1)
		}
	} else {
		publisher, err = broadcast.NewLocalPublisher(hub, logg, broadcastMetrics)
		if err != nil {
			logg.Error(ctx, "failed to create local publisher", err)
			os.Exit(1)
		}
	}

	repo := notices.NewRepository(dbClient.DB())
	noticeService, err := notices.NewService(notices.ServiceParams{
		Repo:      repo,
		Publisher: publisher,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create notices service", err)
		os.Exit(1)
	}
	resolver, err := notices.NewResolver(repo)
	if err != nil {
		logg.Error(ctx, "failed to create status resolver", err)
		os.Exit(1)
	}

	router := routes.NewRouter(cfg, logg, routes.Dependencies{
		DB:       dbClient,
		Redis:    redisClient,
		Notices:  noticeService,
		Resolver: resolver,
		Hub:      hub,
		Gatherer: reg,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server on :"+cfg.App.Port)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
		}
	case <-ctx.Done():
		logg.Info(ctx, "api server shutting down gracefully")
	}

	// Release open streams; Shutdown waits for active requests.
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs error
	errs = multierr.Append(errs, srv.Shutdown(shutdownCtx))
	errs = multierr.Append(errs, redisClient.Close())
	errs = multierr.Append(errs, dbClient.Close())
	if errs != nil {
		logg.Error(shutdownCtx, "shutdown finished with errors", errs)
		os.Exit(1)
	}
}
