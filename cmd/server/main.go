package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/oggyb/matcha/internal/app"
	"github.com/oggyb/matcha/internal/auth"
	"github.com/oggyb/matcha/internal/cache"
	"github.com/oggyb/matcha/internal/config"
	"github.com/oggyb/matcha/internal/db"
	"github.com/oggyb/matcha/internal/logger"
	"github.com/oggyb/matcha/internal/moderation"
	"github.com/oggyb/matcha/internal/presence"
	"github.com/oggyb/matcha/internal/realtime"
	"github.com/oggyb/matcha/internal/repository"
	"github.com/oggyb/matcha/internal/server"
	"github.com/oggyb/matcha/internal/service/chat"
	"github.com/oggyb/matcha/internal/service/discovery"
	"github.com/oggyb/matcha/internal/service/interaction"
	"github.com/oggyb/matcha/internal/service/notification"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	verifier, err := auth.NewVerifier(cfg)
	if err != nil {
		log.Error("invalid auth config", "err", err)
		os.Exit(1)
	}

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		os.Exit(1)
	}

	appCtx := app.New(cfg, database, redisCache, log)

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	var sink moderation.Sink = moderation.NewLogSink(logger.ForComponent("moderation"))
	if cfg.Moderation.WebhookURL != "" {
		webhook := moderation.NewWebhookSink(cfg, logger.ForComponent("moderation"))
		g.Go(func() error { return webhook.Run(ctx) })
		sink = webhook
	}

	hub := presence.NewHub(repository.NewUserRepository(database), logger.ForComponent("presence"))
	notifier := notification.NewService(appCtx, hub)
	chatSvc := chat.NewService(appCtx, notifier, hub)

	grpcServer := server.NewGRPCServer(log,
		[]grpc.UnaryServerInterceptor{verifier.UnaryServerInterceptor(server.PublicMethods...)},
		interaction.NewRegistrar(interaction.NewService(appCtx, notifier, hub, sink)),
		discovery.NewRegistrar(discovery.NewService(appCtx)),
		chat.NewRegistrar(chatSvc),
		notification.NewRegistrar(notifier),
	)

	router := server.NewHTTPRouter(
		realtime.NewHandler(cfg, verifier, hub, chatSvc, notifier, log),
		cfg.Realtime.ConnectPerMinute,
		map[string]server.HealthCheck{
			"db": func(ctx context.Context) error {
				sqlDB, err := database.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			"redis": redisCache.Ping,
		},
	)

	log.Info("starting servers", "grpc", cfg.GRPC.Host+":"+cfg.GRPC.Port, "http", cfg.HTTP.Host+":"+cfg.HTTP.Port)

	g.Go(func() error { return server.StartGRPCServer(ctx, cfg, grpcServer) })
	g.Go(func() error { return server.StartHTTPServer(ctx, cfg, router) })
	g.Go(func() error {
		<-ctx.Done()
		hub.Shutdown()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "err", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
