package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/vedran77/courier/internal/config"
	"github.com/vedran77/courier/internal/database"
	"github.com/vedran77/courier/internal/metrics"
	"github.com/vedran77/courier/internal/presence"
	postgresrepo "github.com/vedran77/courier/internal/repository/postgres"
	"github.com/vedran77/courier/internal/service"
	"github.com/vedran77/courier/internal/transport/http/handlers"
	"github.com/vedran77/courier/internal/transport/http/middleware"
	"github.com/vedran77/courier/internal/transport/ws"
	"github.com/vedran77/courier/pkg/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		logger := log.L()
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log.Init(cfg.Log)
	logger := log.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.WithLogger(ctx, logger)

	// Database
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		return err
	}
	logger.Info().Str("db", cfg.Database.Name).Msg("connected to database")

	m := metrics.New()

	// Repositories
	userRepo := postgresrepo.NewUserRepo(pool)
	messageRepo := postgresrepo.NewMessageRepo(pool)
	groupMessageRepo := postgresrepo.NewGroupMessageRepo(pool)
	groupRepo := postgresrepo.NewGroupRepo(pool)
	scheduledRepo := postgresrepo.NewScheduledRepo(pool)
	reactionRepo := postgresrepo.NewReactionRepo(pool)
	pinRepo := postgresrepo.NewPinRepo(pool)

	// Services
	authService := service.NewAuthService(userRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	groupService := service.NewGroupService(groupRepo)
	messageService := service.NewMessageService(messageRepo, groupMessageRepo, reactionRepo, groupService, cfg.History.Limit)
	reactionService := service.NewReactionService(reactionRepo, pinRepo)
	scheduler := service.NewScheduler(scheduledRepo, messageService, m, cfg.Scheduler.Interval, cfg.Scheduler.BatchSize)

	// Real-time delivery
	bus := ws.NewBus(cfg.Bus.Capacity, m)
	registry := ws.NewRegistry(m)
	notifier := ws.NewBusNotifier(bus, registry)
	messageService.SetNotifier(notifier)
	reactionService.SetNotifier(notifier)

	var presenceStore presence.Store = presence.NewLocalStore(registry)
	var redisStore *presence.RedisStore
	if cfg.Redis.Enabled {
		redisStore, err = presence.NewRedisStore(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer redisStore.Close()
		presenceStore = redisStore
		logger.Info().Msg("presence mirrored to redis")
	}

	hub := &ws.Hub{
		Bus:        bus,
		Registry:   registry,
		Presence:   presenceStore,
		Membership: groupService,
		Dispatcher: ws.NewDispatcher(messageService, reactionService, scheduler, nil, notifier),
		Metrics:    m,
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, presenceStore)
	groupHandler := handlers.NewGroupHandler(groupService)
	auth := middleware.Auth(authService)

	// Routes
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "ok"}`))
	})
	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	// Protected - Users
	mux.Handle("GET /api/v1/users", auth(http.HandlerFunc(authHandler.Users)))
	mux.Handle("GET /api/v1/users/online", auth(http.HandlerFunc(authHandler.Online)))

	// Protected - Groups
	mux.Handle("POST /api/v1/groups", auth(http.HandlerFunc(groupHandler.Create)))
	mux.Handle("GET /api/v1/groups", auth(http.HandlerFunc(groupHandler.List)))
	mux.Handle("PATCH /api/v1/groups/{id}", auth(http.HandlerFunc(groupHandler.Update)))
	mux.Handle("POST /api/v1/groups/{id}/join", auth(http.HandlerFunc(groupHandler.Join)))
	mux.Handle("POST /api/v1/groups/{id}/leave", auth(http.HandlerFunc(groupHandler.Leave)))

	// WebSocket (auth via ?token=)
	mux.Handle("GET /ws", ws.ServeWS(hub, authService, cfg.Server.AllowedOrigins))

	// sessions end with gctx, so a failing component takes them down too
	g, gctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:     log.HTTPMiddleware(logger)(middleware.CORS(cfg.Server.AllowedOrigins)(mux)),
		BaseContext: func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		return registry.Run(gctx)
	})
	g.Go(func() error {
		return scheduler.Run(gctx)
	})
	if redisStore != nil {
		g.Go(func() error {
			return redisStore.RunHeartbeat(gctx, registry)
		})
	}
	g.Go(func() error {
		logger.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
