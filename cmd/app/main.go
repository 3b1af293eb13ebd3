package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"tictactoe/internal/config"
	"tictactoe/internal/db"
	"tictactoe/internal/domain"
	"tictactoe/internal/game"
	"tictactoe/internal/grpcserver"
	httpServer "tictactoe/internal/http"
	"tictactoe/internal/http/handlers"
	"tictactoe/internal/http/middleware"
	"tictactoe/internal/logger"
	"tictactoe/internal/repository"
	"tictactoe/internal/repository/memory"
	"tictactoe/internal/service"
	"tictactoe/internal/ws"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", "error", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	service.InitJWT(cfg.JWTSecret, cfg.JWTTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	users, closeStore, err := openUserStore(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("open user store", "error", err)
	}
	defer closeStore()

	middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer middleware.CloseRedis()

	registry := game.NewRegistry(game.WithInviteCodeLength(cfg.InviteCodeLength))
	machine := game.NewMachine(cfg.TurnDuration, nil)
	games := service.NewGameService(registry, machine, users, service.PointsPolicy{
		Win:  cfg.WinPoints,
		Draw: cfg.DrawPoints,
	})
	auth := service.NewAuthService(users)
	actions := middleware.NewUserLimiter(cfg.ActionRateLimit, cfg.ActionRateWindow)
	hub := ws.NewHub(games, auth, actions)

	sweeper := service.NewSweeper(games, hub, cfg.SweepInterval)
	go sweeper.Run(ctx)

	grpcSrv, err := grpcserver.NewWithAddr(":" + cfg.GRPCPort)
	if err != nil {
		logger.Fatal("grpc listen", "error", err)
	}
	go grpcSrv.WatchStore(ctx, users, 10*time.Second)
	grpcDone := make(chan error, 1)
	go func() { grpcDone <- grpcSrv.Serve(ctx) }()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// CORS for a frontend on a different domain
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (cfg.AllowedOrigin == "" || origin == cfg.AllowedOrigin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	httpServer.RegisterRoutes(r, httpServer.Deps{
		Handler: handlers.NewHandler(games, auth, users, hub),
		Health:  handlers.NewHealthHandler(users, registry, version),
		Hub:     hub,
		Actions: actions,
	}, cfg)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	hub.Shutdown()
	if err := <-grpcDone; err != nil {
		logger.Error("grpc server", "error", err)
	}
	games.Wait()

	logger.Info("server exited")
}

// openUserStore uses Postgres when dsn is set and an in-memory store otherwise.
func openUserStore(ctx context.Context, dsn string) (domain.UserRepository, func(), error) {
	if dsn == "" {
		logger.Warn("DATABASE_URL not set, using in-memory user store")
		return memory.NewUserStore(), func() {}, nil
	}
	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewUserRepository(pool), pool.Close, nil
}
