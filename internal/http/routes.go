package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tictactoe/internal/config"
	"tictactoe/internal/http/handlers"
	"tictactoe/internal/http/middleware"
	"tictactoe/internal/ws"
)

const (
	authRateLimit  = 10
	authRateWindow = time.Minute
)

// Deps are the components the routes are wired to.
type Deps struct {
	Handler *handlers.Handler
	Health  *handlers.HealthHandler
	Hub     *ws.Hub
	Actions *middleware.UserLimiter
}

func RegisterRoutes(r *gin.Engine, d Deps, cfg *config.Config) {
	r.Use(middleware.RequestLogger(), middleware.RequestMetrics())

	// Health checks (no rate limiting)
	r.GET("/health", d.Health.Health)
	r.GET("/healthz", d.Health.Liveness)
	r.GET("/readyz", d.Health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RedisRateLimit(cfg.APIRateLimit, cfg.APIRateWindow))
	registerAPIRoutes(v1, d)

	r.GET("/ws", d.Handler.WS(d.Hub, cfg.AllowedOrigin))
}

func registerAPIRoutes(api *gin.RouterGroup, d Deps) {
	h := d.Handler
	authRL := middleware.SimpleRateLimit(authRateLimit, authRateWindow)

	// Accounts
	api.POST("/users", authRL, h.Register)
	api.POST("/auth/login", authRL, h.Login)
	api.GET("/me", middleware.JWT(), h.Me)

	// Games
	games := api.Group("/games")
	{
		games.GET("/:id", h.GetGame)
		games.GET("/invite/:code", h.GetGameByInvite)
		games.POST("", middleware.JWT(), middleware.ActionRateLimit(d.Actions), h.CreateGame)
		games.POST("/join", middleware.JWT(), middleware.ActionRateLimit(d.Actions), h.JoinGame)
	}

	api.GET("/leaderboard", h.GetLeaderboard)
}
