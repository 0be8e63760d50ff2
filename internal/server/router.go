package server

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/PJ1229/OOTD/internal/config"
	"github.com/PJ1229/OOTD/internal/handlers"
	"github.com/PJ1229/OOTD/internal/middleware"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth        *handlers.AuthHandler
	Posts       *handlers.PostsHandler
	Swipe       *handlers.SwipeHandler
	Leaderboard *handlers.LeaderboardHandler
	Catalog     *handlers.CatalogHandler
	TryOn       *handlers.TryOnHandler
	Ready       map[string]handlers.Pinger
}

func NewRouter(cfg *config.Config, logger zerolog.Logger, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	// Health checks (no auth)
	router.GET("/health", handlers.HealthHandler)
	router.GET("/ready", handlers.ReadyHandler(h.Ready))

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/signup", h.Auth.SignUp)
	auth.POST("/login", h.Auth.Login)

	api := v1.Group("")
	api.Use(middleware.AuthMiddleware(cfg))

	api.GET("/auth/me", h.Auth.Me)
	api.POST("/auth/logout", h.Auth.Logout)

	// Posts and the realtime views over them
	api.GET("/posts", h.Posts.List)
	api.POST("/posts", h.Posts.Create)
	api.GET("/posts/stream", h.Posts.Stream)
	api.GET("/leaderboard", h.Leaderboard.Get)
	api.GET("/leaderboard/stream", h.Leaderboard.Stream)

	// Swipe deck
	api.GET("/swipe/current", h.Swipe.Current)
	api.POST("/swipe/release", h.Swipe.Release)
	api.POST("/swipe/vote", h.Swipe.Vote)
	api.POST("/swipe/reset", h.Swipe.Reset)

	// Catalog
	api.GET("/shop", h.Catalog.Shop)
	api.GET("/library", h.Catalog.Library)

	// Try-on
	api.GET("/tryon/jobs", h.TryOn.ListJobs)
	api.POST("/tryon/sessions", h.TryOn.Create)
	api.GET("/tryon/sessions/:id", h.TryOn.Get)
	api.DELETE("/tryon/sessions/:id", h.TryOn.Delete)
	api.PUT("/tryon/sessions/:id/model", h.TryOn.SetModel)
	api.PUT("/tryon/sessions/:id/garment", h.TryOn.SetGarment)

	return router
}
