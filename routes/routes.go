package routes

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"libris/auth"
	"libris/config"
	"libris/handlers"
	"libris/metrics"
	"libris/middleware"
	"libris/models"
	"libris/websocket"
)

const apiPrefix = "/api/v1"

type Pinger interface {
	Ping(ctx context.Context) error
}

type Dependencies struct {
	Config   *config.Config
	Log      *slog.Logger
	DB       Pinger
	Tokens   *auth.TokenManager
	Hub      *websocket.Hub
	Limiter  *middleware.IPRateLimiter
	Auth     *handlers.AuthHandler
	Books    *handlers.BookHandler
	Messages *handlers.MessageHandler
}

func SetupRouter(d Dependencies) *gin.Engine {
	handlers.SetupValidator()

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(d.Log),
	)
	// Anything reading the final status must wrap ErrorHandler.
	if d.Config.MetricsEnabled {
		router.Use(metrics.Middleware())
	}
	router.Use(middleware.ErrorHandler(d.Log))
	if d.Config.MetricsEnabled {
		router.GET("/metrics", metrics.Handler())
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     d.Config.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "libris",
			"ws":      "/ws",
		})
	})
	router.GET("/health", health(d.DB))
	router.GET("/ws", websocket.Handler(d.Hub, d.Tokens, d.Config.WSSendBuffer))

	api := router.Group(apiPrefix)

	authRoutes := api.Group("/auth", middleware.RateLimit(d.Limiter))
	authRoutes.POST("/register", d.Auth.Register)
	authRoutes.POST("/login", d.Auth.Login)

	protected := api.Group("", middleware.Authenticate(d.Tokens))
	members := middleware.Authorize(models.RoleAdmin, models.RoleStaff)

	books := protected.Group("/book", members)
	books.POST("", d.Books.Create)
	books.GET("", d.Books.List)
	books.GET("/:id", d.Books.Get)
	books.PUT("/:id", d.Books.Update)
	books.DELETE("/:id", middleware.Authorize(models.RoleAdmin), d.Books.Delete)

	messages := protected.Group("/messages")
	messages.POST("", members, d.Messages.Send)
	messages.GET("/private/:userId", d.Messages.Private)
	messages.GET("/group", d.Messages.Group)

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			middleware.NotFound(c)
			return
		}
		c.String(http.StatusNotFound, "404 page not found")
	})

	return router
}

func health(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
	}
}
