package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"libris/auth"
	"libris/config"
	"libris/database"
	"libris/handlers"
	"libris/logger"
	"libris/middleware"
	"libris/routes"
	"libris/services"
	"libris/websocket"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	log.Info("starting libris", "port", cfg.Port, "gin_mode", cfg.GinMode)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, log)
	if err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Disconnect(disconnectCtx); err != nil {
			log.Error("mongodb disconnect failed", "error", err)
		}
	}()

	if err := db.EnsureIndexes(ctx); err != nil {
		return err
	}

	users := database.NewUserStore(db.Users, cfg.DBTimeout)
	books := database.NewBookStore(db.Books, cfg.DBTimeout)
	messages := database.NewMessageStore(db.Messages, cfg.DBTimeout, log)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)

	hub := websocket.NewHub(log.With("component", "websocket"))
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	limiter := middleware.NewIPRateLimiter(cfg.RateLimit, cfg.RateWindow)
	go sweep(ctx, limiter, cfg.RateWindow)

	router := routes.SetupRouter(routes.Dependencies{
		Config:   cfg,
		Log:      log,
		DB:       db,
		Tokens:   tokens,
		Hub:      hub,
		Limiter:  limiter,
		Auth:     handlers.NewAuthHandler(services.NewAuthService(users, tokens, log)),
		Books:    handlers.NewBookHandler(services.NewBookService(books, log)),
		Messages: handlers.NewMessageHandler(services.NewMessagingService(messages, users, hub, log)),
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown; stopping
	// the hub closes them.
	stopHub()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

func sweep(ctx context.Context, limiter *middleware.IPRateLimiter, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Sweep()
		}
	}
}
