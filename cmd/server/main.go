package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	gommonlog "github.com/labstack/gommon/log"

	_ "decepticon/docs" // swagger docs

	"decepticon/internal/cache"
	"decepticon/internal/config"
	"decepticon/internal/db"
	"decepticon/internal/handler"
	"decepticon/internal/model"
	"decepticon/internal/repository"
	"decepticon/internal/router"
	"decepticon/internal/service"
	"decepticon/internal/session"
	"decepticon/internal/view"
)

// @title Decepticon
// @version 1.0
// @description Session-based registration, login and role-gated pages.
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(gommonlog.INFO)
	e.Use(middleware.RequestID())

	renderer, err := view.NewRenderer()
	if err != nil {
		log.Fatalf("templates: %v", err)
	}
	e.Renderer = renderer

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	if cfg.ResetDB {
		log.Println("RESET_DB=true detected, dropping users table...")
		if err := gormDB.Migrator().DropTable(&model.User{}); err != nil {
			log.Printf("Warning: Failed to drop table (may not exist): %v", err)
		}
	}

	if err := gormDB.AutoMigrate(&model.User{}); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	var store session.Store
	switch cfg.SessionStore {
	case config.SessionStoreMemory:
		log.Println("Using in-memory session store; sessions are lost on restart")
		store = session.NewMemoryStore()
	default:
		cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer cacheClient.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := cacheClient.Ping(ctx)
		cancel()
		if err != nil {
			log.Fatalf("redis init: %v", err)
		}
		store = session.NewRedisStore(cacheClient)
	}

	sessions := session.NewManager(store, session.Options{
		Secret:     cfg.SessionSecret,
		TTL:        cfg.SessionTTL,
		CookieName: cfg.SessionCookieName,
		Secure:     cfg.CookieSecure,
	})

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)

	// Initialize services
	authService := service.NewAuthService(userRepo)
	userService := service.NewUserService(userRepo)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, sessions)
	userHandler := handler.NewUserHandler(userService)

	// Register routes
	router.Register(e, sessions, authHandler, userHandler)

	go func() {
		addr := ":" + cfg.ServerPort
		log.Printf("Decepticon server listening on http://localhost%s", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	log.Println("Server stopped")
}
