package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"flowershop/internal/config"
	mydb "flowershop/internal/db"
	"flowershop/internal/handlers"
	"flowershop/internal/service"
	"flowershop/internal/storage"
)

// setupLogger — уровень и формат логов из конфига
func setupLogger(cfg config.Log) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Format != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		// .env мог не подтянуться — подскажем, где искали
		wd, _ := os.Getwd()
		log.Fatal().Err(err).
			Str("cwd", wd).
			Bool("env_here", config.FileExists(".env")).
			Bool("env_parent", config.FileExists("../.env")).
			Msg("failed to load config")
	}
	setupLogger(cfg.Log)
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	db := mydb.MustOpen(cfg.DB)
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to get sql.DB")
	}
	defer sqlDB.Close()

	// картинки
	backend := storage.NewLocalBackend(cfg.Storage.LocalPath)
	if err := backend.Init(); err != nil {
		log.Fatal().Err(err).Str("path", cfg.Storage.LocalPath).Msg("failed to init image storage")
	}
	images := storage.NewImageManager(
		backend,
		storage.NewResolver(cfg.BaseURL, cfg.Storage.URLPath),
		storage.WithFetchTimeout(cfg.Storage.FetchTimeout),
		storage.WithMaxImageBytes(cfg.Storage.MaxImageBytes),
	)

	// первый админ, если таблица пуста
	if _, err := service.NewAdminService(db).EnsureDefaultAdmin(context.Background(), cfg.DefaultAdminUsername, cfg.DefaultAdminPassword); err != nil {
		log.Fatal().Err(err).Msg("failed to create default admin")
	}

	h := handlers.New(cfg, db, images)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("base_url", cfg.BaseURL).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("failed to shutdown server")
	}
	log.Info().Msg("server stopped")
}
