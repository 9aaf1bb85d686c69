package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"Melodix/cache"
	"Melodix/config"
	"Melodix/core/audio"
	"Melodix/core/feed"
	"Melodix/db"
	"Melodix/logger"
	"Melodix/model"
	"Melodix/repository"
	"Melodix/storage"
)

// Start connects the backing services and serves the API until ctx is
// cancelled, then shuts down gracefully.
func Start(ctx context.Context, cfg *config.Config) error {
	gdb, err := db.ConnectGormDB(cfg)
	if err != nil {
		return err
	}
	defer db.CloseGormDB(gdb)

	if err := db.AutoMigrateModels(gdb, &model.Song{}, &model.Album{}); err != nil {
		return err
	}

	store, err := storage.NewMinioStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize MinIO: %w", err)
	}

	songs := repository.NewGormSongRepository(gdb)
	albums := repository.NewGormAlbumRepository(gdb)

	// Redis is optional; without it every read goes to the database.
	if rdb, err := db.ConnectRedis(cfg); err != nil {
		logger.Warn("Redis unavailable, catalog cache disabled", logger.ErrorField(err))
	} else {
		defer rdb.Close()
		songs = cache.NewCachedSongRepository(songs, cache.NewCatalogCache(rdb, cfg.CacheTTL))
		logger.Info("Successfully connected to Redis", logger.String("addr", cfg.RedisAddr()))
	}

	hub := feed.NewHub()
	go hub.Run()
	defer hub.Stop()

	go watchConfig(ctx)

	apiHandler := NewAPIHandler(songs, albums, store, audio.NewBeepProcessor(), hub, cfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      apiHandler.Router(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 0, // media responses can be long lived
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

// watchConfig applies log level changes from the .env file while running.
func watchConfig(ctx context.Context) {
	err := config.Watch(ctx, config.DefaultEnvFile, func(c *config.Config) {
		level := logger.LogLevel(strings.ToLower(c.LogLevel))
		if level == logger.Level() {
			return
		}
		logger.SetLevel(level)
		logger.Info("Log level changed", logger.String("level", c.LogLevel))
	})
	if err != nil {
		logger.Warn("Config watch stopped", logger.ErrorField(err))
	}
}
