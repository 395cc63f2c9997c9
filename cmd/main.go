package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"hazard-vision/config"
	telegram "hazard-vision/internal/api"
	"hazard-vision/internal/api/web"
	"hazard-vision/internal/container"
	"hazard-vision/internal/infrastructure/camera"
	"hazard-vision/internal/infrastructure/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Создаём хранилище пользователей
	userRepo := storage.NewMemoryUserRepository()

	// Модели и камера
	loader := container.NewModelLoader(cfg, logger)
	device := camera.NewDevice(camera.Options{
		Device: cfg.Camera.Device,
		Width:  cfg.Camera.Width,
		Height: cfg.Camera.Height,
	}, logger.Named("webcam"))

	// Собираем сервисы приложения
	appContainer := container.New(cfg, userRepo, loader, device, logger)

	server := web.NewServer(web.Options{
		Port:           cfg.HTTPPort,
		CORSOrigins:    cfg.CORSOrigins,
		MaxUploadMB:    cfg.MaxUploadMB,
		AlertSoundPath: cfg.AlertSoundPath,
	}, appContainer.InspectionService, appContainer.CameraService, appContainer.Hub,
		appContainer.Pipeline.Metrics(), logger.Named("http"))

	errCh := make(chan error, 2)
	go func() {
		errCh <- server.Start()
	}()

	if cfg.TelegramToken != "" {
		bot, err := telegram.NewBot(cfg.TelegramToken, appContainer.UserService, appContainer.InspectionService, logger.Named("bot"))
		if err != nil {
			logger.Error("failed to create bot", zap.Error(err))
		} else {
			logger.Info("bot is running")
			go func() {
				errCh <- bot.Run(ctx)
			}()
		}
	} else {
		logger.Info("TELEGRAM_TOKEN is not set, bot disabled")
	}

	// Ждём сигнала или падения одного из серверов
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", zap.Error(err))
		}
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown", zap.Error(err))
	}
	if err := appContainer.Close(); err != nil {
		logger.Warn("release resources", zap.Error(err))
	}
	logger.Info("goodbye")
}

// newLogger development-конфиг в dev, иначе production с уровнем из LOG_LEVEL
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDev() {
		return zap.NewDevelopment()
	}

	zcfg := zap.NewProductionConfig()
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
