package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/davicafu/hexashop/internal/app"
	"github.com/davicafu/hexashop/internal/config"
	"github.com/davicafu/hexashop/pkg/logger"
)

// ---------------- Main ----------------
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Init("info")
		logger.Logger().Fatal("failed to load config", zap.Error(err))
	}

	logger.Init(cfg.LogLevel) // inicializa zap
	log := logger.Logger()
	defer log.Sync() // flush buffers al salir

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to build application", zap.Error(err))
	}
	defer application.Close()

	log.Info("🟢 hexashop arrancando", zap.String("transport", cfg.Transport))
	if err := application.Run(ctx); err != nil {
		log.Error("application stopped with error", zap.Error(err))
		application.Close()
		os.Exit(1)
	}
	log.Info("👋 hexashop detenido")
}
