package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrymomot/keyfeed/app/keyfeed"
	"github.com/dmitrymomot/keyfeed/core/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := keyfeed.NewApp()
	if err != nil {
		logger.New().Error("failed to initialize app", logger.Component("app"), logger.Error(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		os.Exit(1)
	}
}
