package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abrezinsky/chanceraffle/internal/app"
	"github.com/abrezinsky/chanceraffle/internal/config"
	"github.com/abrezinsky/chanceraffle/internal/logger"
)

var (
	version = "dev"
)

func main() {
	cfg, err := config.Load()
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	if cfg.ShowVersion {
		fmt.Printf("chanceraffle %s\n", version)
		os.Exit(0)
	}

	appLog := logger.NewWithOptions(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
	})
	if cfg.LogHTTP {
		appLog.EnableHTTPLogging()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, appLog, cfg)
	if err != nil {
		log.Fatal("Failed to initialize application: ", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- a.Run(fmt.Sprintf(":%d", cfg.HTTP.Port))
	}()

	select {
	case err := <-serverErr:
		a.Close()
		if err != nil {
			log.Fatal(err)
		}
	case <-ctx.Done():
		appLog.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := a.Shutdown(shutdownCtx); err != nil {
			appLog.Error("Shutdown failed", "error", err)
		}
	}
}
