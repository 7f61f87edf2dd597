package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tekflox/inbox/internal/config"
	"github.com/tekflox/inbox/internal/gateway"
	"github.com/tekflox/inbox/internal/profile"
	"go.uber.org/zap"
)

func main() {
	listenFlag := flag.String("listen", "", "listen address (overrides config)")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg := config.LoadOrDefault(profile.ConfigPath())
	listen := cfg.GatewayListen
	if *listenFlag != "" {
		listen = *listenFlag
	}

	gw := gateway.New(gateway.Config{
		JWTSecret: cfg.JWTSecret,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:              listen,
		Handler:           gw.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("gateway listening", zap.String("addr", listen))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serve", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}
