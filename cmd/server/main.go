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

	"messmate/config"
	"messmate/internal/database"
	"messmate/internal/router"
	"messmate/pkg/bkash"
	"messmate/pkg/cloudinary"
	"messmate/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	zlog, err := logger.New(cfg.Server.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zlog.Sync()

	db, err := database.New(&cfg.Database)
	if err != nil {
		zlog.Fatal("database connection failed", zap.Error(err))
	}
	if err := database.AutoMigrate(db); err != nil {
		zlog.Fatal("database migration failed", zap.Error(err))
	}

	gateway := bkash.NewHTTPClient(
		cfg.Bkash.BaseURL,
		cfg.Bkash.Username,
		cfg.Bkash.Password,
		cfg.Bkash.AppKey,
		cfg.Bkash.AppSecret,
	)

	cloud, err := cloudinary.NewClientFromParams(
		cfg.Cloudinary.CloudName,
		cfg.Cloudinary.APIKey,
		cfg.Cloudinary.APISecret,
	)
	if err != nil {
		zlog.Fatal("cloudinary setup failed", zap.Error(err))
	}

	engine, paymentSvc := router.Setup(cfg, db, gateway, cloud, zlog)

	sweepDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.Payment.OrphanSweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-sweepDone:
				return
			case <-ticker.C:
				n, err := paymentSvc.FailOrphans(cfg.Payment.OrphanMaxAge)
				if err != nil {
					zlog.Error("orphan sweep failed", zap.Error(err))
				} else if n > 0 {
					zlog.Info("orphan payments failed", zap.Int("count", n))
				}
			}
		}
	}()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zlog.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("env", cfg.Server.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down")
	close(sweepDone)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error("forced shutdown", zap.Error(err))
	}
}
