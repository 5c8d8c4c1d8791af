package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"buildledger/internal/app"
	"buildledger/internal/config"
	"buildledger/internal/logging"
	jwtsvc "buildledger/internal/pkg/jwt"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Logger.WithError(err).Fatal("invalid configuration")
	}
	logging.Init(logging.Options{
		Service: "buildledger-api",
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		JSON:    cfg.IsProdLike(),
	})
	log := logging.Logger.WithField("service", "buildledger-api")

	if cfg.IsProdLike() {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := app.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("startup failed")
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.RecalcMode == config.RecalcOutbox {
		go a.Worker.Run(ctx)
	}
	go app.NewReconcileScheduler(a, log).Run(ctx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.Router(jwtsvc.New(cfg.JWTSecret, cfg.JWTAccessTTL), log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"addr":        cfg.HTTPAddr,
			"recalc_mode": cfg.RecalcMode,
			"env":         cfg.AppEnv,
		}).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.TxTimeout+5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown failed")
	}
}
