package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/UsamaUmmsi/portfolio/backend/internal/auth"
	"github.com/UsamaUmmsi/portfolio/backend/internal/config"
	"github.com/UsamaUmmsi/portfolio/backend/internal/intake"
	"github.com/UsamaUmmsi/portfolio/backend/internal/portfolio"
	"github.com/UsamaUmmsi/portfolio/backend/internal/realtime"
	"github.com/UsamaUmmsi/portfolio/backend/internal/server"
	"github.com/UsamaUmmsi/portfolio/backend/internal/submissions"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	tokenIssuer   = "portfolio-api"
	tokenAudience = "portfolio-admin"
)

func runServer(ctx context.Context) error {
	appConfig, err := config.LoadServer(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := newLogger(appConfig)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	dispatcher := realtime.NewDispatcher()
	store, closeStore, err := openStore(appConfig, dispatcher, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	tokenManager, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        tokenIssuer,
		Audience:      tokenAudience,
		TokenTTL:      appConfig.TokenTTL,
	})
	if err != nil {
		return err
	}
	passwords, err := auth.NewPasswordVerifier(appConfig.PasswordHash)
	if err != nil {
		return err
	}

	intakeService, err := intake.NewService(intake.ServiceConfig{
		Store:       store,
		IDs:         submissions.NewMonotonicIDs(time.Now),
		Clock:       time.Now,
		SubmitDelay: appConfig.SubmitDelay,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	catalog, err := portfolio.LoadDefault()
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Intake:         intakeService,
		Submissions:    store,
		Events:         dispatcher,
		Topic:          store.Key(),
		TokenManager:   tokenManager,
		Passwords:      passwords,
		Catalog:        catalog,
		Logger:         logger,
		PollInterval:   appConfig.PollInterval,
		SuccessDisplay: appConfig.SuccessDisplay,
		AllowedOrigins: appConfig.AllowedOrigins,
	})
	if err != nil {
		return err
	}

	// No WriteTimeout: the submissions stream stays open for the session.
	httpServer := &http.Server{
		Addr:              appConfig.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	httpServer.BaseContext = func(_ net.Listener) context.Context { return signalCtx }

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("address", appConfig.HTTPAddress),
			zap.String("storage_driver", appConfig.StorageDriver))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
