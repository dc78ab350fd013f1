package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/handler"
	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/metrics"
	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/portfolio-api/services/auth-service/internal/usecase"
	"github.com/vasapolrittideah/portfolio-api/shared/auth"
	"github.com/vasapolrittideah/portfolio-api/shared/discovery"
	"github.com/vasapolrittideah/portfolio-api/shared/logger"
	"github.com/vasapolrittideah/portfolio-api/shared/mailer"
	"github.com/vasapolrittideah/portfolio-api/shared/middleware"
	"github.com/vasapolrittideah/portfolio-api/shared/security"
	"github.com/vasapolrittideah/portfolio-api/shared/storage"
	"github.com/vasapolrittideah/portfolio-api/shared/utilities"
)

const (
	shutdownTimeout     = 10 * time.Second
	healthCheckInterval = 15 * time.Second
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the gRPC health endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			return runServe(cmd.Context(), cfg)
		},
	}
}

func runServe(ctx context.Context, cfg *config.AuthServiceConfig) error {
	if err := cfg.Mailer.Validate(); err != nil {
		return err
	}
	if err := cfg.Storage.Validate(); err != nil {
		return err
	}

	log := logger.New(cfg.ServiceName, cfg.LogLevel)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client, err := connectMongo(ctx, cfg.Mongo)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("failed to disconnect from mongo")
		}
	}()

	userRepo := repository.NewUserMongoRepository(ctx, log, client.Database(cfg.Mongo.Database))

	objectStore, err := storage.NewS3Store(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to create object store: %w", err)
	}

	hasher := security.NewArgon2Hasher(
		security.WithCost(cfg.PasswordReset.HashTimeCost, cfg.PasswordReset.HashMemoryCostKiB),
	)
	jwtAuth := auth.NewJWTAuthenticator(cfg.Token.Issuer, cfg.Token.Issuer)
	issuer := usecase.NewTokenIssuer(jwtAuth, cfg.Token, time.Now)
	notifier := mailer.NewMailer(cfg.Mailer, log)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	router := handler.NewRouter(handler.RouterParams{
		AuthUsecase:          usecase.NewAuthUsecase(userRepo, hasher, issuer, objectStore, cfg, log),
		PasswordResetUsecase: usecase.NewPasswordResetUsecase(userRepo, hasher, issuer, notifier, cfg, log),
		ProfileUsecase:       usecase.NewProfileUsecase(userRepo, hasher, issuer, objectStore, cfg, log),
		Cookies:              handler.NewCookieCodec(cfg.Cookie, cfg.Token),
		Authenticate:         middleware.NewJWTMiddleware(jwtAuth, cfg.Token.AccessTokenSecret),
		Metrics:              metrics.NewAuthMetrics(registry),
		MetricsHandler:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		Health:               userRepo,
		Logger:               log,
		RequestTimeout:       cfg.RequestTimeout,
		MaxUploadBytes:       cfg.MaxUploadBytes,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcListener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCAddr, err)
	}

	grpcServer := grpc.NewServer()
	healthServer := utilities.RegisterHealthServer(grpcServer)
	go utilities.WatchHealth(ctx, log, healthServer, healthCheckInterval, userRepo.Ping)

	errChan := make(chan error, 2)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()
	go func() {
		log.Info().Str("addr", cfg.GRPCAddr).Msg("grpc server started")
		if err := grpcServer.Serve(grpcListener); err != nil {
			errChan <- fmt.Errorf("grpc server error: %w", err)
		}
	}()

	registrar := register(cfg, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var runErr error
	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case runErr = <-errChan:
		log.Error().Err(runErr).Msg("server failed")
	case <-ctx.Done():
	}

	if registrar != nil {
		if err := registrar.Deregister(); err != nil {
			log.Warn().Err(err).Msg("failed to deregister service")
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("failed to shut down http server")
	}
	grpcServer.GracefulStop()

	log.Info().Msg("shutdown complete")
	return runErr
}

// register announces the HTTP endpoint to Consul when an agent is configured.
// A failed registration is logged and the service keeps running.
func register(cfg *config.AuthServiceConfig, log *zerolog.Logger) *discovery.Registrar {
	if cfg.Consul.Addr == "" {
		return nil
	}

	_, portStr, err := net.SplitHostPort(cfg.HTTPAddr)
	if err != nil {
		log.Warn().Err(err).Msg("cannot derive port for service registration")
		return nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		log.Warn().Err(err).Msg("cannot derive port for service registration")
		return nil
	}

	registrar, err := discovery.NewRegistrar(cfg.Consul)
	if err != nil {
		log.Warn().Err(err).Msg("failed to create consul client")
		return nil
	}

	reg := discovery.Registration{
		Name:      cfg.ServiceName,
		Host:      cfg.AdvertiseHost,
		Port:      port,
		HealthURL: fmt.Sprintf("http://%s/healthz", net.JoinHostPort(cfg.AdvertiseHost, portStr)),
		Tags:      []string{"http", "auth"},
	}
	if err := registrar.Register(reg); err != nil {
		log.Warn().Err(err).Msg("failed to register service")
		return nil
	}

	log.Info().Str("id", reg.ID()).Msg("registered with consul")
	return registrar
}
