package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"integrations-api/internal/config"
	"integrations-api/internal/events"
	"integrations-api/internal/handler"
	"integrations-api/internal/integration"
	"integrations-api/internal/middleware"
	"integrations-api/internal/revoke"
	"integrations-api/internal/store"
)

func serve(ctx context.Context, cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pool.Close()
	st := store.New(pool)
	if err := st.Ping(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	log.Info("connected to postgres")
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	if cfg.Zoom.ClientID == "" || cfg.Zoom.ClientSecret == "" {
		log.Warn("zoom client credentials not set, revocation will be rejected")
	}
	rv := revoke.New(cfg.Zoom.ClientID, cfg.Zoom.ClientSecret, cfg.Zoom.RevokeURL, cfg.Zoom.RevokeTimeout)

	var pub events.Publisher = events.Nop{}
	var closeRedis func() error
	if cfg.RedisURL != "" {
		rdb, err := events.Dial(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		closeRedis = rdb.Close
		pub = events.NewRedis(rdb)
		log.Info("publishing integration events", zap.String("channel", events.Channel))
	}

	svc := integration.New(st, rv, pub, log.Named("integration"), integration.Options{
		ScopeReferenceCleanup: cfg.ScopeReferenceCleanup,
	})
	h := handler.New(svc, st, cfg.JWTSecret, log.Named("http"))
	rl := middleware.NewRateLimiter(ctx, cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst)

	httpSrv := &http.Server{
		Addr:              ":" + cfg.WebPort,
		Handler:           middleware.Logging(log.Named("access"))(middleware.CORS(cfg.CORSOrigins)(h.Routes(rl))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// longer than the revoke timeout so a slow provider still gets an answer out
		WriteTimeout: cfg.Zoom.RevokeTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// grpc health
	hs := health.NewServer()
	grpcSrv := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, hs)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("grpc health", zap.String("port", cfg.GRPCPort))
		if err := grpcSrv.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc: %w", err)
		}
	}()
	go func() {
		log.Info("http", zap.String("port", cfg.WebPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case runErr = <-errCh:
		log.Error("server failed", zap.Error(runErr))
	}

	// graceful shutdown
	hs.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = multierr.Append(runErr, httpSrv.Shutdown(shutdownCtx))
	grpcSrv.GracefulStop()
	if closeRedis != nil {
		err = multierr.Append(err, closeRedis())
	}
	return err
}
