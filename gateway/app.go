package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/RigelNana/arkpaper/gateway/handler"
	"github.com/RigelNana/arkpaper/gateway/middleware"
	"github.com/RigelNana/arkpaper/gateway/router"
	"github.com/RigelNana/arkpaper/pkg/metrics"
	grpcMetrics "github.com/RigelNana/arkpaper/pkg/metrics/grpc"
	"github.com/RigelNana/arkpaper/services/paperwork-service/archive"
	"github.com/RigelNana/arkpaper/services/paperwork-service/config"
	"github.com/RigelNana/arkpaper/services/paperwork-service/database"
	"github.com/RigelNana/arkpaper/services/paperwork-service/events"
	"github.com/RigelNana/arkpaper/services/paperwork-service/repository"
	"github.com/RigelNana/arkpaper/services/paperwork-service/service"
	"github.com/RigelNana/arkpaper/services/paperwork-service/storage"
)

type app struct {
	cfg       *config.Config
	logger    *logrus.Logger
	handler   http.Handler
	publisher events.Publisher
}

func newApp(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*app, error) {
	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	ledger, err := newLedger(cfg, logger)
	if err != nil {
		return nil, err
	}
	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		return nil, err
	}

	inspector := archive.NewInspector(cfg.Archive.MaxEntryBytes)
	svc := service.NewPaperworkService(ledger, store, inspector, publisher, logger)
	access := service.NewArtifactAccess(ledger, store, inspector, logger)

	engine := router.Setup(router.Handlers{
		Paperwork: handler.NewPaperworkHandler(svc, logger, cfg.Server.MaxUploadBytes),
		Artifact:  handler.NewArtifactHandler(access, logger),
	}, middleware.NewTokenValidator(cfg.Auth.JWTSecret), logger)

	return &app{cfg: cfg, logger: logger, handler: engine, publisher: publisher}, nil
}

// newStore wraps the configured backend in the retrying decorator.
func newStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (storage.Store, error) {
	var (
		backend storage.Store
		err     error
	)
	switch cfg.Storage.Backend {
	case "minio":
		backend, err = storage.NewMinIOStore(ctx, cfg.MinIO)
	case "fs":
		backend, err = storage.NewFSStore(cfg.Storage.Root)
	case "memory":
		backend = storage.NewMemoryStore()
	default:
		err = fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	if err != nil {
		return nil, err
	}
	policy := storage.DefaultRetryPolicy
	if cfg.Storage.MaxRetries > 0 {
		policy.MaxRetries = cfg.Storage.MaxRetries
	}
	if cfg.Storage.InitialInterval > 0 {
		policy.InitialInterval = cfg.Storage.InitialInterval
	}
	if cfg.Storage.MaxInterval > 0 {
		policy.MaxInterval = cfg.Storage.MaxInterval
	}
	logger.WithField("backend", cfg.Storage.Backend).Info("artifact store ready")
	return storage.NewRetrying(backend, policy, logger), nil
}

// newLedger uses postgres except for the all-in-memory profile.
func newLedger(cfg *config.Config, logger *logrus.Logger) (repository.Ledger, error) {
	if cfg.Storage.Backend == "memory" {
		logger.Warn("using in-memory ledger; data is lost on restart")
		return repository.NewMemoryLedger(), nil
	}
	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, err
	}
	return repository.NewGormLedger(db), nil
}

func newPublisher(cfg *config.Config, logger *logrus.Logger) (events.Publisher, error) {
	switch {
	case len(cfg.Kafka.Brokers) > 0:
		logger.WithField("topic", cfg.Kafka.Topic).Info("publishing events to kafka")
		return events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	case cfg.NATS.URL != "":
		logger.WithField("subject", cfg.NATS.Subject).Info("publishing events to nats")
		return events.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.Subject, logger)
	default:
		return events.NewLogPublisher(logger), nil
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests. Both
// listeners are bound before any server starts, so a bind failure leaves
// nothing running.
func (a *app) Run(ctx context.Context) error {
	var grpcLis net.Listener
	if a.cfg.Server.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+a.cfg.Server.GRPCPort)
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		grpcLis = lis
	}
	httpLis, err := net.Listen("tcp", ":"+a.cfg.Server.Port)
	if err != nil {
		if grpcLis != nil {
			grpcLis.Close()
		}
		return fmt.Errorf("listen http: %w", err)
	}

	srv := &http.Server{Handler: a.handler}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.WithField("addr", httpLis.Addr().String()).Info("paperwork gateway listening")
		if err := srv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("gateway failed: %w", err)
		}
		return nil
	})

	var metricsSrv *http.Server
	if a.cfg.Metrics.Enabled && a.cfg.Metrics.Port != "" && a.cfg.Metrics.Port != a.cfg.Server.Port {
		metricsSrv = metrics.StartMetricsServer(a.cfg.Metrics.Port)
	}

	var grpcSrv *grpc.Server
	if grpcLis != nil {
		grpcSrv = newHealthServer()
		g.Go(func() error {
			a.logger.WithField("addr", grpcLis.Addr().String()).Info("grpc health server listening")
			return grpcSrv.Serve(grpcLis)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down")
		if grpcSrv != nil {
			grpcSrv.GracefulStop()
		}
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		err := srv.Shutdown(shutdownCtx)
		if cerr := a.publisher.Close(); cerr != nil {
			a.logger.WithError(cerr).Warn("closing event publisher")
		}
		return err
	})
	return g.Wait()
}

func newHealthServer() *grpc.Server {
	s := grpc.NewServer(
		grpc.UnaryInterceptor(grpcMetrics.UnaryServerInterceptor("paperwork-service")),
		grpc.StreamInterceptor(grpcMetrics.StreamServerInterceptor("paperwork-service")),
	)
	hs := health.NewServer()
	hs.SetServingStatus("paperwork", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	reflection.Register(s)
	return s
}
