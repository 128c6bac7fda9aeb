package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	reflectionpb "google.golang.org/grpc/reflection/grpc_reflection_v1"

	posv1 "github.com/vladislavdragonenkov/cafepos/api/pos/v1"
	"github.com/vladislavdragonenkov/cafepos/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/cafepos/internal/health"
	"github.com/vladislavdragonenkov/cafepos/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/cafepos/internal/metrics"
	"github.com/vladislavdragonenkov/cafepos/internal/service/auth"
	"github.com/vladislavdragonenkov/cafepos/internal/service/catalog"
	grpcsvc "github.com/vladislavdragonenkov/cafepos/internal/service/grpc"
	"github.com/vladislavdragonenkov/cafepos/internal/service/history"
	"github.com/vladislavdragonenkov/cafepos/internal/service/idempotency"
	"github.com/vladislavdragonenkov/cafepos/internal/service/outbox"
	"github.com/vladislavdragonenkov/cafepos/internal/service/sales"
	"github.com/vladislavdragonenkov/cafepos/internal/service/till"
	"github.com/vladislavdragonenkov/cafepos/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Run поднимает кассу и блокируется до отмены ctx или падения gRPC-сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	logger.WithField("version", version.String()).Info("starting cafepos")

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close(logger)

	authSvc, err := initAuth(cfg, logger)
	if err != nil {
		return err
	}

	posService := grpcsvc.NewPOSService(newServices(cfg, deps, authSvc, logger), logger.WithField("layer", "grpc"))

	// Ошибка уже залогирована: без брокера касса работает с локальной проекцией.
	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(kafkaProducer, logger)

	bgCtx, bgCancel := context.WithCancel(ctx)
	var bg sync.WaitGroup
	defer shutdownBackground(bgCancel, &bg, logger)

	if err := startBackground(bgCtx, &bg, cfg, deps, kafkaProducer, logger); err != nil {
		return err
	}

	grpcServer, healthServer := newGRPCServer(posService, authSvc, logger)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	for name, checker := range deps.checkers {
		healthHandler.RegisterChecker(name, checker)
	}
	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)
	defer shutdownHTTP(metricsSrv, logger)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("gRPC server listening on %s", lis.Addr())
		errCh <- grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping gRPC server")
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		stopGRPC(grpcServer, logger)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

func newServices(cfg Config, deps *runtimeDependencies, authSvc *auth.Service, logger *log.Entry) grpcsvc.Services {
	retry := till.DefaultRetryConfig()
	if cfg.CheckoutMaxAttempts > 0 {
		retry.MaxAttempts = cfg.CheckoutMaxAttempts
	}

	services := grpcsvc.Services{
		Catalog: catalog.NewService(deps.menuRepo, deps.auditRepo, logger.WithField("component", "catalog")),
		Till: till.NewService(till.Dependencies{
			Carts:   deps.cartStore,
			Menu:    deps.menuRepo,
			Orders:  deps.orderRepo,
			Outbox:  deps.outboxRepo,
			Metrics: metrics.NewCheckoutMetrics(),
		}, retry, logger.WithField("component", "till")),
		History:     history.NewService(deps.orderRepo, history.QREncoder{}, cfg.ReceiptBaseURL, logger.WithField("component", "history")),
		Idempotency: deps.idempotencyRepo,
	}
	// Интерфейс с nil *auth.Service внутри не равен nil, поэтому присваиваем явно.
	if authSvc != nil {
		services.Auth = authSvc
	}
	return services
}

// initAuth включает вход администратора, только если задан логин.
func initAuth(cfg Config, logger *log.Entry) (*auth.Service, error) {
	if strings.TrimSpace(cfg.AdminUsername) == "" {
		logger.Warn("admin username is not set, authentication is disabled")
		return nil, nil
	}
	svc, err := auth.NewService(auth.Config{
		Username:     cfg.AdminUsername,
		PasswordHash: cfg.AdminPasswordHash,
		Secret:       []byte(cfg.AuthSecret),
		TokenTTL:     cfg.AuthTokenTTL,
	}, logger.WithField("component", "auth"))
	if err != nil {
		return nil, err
	}
	logger.WithField("username", cfg.AdminUsername).Info("authentication enabled")
	return svc, nil
}

// startBackground запускает outbox worker, очистку idempotency-ключей
// и, при наличии Kafka, потребителя проекции продаж.
func startBackground(ctx context.Context, wg *sync.WaitGroup, cfg Config, deps *runtimeDependencies, producer *kafka.Producer, logger *log.Entry) error {
	projector := sales.NewProjector(metrics.NewSalesMetrics(), 0, logger.WithField("component", "sales-projector"))

	var (
		publisher domain.OutboxPublisher
		options   = []outbox.Option{
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryDelays(cfg.OutboxRetryDelay, cfg.OutboxRetryDelay*10),
			outbox.WithRetention(cfg.OutboxRetention),
		}
	)
	if producer != nil {
		publisher = kafka.NewOutboxPublisher(producer, cfg.KafkaOrderTopic)
		options = append(options, outbox.WithDLQPublisher(kafka.NewOutboxPublisher(producer, kafka.TopicDeadLetterQueue)))
	} else {
		logger.Info("kafka is not configured, order events are projected in-process")
		publisher = sales.NewLocalPublisher(projector)
	}

	worker := outbox.NewWorker(deps.outboxRepo, publisher, options...)
	sweeper := idempotency.NewSweeper(
		deps.idempotencyRepo,
		cfg.IdempotencyCleanupInterval,
		cfg.IdempotencyCleanupBatchSize,
		logger.WithField("component", "idempotency-sweeper"),
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()

	if producer == nil || !cfg.SalesProjector {
		return nil
	}

	consumer, err := initSalesConsumer(cfg, projector.Handle, producer, logger)
	if err != nil {
		return fmt.Errorf("start sales consumer: %w", err)
	}
	if err := consumer.Start(ctx); err != nil {
		return err
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		if err := consumer.Stop(); err != nil {
			logger.WithError(err).Warn("failed to stop sales consumer")
		}
	}()
	return nil
}

func newGRPCServer(posService *grpcsvc.POSService, authSvc *auth.Service, logger *log.Entry) (*grpc.Server, *health.Server) {
	grpcMetrics := promgrpc.NewServerMetrics()
	if err := prometheus.Register(grpcMetrics); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok2 := are.ExistingCollector.(*promgrpc.ServerMetrics); ok2 {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	interceptors := []grpc.UnaryServerInterceptor{grpcMetrics.UnaryServerInterceptor()}
	if authSvc != nil {
		interceptors = append(interceptors, auth.UnaryServerInterceptor(authSvc,
			posv1.POSService_Login_FullMethodName,
			healthpb.Health_Check_FullMethodName,
		))
	}

	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...))
	posv1.RegisterPOSServiceServer(grpcServer, posService)
	grpcMetrics.InitializeMetrics(grpcServer)
	reflectionpb.RegisterServerReflectionServer(grpcServer, reflection.NewServerV1(reflection.ServerOptions{
		Services: describableServices{server: grpcServer},
	}))

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	return grpcServer, healthServer
}

// describableServices скрывает от reflection сервис кассы: он работает на
// JSON-кодеке и не имеет protobuf-дескриптора, который reflection мог бы отдать.
type describableServices struct {
	server *grpc.Server
}

func (d describableServices) GetServiceInfo() map[string]grpc.ServiceInfo {
	services := d.server.GetServiceInfo()
	delete(services, posv1.ServiceName)
	return services
}

func stopGRPC(srv *grpc.Server, logger *log.Entry) {
	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(shutdownTimeout):
		logger.Warn("graceful stop timed out, forcing shutdown")
		srv.Stop()
	}
}

// shutdownBackground отменяет фоновые задачи и ждёт их завершения.
func shutdownBackground(cancel context.CancelFunc, wg *sync.WaitGroup, logger *log.Entry) {
	if cancel != nil {
		cancel()
	}
	if wg == nil {
		return
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		logger.Warn("background workers did not stop in time")
	}
}

// startMetricsServer запускает HTTP с /metrics и health-эндпоинтами.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	srv := &http.Server{Addr: addr, Handler: newOpsMux(healthHandler), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("metrics available at %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// newOpsMux — служебные эндпоинты кассы: метрики и пробы.
func newOpsMux(healthHandler *healthcheck.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	return mux
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
