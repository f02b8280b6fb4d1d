package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shop-service/config"
	_ "shop-service/docs"
	"shop-service/internal/cache"
	"shop-service/internal/cleanup"
	"shop-service/internal/gateway"
	"shop-service/internal/metrics"
	"shop-service/internal/producer"
	"shop-service/internal/ratelimit"
	"shop-service/internal/repository"
	"shop-service/internal/service"
	"shop-service/internal/session"
	grpctransport "shop-service/internal/transport/grpc"
	"shop-service/internal/transport/http/middleware"
	"shop-service/internal/transport/http/router"
	"shop-service/pkg/database"
	"shop-service/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// @Title Shop API
// @Version 1.0
// @Description API интернет-магазина: корзина, заказы, оплата через ZarinPal
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}

	defer logger.Sync()

	log := logger.L()

	cfg := config.Load(log)
	db := database.ConnectDB(&cfg.DB.Config, log)
	defer database.CloseDB(db, log)

	repos := repository.New(db)

	var (
		store   session.Store
		limiter ratelimit.Limiter
	)
	if cfg.Redis.Enabled {
		rc, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			log.Fatal("Не удалось подключиться к Redis", zap.Error(err))
		}
		defer rc.Close()
		store = session.NewRedisStore(rc, cfg.Shop.CartTTL, cfg.Shop.PaymentSessionTTL, log)
		limiter = ratelimit.NewRedisLimiter(rc.Client(), "shop:rl:")
	} else {
		log.Warn("Redis выключен, сессии хранятся в памяти процесса")
		store = session.NewMemoryStore(cfg.Shop.CartTTL, cfg.Shop.PaymentSessionTTL, log)
	}

	// без брокеров письма не отправляются, уведомления в ленте остаются
	var mailer service.Mailer
	if len(cfg.Kafka.Brokers) > 0 {
		notifications := producer.NewNotificationProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEmail)
		defer notifications.Close()
		mailer = notifications
	} else {
		log.Warn("KAFKA_BROKERS не задан, e-mail уведомления отключены")
	}
	bus := service.NewNotificationBus(repos.Notifications, mailer, log)

	discounts := service.NewDiscountResolver(repos)
	var gw service.PaymentGateway = gateway.NewClient(gateway.NewConfig(cfg.Gateway.MerchantID, cfg.Gateway.Sandbox, cfg.Gateway.Timeout), log)
	var m *metrics.Metrics
	if cfg.Shop.MetricsEnabled {
		m = metrics.New("service")
		gw = m.InstrumentGateway(gw)
	}

	tokens := middleware.NewTokenParser(cfg.JWT.AccessSecret, cfg.JWT.Issuer)
	r := router.Router(router.Deps{
		Carts:         service.NewCartService(repos, store, discounts, log),
		Discounts:     discounts,
		Orders:        service.NewOrderService(repos, store, discounts, bus, log),
		Payments:      service.NewPaymentService(repos, store, gw, bus, cfg.Gateway.CallbackURL, log),
		AdminPayments: service.NewAdminPaymentService(repos, bus, log),
		Notifications: service.NewNotificationService(repos.Notifications),
		Tokens:        tokens,
		Session: middleware.SessionConfig{
			Domain: cfg.Shop.CookieDomain,
			Secure: cfg.Shop.CookieSecure,
			TTL:    cfg.Shop.CartTTL,
		},
		CORSOrigins:  cfg.Shop.CORSOrigins,
		Metrics:      m,
		Limiter:      limiter,
		PaymentLimit: ratelimit.PerMinute(cfg.Shop.PaymentRequestsPerMinute),
	}, log)

	httpSrv := &http.Server{
		Addr:              cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lis, err := net.Listen("tcp", cfg.GRPCPort)
	if err != nil {
		log.Fatal("failed to listen", zap.Error(err))
	}
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(
		grpctransport.NewLoggingUnaryServerInterceptor(log),
		grpctransport.NewAuthUnaryServerInterceptor(tokens),
	))

	// Health server
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(grpcServer, healthSrv)

	// Reflection for local debugging
	reflection.Register(grpcServer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := cleanup.NewScheduler(
		cleanup.NewCleanupService(repos, cfg.Shop.PaymentStaleAfter, cfg.Shop.NotificationTTL, log),
		log,
	)
	scheduler.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("Starting gRPC health server", zap.String("addr", cfg.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal("gRPC server failed", zap.Error(err))
		}
	}()

	go func() {
		log.Info("Starting HTTP server", zap.String("addr", cfg.HTTPPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-quit
	log.Info("Shutting down shop service...")
	healthSrv.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown failed", zap.Error(err))
	}
	scheduler.Stop()
	cancel()
	grpcServer.GracefulStop()
	log.Info("Shop service stopped gracefully")
}
