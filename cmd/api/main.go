package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"fooddelivery/internal/config"
	"fooddelivery/internal/handler"
	"fooddelivery/internal/infra/db"
	infraRepo "fooddelivery/internal/infra/repository"
	"fooddelivery/internal/logger"
	"fooddelivery/internal/messaging"
	"fooddelivery/internal/server"
	"fooddelivery/internal/telemetry"
	"fooddelivery/internal/usecase"
	"fooddelivery/internal/validator"

	"go.uber.org/zap"
)

func main() {
	config.LoadDotEnv(".env", "../.env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.GoEnv)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, zl *zap.Logger) error {
	//トレース（OTLP未設定ならpropagatorだけ）
	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	//メトリクス（/metrics）
	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownMeter(context.Background()) }()

	orderMetrics, err := telemetry.NewOrderMetrics()
	if err != nil {
		return err
	}

	//DB接続（スキーマは cmd/migrate で作る）
	gormDB, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()

	//注文イベント（kafka未設定なら送らない）
	var publisher usecase.OrderEventPublisher = usecase.NopPublisher()
	if len(cfg.KafkaBrokers) > 0 {
		p := messaging.NewOrderPublisher(messaging.NewProducer(cfg.KafkaBrokers, cfg.KafkaOrderTopic), 0)
		defer func() { _ = p.Close() }()
		publisher = p
		zl.Info("order events enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaOrderTopic))
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	categoryRepo := infraRepo.NewCategoryGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	comboRepo := infraRepo.NewComboGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	orderItemRepo := infraRepo.NewOrderItemGormRepository(gormDB)
	voucherRepo := infraRepo.NewVoucherGormRepository(gormDB)
	reviewRepo := infraRepo.NewReviewGormRepository(gormDB)
	statsRepo := infraRepo.NewStatsGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	//Usecase生成
	authUC := usecase.NewAuthUsecase(cfg, userRepo, validator.NewAuthValidator(), zl)
	categoryUC := usecase.NewCategoryUsecase(categoryRepo, auditRepo, zl)
	productUC := usecase.NewProductUsecase(productRepo, categoryRepo, reviewRepo, auditRepo, zl)
	comboUC := usecase.NewComboUsecase(comboRepo, productRepo, categoryRepo, auditRepo, zl)
	cartUC := usecase.NewCartUsecase(cartRepo, cartRepo, productRepo, comboRepo, zl)
	voucherUC := usecase.NewVoucherUsecase(txm, voucherRepo, userRepo, zl)
	orderUC := usecase.NewOrderUsecase(
		txm,
		orderRepo,
		orderItemRepo,
		userRepo,
		validator.NewCustomerValidator(),
		publisher,
		orderMetrics,
		usecase.OrderSettings{ShippingFee: cfg.ShippingFee, MinOrderAmount: cfg.MinOrderAmount},
		zl,
	)
	adminOrderUC := usecase.NewAdminOrderUsecase(txm, orderRepo, orderItemRepo, publisher, orderMetrics, zl)
	reviewUC := usecase.NewReviewUsecase(reviewRepo, productRepo, orderRepo, zl)
	adminUserUC := usecase.NewAdminUserUsecase(userRepo, auditRepo, zl)
	auditUC := usecase.NewAuditLogUsecase(auditRepo)
	dashboardUC := usecase.NewDashboardUsecase(statsRepo, orderRepo, orderItemRepo, zl)

	srv := server.New(cfg, zl, server.Deps{
		UserRepo: userRepo,
		DB:       sqlDB,
		Metrics:  metricsHandler,
		Routes: []server.RouteRegistrar{
			handler.NewAuthHandler(authUC),
			handler.NewCategoryHandler(categoryUC),
			handler.NewProductHandler(productUC),
			handler.NewComboHandler(comboUC),
			handler.NewCartHandler(cartUC),
			handler.NewVoucherHandler(voucherUC),
			handler.NewOrderHandler(orderUC),
			handler.NewAdminOrderHandler(adminOrderUC),
			handler.NewReviewHandler(reviewUC),
			handler.NewAdminUserHandler(adminUserUC, auditUC),
			handler.NewDashboardHandler(dashboardUC),
		},
	})

	return srv.Start(ctx)
}
