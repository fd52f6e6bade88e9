package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/lathitha/eyecare-orders/internal/config"
	kafkax "github.com/lathitha/eyecare-orders/internal/kafka"
	"github.com/lathitha/eyecare-orders/internal/logging"
	"github.com/lathitha/eyecare-orders/internal/metrics"
	"github.com/lathitha/eyecare-orders/internal/notifier"
	"github.com/lathitha/eyecare-orders/internal/notify"
	"github.com/lathitha/eyecare-orders/internal/orders"
	"github.com/lathitha/eyecare-orders/internal/postgres"
	"github.com/lathitha/eyecare-orders/internal/redisx"
	"github.com/lathitha/eyecare-orders/internal/sqlite"
)

func openLog(ctx context.Context, cfg config.Config) (orders.NotificationLog, func(), error) {
	if cfg.StoreDriver == "postgres" {
		db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return &orders.Repo{DB: db}, db.Close, nil
	}
	st, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	return st.Orders, func() { _ = st.Close() }, nil
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	service := cfg.ServiceName + "-notifier"
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, service)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if len(cfg.KafkaBrokers) == 0 {
		logger.Fatal("KAFKA_BROKERS is required for the notifier")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notes, closeLog, err := openLog(ctx, cfg)
	if err != nil {
		logger.Fatal("open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer closeLog()

	m := metrics.New()
	svc := &notifier.Service{
		Log:             notes,
		Sender:          notify.NewSender(cfg.Notify, logger),
		TrackingBaseURL: cfg.TrackingBaseURL,
		ServiceName:     service,
		Logger:          logger,
		Metrics:         m,
	}

	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		if err := redisx.Ping(ctx, rdb); err != nil {
			logger.Warn("redis unavailable, dedup disabled", zap.Error(err))
		} else {
			svc.Dedup = &redisx.Dedup{KV: rdb, Service: "notifier"}
		}
	}

	prodCtx, cancelProd := context.WithCancel(context.Background())
	defer cancelProd()
	statusProd := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicNotificationStatus, 1024, logger)
	statusProd.Start(prodCtx)
	svc.Status = statusProd

	// metrics only; the notifier has no API of its own
	metricsSrv := &http.Server{Addr: cfg.NotifierMetrics, Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics listener", zap.Error(err))
		}
	}()

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, orders.TopicOrderStage, cfg.NotifierWorkers, logger)
	logger.Info("notifier consumer started",
		zap.String("group", cfg.NotifierGroup), zap.String("topic", orders.TopicOrderStage),
		zap.Int("workers", cfg.NotifierWorkers), zap.String("sender", svc.Sender.Name()))
	if err := cons.Start(ctx, svc.HandleMessage); err != nil {
		logger.Error("consumer exit", zap.Error(err))
	}

	logger.Info("shutting down notifier")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	statusProd.Close()
	statusProd.WaitClosed()
}
