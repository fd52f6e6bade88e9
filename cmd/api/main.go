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
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lathitha/eyecare-orders/internal/archive"
	"github.com/lathitha/eyecare-orders/internal/catalog"
	"github.com/lathitha/eyecare-orders/internal/config"
	"github.com/lathitha/eyecare-orders/internal/httpx"
	"github.com/lathitha/eyecare-orders/internal/inventory"
	"github.com/lathitha/eyecare-orders/internal/invoice"
	kafkax "github.com/lathitha/eyecare-orders/internal/kafka"
	"github.com/lathitha/eyecare-orders/internal/logging"
	"github.com/lathitha/eyecare-orders/internal/metrics"
	"github.com/lathitha/eyecare-orders/internal/notify"
	"github.com/lathitha/eyecare-orders/internal/orders"
	"github.com/lathitha/eyecare-orders/internal/postgres"
	"github.com/lathitha/eyecare-orders/internal/redisx"
	"github.com/lathitha/eyecare-orders/internal/sqlite"
)

type stores struct {
	catalog catalog.Store
	orders  orders.Registry
	notes   orders.NotificationLog
	close   func()
}

func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	if cfg.StoreDriver == "postgres" {
		db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.Postgres)
		if err != nil {
			return stores{}, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return stores{}, err
		}
		repo := &orders.Repo{DB: db}
		return stores{catalog: &inventory.Repo{DB: db}, orders: repo, notes: repo, close: db.Close}, nil
	}
	st, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		return stores{}, err
	}
	return stores{catalog: st.Catalog, orders: st.Orders, notes: st.Orders, close: func() { _ = st.Close() }}, nil
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// decimals go out as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		logger.Fatal("open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer st.close()

	registry := st.orders
	var idem httpx.IdempotencyStore
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		if err := redisx.Ping(ctx, rdb); err != nil {
			logger.Warn("redis unavailable, stage cache and idempotency disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			registry = redisx.NewCachedRegistry(st.orders, rdb, logger)
			idem = redisx.Idempotency{KV: rdb}
		}
	}

	// Producers run on their own context so queued events survive until
	// the HTTP server has drained.
	prodCtx, cancelProd := context.WithCancel(context.Background())
	defer cancelProd()
	var (
		stageEvents, statusEvents orders.Publisher
		producers                 []*kafkax.Producer
	)
	if len(cfg.KafkaBrokers) > 0 {
		stageProd := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStage, 1024, logger)
		statusProd := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicNotificationStatus, 1024, logger)
		stageProd.Start(prodCtx)
		statusProd.Start(prodCtx)
		stageEvents, statusEvents = stageProd, statusProd
		producers = append(producers, stageProd, statusProd)
	} else {
		logger.Info("KAFKA_BROKERS not set, events disabled")
	}

	var archiver httpx.Archiver
	if cfg.Archive.Bucket != "" {
		a, err := archive.New(ctx, cfg.Archive)
		if err != nil {
			logger.Warn("invoice archive disabled", zap.Error(err))
		} else {
			archiver = a
		}
	}

	gen, err := invoice.NewGenerator(cfg.InvoiceNode)
	if err != nil {
		logger.Fatal("invoice ids", zap.Error(err))
	}
	sender := notify.NewSender(cfg.Notify, logger)
	m := metrics.New()

	router := httpx.NewRouter(logger, m)
	(&httpx.InventoryHandler{
		Store:            st.catalog,
		ReorderThreshold: cfg.ReorderThreshold,
		Logger:           logger,
		Metrics:          m,
	}).Register(router)
	(&httpx.InvoicesHandler{
		Generator:       gen,
		Catalog:         st.catalog,
		Orders:          registry,
		Archive:         archiver,
		Events:          stageEvents,
		Idempotency:     idem,
		TaxRate:         cfg.TaxRate,
		TrackingBaseURL: cfg.TrackingBaseURL,
		Service:         cfg.ServiceName,
		Logger:          logger,
		Metrics:         m,
	}).Register(router)
	(&httpx.TrackingHandler{
		Orders:  registry,
		Events:  stageEvents,
		Service: cfg.ServiceName,
		Logger:  logger,
		Metrics: m,
	}).Register(router)
	(&httpx.NotificationsHandler{
		Sender:          sender,
		Log:             st.notes,
		Events:          statusEvents,
		TrackingBaseURL: cfg.TrackingBaseURL,
		Service:         cfg.ServiceName,
		Logger:          logger,
		Metrics:         m,
	}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("http listening",
			zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.StoreDriver), zap.String("sender", sender.Name()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	for _, p := range producers {
		p.Close()
	}
	for _, p := range producers {
		p.WaitClosed()
	}
}
