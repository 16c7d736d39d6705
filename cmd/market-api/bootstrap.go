package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FreshOps/MarketBox/config"
	"github.com/FreshOps/MarketBox/internal/broker/kafka"
	"github.com/FreshOps/MarketBox/internal/cache/rediscache"
	"github.com/FreshOps/MarketBox/internal/integrations/geocoder"
	geocoderfake "github.com/FreshOps/MarketBox/internal/integrations/geocoder/fake"
	"github.com/FreshOps/MarketBox/internal/integrations/geocoder/placeshttp"
	"github.com/FreshOps/MarketBox/internal/integrations/payments"
	paymentsfake "github.com/FreshOps/MarketBox/internal/integrations/payments/fake"
	"github.com/FreshOps/MarketBox/internal/integrations/payments/gatewayhttp"
	"github.com/FreshOps/MarketBox/internal/services/cart"
	"github.com/FreshOps/MarketBox/internal/services/catalog"
	"github.com/FreshOps/MarketBox/internal/services/delivery"
	"github.com/FreshOps/MarketBox/internal/services/loyalty"
	"github.com/FreshOps/MarketBox/internal/services/orders"
	"github.com/FreshOps/MarketBox/internal/services/promos"
	"github.com/FreshOps/MarketBox/internal/services/reviews"
	"github.com/FreshOps/MarketBox/internal/storage/pgmarket"
	"github.com/FreshOps/MarketBox/internal/ws"
)

type marketAPIApp struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   marketAPIOpts

	ordersSvc *orders.Service
	consumer  *kafka.Consumer
	hub       *ws.Hub
	closeDB   func()
}

func mustBootstrapMarketAPI() *marketAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("config parse failed: %v", err))
	}

	httpAddr := cfg.MarketBox.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	consumerGroup := cfg.MarketBox.KafkaConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "market-api"
	}
	topic := cfg.Kafka.OrderStatusUpdatedTopicName
	if topic == "" {
		topic = "order.status.updated"
	}
	cacheTTL := time.Duration(cfg.MarketBox.OrderCacheTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	taxRate := int64(cfg.MarketBox.TaxRatePercent)
	if taxRate <= 0 {
		taxRate = 8
	}
	reservationTTL := time.Duration(cfg.MarketBox.SlotReservationTTLHours) * time.Hour
	if reservationTTL <= 0 {
		reservationTTL = 8 * 24 * time.Hour
	}

	sslMode := cfg.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
	st := mustOpenPostgresWithRetry(connString, 60*time.Second)

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	rc := rediscache.New(redisAddr)
	reservations := rediscache.NewSlotReservations(redisAddr, reservationTTL)

	var pay payments.Client
	if cfg.MarketBox.PaymentGatewayBaseURL != "" {
		pay = gatewayhttp.New(cfg.MarketBox.PaymentGatewayBaseURL, cfg.MarketBox.PaymentGatewayAPIKey)
	} else {
		pay = paymentsfake.New()
	}

	var geo geocoder.Client
	if cfg.MarketBox.GeocoderBaseURL != "" {
		geo = placeshttp.New(cfg.MarketBox.GeocoderBaseURL, cfg.MarketBox.GeocoderAPIKey)
	} else {
		geo = geocoderfake.New()
	}

	scheduler := delivery.NewScheduler(reservations)
	promosSvc := promos.New()

	catalogSvc := catalog.New(st, rc, 5*time.Minute)
	cartSvc := cart.New(st, st)
	ordersSvc := orders.New(st, rc, cacheTTL, pay, scheduler, promosSvc, taxRate)
	reviewsSvc := reviews.New(st)
	loyaltySvc := loyalty.New(st)

	hub := ws.NewHub()

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	consumer := kafka.NewConsumer(brokers, topic, consumerGroup)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &marketAPIApp{
		ctx:    ctx,
		cancel: cancel,
		opts: marketAPIOpts{
			httpAddr:      httpAddr,
			topic:         topic,
			consumerGroup: consumerGroup,

			catalog:      catalogSvc,
			cart:         cartSvc,
			orders:       ordersSvc,
			reviews:      reviewsSvc,
			loyalty:      loyaltySvc,
			promos:       promosSvc,
			geocoder:     geo,
			reservations: reservations,
		},
		ordersSvc: ordersSvc,
		consumer:  consumer,
		hub:       hub,
		closeDB:   st.Close,
	}
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgmarket.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgmarket.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *marketAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.consumer != nil {
		_ = a.consumer.Close()
	}
	if a.closeDB != nil {
		a.closeDB()
	}
}

func (a *marketAPIApp) Run() error {
	return runMarketAPI(a.ctx, a.opts, a.ordersSvc, a.consumer, a.hub)
}
