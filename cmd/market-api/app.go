package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/FreshOps/MarketBox/internal/api/marketapi"
	"github.com/FreshOps/MarketBox/internal/broker/messages"
	"github.com/FreshOps/MarketBox/internal/integrations/geocoder"
	"github.com/FreshOps/MarketBox/internal/services/cart"
	"github.com/FreshOps/MarketBox/internal/services/catalog"
	"github.com/FreshOps/MarketBox/internal/services/delivery"
	"github.com/FreshOps/MarketBox/internal/services/loyalty"
	"github.com/FreshOps/MarketBox/internal/services/orders"
	"github.com/FreshOps/MarketBox/internal/services/promos"
	"github.com/FreshOps/MarketBox/internal/services/reviews"
	"github.com/FreshOps/MarketBox/internal/ws"
)

type marketAPIOpts struct {
	httpAddr string

	topic         string
	consumerGroup string

	catalog      *catalog.Service
	cart         *cart.Service
	orders       *orders.Service
	reviews      *reviews.Service
	loyalty      *loyalty.Service
	promos       *promos.Service
	geocoder     geocoder.Client
	reservations delivery.ReservationSource

	onListen func(httpAddr string)
}

type kafkaConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

func runMarketAPI(ctx context.Context, opts marketAPIOpts, ordersSvc *orders.Service, consumer kafkaConsumer, hub *ws.Hub) error {
	api := marketapi.New(
		opts.catalog, opts.cart, opts.orders, opts.reviews,
		opts.loyalty, opts.promos, opts.geocoder, hub, opts.reservations,
	)

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	go hub.Run()

	go func() {
		slog.Info("kafka consumer started", "topic", opts.topic, "group", opts.consumerGroup)
		_ = consumer.Consume(ctx, func(_key, value []byte) error {
			var m messages.OrderStatusUpdated
			if err := json.Unmarshal(value, &m); err != nil {
				return err
			}
			if err := ordersSvc.ApplyCourierUpdate(ctx, m); err != nil {
				return err
			}
			// push the change to any open tracking pages
			if m.Error == nil && m.Status != "" {
				hub.Broadcast("order.status", m)
			}
			return nil
		})
	}()

	srv := &http.Server{Handler: api.Router()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	slog.Info("HTTP server listening", "addr", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && err != http.ErrServerClosed {
		return err
	}
	return ctx.Err()
}
