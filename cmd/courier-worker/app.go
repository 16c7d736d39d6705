package main

import (
	"context"
	"fmt"
	"time"

	"github.com/FreshOps/MarketBox/config"
	"github.com/FreshOps/MarketBox/internal/broker/kafka"
	"github.com/FreshOps/MarketBox/internal/cache/rediscache"
	"github.com/FreshOps/MarketBox/internal/integrations/courierfeed"
	"github.com/FreshOps/MarketBox/internal/integrations/courierfeed/fake"
	"github.com/FreshOps/MarketBox/internal/services/dispatch"
	"github.com/FreshOps/MarketBox/internal/storage/pgmarket"
)

type workerFactories struct {
	newStorage     func(cfg *config.Config) (repo dispatch.Repository, closeFn func(), err error)
	newProducer    func(cfg *config.Config) dispatch.Producer
	newRateLimiter func(cfg *config.Config) dispatch.RateLimiter
	newFeedClient  func(cfg *config.Config) courierfeed.Client
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(cfg *config.Config) (dispatch.Repository, func(), error) {
			sslMode := cfg.Database.SSLMode
			if sslMode == "" {
				sslMode = "disable"
			}
			connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
				cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
			st, err := pgmarket.New(connString)
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newProducer: func(cfg *config.Config) dispatch.Producer {
			brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
			return kafka.NewProducer(brokers)
		},
		newRateLimiter: func(cfg *config.Config) dispatch.RateLimiter {
			redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
			return rediscache.NewRateLimiter(redisAddr)
		},
		newFeedClient: func(cfg *config.Config) courierfeed.Client {
			// No real courier fleet here; the fake feed walks each order
			// along the route deterministically from its tracking number.
			return fake.New()
		},
	}
}

func RunCourierWorker(ctx context.Context, cfg *config.Config, f workerFactories) error {
	topic := cfg.Kafka.OrderStatusUpdatedTopicName
	if topic == "" {
		topic = "order.status.updated"
	}

	pollInterval := time.Duration(cfg.MarketBox.WorkerPollIntervalSeconds) * time.Second
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	batchSize := cfg.MarketBox.WorkerBatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	concurrency := cfg.MarketBox.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	lease := time.Duration(cfg.MarketBox.WorkerLeaseSeconds) * time.Second
	if lease <= 0 {
		lease = 120 * time.Second
	}
	rlPerMin := int64(cfg.MarketBox.WorkerRateLimitPerMinute)
	if rlPerMin <= 0 {
		rlPerMin = 120
	}

	repo, closeFn, err := f.newStorage(cfg)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	producer := f.newProducer(cfg)
	rl := f.newRateLimiter(cfg)
	feed := f.newFeedClient(cfg)

	d := dispatch.New(repo, feed, producer, rl, topic).
		WithSettings(pollInterval, batchSize, concurrency, lease, rlPerMin).
		WithPlanner(dispatch.PlannerConfig{
			MovingMinDelay: time.Duration(cfg.MarketBox.WorkerNextCheckMovingMinSeconds) * time.Second,
			MovingMaxDelay: time.Duration(cfg.MarketBox.WorkerNextCheckMovingMaxSeconds) * time.Second,
			IdleDelay:      time.Duration(cfg.MarketBox.WorkerNextCheckIdleSeconds) * time.Second,
			Backoff1:       time.Duration(cfg.MarketBox.WorkerBackoff1Seconds) * time.Second,
			Backoff2:       time.Duration(cfg.MarketBox.WorkerBackoff2Seconds) * time.Second,
			Backoff3:       time.Duration(cfg.MarketBox.WorkerBackoff3Seconds) * time.Second,
			Backoff4:       time.Duration(cfg.MarketBox.WorkerBackoff4Seconds) * time.Second,
		})

	go func() {
		err := runWorkerHTTPServer(ctx, workerHTTPOpts{
			httpAddr:   cfg.MarketBox.WorkerHTTPAddr,
			dispatcher: d,
			cfg:        cfg,
		})
		if err != nil && err != context.Canceled {
			panic(err)
		}
	}()

	return d.Run(ctx)
}
