package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/FreshOps/MarketBox/internal/broker/messages"
	"github.com/FreshOps/MarketBox/internal/integrations/courierfeed"
	"github.com/FreshOps/MarketBox/internal/models"
	"github.com/pkg/errors"
)

type Repository interface {
	ClaimDueDeliveries(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.Order, error)
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

// Dispatcher claims due deliveries, asks the courier feed for progress and
// publishes one status message per order. It never writes to storage itself;
// market-api owns the apply side.
type Dispatcher struct {
	repo     Repository
	feed     courierfeed.Client
	producer Producer
	rl       RateLimiter

	topic string

	planner *Planner

	pollInterval       time.Duration
	batchSize          int
	concurrency        int
	lease              time.Duration
	rateLimitPerMinute int64

	triggerCh chan struct{}

	startedAtUnixNano   int64
	lastCycleUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalClaimed        atomic.Int64
	totalProcessed      atomic.Int64
	totalErrors         atomic.Int64
	inFlight            atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func New(repo Repository, feed courierfeed.Client, producer Producer, rl RateLimiter, topic string) *Dispatcher {
	return &Dispatcher{
		repo: repo, feed: feed, producer: producer, rl: rl, topic: topic,
		planner:            DefaultPlanner(),
		pollInterval:       2 * time.Second,
		batchSize:          100,
		concurrency:        10,
		lease:              120 * time.Second,
		rateLimitPerMinute: 120,
		triggerCh:          make(chan struct{}, 1),
		startedAtUnixNano:  time.Now().UTC().UnixNano(),
	}
}

func DefaultPlanner() *Planner {
	return NewPlanner(DefaultPlannerConfig(), nil)
}

func (d *Dispatcher) WithSettings(pollInterval time.Duration, batchSize, concurrency int, lease time.Duration, rlPerMin int64) *Dispatcher {
	if pollInterval > 0 {
		d.pollInterval = pollInterval
	}
	if batchSize > 0 {
		d.batchSize = batchSize
	}
	if concurrency > 0 {
		d.concurrency = concurrency
	}
	if lease > 0 {
		d.lease = lease
	}
	if rlPerMin > 0 {
		d.rateLimitPerMinute = rlPerMin
	}
	return d
}

func (d *Dispatcher) WithPlanner(cfg PlannerConfig) *Dispatcher {
	d.planner = NewPlanner(cfg, nil)
	return d
}

// Trigger forces an immediate cycle (best-effort, non-blocking).
func (d *Dispatcher) Trigger() {
	d.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case d.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt      time.Time  `json:"startedAt"`
	LastCycleAt    *time.Time `json:"lastCycleAt,omitempty"`
	LastTriggerAt  *time.Time `json:"lastTriggerAt,omitempty"`
	TotalClaimed   int64      `json:"totalClaimed"`
	TotalProcessed int64      `json:"totalProcessed"`
	TotalErrors    int64      `json:"totalErrors"`
	InFlight       int64      `json:"inFlight"`
	LastError      string     `json:"lastError,omitempty"`
}

func (d *Dispatcher) Stats() Stats {
	st := Stats{
		StartedAt:      time.Unix(0, d.startedAtUnixNano).UTC(),
		TotalClaimed:   d.totalClaimed.Load(),
		TotalProcessed: d.totalProcessed.Load(),
		TotalErrors:    d.totalErrors.Load(),
		InFlight:       d.inFlight.Load(),
	}
	if n := d.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	if n := d.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	d.lastErrorMu.Lock()
	st.LastError = d.lastError
	d.lastErrorMu.Unlock()
	return st
}

func (d *Dispatcher) Run(ctx context.Context) error {
	t := time.NewTicker(d.pollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			d.runOnce(ctx)
		case <-d.triggerCh:
			d.runOnce(ctx)
		}
	}
}

func (d *Dispatcher) runOnce(ctx context.Context) {
	now := time.Now().UTC()
	d.lastCycleUnixNano.Store(now.UnixNano())

	orders, err := d.repo.ClaimDueDeliveries(ctx, now, d.batchSize, d.lease)
	if err != nil {
		slog.Error("claim due deliveries", "error", err.Error())
		d.lastErrorMu.Lock()
		d.lastError = err.Error()
		d.lastErrorMu.Unlock()
		return
	}
	d.totalClaimed.Add(int64(len(orders)))

	sem := make(chan struct{}, d.concurrency)
	var wg sync.WaitGroup
	for _, o := range orders {
		sem <- struct{}{}
		wg.Add(1)
		oCopy := o
		d.inFlight.Add(1)
		go func() {
			defer func() {
				d.inFlight.Add(-1)
				<-sem
				wg.Done()
			}()
			if err := d.processOne(ctx, oCopy); err != nil {
				d.totalErrors.Add(1)
				d.lastErrorMu.Lock()
				d.lastError = err.Error()
				d.lastErrorMu.Unlock()
				slog.Error("process delivery", "order_id", oCopy.ID, "error", err.Error())
			}
			d.totalProcessed.Add(1)
		}()
	}
	wg.Wait()
}

func (d *Dispatcher) processOne(ctx context.Context, o *models.Order) error {
	now := time.Now().UTC()

	if d.rl != nil && d.rateLimitPerMinute > 0 {
		minuteKey := fmt.Sprintf("rl:courierfeed:%s", now.Format("200601021504"))
		allowed, n, err := d.rl.Allow(ctx, minuteKey, d.rateLimitPerMinute, 70*time.Second)
		if err != nil {
			return err
		}
		if !allowed {
			slog.Warn("rate limit exceeded", "count", n)
			time.Sleep(500 * time.Millisecond)
		}
	}

	upd, err := d.feed.GetUpdate(ctx, o.TrackingNumber, o.Status)
	msg := messages.OrderStatusUpdated{
		OrderID:   o.ID,
		CheckedAt: now,
	}

	if err != nil {
		e := err.Error()
		msg.Error = &e
		nextFail := o.CheckFailCount + 1
		msg.NextCheckAt = now.Add(d.planner.BackoffDelay(nextFail))
	} else {
		msg.Status = upd.Status
		msg.Message = upd.Message
		msg.Location = upd.Location
		msg.Driver = upd.Driver
		msg.NextCheckAt = now.Add(d.planner.NextCheckDelay(upd.Status))
	}

	b, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "marshal kafka msg")
	}

	key := []byte(fmt.Sprintf("%d", o.ID))
	// Kafka may not be up right after docker compose starts; retry briefly.
	var pubErr error
	for i := 0; i < 10; i++ {
		if err := d.producer.Publish(ctx, d.topic, key, b); err == nil {
			pubErr = nil
			break
		} else {
			pubErr = err
			time.Sleep(time.Duration(150*(i+1)) * time.Millisecond)
		}
	}
	return pubErr
}
