package refund

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/kigawas/certifier-website/storage"
)

// Runner triggers reconciler sweeps. Implementations deliver on the ticker
// channel whenever a sweep should happen; a delivery during a running sweep
// is dropped by the reconciler's guard, not queued.
type Runner interface {
	// Start initializes the trigger source. It must be called before the
	// ticker channel is usable.
	Start() error
	// Stop releases the trigger source. It must only be called after Start.
	Stop() error

	GetRefundTicker() <-chan time.Time
}

// TickerRunner triggers a sweep at a fixed interval.
type TickerRunner struct {
	duration time.Duration
	clock    *time.Ticker
}

func NewTickerRunner(duration time.Duration) *TickerRunner {
	return &TickerRunner{duration: duration}
}

func (self *TickerRunner) GetRefundTicker() <-chan time.Time {
	return self.clock.C
}

func (self *TickerRunner) Start() error {
	self.clock = time.NewTicker(self.duration)
	return nil
}

func (self *TickerRunner) Stop() error {
	if self.clock == nil {
		return errors.New("runner stop already")
	}
	self.clock.Stop()
	self.clock = nil
	return nil
}

// SubscriptionRunner triggers a sweep whenever the store publishes a new
// pending refund. Triggers arriving while the previous one is still
// undelivered collapse into it.
type SubscriptionRunner struct {
	queue  *storage.RefundQueue
	ticker chan time.Time
	cancel context.CancelFunc
}

func NewSubscriptionRunner(queue *storage.RefundQueue) *SubscriptionRunner {
	return &SubscriptionRunner{
		queue:  queue,
		ticker: make(chan time.Time, 1),
	}
}

func (self *SubscriptionRunner) GetRefundTicker() <-chan time.Time {
	return self.ticker
}

func (self *SubscriptionRunner) Start() error {
	if self.cancel != nil {
		return errors.New("runner start already")
	}
	ctx, cancel := context.WithCancel(context.Background())
	self.cancel = cancel
	sub := self.queue.Subscribe(ctx)
	go func() {
		for range sub.Channel() {
			select {
			case self.ticker <- time.Now():
			default:
				// a trigger is already pending, collapse
			}
		}
	}()
	go func() {
		<-ctx.Done()
		if err := sub.Close(); err != nil {
			log.Printf("Refund runner: subscription close error: %s", err.Error())
		}
	}()
	return nil
}

func (self *SubscriptionRunner) Stop() error {
	if self.cancel == nil {
		return errors.New("runner stop already")
	}
	self.cancel()
	self.cancel = nil
	return nil
}
