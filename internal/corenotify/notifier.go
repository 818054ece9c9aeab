// Package corenotify delivers best-effort "car sold" notifications to the
// external Core system. Events are queued and posted by background workers so
// the webhook path never waits on (or fails because of) Core.
package corenotify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"resty.dev/v3"
)

const requestTimeout = 10 * time.Second

// Event is the payload sent to Core when a sale is confirmed.
type Event struct {
	CarID       int64     `json:"carId"`
	BuyerCPF    string    `json:"buyerCpf"`
	SoldAt      time.Time `json:"soldAt"`
	PaymentCode string    `json:"paymentCode"`
}

// Notifier posts sold events to Core through a bounded queue and worker pool.
type Notifier struct {
	client    *resty.Client
	logger    *zap.Logger
	queue     chan Event
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a Notifier targeting the given Core base URL and starts its
// delivery workers.
func New(baseURL string, logger *zap.Logger, queueSize, workers int) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &Notifier{
		client: resty.New().SetBaseURL(baseURL).SetTimeout(requestTimeout),
		logger: logger,
		queue:  make(chan Event, queueSize),
	}
	for i := 0; i < workers; i++ {
		n.wg.Add(1)
		go n.worker()
	}
	return n
}

// NotifySold enqueues a sold event without blocking. When the queue is full
// the event is dropped and logged; the sale itself has already been committed.
func (n *Notifier) NotifySold(carID int64, buyerCPF string, soldAt time.Time, paymentCode string) {
	ev := Event{
		CarID:       carID,
		BuyerCPF:    buyerCPF,
		SoldAt:      soldAt,
		PaymentCode: paymentCode,
	}
	select {
	case n.queue <- ev:
	default:
		n.logger.Error("notification queue full, dropping event", zap.Int64("car_id", carID))
	}
}

func (n *Notifier) worker() {
	defer n.wg.Done()
	for ev := range n.queue {
		n.deliver(ev)
	}
}

func (n *Notifier) deliver(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	res, err := n.client.R().
		SetContext(ctx).
		SetBody(ev).
		Post(fmt.Sprintf("/internal/cars/%d/sold", ev.CarID))
	if err != nil {
		n.logger.Error("failed to notify core of sold car", zap.Int64("car_id", ev.CarID), zap.Error(err))
		return
	}
	if res.IsError() {
		n.logger.Error("core rejected sold notification",
			zap.Int64("car_id", ev.CarID),
			zap.Int("status", res.StatusCode()),
		)
		return
	}
	n.logger.Info("notified core of sold car", zap.Int64("car_id", ev.CarID))
}

// Close stops accepting events, drains the queue and waits for in-flight
// deliveries to finish.
func (n *Notifier) Close() {
	n.closeOnce.Do(func() {
		close(n.queue)
	})
	n.wg.Wait()
	n.client.Close()
}
