// Package notify fans notifications out to the delivery channels.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"socialfeed/logging"
	"socialfeed/metrics"
	"socialfeed/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Channel is one way of reaching a user.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, to primitive.ObjectID, n models.Notification) error
}

// Dispatcher delivers each notification on every channel in the background.
type Dispatcher struct {
	channels []Channel
	skip     []error
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewDispatcher builds a dispatcher. Errors matching one of quiet are not
// logged; they mean the user is not reachable on that channel.
func NewDispatcher(channels []Channel, quiet ...error) *Dispatcher {
	return &Dispatcher{channels: channels, skip: quiet, timeout: 10 * time.Second}
}

func (d *Dispatcher) Notify(ctx context.Context, to primitive.ObjectID, n models.Notification) {
	// Delivery outlives the request that triggered it.
	base := context.WithoutCancel(ctx)
	for _, ch := range d.channels {
		d.wg.Add(1)
		go func(ch Channel) {
			defer d.wg.Done()
			ctx, cancel := context.WithTimeout(base, d.timeout)
			defer cancel()
			d.deliver(ctx, ch, to, n)
		}(ch)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ch Channel, to primitive.ObjectID, n models.Notification) {
	err := ch.Deliver(ctx, to, n)
	if err == nil {
		metrics.NotificationsSent.WithLabelValues(n.Type, ch.Name()).Inc()
		return
	}
	for _, q := range d.skip {
		if errors.Is(err, q) {
			return
		}
	}
	logging.Ctx(ctx).Warn().Err(err).
		Str("channel", ch.Name()).
		Str("type", n.Type).
		Str("user", to.Hex()).
		Msg("notification delivery failed")
}

// Wait blocks until in-flight deliveries finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
