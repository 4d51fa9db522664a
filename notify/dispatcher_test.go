package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"socialfeed/metrics"
	"socialfeed/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var errOffline = errors.New("offline")

type recordingChannel struct {
	name string
	err  error

	mu   sync.Mutex
	got  []primitive.ObjectID
	errs []error
}

func (c *recordingChannel) Name() string { return c.name }

func (c *recordingChannel) Deliver(ctx context.Context, to primitive.ObjectID, _ models.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, to)
	c.errs = append(c.errs, ctx.Err())
	return c.err
}

func TestDispatcherFansOut(t *testing.T) {
	ws := &recordingChannel{name: "test-ws"}
	push := &recordingChannel{name: "test-push", err: errOffline}
	d := NewDispatcher([]Channel{ws, push}, errOffline)

	to := primitive.NewObjectID()
	before := testutil.ToFloat64(metrics.NotificationsSent.WithLabelValues(models.NotificationLike, "test-ws"))

	ctx, cancel := context.WithCancel(context.Background())
	d.Notify(ctx, to, models.Notification{Type: models.NotificationLike, CreatedAt: time.Now()})
	cancel()
	d.Wait()

	assert.Equal(t, []primitive.ObjectID{to}, ws.got)
	assert.Equal(t, []primitive.ObjectID{to}, push.got)
	assert.NoError(t, ws.errs[0], "delivery must not inherit request cancellation")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.NotificationsSent.WithLabelValues(models.NotificationLike, "test-ws")))
	assert.Zero(t, testutil.ToFloat64(metrics.NotificationsSent.WithLabelValues(models.NotificationLike, "test-push")))
}
