// Package push delivers notifications through the Web Push protocol.
package push

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"socialfeed/logging"
	"socialfeed/metrics"
	"socialfeed/models"
	"socialfeed/repositories"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNoSubscriptions is returned by Deliver when the user never subscribed.
var ErrNoSubscriptions = errors.New("user has no push subscriptions")

type Keys struct {
	PublicKey  string
	PrivateKey string
	Subject    string
}

// Sender signs pushes with the server's VAPID keys.
type Sender struct {
	subs   repositories.PushRepository
	keys   Keys
	client webpush.HTTPClient
	ttl    int
}

func NewSender(subs repositories.PushRepository, keys Keys, client webpush.HTTPClient) *Sender {
	if client == nil {
		client = http.DefaultClient
	}
	return &Sender{subs: subs, keys: keys, client: client, ttl: 60}
}

func (s *Sender) Name() string { return "push" }

func (s *Sender) PublicKey() string { return s.keys.PublicKey }

type message struct {
	Title string              `json:"title"`
	Body  string              `json:"body,omitempty"`
	Data  models.Notification `json:"data"`
}

// Deliver pushes n to every subscription of the user. Subscriptions the push
// service reports as gone are deleted.
func (s *Sender) Deliver(ctx context.Context, to primitive.ObjectID, n models.Notification) error {
	subs, err := s.subs.ByUser(ctx, to)
	if err != nil {
		return fmt.Errorf("load push subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return ErrNoSubscriptions
	}

	payload, err := json.Marshal(message{Title: n.Title(), Body: n.Text, Data: n})
	if err != nil {
		return err
	}

	var errs []error
	for _, sub := range subs {
		if err := s.send(ctx, sub, payload); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == len(subs) {
		return errors.Join(errs...)
	}
	return nil
}

func (s *Sender) send(ctx context.Context, sub models.PushSubscription, payload []byte) error {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{P256dh: sub.Keys.P256dh, Auth: sub.Keys.Auth},
	}, &webpush.Options{
		HTTPClient:      s.client,
		Subscriber:      s.keys.Subject,
		VAPIDPublicKey:  s.keys.PublicKey,
		VAPIDPrivateKey: s.keys.PrivateKey,
		TTL:             s.ttl,
	})
	if err != nil {
		metrics.PushFailures.WithLabelValues("error").Inc()
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		metrics.PushFailures.WithLabelValues("expired").Inc()
		if err := s.subs.DeleteByEndpoint(ctx, sub.Endpoint); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("failed to delete expired push subscription")
		}
		return fmt.Errorf("push subscription expired: status %d", resp.StatusCode)
	case resp.StatusCode >= 300:
		metrics.PushFailures.WithLabelValues("error").Inc()
		return fmt.Errorf("push service returned status %d", resp.StatusCode)
	}
	return nil
}

// GenerateKeys returns a new VAPID key pair.
func GenerateKeys() (publicKey, privateKey string, err error) {
	privateKey, publicKey, err = webpush.GenerateVAPIDKeys()
	return publicKey, privateKey, err
}
