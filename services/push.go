package services

import (
	"context"
	"fmt"

	"socialfeed/models"
	"socialfeed/repositories"
)

// PushService manages the web push subscriptions of the current user.
type PushService struct {
	store *repositories.Store
}

type SubscribeInput struct {
	Endpoint string          `json:"endpoint" binding:"required,url"`
	Keys     models.PushKeys `json:"keys" binding:"required"`
}

// Subscribe stores the subscription, moving it to u when the endpoint was
// registered by another account on the same browser.
func (s *PushService) Subscribe(ctx context.Context, u *models.User, in SubscribeInput) (*models.PushSubscription, error) {
	sub := &models.PushSubscription{User: u.ID, Endpoint: in.Endpoint, Keys: in.Keys}
	if err := s.store.Push.Save(ctx, sub); err != nil {
		return nil, fmt.Errorf("save push subscription: %w", err)
	}
	return sub, nil
}

func (s *PushService) Unsubscribe(ctx context.Context, u *models.User, endpoint string) error {
	subs, err := s.store.Push.ByUser(ctx, u.ID)
	if err != nil {
		return fmt.Errorf("load push subscriptions: %w", err)
	}
	for _, sub := range subs {
		if sub.Endpoint == endpoint {
			if err := s.store.Push.DeleteByEndpoint(ctx, endpoint); err != nil {
				return fmt.Errorf("delete push subscription: %w", err)
			}
			return nil
		}
	}
	return newError(ErrNotFound, "Subscription not found")
}
