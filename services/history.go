package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"socialfeed/metrics"
	"socialfeed/models"
	"socialfeed/repositories"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// HistoryService tracks which posts each user has already seen.
type HistoryService struct {
	store    *repositories.Store
	populate *populator
}

type RecordSeenResult struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	TotalSeenPosts int    `json:"totalSeenPosts"`
}

type SeenPostsPage struct {
	SeenPosts   []models.PostView `json:"seenPosts"`
	TotalCount  int               `json:"totalCount"`
	Page        int               `json:"page"`
	HasMore     bool              `json:"hasMore"`
	LastUpdated *time.Time        `json:"lastUpdated,omitempty"`
}

// RecordSeen merges postIDs into the user's history. Malformed ids are
// skipped; it fails only when none are usable.
func (s *HistoryService) RecordSeen(ctx context.Context, u *models.User, postIDs []string) (*RecordSeenResult, error) {
	if len(postIDs) == 0 {
		return nil, newError(ErrValidation, "postIds array is required")
	}

	valid := make([]primitive.ObjectID, 0, len(postIDs))
	for _, hex := range postIDs {
		if id, err := primitive.ObjectIDFromHex(hex); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return nil, newError(ErrValidation, "No valid post IDs provided")
	}

	h, err := s.store.History.AddSeen(ctx, u.ID, models.DedupeIDs(valid), models.MaxSeenPosts)
	if err != nil {
		return nil, fmt.Errorf("record seen posts: %w", err)
	}
	metrics.SeenPostsSubmitted.Add(float64(len(valid)))

	return &RecordSeenResult{
		Success:        true,
		Message:        fmt.Sprintf("Recorded %d posts as seen", len(valid)),
		TotalSeenPosts: len(h.SeenPosts),
	}, nil
}

// SeenPosts pages through the user's seen posts, newest post first.
func (s *HistoryService) SeenPosts(ctx context.Context, u *models.User, page Page) (*SeenPostsPage, error) {
	out := &SeenPostsPage{SeenPosts: []models.PostView{}, Page: page.Page}

	h, err := s.store.History.Get(ctx, u.ID)
	if errors.Is(err, repositories.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	posts, err := s.store.Posts.FindByIDsPage(ctx, h.SeenPosts, page.Skip(), page.Limit)
	if err != nil {
		return nil, fmt.Errorf("load seen posts: %w", err)
	}
	views, err := s.populate.posts(ctx, posts)
	if err != nil {
		return nil, err
	}

	lastUpdated := h.LastUpdated
	out.SeenPosts = views
	out.TotalCount = len(h.SeenPosts)
	out.HasMore = page.Skip()+page.Limit < out.TotalCount
	out.LastUpdated = &lastUpdated
	return out, nil
}

func (s *HistoryService) Clear(ctx context.Context, u *models.User) error {
	if err := s.store.History.Clear(ctx, u.ID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// seenSet returns the user's seen post IDs; a missing history is empty.
func seenSet(ctx context.Context, store *repositories.Store, userID primitive.ObjectID) (map[primitive.ObjectID]struct{}, []primitive.ObjectID, error) {
	h, err := store.History.Get(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return map[primitive.ObjectID]struct{}{}, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load history: %w", err)
	}
	return h.SeenSet(), h.SeenPosts, nil
}
