package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"socialfeed/cache"
	"socialfeed/logging"
	"socialfeed/metrics"
	"socialfeed/models"
	"socialfeed/recommender"
	"socialfeed/repositories"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	modelStatusCacheKey = "model_status"
	modelStatusTTL      = 30 * time.Second

	exploreWindow         = 3 * 24 * time.Hour
	exploreExtendedWindow = 5 * 24 * time.Hour
)

// RecommendationService serves the personalized feeds. Each feed asks the
// recommendation service first and falls back to a database query when the
// service fails or has nothing usable to offer.
type RecommendationService struct {
	store    *repositories.Store
	rec      Recommender
	cache    cache.Cache
	populate *populator
	social   *SocialService
	now      func() time.Time
}

// Timeline ranks unseen posts by the recommender's score, falling back to the
// chronological timeline.
func (s *RecommendationService) Timeline(ctx context.Context, u *models.User, page Page) ([]models.PostView, error) {
	seen, _, err := seenSet(ctx, s.store, u.ID)
	if err != nil {
		return nil, err
	}

	recs, err := s.rec.Timeline(ctx, u.ID.Hex(), page.Limit*2)
	if err != nil {
		s.fallback(ctx, "timeline", "error", err)
		return s.social.Timeline(ctx, u, page)
	}
	views, err := s.rankPosts(ctx, u, recs, seen, page.Limit, func(v *models.PostView, score float64) {
		v.AIScore = &score
	})
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		s.fallback(ctx, "timeline", "empty", nil)
		return s.social.Timeline(ctx, u, page)
	}
	return views, nil
}

// Explore ranks unseen posts by predicted like probability, then by the
// recommender's explore feed, and finally falls back to popular recent posts.
func (s *RecommendationService) Explore(ctx context.Context, u *models.User, limit int) ([]models.PostView, error) {
	seen, seenIDs, err := seenSet(ctx, s.store, u.ID)
	if err != nil {
		return nil, err
	}
	attach := func(v *models.PostView, score float64) { v.PredictedScore = &score }

	reason := "empty"
	sources := []func(context.Context, string, int) ([]recommender.Post, error){s.rec.Predict, s.rec.Explore}
	for _, source := range sources {
		recs, err := source(ctx, u.ID.Hex(), limit*2)
		if err != nil {
			logging.Ctx(ctx).Debug().Err(err).Msg("explore source failed")
			reason = "error"
			continue
		}
		views, err := s.rankPosts(ctx, u, recs, seen, limit, attach)
		if err != nil {
			return nil, err
		}
		if len(views) > 0 {
			return views, nil
		}
	}

	s.fallback(ctx, "explore", reason, nil)
	return s.recentPopular(ctx, u, seenIDs, limit)
}

// RecommendedUsers ranks accounts by the recommender's score, falling back
// to interest-based suggestions.
func (s *RecommendationService) RecommendedUsers(ctx context.Context, u *models.User, limit int) ([]models.UserView, error) {
	recs, err := s.rec.Users(ctx, u.ID.Hex(), limit)
	if err != nil {
		s.fallback(ctx, "users", "error", err)
		return s.social.SuggestedUsers(ctx, u, limit)
	}

	byID := make(map[primitive.ObjectID]recommender.User, len(recs))
	ids := make([]primitive.ObjectID, 0, len(recs))
	for _, r := range recs {
		id, err := primitive.ObjectIDFromHex(r.UserID)
		if err != nil || id == u.ID {
			continue
		}
		byID[id] = r
		ids = append(ids, id)
	}

	var users []models.User
	if len(ids) > 0 {
		if users, err = s.store.Users.FindByIDs(ctx, ids); err != nil {
			return nil, fmt.Errorf("load recommended users: %w", err)
		}
	}
	if len(users) == 0 {
		s.fallback(ctx, "users", "empty", nil)
		return s.social.SuggestedUsers(ctx, u, limit)
	}

	views, err := s.populate.users(ctx, users)
	if err != nil {
		return nil, err
	}
	for i := range views {
		r := byID[views[i].ID]
		score, shared := r.Score, r.SharedInterests
		views[i].RecommendationScore = &score
		views[i].SharedInterests = &shared
	}
	sort.SliceStable(views, func(i, j int) bool {
		return *views[i].RecommendationScore > *views[j].RecommendationScore
	})
	if len(views) > limit {
		views = views[:limit]
	}
	return views, nil
}

func (s *RecommendationService) TrainModel(ctx context.Context) (*recommender.TrainResult, error) {
	res, err := s.rec.Train(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Delete(ctx, modelStatusCacheKey); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("failed to drop cached model status")
	}
	return res, nil
}

func (s *RecommendationService) ModelStatus(ctx context.Context) (*recommender.ModelStatus, error) {
	return cache.Remember(ctx, s.cache, modelStatusCacheKey, modelStatusTTL, s.rec.ModelStatus)
}

func (s *RecommendationService) Health(ctx context.Context) (*recommender.Health, error) {
	return s.rec.Health(ctx)
}

// rankPosts loads the recommended posts that u has not seen and may view,
// attaches each score and orders them best first.
func (s *RecommendationService) rankPosts(ctx context.Context, u *models.User, recs []recommender.Post, seen map[primitive.ObjectID]struct{}, limit int, attach func(*models.PostView, float64)) ([]models.PostView, error) {
	scores := make(map[primitive.ObjectID]float64, len(recs))
	ids := make([]primitive.ObjectID, 0, len(recs))
	for _, r := range recs {
		id, err := primitive.ObjectIDFromHex(r.PostID)
		if err != nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		if _, dup := scores[id]; dup {
			continue
		}
		scores[id] = r.Score
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return []models.PostView{}, nil
	}

	posts, err := s.store.Posts.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load recommended posts: %w", err)
	}
	visible := posts[:0]
	for _, p := range posts {
		if canView(u, &p) {
			visible = append(visible, p)
		}
	}

	views, err := s.populate.posts(ctx, visible)
	if err != nil {
		return nil, err
	}
	for i := range views {
		attach(&views[i], scores[views[i].ID])
	}
	sort.SliceStable(views, func(i, j int) bool {
		return scores[views[i].ID] > scores[views[j].ID]
	})
	if len(views) > limit {
		views = views[:limit]
	}
	return views, nil
}

// recentPopular returns public posts by other users from the last three
// days, topped up from three to five days ago, most liked first.
func (s *RecommendationService) recentPopular(ctx context.Context, u *models.User, seen []primitive.ObjectID, limit int) ([]models.PostView, error) {
	now := s.now()
	recentSince := now.Add(-exploreWindow)

	posts, err := s.store.Posts.Discover(ctx, repositories.DiscoverQuery{
		ExcludeAuthor: u.ID,
		ExcludeIDs:    seen,
		Categories:    u.Interests,
		Since:         recentSince,
		Limit:         limit * 2,
	})
	if err != nil {
		return nil, fmt.Errorf("load recent posts: %w", err)
	}

	if len(posts) < limit {
		exclude := append([]primitive.ObjectID{}, seen...)
		for _, p := range posts {
			exclude = append(exclude, p.ID)
		}
		older, err := s.store.Posts.Discover(ctx, repositories.DiscoverQuery{
			ExcludeAuthor: u.ID,
			ExcludeIDs:    exclude,
			Categories:    u.Interests,
			Since:         now.Add(-exploreExtendedWindow),
			Before:        recentSince,
			Limit:         limit * 2,
		})
		if err != nil {
			return nil, fmt.Errorf("load older posts: %w", err)
		}
		posts = append(posts, older...)
	}

	if len(posts) > limit {
		posts = posts[:limit]
	}
	return s.populate.posts(ctx, posts)
}

func (s *RecommendationService) fallback(ctx context.Context, feed, reason string, err error) {
	metrics.RecordFallback(feed, reason)
	logging.Ctx(ctx).Warn().Err(err).Str("feed", feed).Str("reason", reason).Msg("serving fallback feed")
}

// canView applies post visibility to u.
func canView(u *models.User, p *models.Post) bool {
	switch {
	case p.Author == u.ID:
		return true
	case p.Visibility == models.VisibilityPublic:
		return true
	case p.Visibility == models.VisibilityFollowers:
		return u.IsFollowing(p.Author)
	}
	return false
}
