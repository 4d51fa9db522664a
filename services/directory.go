package services

import (
	"context"
	"time"

	"socialfeed/cache"
	"socialfeed/models"
	"socialfeed/repositories"
)

const (
	categoriesCacheKey = "categories"
	categoriesTTL      = 10 * time.Minute
)

// DirectoryService serves the public user and category listings.
type DirectoryService struct {
	store *repositories.Store
	cache cache.Cache
}

func (s *DirectoryService) Users(ctx context.Context, search string, limit int) ([]models.UserView, error) {
	users, err := s.store.Users.List(ctx, search, limit)
	if err != nil {
		return nil, err
	}
	views := make([]models.UserView, len(users))
	for i := range users {
		views[i] = users[i].View(nil)
	}
	return views, nil
}

func (s *DirectoryService) Categories(ctx context.Context) ([]models.Category, error) {
	return cache.Remember(ctx, s.cache, categoriesCacheKey, categoriesTTL, s.store.Categories.List)
}

// ResetCategories drops the cached category list.
func (s *DirectoryService) ResetCategories(ctx context.Context) error {
	return s.cache.Delete(ctx, categoriesCacheKey)
}
