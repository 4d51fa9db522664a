// Package repositories holds the persistence contracts used by the services
// and their MongoDB implementation. An in-memory implementation lives in
// repositories/memory.
package repositories

import (
	"context"
	"errors"
	"time"

	"socialfeed/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate key")
)

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	// FindByLogin matches a lowercased username or email.
	FindByLogin(ctx context.Context, login string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	// List returns users ordered by followerCount desc, optionally filtered by
	// a case-insensitive substring of username or fullName.
	List(ctx context.Context, search string, limit int) ([]models.User, error)
	// Suggest returns users other than u, not followed by u, sharing at least
	// one interest with u, ordered by followerCount desc.
	Suggest(ctx context.Context, u *models.User, limit int) ([]models.User, error)
	// SetFollow adds or removes the follower->target edge. Each side is
	// updated atomically with its counter; the pair is not transactional.
	SetFollow(ctx context.Context, followerID, targetID primitive.ObjectID, follow bool) (follower, target *models.User, err error)
	Count(ctx context.Context) (int64, error)
}

type PostRepository interface {
	Create(ctx context.Context, p *models.Post) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Post, error)
	// FindByIDsPage returns the posts among ids newest first.
	FindByIDsPage(ctx context.Context, ids []primitive.ObjectID, skip, limit int) ([]models.Post, error)
	// Timeline returns public and followers-only posts by authors, newest first.
	Timeline(ctx context.Context, authors []primitive.ObjectID, skip, limit int) ([]models.Post, error)
	ByAuthor(ctx context.Context, author primitive.ObjectID, limit int) ([]models.Post, error)
	Discover(ctx context.Context, q DiscoverQuery) ([]models.Post, error)
	// ToggleLike flips userID's like and reports whether the post is now liked.
	ToggleLike(ctx context.Context, postID, userID primitive.ObjectID) (*models.Post, bool, error)
	IncCommentCount(ctx context.Context, postID primitive.ObjectID, delta int) error
}

// DiscoverQuery selects public posts for the explore fallback, ordered by
// likeCount desc then createdAt desc.
type DiscoverQuery struct {
	ExcludeAuthor primitive.ObjectID
	ExcludeIDs    []primitive.ObjectID
	Categories    []primitive.ObjectID
	Since         time.Time
	Before        time.Time
	Limit         int
}

type CommentRepository interface {
	Create(ctx context.Context, c *models.Comment) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error)
	// TopLevel returns comments on postID without a parent, newest first.
	TopLevel(ctx context.Context, postID primitive.ObjectID, skip, limit int) ([]models.Comment, error)
	ToggleLike(ctx context.Context, commentID, userID primitive.ObjectID) (*models.Comment, bool, error)
}

type CategoryRepository interface {
	List(ctx context.Context) ([]models.Category, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Category, error)
	InsertMany(ctx context.Context, cs []models.Category) error
}

type HistoryRepository interface {
	// Get returns ErrNotFound when the user has no history yet.
	Get(ctx context.Context, userID primitive.ObjectID) (*models.UserPostHistory, error)
	// AddSeen merges ids into the user's history, creating it if needed, and
	// keeps the most recent limit entries.
	AddSeen(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID, limit int) (*models.UserPostHistory, error)
	Clear(ctx context.Context, userID primitive.ObjectID) error
}

type PushRepository interface {
	Save(ctx context.Context, s *models.PushSubscription) error
	ByUser(ctx context.Context, userID primitive.ObjectID) ([]models.PushSubscription, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}

// Store bundles the repositories the server needs.
type Store struct {
	Users      UserRepository
	Posts      PostRepository
	Comments   CommentRepository
	Categories CategoryRepository
	History    HistoryRepository
	Push       PushRepository
}
