// Package services holds the application logic behind the HTTP handlers.
// Services talk to storage only through the repository interfaces and to
// the recommendation service only through Recommender.
package services

import (
	"context"
	"errors"
	"time"

	"socialfeed/auth"
	"socialfeed/cache"
	"socialfeed/models"
	"socialfeed/recommender"
	"socialfeed/repositories"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidID          = errors.New("invalid id")
	ErrValidation         = errors.New("validation failed")
	ErrSelfFollow         = errors.New("cannot follow yourself")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrConflict           = errors.New("conflict")
)

// Error carries a client-facing message alongside one of the sentinel
// errors above.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// Recommender is the subset of the recommendation client the services use.
type Recommender interface {
	Timeline(ctx context.Context, userID string, limit int) ([]recommender.Post, error)
	Predict(ctx context.Context, userID string, limit int) ([]recommender.Post, error)
	Explore(ctx context.Context, userID string, limit int) ([]recommender.Post, error)
	Users(ctx context.Context, userID string, limit int) ([]recommender.User, error)
	Train(ctx context.Context) (*recommender.TrainResult, error)
	ModelStatus(ctx context.Context) (*recommender.ModelStatus, error)
	Health(ctx context.Context) (*recommender.Health, error)
}

// Notifier delivers notifications to a user. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, to primitive.ObjectID, n models.Notification)
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, primitive.ObjectID, models.Notification) {}

type Deps struct {
	Store       *repositories.Store
	Recommender Recommender
	Cache       cache.Cache
	Notifier    Notifier
	Tokens      *auth.TokenManager
}

type Services struct {
	Auth            *AuthService
	Directory       *DirectoryService
	Social          *SocialService
	History         *HistoryService
	Recommendations *RecommendationService
	Push            *PushService
}

func New(d Deps) *Services {
	if d.Cache == nil {
		d.Cache = cache.NewMemory()
	}
	if d.Notifier == nil {
		d.Notifier = noopNotifier{}
	}
	p := &populator{store: d.Store}
	social := &SocialService{store: d.Store, populate: p, notifier: d.Notifier, now: time.Now}
	return &Services{
		Auth:      &AuthService{store: d.Store, tokens: d.Tokens},
		Directory: &DirectoryService{store: d.Store, cache: d.Cache},
		Social:    social,
		History:   &HistoryService{store: d.Store, populate: p},
		Recommendations: &RecommendationService{
			store:    d.Store,
			rec:      d.Recommender,
			cache:    d.Cache,
			populate: p,
			social:   social,
			now:      time.Now,
		},
		Push: &PushService{store: d.Store},
	}
}

// ParseID converts a hex string into an ObjectID.
func ParseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return id, nil
}

func notFound(err error, msg string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return newError(ErrNotFound, msg)
	}
	return err
}

// MaxPage bounds page numbers so the skip offset cannot overflow.
const MaxPage = 10000

// Page is a 1-based page/limit pair.
type Page struct {
	Page  int
	Limit int
}

func (p Page) Skip() int {
	if p.Page < 1 || p.Limit < 1 {
		return 0
	}
	return (min(p.Page, MaxPage) - 1) * p.Limit
}
