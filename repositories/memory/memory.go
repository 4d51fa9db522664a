// Package memory implements the repositories in process memory. It backs
// the service and handler tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"socialfeed/models"
	"socialfeed/repositories"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	mu         sync.RWMutex
	users      map[primitive.ObjectID]models.User
	posts      map[primitive.ObjectID]models.Post
	comments   map[primitive.ObjectID]models.Comment
	categories map[primitive.ObjectID]models.Category
	history    map[primitive.ObjectID]models.UserPostHistory
	push       map[string]models.PushSubscription
	now        func() time.Time
}

func New() *Store {
	return &Store{
		users:      make(map[primitive.ObjectID]models.User),
		posts:      make(map[primitive.ObjectID]models.Post),
		comments:   make(map[primitive.ObjectID]models.Comment),
		categories: make(map[primitive.ObjectID]models.Category),
		history:    make(map[primitive.ObjectID]models.UserPostHistory),
		push:       make(map[string]models.PushSubscription),
		now:        time.Now,
	}
}

// Repositories exposes the store through the repository interfaces.
func (s *Store) Repositories() *repositories.Store {
	return &repositories.Store{
		Users:      userRepo{s},
		Posts:      postRepo{s},
		Comments:   commentRepo{s},
		Categories: categoryRepo{s},
		History:    historyRepo{s},
		Push:       pushRepo{s},
	}
}

// PutPost stores p as-is, keeping its timestamps. Tests use it to seed posts
// with a specific createdAt.
func (s *Store) PutPost(p models.Post) models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.LikeCount = len(p.Likes)
	if p.Visibility == "" {
		p.Visibility = models.VisibilityPublic
	}
	s.posts[p.ID] = p
	return p
}

func cloneIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	if ids == nil {
		return []primitive.ObjectID{}
	}
	return append([]primitive.ObjectID{}, ids...)
}

func idSet(ids []primitive.ObjectID) map[primitive.ObjectID]struct{} {
	set := make(map[primitive.ObjectID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func page[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return []T{}
	}
	items = items[skip:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u.Username = strings.ToLower(strings.TrimSpace(u.Username))
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range r.s.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return repositories.ErrDuplicate
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.Interests = cloneIDs(u.Interests)
	u.Followers = cloneIDs(u.Followers)
	u.Following = cloneIDs(u.Following)
	u.SyncCounts()
	now := r.s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	r.s.users[u.ID] = *u
	return nil
}

func (r userRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &u, nil
}

func (r userRepo) FindByLogin(_ context.Context, login string) (*models.User, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Username == login || u.Email == login {
			return &u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r userRepo) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.User{}
	for id := range idSet(ids) {
		if u, ok := r.s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r userRepo) List(_ context.Context, search string, limit int) ([]models.User, error) {
	search = strings.ToLower(strings.TrimSpace(search))
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.User{}
	for _, u := range r.s.users {
		if search == "" ||
			strings.Contains(strings.ToLower(u.Username), search) ||
			strings.Contains(strings.ToLower(u.FullName), search) {
			out = append(out, u)
		}
	}
	sortByFollowers(out)
	return page(out, 0, limit), nil
}

func (r userRepo) Suggest(_ context.Context, u *models.User, limit int) ([]models.User, error) {
	following := idSet(u.Following)
	interests := idSet(u.Interests)
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.User{}
	for _, cand := range r.s.users {
		if cand.ID == u.ID {
			continue
		}
		if _, ok := following[cand.ID]; ok {
			continue
		}
		for _, i := range cand.Interests {
			if _, ok := interests[i]; ok {
				out = append(out, cand)
				break
			}
		}
	}
	sortByFollowers(out)
	return page(out, 0, limit), nil
}

func (r userRepo) SetFollow(_ context.Context, followerID, targetID primitive.ObjectID, follow bool) (*models.User, *models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	follower, ok := r.s.users[followerID]
	if !ok {
		return nil, nil, repositories.ErrNotFound
	}
	target, ok := r.s.users[targetID]
	if !ok {
		return nil, nil, repositories.ErrNotFound
	}
	now := r.s.now()

	follower.Following = models.SetMembership(cloneIDs(follower.Following), targetID, follow)
	follower.SyncCounts()
	follower.UpdatedAt = now
	r.s.users[followerID] = follower

	// Re-read in case follower and target are the same document.
	target = r.s.users[targetID]
	target.Followers = models.SetMembership(cloneIDs(target.Followers), followerID, follow)
	target.SyncCounts()
	target.UpdatedAt = now
	r.s.users[targetID] = target

	follower = r.s.users[followerID]
	return &follower, &target, nil
}

func (r userRepo) Count(context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.users)), nil
}

func sortByFollowers(users []models.User) {
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].FollowerCount != users[j].FollowerCount {
			return users[i].FollowerCount > users[j].FollowerCount
		}
		return users[i].ID.Hex() < users[j].ID.Hex()
	})
}

type postRepo struct{ s *Store }

func (r postRepo) Create(_ context.Context, p *models.Post) error {
	if err := p.Prepare(r.s.now()); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	r.s.posts[p.ID] = *p
	return nil
}

func (r postRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.posts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &p, nil
}

func (r postRepo) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Post, error) {
	set := idSet(ids)
	return r.filter(func(p models.Post) bool {
		_, ok := set[p.ID]
		return ok
	}, nil, 0, 0), nil
}

func (r postRepo) FindByIDsPage(_ context.Context, ids []primitive.ObjectID, skip, limit int) ([]models.Post, error) {
	set := idSet(ids)
	return r.filter(func(p models.Post) bool {
		_, ok := set[p.ID]
		return ok
	}, newestFirst, skip, limit), nil
}

func (r postRepo) Timeline(_ context.Context, authors []primitive.ObjectID, skip, limit int) ([]models.Post, error) {
	set := idSet(authors)
	return r.filter(func(p models.Post) bool {
		_, ok := set[p.Author]
		return ok && (p.Visibility == models.VisibilityPublic || p.Visibility == models.VisibilityFollowers)
	}, newestFirst, skip, limit), nil
}

func (r postRepo) ByAuthor(_ context.Context, author primitive.ObjectID, limit int) ([]models.Post, error) {
	return r.filter(func(p models.Post) bool { return p.Author == author }, newestFirst, 0, limit), nil
}

func (r postRepo) Discover(_ context.Context, q repositories.DiscoverQuery) ([]models.Post, error) {
	excluded := idSet(q.ExcludeIDs)
	categories := idSet(q.Categories)
	return r.filter(func(p models.Post) bool {
		if p.Visibility != models.VisibilityPublic || p.Author == q.ExcludeAuthor {
			return false
		}
		if _, ok := excluded[p.ID]; ok {
			return false
		}
		if !q.Since.IsZero() && p.CreatedAt.Before(q.Since) {
			return false
		}
		if !q.Before.IsZero() && !p.CreatedAt.Before(q.Before) {
			return false
		}
		if len(categories) > 0 {
			if p.Category == nil {
				return false
			}
			if _, ok := categories[*p.Category]; !ok {
				return false
			}
		}
		return true
	}, mostLiked, 0, q.Limit), nil
}

func (r postRepo) ToggleLike(_ context.Context, postID, userID primitive.ObjectID) (*models.Post, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[postID]
	if !ok {
		return nil, false, repositories.ErrNotFound
	}
	p.Likes = cloneIDs(p.Likes)
	liked := p.ToggleLike(userID)
	p.UpdatedAt = r.s.now()
	r.s.posts[postID] = p
	return &p, liked, nil
}

func (r postRepo) IncCommentCount(_ context.Context, postID primitive.ObjectID, delta int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[postID]
	if !ok {
		return repositories.ErrNotFound
	}
	p.CommentCount += delta
	r.s.posts[postID] = p
	return nil
}

func newestFirst(a, b models.Post) bool {
	return a.CreatedAt.After(b.CreatedAt)
}

func mostLiked(a, b models.Post) bool {
	if a.LikeCount != b.LikeCount {
		return a.LikeCount > b.LikeCount
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func (r postRepo) filter(keep func(models.Post) bool, less func(a, b models.Post) bool, skip, limit int) []models.Post {
	r.s.mu.RLock()
	out := []models.Post{}
	for _, p := range r.s.posts {
		if keep(p) {
			out = append(out, p)
		}
	}
	r.s.mu.RUnlock()
	if less != nil {
		sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	}
	return page(out, skip, limit)
}

type commentRepo struct{ s *Store }

func (r commentRepo) Create(_ context.Context, c *models.Comment) error {
	if err := c.Prepare(r.s.now()); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	r.s.comments[c.ID] = *c
	return nil
}

func (r commentRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.comments[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &c, nil
}

func (r commentRepo) TopLevel(_ context.Context, postID primitive.ObjectID, skip, limit int) ([]models.Comment, error) {
	r.s.mu.RLock()
	out := []models.Comment{}
	for _, c := range r.s.comments {
		if c.Post == postID && c.ParentComment == nil {
			out = append(out, c)
		}
	}
	r.s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, skip, limit), nil
}

func (r commentRepo) ToggleLike(_ context.Context, commentID, userID primitive.ObjectID) (*models.Comment, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.comments[commentID]
	if !ok {
		return nil, false, repositories.ErrNotFound
	}
	c.Likes = cloneIDs(c.Likes)
	liked := c.ToggleLike(userID)
	c.UpdatedAt = r.s.now()
	r.s.comments[commentID] = c
	return &c, liked, nil
}

type categoryRepo struct{ s *Store }

func (r categoryRepo) List(context.Context) ([]models.Category, error) {
	r.s.mu.RLock()
	out := make([]models.Category, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		out = append(out, c)
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r categoryRepo) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.Category{}
	for id := range idSet(ids) {
		if c, ok := r.s.categories[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r categoryRepo) InsertMany(_ context.Context, cs []models.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	for i := range cs {
		for _, existing := range r.s.categories {
			if existing.Name == cs[i].Name {
				return repositories.ErrDuplicate
			}
		}
		if cs[i].ID.IsZero() {
			cs[i].ID = primitive.NewObjectID()
		}
		cs[i].CreatedAt, cs[i].UpdatedAt = now, now
		r.s.categories[cs[i].ID] = cs[i]
	}
	return nil
}

type historyRepo struct{ s *Store }

func (r historyRepo) Get(_ context.Context, userID primitive.ObjectID) (*models.UserPostHistory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	h, ok := r.s.history[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	h.SeenPosts = cloneIDs(h.SeenPosts)
	return &h, nil
}

func (r historyRepo) AddSeen(_ context.Context, userID primitive.ObjectID, ids []primitive.ObjectID, limit int) (*models.UserPostHistory, error) {
	if limit <= 0 {
		limit = models.MaxSeenPosts
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	h, ok := r.s.history[userID]
	if !ok {
		h = models.UserPostHistory{
			ID:          primitive.NewObjectID(),
			User:        userID,
			SeenPosts:   []primitive.ObjectID{},
			LastUpdated: now,
			CreatedAt:   now,
		}
	}
	h.SeenPosts = cloneIDs(h.SeenPosts)
	h.AddSeen(ids, limit, now)
	r.s.history[userID] = h
	h.SeenPosts = cloneIDs(h.SeenPosts)
	return &h, nil
}

func (r historyRepo) Clear(_ context.Context, userID primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	h, ok := r.s.history[userID]
	if !ok {
		h = models.UserPostHistory{ID: primitive.NewObjectID(), User: userID, CreatedAt: now}
	}
	h.SeenPosts = []primitive.ObjectID{}
	h.LastUpdated, h.UpdatedAt = now, now
	r.s.history[userID] = h
	return nil
}

type pushRepo struct{ s *Store }

func (r pushRepo) Save(_ context.Context, sub *models.PushSubscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.push[sub.Endpoint]; ok {
		sub.ID, sub.CreatedAt = existing.ID, existing.CreatedAt
	} else {
		sub.ID, sub.CreatedAt = primitive.NewObjectID(), r.s.now()
	}
	r.s.push[sub.Endpoint] = *sub
	return nil
}

func (r pushRepo) ByUser(_ context.Context, userID primitive.ObjectID) ([]models.PushSubscription, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.PushSubscription{}
	for _, sub := range r.s.push {
		if sub.User == userID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (r pushRepo) DeleteByEndpoint(_ context.Context, endpoint string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.push, endpoint)
	return nil
}
