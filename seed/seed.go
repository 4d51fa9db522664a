// Package seed fills a store with demo categories, users, follows, posts,
// likes and comments.
package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"socialfeed/models"
	"socialfeed/repositories"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Password is shared by every seeded account.
const Password = "helloadmin1"

var categoryNames = []string{
	"Technology", "Music", "Sports", "Travel", "Food",
	"Art", "Science", "Gaming", "Fitness", "Photography",
}

var userNames = []struct{ username, fullName string }{
	{"admin", "Site Admin"},
	{"alex_dev", "Alex Morgan"},
	{"blake_beats", "Blake Rivera"},
	{"casey_runs", "Casey Kim"},
	{"dana_travels", "Dana Okafor"},
	{"eli_eats", "Eli Novak"},
	{"frankie_art", "Frankie Chen"},
	{"gray_science", "Gray Patel"},
	{"harper_plays", "Harper Silva"},
	{"indy_lifts", "Indy Walsh"},
	{"jules_shoots", "Jules Moreau"},
	{"kai_codes", "Kai Tanaka"},
}

var postTemplates = map[string][]string{
	"Technology":  {"Just shipped a new feature with #golang and it feels great", "Hot take: #rust and #golang both have their place", "Anyone else excited about #ai tooling lately?"},
	"Music":       {"This album has been on repeat all week #music", "Live shows hit different #concert", "Learning a new chord progression today #guitar"},
	"Sports":      {"What a finish to the game last night #football", "Morning pickup game was intense #basketball", "Can't believe that comeback #sports"},
	"Travel":      {"Sunrise from the mountain hut was worth the climb #travel #hiking", "Packing light for a week abroad #travel", "Hidden beach found today #wanderlust"},
	"Food":        {"Homemade ramen night #food #cooking", "Best tacos in town, no contest #foodie", "Trying a sourdough starter again #baking"},
	"Art":         {"Finished a new watercolor piece #art", "Sketchbook pages from this week #drawing", "Gallery visit inspired me #art"},
	"Science":     {"Reading about black holes before bed #space #science", "Lab results finally came in #science", "The math behind rainbows is beautiful #physics"},
	"Gaming":      {"Speedrun attempt number forty #gaming", "Co-op night with friends #gaming", "This indie game deserves more love #indiegames"},
	"Fitness":     {"New deadlift PR today #fitness", "Rest days matter too #recovery", "5k before work #running #fitness"},
	"Photography": {"Golden hour never disappoints #photography", "Street shots from downtown #streetphotography", "Testing a new lens #photography"},
}

var commentTexts = []string{
	"Love this!", "So true", "Great post", "Where was this?", "Need to try this",
	"Amazing work", "Couldn't agree more", "This made my day", "Tell me more", "Nice one",
}

type Options struct {
	PostsPerUser int
	Window       time.Duration
	Rand         *rand.Rand
	Now          func() time.Time
}

type Summary struct {
	Categories int
	Users      int
	Follows    int
	Posts      int
	Likes      int
	Comments   int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d categories, %d users, %d follows, %d posts, %d likes, %d comments",
		s.Categories, s.Users, s.Follows, s.Posts, s.Likes, s.Comments)
}

type seeder struct {
	store *repositories.Store
	opts  Options
	sum   Summary
}

// Run seeds store, which is expected to be empty.
func Run(ctx context.Context, store *repositories.Store, opts Options) (Summary, error) {
	if opts.PostsPerUser < 1 {
		opts.PostsPerUser = 5
	}
	if opts.Window <= 0 {
		opts.Window = 7 * 24 * time.Hour
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &seeder{store: store, opts: opts}

	categories, err := s.categories(ctx)
	if err != nil {
		return s.sum, err
	}
	users, err := s.users(ctx, categories)
	if err != nil {
		return s.sum, err
	}
	if err := s.follows(ctx, users); err != nil {
		return s.sum, err
	}
	posts, err := s.posts(ctx, users, categories)
	if err != nil {
		return s.sum, err
	}
	if err := s.engagement(ctx, users, posts); err != nil {
		return s.sum, err
	}
	return s.sum, nil
}

func (s *seeder) categories(ctx context.Context) ([]models.Category, error) {
	cats := make([]models.Category, len(categoryNames))
	for i, name := range categoryNames {
		cats[i] = models.Category{Name: name, Description: "Posts about " + name}
	}
	if err := s.store.Categories.InsertMany(ctx, cats); err != nil {
		return nil, fmt.Errorf("insert categories: %w", err)
	}
	s.sum.Categories = len(cats)
	return cats, nil
}

func (s *seeder) users(ctx context.Context, categories []models.Category) ([]*models.User, error) {
	r := s.opts.Rand
	users := make([]*models.User, 0, len(userNames))
	for i, n := range userNames {
		u := &models.User{
			Username:   n.username,
			Email:      n.username + "@example.com",
			FullName:   n.fullName,
			Bio:        "Hi, I'm " + n.fullName,
			IsVerified: i%4 == 0,
			Role:       models.RoleUser,
		}
		if i == 0 {
			u.Role = models.RoleAdmin
		}
		for _, j := range r.Perm(len(categories))[:2+r.IntN(2)] {
			u.Interests = append(u.Interests, categories[j].ID)
		}
		if err := u.SetPassword(Password); err != nil {
			return nil, err
		}
		if err := s.store.Users.Create(ctx, u); err != nil {
			return nil, fmt.Errorf("create user %s: %w", n.username, err)
		}
		users = append(users, u)
	}
	s.sum.Users = len(users)
	return users, nil
}

func (s *seeder) follows(ctx context.Context, users []*models.User) error {
	r := s.opts.Rand
	for i, u := range users {
		count := 3 + r.IntN(4)
		for _, j := range r.Perm(len(users)) {
			if count == 0 {
				break
			}
			if j == i {
				continue
			}
			if _, _, err := s.store.Users.SetFollow(ctx, u.ID, users[j].ID, true); err != nil {
				return fmt.Errorf("follow: %w", err)
			}
			s.sum.Follows++
			count--
		}
	}
	return nil
}

func (s *seeder) posts(ctx context.Context, users []*models.User, categories []models.Category) ([]*models.Post, error) {
	r := s.opts.Rand
	now := s.opts.Now()
	var posts []*models.Post
	for _, u := range users {
		for k := 0; k < s.opts.PostsPerUser; k++ {
			catID := u.Interests[r.IntN(len(u.Interests))]
			cat := categoryByID(categories, catID)
			templates := postTemplates[cat.Name]

			created := now.Add(-time.Duration(r.Int64N(int64(s.opts.Window))))
			p := &models.Post{
				Author:     u.ID,
				Text:       templates[r.IntN(len(templates))],
				Category:   &catID,
				Visibility: visibility(r),
				CreatedAt:  created,
			}
			if err := s.store.Posts.Create(ctx, p); err != nil {
				return nil, fmt.Errorf("create post: %w", err)
			}
			posts = append(posts, p)
		}
	}
	s.sum.Posts = len(posts)
	return posts, nil
}

func (s *seeder) engagement(ctx context.Context, users []*models.User, posts []*models.Post) error {
	r := s.opts.Rand
	for _, p := range posts {
		for _, j := range r.Perm(len(users))[:r.IntN(7)] {
			if _, _, err := s.store.Posts.ToggleLike(ctx, p.ID, users[j].ID); err != nil {
				return fmt.Errorf("like post: %w", err)
			}
			s.sum.Likes++
		}

		for c := r.IntN(4); c > 0; c-- {
			author := users[r.IntN(len(users))]
			comment := &models.Comment{
				Post:   p.ID,
				Author: author.ID,
				Text:   commentTexts[r.IntN(len(commentTexts))],
			}
			if err := s.store.Comments.Create(ctx, comment); err != nil {
				return fmt.Errorf("create comment: %w", err)
			}
			if err := s.store.Posts.IncCommentCount(ctx, p.ID, 1); err != nil {
				return fmt.Errorf("count comment: %w", err)
			}
			s.sum.Comments++
		}
	}
	return nil
}

func visibility(r *rand.Rand) string {
	switch n := r.IntN(20); {
	case n == 0:
		return models.VisibilityPrivate
	case n < 4:
		return models.VisibilityFollowers
	}
	return models.VisibilityPublic
}

func categoryByID(categories []models.Category, id primitive.ObjectID) models.Category {
	for _, c := range categories {
		if c.ID == id {
			return c
		}
	}
	return categories[0]
}
