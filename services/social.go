package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"socialfeed/logging"
	"socialfeed/models"
	"socialfeed/repositories"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const profilePostLimit = 10

// SocialService covers the follow graph, posts, likes and comments.
type SocialService struct {
	store    *repositories.Store
	populate *populator
	notifier Notifier
	now      func() time.Time
}

type CreatePostInput struct {
	Content    string         `json:"content"`
	Media      []models.Media `json:"media" binding:"omitempty,max=4,dive"`
	CategoryID string         `json:"categoryId" binding:"omitempty,objectid"`
	Visibility string         `json:"visibility" binding:"omitempty,oneof=public private followers"`
}

type Profile struct {
	User  models.UserView   `json:"user"`
	Posts []models.PostView `json:"posts"`
}

type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"likeCount"`
}

type FollowResult struct {
	Following      bool `json:"following"`
	FollowerCount  int  `json:"followerCount"`
	FollowingCount int  `json:"followingCount"`
}

// Timeline returns posts by the users u follows and by u, newest first.
func (s *SocialService) Timeline(ctx context.Context, u *models.User, page Page) ([]models.PostView, error) {
	authors := append(append([]primitive.ObjectID{}, u.Following...), u.ID)
	posts, err := s.store.Posts.Timeline(ctx, authors, page.Skip(), page.Limit)
	if err != nil {
		return nil, fmt.Errorf("load timeline: %w", err)
	}
	return s.populate.posts(ctx, posts)
}

// SuggestedUsers returns accounts sharing an interest with u that u does not
// follow yet.
func (s *SocialService) SuggestedUsers(ctx context.Context, u *models.User, limit int) ([]models.UserView, error) {
	users, err := s.store.Users.Suggest(ctx, u, limit)
	if err != nil {
		return nil, fmt.Errorf("suggest users: %w", err)
	}
	return s.populate.users(ctx, users)
}

func (s *SocialService) Profile(ctx context.Context, userID string) (*Profile, error) {
	id, err := ParseID(userID)
	if err != nil {
		return nil, newError(ErrInvalidID, "Invalid user id")
	}
	user, err := s.store.Users.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "User not found")
	}
	users, err := s.populate.users(ctx, []models.User{*user})
	if err != nil {
		return nil, err
	}
	posts, err := s.store.Posts.ByAuthor(ctx, id, profilePostLimit)
	if err != nil {
		return nil, fmt.Errorf("load posts: %w", err)
	}
	views, err := s.populate.posts(ctx, posts)
	if err != nil {
		return nil, err
	}
	return &Profile{User: users[0], Posts: views}, nil
}

func (s *SocialService) CreatePost(ctx context.Context, u *models.User, in CreatePostInput) (models.PostView, error) {
	if strings.TrimSpace(in.Content) == "" {
		return models.PostView{}, newError(ErrValidation, "Post content is required")
	}

	post := &models.Post{
		Author:     u.ID,
		Text:       in.Content,
		Media:      in.Media,
		Visibility: in.Visibility,
	}
	if in.CategoryID != "" {
		id, err := ParseID(in.CategoryID)
		if err != nil {
			return models.PostView{}, newError(ErrValidation, "Invalid category id")
		}
		post.Category = &id
	}
	post.Mentions = s.resolveMentions(ctx, in.Content, u.ID)

	if err := s.store.Posts.Create(ctx, post); err != nil {
		if isModelValidation(err) {
			return models.PostView{}, newError(ErrValidation, err.Error())
		}
		return models.PostView{}, fmt.Errorf("create post: %w", err)
	}
	return s.populate.post(ctx, post)
}

func (s *SocialService) LikePost(ctx context.Context, u *models.User, postID string) (*LikeResult, error) {
	id, err := ParseID(postID)
	if err != nil {
		return nil, newError(ErrInvalidID, "Invalid post id")
	}
	post, liked, err := s.store.Posts.ToggleLike(ctx, id, u.ID)
	if err != nil {
		return nil, notFound(err, "Post not found")
	}
	if liked {
		s.notify(ctx, post.Author, u, models.Notification{Type: models.NotificationLike, PostID: &post.ID})
	}
	return &LikeResult{Liked: liked, LikeCount: post.LikeCount}, nil
}

func (s *SocialService) CommentOnPost(ctx context.Context, u *models.User, postID, content string) (models.CommentView, error) {
	if strings.TrimSpace(content) == "" {
		return models.CommentView{}, newError(ErrValidation, "Comment content is required")
	}
	id, err := ParseID(postID)
	if err != nil {
		return models.CommentView{}, newError(ErrInvalidID, "Invalid post id")
	}
	post, err := s.store.Posts.FindByID(ctx, id)
	if err != nil {
		return models.CommentView{}, notFound(err, "Post not found")
	}

	comment := &models.Comment{
		Post:     post.ID,
		Author:   u.ID,
		Text:     content,
		Mentions: s.resolveMentions(ctx, content, u.ID),
	}
	if err := s.store.Comments.Create(ctx, comment); err != nil {
		if isModelValidation(err) {
			return models.CommentView{}, newError(ErrValidation, err.Error())
		}
		return models.CommentView{}, fmt.Errorf("create comment: %w", err)
	}
	if err := s.store.Posts.IncCommentCount(ctx, post.ID, 1); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("post_id", post.ID.Hex()).Msg("failed to bump comment count")
	}

	s.notify(ctx, post.Author, u, models.Notification{
		Type:      models.NotificationComment,
		PostID:    &post.ID,
		CommentID: &comment.ID,
		Text:      comment.Text,
	})

	views, err := s.populate.comments(ctx, []models.Comment{*comment})
	if err != nil {
		return models.CommentView{}, err
	}
	return views[0], nil
}

func (s *SocialService) PostComments(ctx context.Context, postID string, page Page) ([]models.CommentView, error) {
	id, err := ParseID(postID)
	if err != nil {
		return nil, newError(ErrInvalidID, "Invalid post id")
	}
	comments, err := s.store.Comments.TopLevel(ctx, id, page.Skip(), page.Limit)
	if err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}
	return s.populate.comments(ctx, comments)
}

func (s *SocialService) LikeComment(ctx context.Context, u *models.User, commentID string) (*LikeResult, error) {
	id, err := ParseID(commentID)
	if err != nil {
		return nil, newError(ErrInvalidID, "Invalid comment id")
	}
	comment, liked, err := s.store.Comments.ToggleLike(ctx, id, u.ID)
	if err != nil {
		return nil, notFound(err, "Comment not found")
	}
	return &LikeResult{Liked: liked, LikeCount: comment.LikeCount}, nil
}

// Follow toggles whether u follows targetID.
func (s *SocialService) Follow(ctx context.Context, u *models.User, targetID string) (*FollowResult, error) {
	id, err := ParseID(targetID)
	if err != nil {
		return nil, newError(ErrInvalidID, "Invalid user id")
	}
	if id == u.ID {
		return nil, newError(ErrSelfFollow, "Cannot follow yourself")
	}

	// Reload both sides; the caller's copy may be stale.
	follower, err := s.store.Users.FindByID(ctx, u.ID)
	if err != nil {
		return nil, notFound(err, "User not found")
	}
	if _, err := s.store.Users.FindByID(ctx, id); err != nil {
		return nil, notFound(err, "User not found")
	}

	follow := !follower.IsFollowing(id)
	follower, target, err := s.store.Users.SetFollow(ctx, u.ID, id, follow)
	if err != nil {
		return nil, notFound(err, "User not found")
	}
	if follow {
		s.notify(ctx, target.ID, follower, models.Notification{Type: models.NotificationFollow})
	}
	return &FollowResult{
		Following:      follow,
		FollowerCount:  target.FollowerCount,
		FollowingCount: follower.FollowingCount,
	}, nil
}

// notify sends n from actor to the user to, never to the actor themselves.
func (s *SocialService) notify(ctx context.Context, to primitive.ObjectID, actor *models.User, n models.Notification) {
	if to == actor.ID {
		return
	}
	n.Actor = actor.Summary()
	n.CreatedAt = s.now()
	s.notifier.Notify(ctx, to, n)
}

// resolveMentions maps @usernames in text to existing users other than self.
func (s *SocialService) resolveMentions(ctx context.Context, text string, self primitive.ObjectID) []primitive.ObjectID {
	ids := []primitive.ObjectID{}
	for _, name := range models.ExtractMentions(text) {
		user, err := s.store.Users.FindByLogin(ctx, name)
		if err != nil {
			if !errors.Is(err, repositories.ErrNotFound) {
				logging.Ctx(ctx).Warn().Err(err).Str("mention", name).Msg("mention lookup failed")
			}
			continue
		}
		if user.ID != self {
			ids = append(ids, user.ID)
		}
	}
	return ids
}

func isModelValidation(err error) bool {
	return errors.Is(err, models.ErrEmptyText) ||
		errors.Is(err, models.ErrTextTooLong) ||
		errors.Is(err, models.ErrVisibility) ||
		errors.Is(err, models.ErrMediaType)
}
