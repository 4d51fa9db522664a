package models

import (
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxTextLength bounds post and comment text, counted in runes.
const MaxTextLength = 280

const (
	VisibilityPublic    = "public"
	VisibilityPrivate   = "private"
	VisibilityFollowers = "followers"
)

var (
	ErrEmptyText   = errors.New("text is required")
	ErrTextTooLong = errors.New("text exceeds 280 characters")
	ErrVisibility  = errors.New("visibility must be public, private or followers")
	ErrMediaType   = errors.New("media type must be image or video")
	hashtagPattern = regexp.MustCompile(`#([a-zA-Z0-9_]+)`)
	mentionPattern = regexp.MustCompile(`@([a-zA-Z0-9_]+)`)
)

type Media struct {
	Type      string `bson:"type" json:"type" binding:"required,oneof=image video"`
	URL       string `bson:"url" json:"url" binding:"required,url"`
	Thumbnail string `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
}

type Post struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Author       primitive.ObjectID   `bson:"author" json:"author"`
	Text         string               `bson:"text" json:"text"`
	Media        []Media              `bson:"media,omitempty" json:"media,omitempty"`
	Likes        []primitive.ObjectID `bson:"likes" json:"likes"`
	LikeCount    int                  `bson:"likeCount" json:"likeCount"`
	CommentCount int                  `bson:"commentCount" json:"commentCount"`
	ShareCount   int                  `bson:"shareCount" json:"shareCount"`
	IsRepost     bool                 `bson:"isRepost" json:"isRepost"`
	OriginalPost *primitive.ObjectID  `bson:"originalPost,omitempty" json:"originalPost,omitempty"`
	Category     *primitive.ObjectID  `bson:"category,omitempty" json:"category,omitempty"`
	Hashtags     []string             `bson:"hashtags" json:"hashtags"`
	Mentions     []primitive.ObjectID `bson:"mentions" json:"mentions"`
	Visibility   string               `bson:"visibility" json:"visibility"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// Prepare normalizes a post before it is written: trims the text, enforces
// length and enum constraints, re-extracts hashtags and syncs likeCount.
func (p *Post) Prepare(now time.Time) error {
	text, err := normalizeText(p.Text)
	if err != nil {
		return err
	}
	p.Text = text

	if p.Visibility == "" {
		p.Visibility = VisibilityPublic
	}
	if !ValidVisibility(p.Visibility) {
		return ErrVisibility
	}
	for _, m := range p.Media {
		if m.Type != "image" && m.Type != "video" {
			return ErrMediaType
		}
	}

	p.Hashtags = ExtractHashtags(p.Text)
	if p.Likes == nil {
		p.Likes = []primitive.ObjectID{}
	}
	if p.Mentions == nil {
		p.Mentions = []primitive.ObjectID{}
	}
	p.LikeCount = len(p.Likes)

	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	return nil
}

// ToggleLike flips userID's like and reports whether the post is now liked.
func (p *Post) ToggleLike(userID primitive.ObjectID) bool {
	var liked bool
	p.Likes, liked = ToggleID(p.Likes, userID)
	p.LikeCount = len(p.Likes)
	return liked
}

func ValidVisibility(v string) bool {
	switch v {
	case VisibilityPublic, VisibilityPrivate, VisibilityFollowers:
		return true
	}
	return false
}

// ExtractHashtags returns the lowercased, de-duplicated hashtags in text in
// order of first appearance.
func ExtractHashtags(text string) []string {
	return extractTokens(hashtagPattern, text)
}

// ExtractMentions returns the lowercased, de-duplicated @usernames in text.
func ExtractMentions(text string) []string {
	return extractTokens(mentionPattern, text)
}

func extractTokens(re *regexp.Regexp, text string) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		tag := strings.ToLower(m[1])
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func normalizeText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return "", ErrTextTooLong
	}
	return text, nil
}

// PostView is a post with its author and category populated.
type PostView struct {
	ID           primitive.ObjectID   `json:"_id"`
	Author       AuthorSummary        `json:"author"`
	Text         string               `json:"text"`
	Media        []Media              `json:"media,omitempty"`
	Likes        []primitive.ObjectID `json:"likes"`
	LikeCount    int                  `json:"likeCount"`
	CommentCount int                  `json:"commentCount"`
	ShareCount   int                  `json:"shareCount"`
	IsRepost     bool                 `json:"isRepost"`
	OriginalPost *primitive.ObjectID  `json:"originalPost,omitempty"`
	Category     *CategoryRef         `json:"category,omitempty"`
	Hashtags     []string             `json:"hashtags"`
	Visibility   string               `json:"visibility"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`

	AIScore        *float64 `json:"aiScore,omitempty"`
	PredictedScore *float64 `json:"predictedScore,omitempty"`
}

// View populates a post. A missing author falls back to the bare ID.
func (p *Post) View(authors map[primitive.ObjectID]User, categories map[primitive.ObjectID]Category) PostView {
	v := PostView{
		ID:           p.ID,
		Author:       AuthorSummary{ID: p.Author},
		Text:         p.Text,
		Media:        p.Media,
		Likes:        p.Likes,
		LikeCount:    p.LikeCount,
		CommentCount: p.CommentCount,
		ShareCount:   p.ShareCount,
		IsRepost:     p.IsRepost,
		OriginalPost: p.OriginalPost,
		Hashtags:     p.Hashtags,
		Visibility:   p.Visibility,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if v.Likes == nil {
		v.Likes = []primitive.ObjectID{}
	}
	if v.Hashtags == nil {
		v.Hashtags = []string{}
	}
	if a, ok := authors[p.Author]; ok {
		v.Author = a.Summary()
	}
	if p.Category != nil {
		if c, ok := categories[*p.Category]; ok {
			ref := c.Ref()
			v.Category = &ref
		}
	}
	return v
}
