package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Comment struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Post          primitive.ObjectID   `bson:"post" json:"post"`
	Author        primitive.ObjectID   `bson:"author" json:"author"`
	Text          string               `bson:"text" json:"text"`
	Likes         []primitive.ObjectID `bson:"likes" json:"likes"`
	LikeCount     int                  `bson:"likeCount" json:"likeCount"`
	Replies       []primitive.ObjectID `bson:"replies" json:"replies"`
	ParentComment *primitive.ObjectID  `bson:"parentComment,omitempty" json:"parentComment,omitempty"`
	Mentions      []primitive.ObjectID `bson:"mentions" json:"mentions"`
	CreatedAt     time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt" json:"updatedAt"`
}

func (c *Comment) Prepare(now time.Time) error {
	text, err := normalizeText(c.Text)
	if err != nil {
		return err
	}
	c.Text = text
	if c.Likes == nil {
		c.Likes = []primitive.ObjectID{}
	}
	if c.Replies == nil {
		c.Replies = []primitive.ObjectID{}
	}
	if c.Mentions == nil {
		c.Mentions = []primitive.ObjectID{}
	}
	c.LikeCount = len(c.Likes)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	return nil
}

func (c *Comment) ToggleLike(userID primitive.ObjectID) bool {
	var liked bool
	c.Likes, liked = ToggleID(c.Likes, userID)
	c.LikeCount = len(c.Likes)
	return liked
}

type CommentView struct {
	ID            primitive.ObjectID   `json:"_id"`
	Post          primitive.ObjectID   `json:"post"`
	Author        AuthorSummary        `json:"author"`
	Text          string               `json:"text"`
	Likes         []primitive.ObjectID `json:"likes"`
	LikeCount     int                  `json:"likeCount"`
	ParentComment *primitive.ObjectID  `json:"parentComment,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

func (c *Comment) View(authors map[primitive.ObjectID]User) CommentView {
	v := CommentView{
		ID:            c.ID,
		Post:          c.Post,
		Author:        AuthorSummary{ID: c.Author},
		Text:          c.Text,
		Likes:         c.Likes,
		LikeCount:     c.LikeCount,
		ParentComment: c.ParentComment,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	if v.Likes == nil {
		v.Likes = []primitive.ObjectID{}
	}
	if a, ok := authors[c.Author]; ok {
		v.Author = a.Summary()
	}
	return v
}
