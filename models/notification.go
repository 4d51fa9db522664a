package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	NotificationLike    = "post_liked"
	NotificationComment = "post_commented"
	NotificationFollow  = "new_follower"
)

// Notification tells a user that someone interacted with them. It is
// delivered over websocket and web push and is not persisted.
type Notification struct {
	Type      string              `json:"type"`
	Actor     AuthorSummary       `json:"actor"`
	PostID    *primitive.ObjectID `json:"postId,omitempty"`
	CommentID *primitive.ObjectID `json:"commentId,omitempty"`
	Text      string              `json:"text,omitempty"`
	CreatedAt time.Time           `json:"createdAt"`
}

// Title is the short human-readable line used for push notifications.
func (n Notification) Title() string {
	switch n.Type {
	case NotificationLike:
		return n.Actor.Username + " liked your post"
	case NotificationComment:
		return n.Actor.Username + " commented on your post"
	case NotificationFollow:
		return n.Actor.Username + " started following you"
	}
	return "New activity"
}
