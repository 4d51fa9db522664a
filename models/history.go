package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxSeenPosts caps a user's seen-posts history; older entries are dropped.
const MaxSeenPosts = 10000

type UserPostHistory struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	User        primitive.ObjectID   `bson:"user" json:"user"`
	SeenPosts   []primitive.ObjectID `bson:"seenPosts" json:"seenPosts"`
	LastUpdated time.Time            `bson:"lastUpdated" json:"lastUpdated"`
	CreatedAt   time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// AddSeen appends the ids not already present, keeps only the most recent
// limit entries and returns how many ids were new.
func (h *UserPostHistory) AddSeen(ids []primitive.ObjectID, limit int, now time.Time) int {
	seen := h.SeenSet()
	added := 0
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		h.SeenPosts = append(h.SeenPosts, id)
		added++
	}
	if limit > 0 && len(h.SeenPosts) > limit {
		h.SeenPosts = append([]primitive.ObjectID(nil), h.SeenPosts[len(h.SeenPosts)-limit:]...)
	}
	if added > 0 {
		h.LastUpdated = now
	}
	h.UpdatedAt = now
	return added
}

func (h *UserPostHistory) SeenSet() map[primitive.ObjectID]struct{} {
	if h == nil {
		return map[primitive.ObjectID]struct{}{}
	}
	set := make(map[primitive.ObjectID]struct{}, len(h.SeenPosts))
	for _, id := range h.SeenPosts {
		set[id] = struct{}{}
	}
	return set
}

// DedupeIDs drops repeated ids while keeping first-seen order.
func DedupeIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
