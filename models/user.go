package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Username       string               `bson:"username" json:"username"`
	Email          string               `bson:"email" json:"email"`
	Password       string               `bson:"password" json:"-"`
	FullName       string               `bson:"fullName" json:"fullName"`
	Bio            string               `bson:"bio,omitempty" json:"bio,omitempty"`
	ProfilePicture string               `bson:"profilePicture,omitempty" json:"profilePicture,omitempty"`
	Interests      []primitive.ObjectID `bson:"interests" json:"interests"`
	Followers      []primitive.ObjectID `bson:"followers" json:"followers"`
	Following      []primitive.ObjectID `bson:"following" json:"following"`
	FollowerCount  int                  `bson:"followerCount" json:"followerCount"`
	FollowingCount int                  `bson:"followingCount" json:"followingCount"`
	IsVerified     bool                 `bson:"isVerified" json:"isVerified"`
	Role           string               `bson:"role,omitempty" json:"role,omitempty"`
	CreatedAt      time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// SyncCounts keeps the denormalized counters equal to the list lengths.
func (u *User) SyncCounts() {
	u.FollowerCount = len(u.Followers)
	u.FollowingCount = len(u.Following)
}

func (u *User) IsFollowing(id primitive.ObjectID) bool {
	return containsID(u.Following, id)
}

// EffectiveRole treats an empty role as a regular user.
func (u *User) EffectiveRole() string {
	if u.Role == "" {
		return RoleUser
	}
	return u.Role
}

func (u *User) SetPassword(plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hash)
	return nil
}

func (u *User) ComparePassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plain)) == nil
}

// AuthorSummary is the populated form of a user reference on posts and comments.
type AuthorSummary struct {
	ID             primitive.ObjectID `json:"_id"`
	Username       string             `json:"username"`
	FullName       string             `json:"fullName"`
	ProfilePicture string             `json:"profilePicture,omitempty"`
	IsVerified     bool               `json:"isVerified"`
}

func (u *User) Summary() AuthorSummary {
	return AuthorSummary{
		ID:             u.ID,
		Username:       u.Username,
		FullName:       u.FullName,
		ProfilePicture: u.ProfilePicture,
		IsVerified:     u.IsVerified,
	}
}

// UserView is a user with interests resolved to category names.
type UserView struct {
	ID             primitive.ObjectID `json:"_id"`
	Username       string             `json:"username"`
	FullName       string             `json:"fullName"`
	Bio            string             `json:"bio,omitempty"`
	ProfilePicture string             `json:"profilePicture,omitempty"`
	FollowerCount  int                `json:"followerCount"`
	FollowingCount int                `json:"followingCount"`
	IsVerified     bool               `json:"isVerified"`
	Interests      []CategoryRef      `json:"interests,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`

	RecommendationScore *float64 `json:"recommendationScore,omitempty"`
	SharedInterests     *int     `json:"sharedInterests,omitempty"`
}

func (u *User) View(categories map[primitive.ObjectID]Category) UserView {
	v := UserView{
		ID:             u.ID,
		Username:       u.Username,
		FullName:       u.FullName,
		Bio:            u.Bio,
		ProfilePicture: u.ProfilePicture,
		FollowerCount:  u.FollowerCount,
		FollowingCount: u.FollowingCount,
		IsVerified:     u.IsVerified,
		CreatedAt:      u.CreatedAt,
	}
	for _, id := range u.Interests {
		if c, ok := categories[id]; ok {
			v.Interests = append(v.Interests, c.Ref())
		}
	}
	return v
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// ToggleID adds id when absent and removes it when present. It reports whether
// id is present afterwards.
func ToggleID(ids []primitive.ObjectID, id primitive.ObjectID) ([]primitive.ObjectID, bool) {
	if containsID(ids, id) {
		return removeID(ids, id), false
	}
	return append(ids, id), true
}

// SetMembership adds or removes id without duplicating it.
func SetMembership(ids []primitive.ObjectID, id primitive.ObjectID, present bool) []primitive.ObjectID {
	if present {
		if containsID(ids, id) {
			return ids
		}
		return append(ids, id)
	}
	return removeID(ids, id)
}

// AccountView is the signed-in user's own profile, including private fields.
type AccountView struct {
	UserView
	Email     string               `json:"email"`
	Role      string               `json:"role"`
	Following []primitive.ObjectID `json:"following"`
}

func (u *User) Account(categories map[primitive.ObjectID]Category) AccountView {
	following := u.Following
	if following == nil {
		following = []primitive.ObjectID{}
	}
	return AccountView{
		UserView:  u.View(categories),
		Email:     u.Email,
		Role:      u.EffectiveRole(),
		Following: following,
	}
}
