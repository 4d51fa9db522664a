package recommender

// Post is a post as ranked by the recommendation service.
type Post struct {
	PostID       string   `json:"post_id"`
	Text         string   `json:"text"`
	Author       string   `json:"author"`
	Category     string   `json:"category,omitempty"`
	LikeCount    int      `json:"likeCount"`
	CommentCount int      `json:"commentCount"`
	ShareCount   int      `json:"shareCount"`
	Hashtags     []string `json:"hashtags"`
	Score        float64  `json:"score"`
}

// User is a suggested account as ranked by the recommendation service.
type User struct {
	UserID          string  `json:"user_id"`
	Username        string  `json:"username"`
	FullName        string  `json:"fullName"`
	Bio             string  `json:"bio"`
	FollowerCount   int     `json:"followerCount"`
	FollowingCount  int     `json:"followingCount"`
	IsVerified      bool    `json:"isVerified"`
	ProfilePicture  string  `json:"profilePicture,omitempty"`
	Score           float64 `json:"score"`
	SharedInterests int     `json:"shared_interests"`
}

type timelineResponse struct {
	Timeline []Post `json:"timeline"`
}

type predictionsResponse struct {
	Predictions []Post `json:"predictions"`
}

type exploreResponse struct {
	Explore []Post `json:"explore"`
}

type usersResponse struct {
	SuggestedUsers []User `json:"suggested_users"`
}

type TrainResult struct {
	Status          string `json:"status"`
	TotalSamples    *int   `json:"total_samples,omitempty"`
	PositiveSamples *int   `json:"positive_samples,omitempty"`
	NegativeSamples *int   `json:"negative_samples,omitempty"`
	Message         string `json:"message,omitempty"`
}

type ModelStatus struct {
	Trained         bool     `json:"trained"`
	UserFeatures    int      `json:"user_features"`
	PostFeatures    int      `json:"post_features"`
	Accuracy        *float64 `json:"accuracy,omitempty"`
	Precision       *float64 `json:"precision,omitempty"`
	Recall          *float64 `json:"recall,omitempty"`
	TrainingSamples *int     `json:"training_samples,omitempty"`
}

type Health struct {
	Status            string `json:"status"`
	ModelTrained      bool   `json:"model_trained"`
	DatabaseConnected bool   `json:"database_connected"`
}
