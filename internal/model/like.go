package model

// LikeState is a post's like status as seen by one user.
type LikeState struct {
	PostID    string `json:"post_id"`
	Liked     bool   `json:"liked"`
	LikeCount int    `json:"like_count"`
}

// ToggleLikeResponse is returned by the like endpoints.
// Pending is true while the remote call has not confirmed the change.
type ToggleLikeResponse struct {
	PostID string `json:"post_id"`
	Liked  bool   `json:"liked"`

	// LikeCount is nil until the server has reported the post's count.
	LikeCount *int `json:"like_count"`
	Pending   bool `json:"pending"`
}
