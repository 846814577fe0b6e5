package api

import (
	"context"

	"quitpath/internal/model"
)

const mutationLikePost = `
mutation LikePost($postId: ID!) {
	likePost(postId: $postId) { postId liked likeCount }
}`

const mutationUnlikePost = `
mutation UnlikePost($postId: ID!) {
	unlikePost(postId: $postId) { postId liked likeCount }
}`

type likeNode struct {
	PostID    string `json:"postId"`
	Liked     bool   `json:"liked"`
	LikeCount int    `json:"likeCount"`
}

func (n likeNode) toModel(postID string) *model.LikeState {
	if n.PostID == "" {
		n.PostID = postID
	}
	return &model.LikeState{PostID: n.PostID, Liked: n.Liked, LikeCount: n.LikeCount}
}

// LikePost marks the post as liked by the session user.
func (c *Client) LikePost(ctx context.Context, token, postID string) (*model.LikeState, error) {
	var resp struct {
		LikePost likeNode `json:"likePost"`
	}
	vars := map[string]interface{}{"postId": postID}
	if err := c.run(ctx, "likePost", token, mutationLikePost, vars, &resp, model.ErrPostNotFound); err != nil {
		return nil, err
	}
	return resp.LikePost.toModel(postID), nil
}

// UnlikePost removes the session user's like.
func (c *Client) UnlikePost(ctx context.Context, token, postID string) (*model.LikeState, error) {
	var resp struct {
		UnlikePost likeNode `json:"unlikePost"`
	}
	vars := map[string]interface{}{"postId": postID}
	if err := c.run(ctx, "unlikePost", token, mutationUnlikePost, vars, &resp, model.ErrPostNotFound); err != nil {
		return nil, err
	}
	return resp.UnlikePost.toModel(postID), nil
}
