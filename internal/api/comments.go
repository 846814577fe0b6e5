package api

import (
	"context"
	"time"

	"quitpath/internal/model"
)

const commentFields = `
	id
	postId
	content
	parentCommentId
	createdAt
	author { id username displayName avatarUrl }
`

const queryCommentsByPost = `
query CommentsByPost($postId: ID!, $cursor: String, $limit: Int!) {
	commentsByPost(postId: $postId, cursor: $cursor, limit: $limit) {
		comments {` + commentFields + `}
		nextCursor
		hasMore
	}
}`

const mutationCreateComment = `
mutation CreateComment($input: CreateCommentInput!) {
	createComment(input: $input) {` + commentFields + `
		post { author { id } }
	}
}`

const mutationUpdateComment = `
mutation UpdateComment($id: ID!, $content: String!) {
	updateComment(id: $id, content: $content) {` + commentFields + `}
}`

const mutationDeleteComment = `
mutation DeleteComment($id: ID!) {
	deleteComment(id: $id) { id }
}`

type userNode struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	DisplayName *string `json:"displayName"`
	AvatarURL   *string `json:"avatarUrl"`
}

func (u *userNode) toModel() *model.UserSummary {
	if u == nil {
		return nil
	}
	return &model.UserSummary{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

type commentNode struct {
	ID              string    `json:"id"`
	PostID          string    `json:"postId"`
	Content         string    `json:"content"`
	ParentCommentID *string   `json:"parentCommentId"`
	CreatedAt       time.Time `json:"createdAt"`
	Author          *userNode `json:"author"`
}

func (c commentNode) toModel() model.Comment {
	return model.Comment{
		ID:              c.ID,
		PostID:          c.PostID,
		Content:         c.Content,
		ParentCommentID: c.ParentCommentID,
		CreatedAt:       c.CreatedAt,
		Author:          c.Author.toModel(),
		Replies:         []model.Comment{},
	}
}

// CommentsByPost returns one page of a post's comments as a flat list,
// newest first. nextCursor is nil on the last page.
func (c *Client) CommentsByPost(ctx context.Context, token, postID string, cursor *string, limit int) ([]model.Comment, *string, error) {
	var resp struct {
		CommentsByPost struct {
			Comments   []commentNode `json:"comments"`
			NextCursor *string       `json:"nextCursor"`
			HasMore    bool          `json:"hasMore"`
		} `json:"commentsByPost"`
	}

	vars := map[string]interface{}{
		"postId": postID,
		"limit":  limit,
	}
	if cursor != nil {
		vars["cursor"] = *cursor
	}

	if err := c.run(ctx, "commentsByPost", token, queryCommentsByPost, vars, &resp, model.ErrPostNotFound); err != nil {
		return nil, nil, err
	}

	page := resp.CommentsByPost
	comments := make([]model.Comment, len(page.Comments))
	for i, n := range page.Comments {
		comments[i] = n.toModel()
	}

	if !page.HasMore {
		return comments, nil, nil
	}
	return comments, page.NextCursor, nil
}

// CreateComment submits a comment or reply and returns the server's node.
func (c *Client) CreateComment(ctx context.Context, token, postID, content string, parentID *string) (*model.CreatedComment, error) {
	var resp struct {
		CreateComment struct {
			commentNode
			Post *struct {
				Author *userNode `json:"author"`
			} `json:"post"`
		} `json:"createComment"`
	}

	input := map[string]interface{}{
		"postId":  postID,
		"content": content,
	}
	if parentID != nil {
		input["parentCommentId"] = *parentID
	}

	// A missing parent surfaces as "comment not found"; a missing post as "post not found".
	notFound := model.ErrPostNotFound
	if parentID != nil {
		notFound = model.ErrCommentNotFound
	}
	if err := c.run(ctx, "createComment", token, mutationCreateComment, map[string]interface{}{"input": input}, &resp, notFound); err != nil {
		return nil, err
	}

	created := &model.CreatedComment{Comment: resp.CreateComment.toModel()}
	if created.PostID == "" {
		created.PostID = postID
	}
	if p := resp.CreateComment.Post; p != nil && p.Author != nil {
		created.PostAuthorID = p.Author.ID
	}
	return created, nil
}

// UpdateComment replaces a comment's content.
func (c *Client) UpdateComment(ctx context.Context, token, commentID, content string) (*model.Comment, error) {
	var resp struct {
		UpdateComment commentNode `json:"updateComment"`
	}

	vars := map[string]interface{}{"id": commentID, "content": content}
	if err := c.run(ctx, "updateComment", token, mutationUpdateComment, vars, &resp, model.ErrCommentNotFound); err != nil {
		return nil, err
	}

	updated := resp.UpdateComment.toModel()
	return &updated, nil
}

// DeleteComment removes a comment (and, server side, its replies).
// It returns the ID the server confirmed as deleted.
func (c *Client) DeleteComment(ctx context.Context, token, commentID string) (string, error) {
	var resp struct {
		DeleteComment struct {
			ID string `json:"id"`
		} `json:"deleteComment"`
	}

	vars := map[string]interface{}{"id": commentID}
	if err := c.run(ctx, "deleteComment", token, mutationDeleteComment, vars, &resp, model.ErrCommentNotFound); err != nil {
		return "", err
	}

	if resp.DeleteComment.ID == "" {
		return commentID, nil
	}
	return resp.DeleteComment.ID, nil
}
