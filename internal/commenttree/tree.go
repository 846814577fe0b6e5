// Package commenttree applies confirmed comment mutations to a post's comment forest.
//
// Every function treats its input as immutable. Only the slices on the path
// from the root to the affected node are copied; untouched branches are shared
// with the input, so callers must replace their forest with the returned value
// instead of mutating either one in place.
package commenttree

import (
	"slices"

	"quitpath/internal/model"
)

// InsertReply adds c to the forest.
// A top-level comment is prepended (newest first). A reply is appended to the
// replies of the node named by c.ParentCommentID, wherever it sits in the tree
// (oldest first). If that node is not in the forest, or a node with c's ID
// already is, the forest is returned unchanged with false.
func InsertReply(forest []model.Comment, c model.Comment) ([]model.Comment, bool) {
	if _, exists := Find(forest, c.ID); exists {
		return forest, false
	}
	if c.Replies == nil {
		c.Replies = []model.Comment{}
	}
	if c.IsTopLevel() {
		out := make([]model.Comment, 0, len(forest)+1)
		out = append(out, c)
		return append(out, forest...), true
	}
	return insertUnder(forest, *c.ParentCommentID, c)
}

func insertUnder(nodes []model.Comment, parentID string, c model.Comment) ([]model.Comment, bool) {
	for i := range nodes {
		if nodes[i].ID == parentID {
			replies := make([]model.Comment, 0, len(nodes[i].Replies)+1)
			replies = append(replies, nodes[i].Replies...)
			replies = append(replies, c)

			out := slices.Clone(nodes)
			out[i].Replies = replies
			return out, true
		}
		if replies, ok := insertUnder(nodes[i].Replies, parentID, c); ok {
			out := slices.Clone(nodes)
			out[i].Replies = replies
			return out, true
		}
	}
	return nodes, false
}

// UpdateNode replaces the content of the node whose ID matches u.ID.
// Every other field of the node, its replies included, is kept.
func UpdateNode(forest []model.Comment, u model.Comment) ([]model.Comment, bool) {
	return updateIn(forest, u.ID, u.Content)
}

func updateIn(nodes []model.Comment, id, content string) ([]model.Comment, bool) {
	for i := range nodes {
		if nodes[i].ID == id {
			out := slices.Clone(nodes)
			out[i].Content = content
			return out, true
		}
		if replies, ok := updateIn(nodes[i].Replies, id, content); ok {
			out := slices.Clone(nodes)
			out[i].Replies = replies
			return out, true
		}
	}
	return nodes, false
}

// DeleteNode removes the node with the given ID together with its replies.
// Deleting an ID that is not present is a no-op, so the call is idempotent.
func DeleteNode(forest []model.Comment, id string) ([]model.Comment, bool) {
	return deleteIn(forest, id)
}

func deleteIn(nodes []model.Comment, id string) ([]model.Comment, bool) {
	for i := range nodes {
		if nodes[i].ID == id {
			out := make([]model.Comment, 0, len(nodes)-1)
			out = append(out, nodes[:i]...)
			return append(out, nodes[i+1:]...), true
		}
		if replies, ok := deleteIn(nodes[i].Replies, id); ok {
			out := slices.Clone(nodes)
			out[i].Replies = replies
			return out, true
		}
	}
	return nodes, false
}

// Find returns the node with the given ID at any depth.
func Find(forest []model.Comment, id string) (model.Comment, bool) {
	for i := range forest {
		if forest[i].ID == id {
			return forest[i], true
		}
		if c, ok := Find(forest[i].Replies, id); ok {
			return c, true
		}
	}
	return model.Comment{}, false
}

// Count returns the number of nodes in the forest, replies included.
func Count(forest []model.Comment) int {
	n := len(forest)
	for i := range forest {
		n += Count(forest[i].Replies)
	}
	return n
}
