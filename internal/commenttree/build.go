package commenttree

import (
	"cmp"
	"slices"

	"quitpath/internal/model"
)

// Build assembles a forest from the flat comment list returned by the API.
//
// Top-level comments come out newest first and replies oldest first, the same
// order InsertReply maintains. Comments whose parent is not in the list are
// dropped, as are duplicate IDs after the first occurrence.
func Build(flat []model.Comment) []model.Comment {
	seen := make(map[string]bool, len(flat))
	children := make(map[string][]model.Comment)
	var roots []model.Comment

	for _, c := range flat {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		c.Replies = nil

		if c.IsTopLevel() {
			roots = append(roots, c)
			continue
		}
		children[*c.ParentCommentID] = append(children[*c.ParentCommentID], c)
	}

	slices.SortStableFunc(roots, func(a, b model.Comment) int {
		return -compareCreated(a, b)
	})

	forest := make([]model.Comment, len(roots))
	for i, root := range roots {
		forest[i] = attach(root, children)
	}
	return forest
}

func attach(node model.Comment, children map[string][]model.Comment) model.Comment {
	kids := children[node.ID]
	if len(kids) == 0 {
		node.Replies = []model.Comment{}
		return node
	}
	slices.SortStableFunc(kids, compareCreated)
	node.Replies = make([]model.Comment, len(kids))
	for i, kid := range kids {
		node.Replies[i] = attach(kid, children)
	}
	return node
}

func compareCreated(a, b model.Comment) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
