// Package thread turns the flat, time-ordered comment list of a post into
// the nested reply structure renderers walk.
package thread

import (
	"sort"

	"github.com/communehq/commune/internal/models"
)

// Node is one comment in a thread together with its replies.
type Node struct {
	models.Comment
	Depth   int     `json:"depth"`
	Replies []*Node `json:"replies"`
}

// BuildTree nests comments under their parents. Top-level comments have a
// nil ParentID and depth 0; each reply level adds one. Siblings are ordered
// by CreatedAt ascending, ties keeping input order.
//
// A comment whose parent is missing from the list is left out, along with
// its replies. Comments on a parent cycle are never reachable from a root
// and are left out the same way.
func BuildTree(comments []models.Comment) []*Node {
	children := index(comments)

	roots := make([]*Node, 0, len(children[rootKey]))
	for _, i := range children[rootKey] {
		roots = append(roots, build(comments, children, i, 0))
	}
	return roots
}

// ChildrenOf returns the comments whose ParentID equals parentID, ascending
// by CreatedAt. A nil parentID selects the top level; a parentID not present
// in comments selects nothing, so orphans never surface.
func ChildrenOf(comments []models.Comment, parentID *string) []models.Comment {
	out := []models.Comment{}
	if parentID != nil && !contains(comments, *parentID) {
		return out
	}
	for _, c := range comments {
		if sameParent(c.ParentID, parentID) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].CreatedAt.Before(out[b].CreatedAt)
	})
	return out
}

// Flatten walks roots depth-first in pre-order, the order a thread is drawn.
func Flatten(roots []*Node) []*Node {
	out := make([]*Node, 0, Count(roots))
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			out = append(out, n)
			walk(n.Replies)
		}
	}
	walk(roots)
	return out
}

// Count returns the number of nodes in the forest.
func Count(roots []*Node) int {
	n := 0
	for _, r := range roots {
		n += 1 + Count(r.Replies)
	}
	return n
}

// rootKey groups top-level comments. Real IDs are never empty.
const rootKey = ""

// index builds parent ID -> child positions in one pass, each group sorted
// by CreatedAt.
func index(comments []models.Comment) map[string][]int {
	children := make(map[string][]int)
	for i, c := range comments {
		key := rootKey
		if c.ParentID != nil {
			if *c.ParentID == rootKey {
				continue
			}
			key = *c.ParentID
		}
		children[key] = append(children[key], i)
	}
	for _, group := range children {
		sort.SliceStable(group, func(a, b int) bool {
			return comments[group[a]].CreatedAt.Before(comments[group[b]].CreatedAt)
		})
	}
	return children
}

func build(comments []models.Comment, children map[string][]int, i, depth int) *Node {
	node := &Node{Comment: comments[i], Depth: depth, Replies: []*Node{}}
	for _, child := range children[comments[i].ID] {
		node.Replies = append(node.Replies, build(comments, children, child, depth+1))
	}
	return node
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func contains(comments []models.Comment, id string) bool {
	for _, c := range comments {
		if c.ID == id {
			return true
		}
	}
	return false
}
