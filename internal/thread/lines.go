package thread

import "strings"

// Line is one drawn row of a thread: the node plus the gutter in front of it.
type Line struct {
	Node   *Node
	Prefix string
}

// Lines lays roots out in drawing order. Each level of depth indents by two
// columns; replies get a "│ " marker, or "└ " when they are the last reply
// under their parent. Top-level comments have no marker.
func Lines(roots []*Node) []Line {
	out := make([]Line, 0, Count(roots))
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for i, n := range nodes {
			out = append(out, Line{Node: n, Prefix: Gutter(n.Depth, i == len(nodes)-1)})
			walk(n.Replies)
		}
	}
	walk(roots)
	return out
}

// Gutter returns the prefix for a comment at depth.
func Gutter(depth int, last bool) string {
	if depth <= 0 {
		return ""
	}
	marker := "│ "
	if last {
		marker = "└ "
	}
	return strings.Repeat("  ", depth-1) + marker
}
