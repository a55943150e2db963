// Package sharetree rebuilds a content's viral chain from its flat share rows.
//
// The builder never chases parent pointers. It resolves parents through an id
// map, so orphans, self-parents and cycles degrade into extra roots instead of
// loops or dropped shares.
package sharetree

import (
	"sort"

	"github.com/zfogg/hypechain/backend/internal/models"
)

// Node wraps a share with its children. Level is the position found while
// walking the tree, which can differ from the stored ShareDepth when a parent
// is missing from the working set.
type Node struct {
	Share    *models.Share `json:"share"`
	Level    int           `json:"level"`
	Children []*Node       `json:"children"`
}

// LevelStat counts the nodes found at one tree level
type LevelStat struct {
	Level      int `json:"level"`
	ShareCount int `json:"share_count"`
}

// Tree is the forest built from one content's shares
type Tree struct {
	Roots         []*Node     `json:"tree"`
	TotalShares   int         `json:"total_shares"`
	ActiveShares  int         `json:"active_shares"`
	DeletedShares int         `json:"deleted_shares"`
	MaxDepth      int         `json:"max_depth"`
	LevelStats    []LevelStat `json:"level_stats"`
	CreatorShare  *Node       `json:"creator_share"`
}

// Build turns shares into a forest. Roots and children keep input order; pass
// shares sorted by creation time for stable output. Duplicate ids are counted
// once and nil entries are skipped.
func Build(shares []*models.Share) *Tree {
	index := make(map[string]*Node, len(shares))
	ordered := make([]*Node, 0, len(shares))
	position := make(map[*Node]int, len(shares))

	// Pass 1: one node per distinct id
	for _, share := range shares {
		if share == nil {
			continue
		}
		if _, seen := index[share.ID]; seen {
			continue
		}
		node := &Node{Share: share, Children: []*Node{}}
		index[share.ID] = node
		position[node] = len(ordered)
		ordered = append(ordered, node)
	}

	// Pass 2: attach each node to its parent or make it a root
	parentOf := make(map[*Node]*Node, len(ordered))
	tree := &Tree{Roots: []*Node{}, LevelStats: []LevelStat{}}
	for _, node := range ordered {
		parent := resolveParent(index, node)
		if parent == nil {
			tree.Roots = append(tree.Roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
		parentOf[node] = parent
	}

	visited := make(map[*Node]bool, len(ordered))
	for _, root := range tree.Roots {
		assignLevels(root, visited)
	}

	// Anything still unvisited hangs off a parent cycle. Cut the cycle at its
	// earliest member and walk from there.
	for _, node := range ordered {
		if visited[node] {
			continue
		}
		head := cycleHead(node, parentOf, position)
		detach(parentOf[head], head)
		delete(parentOf, head)
		tree.Roots = append(tree.Roots, head)
		assignLevels(head, visited)
	}

	counts := make(map[int]int)
	deepest := -1
	for _, node := range ordered {
		counts[node.Level]++
		if node.Level > deepest {
			deepest = node.Level
		}
		if node.Share.IsDeleted {
			tree.DeletedShares++
		} else {
			tree.ActiveShares++
		}
	}

	tree.TotalShares = len(ordered)
	// A lone root is depth 1; an empty forest is 0.
	tree.MaxDepth = deepest + 1

	for level, count := range counts {
		tree.LevelStats = append(tree.LevelStats, LevelStat{Level: level, ShareCount: count})
	}
	sort.Slice(tree.LevelStats, func(i, j int) bool {
		return tree.LevelStats[i].Level < tree.LevelStats[j].Level
	})

	if len(tree.Roots) > 0 {
		tree.CreatorShare = tree.Roots[0]
	}
	return tree
}

// cycleHead climbs from node until an ancestor repeats, then returns the
// cycle member that came first in the input.
func cycleHead(node *Node, parentOf map[*Node]*Node, position map[*Node]int) *Node {
	seen := make(map[*Node]bool)
	cur := node
	for !seen[cur] {
		seen[cur] = true
		next, ok := parentOf[cur]
		if !ok {
			return cur
		}
		cur = next
	}

	head := cur
	for member := parentOf[cur]; member != cur; member = parentOf[member] {
		if position[member] < position[head] {
			head = member
		}
	}
	return head
}

func resolveParent(index map[string]*Node, node *Node) *Node {
	if node.Share.IsRoot() {
		return nil
	}
	parentID := *node.Share.ParentShareID
	if parentID == node.Share.ID {
		return nil
	}
	return index[parentID]
}

// assignLevels walks the subtree under root with an explicit stack
func assignLevels(root *Node, visited map[*Node]bool) {
	root.Level = 0
	stack := []*Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[node] {
			continue
		}
		visited[node] = true
		for _, child := range node.Children {
			child.Level = node.Level + 1
			stack = append(stack, child)
		}
	}
}

func detach(parent, child *Node) {
	if parent == nil {
		return
	}
	for i, c := range parent.Children {
		if c == child {
			parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
			return
		}
	}
}

// Flatten returns the forest's shares in pre-order
func (t *Tree) Flatten() []*models.Share {
	out := make([]*models.Share, 0, t.TotalShares)
	t.Walk(func(node *Node) {
		out = append(out, node.Share)
	})
	return out
}

// Walk visits every node in pre-order, roots first to last
func (t *Tree) Walk(fn func(*Node)) {
	stack := make([]*Node, 0, len(t.Roots))
	for i := len(t.Roots) - 1; i >= 0; i-- {
		stack = append(stack, t.Roots[i])
	}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(node)
		for i := len(node.Children) - 1; i >= 0; i-- {
			stack = append(stack, node.Children[i])
		}
	}
}

// Find returns the node holding shareID, or nil
func (t *Tree) Find(shareID string) *Node {
	var found *Node
	t.Walk(func(node *Node) {
		if found == nil && node.Share.ID == shareID {
			found = node
		}
	})
	return found
}

// DepthMismatches lists nodes whose walked level disagrees with the stored
// share_depth. A healthy chain returns none.
func (t *Tree) DepthMismatches() []*Node {
	var out []*Node
	t.Walk(func(node *Node) {
		if node.Level != node.Share.ShareDepth {
			out = append(out, node)
		}
	})
	return out
}
