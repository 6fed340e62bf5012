package gbdt

import "math"

// Node is one node of a regression tree stored in a flat slice. A node with
// Feature < 0 is a leaf.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
	Gain      float64
	Count     int
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return n.Feature < 0 }

// Tree is a binary regression tree. Nodes[0] is the root. Rows go left when
// x[Feature] <= Threshold; missing values (NaN) always go left.
type Tree struct {
	Nodes []Node
}

// NewLeafTree returns a single-leaf tree.
func NewLeafTree(value float64, count int) *Tree {
	return &Tree{Nodes: []Node{{Feature: -1, Left: -1, Right: -1, Value: value, Count: count}}}
}

// Predict returns the leaf value reached by row.
func (t *Tree) Predict(row []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	idx := 0
	for {
		n := &t.Nodes[idx]
		if n.IsLeaf() {
			return n.Value
		}
		v := row[n.Feature]
		if math.IsNaN(v) || v <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
}

// NumLeaves counts the leaves.
func (t *Tree) NumLeaves() int {
	count := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			count++
		}
	}
	return count
}

// Depth returns the length of the longest root-to-leaf path.
func (t *Tree) Depth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	var walk func(idx int) int
	walk = func(idx int) int {
		n := &t.Nodes[idx]
		if n.IsLeaf() {
			return 0
		}
		l, r := walk(n.Left), walk(n.Right)
		if l > r {
			return l + 1
		}
		return r + 1
	}
	return walk(0)
}

// Scale multiplies every leaf value by factor (the learning rate).
func (t *Tree) Scale(factor float64) {
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			t.Nodes[i].Value *= factor
		}
	}
}

// addLeaf appends a leaf and returns its index.
func (t *Tree) addLeaf(value float64, count int) int {
	t.Nodes = append(t.Nodes, Node{Feature: -1, Left: -1, Right: -1, Value: value, Count: count})
	return len(t.Nodes) - 1
}

// Builder assembles a Tree node by node. Engines start from a root leaf and
// turn leaves into splits.
type Builder struct {
	tree Tree
}

// NewBuilder starts a tree with a root leaf.
func NewBuilder(rootValue float64, rootCount int) *Builder {
	b := &Builder{}
	b.tree.addLeaf(rootValue, rootCount)
	return b
}

// Split turns leaf idx into an internal node and returns the new children.
func (b *Builder) Split(idx int, s Split, leftValue, rightValue float64) (left, right int) {
	left = b.tree.addLeaf(leftValue, s.LeftCount)
	right = b.tree.addLeaf(rightValue, s.RightCount)
	n := &b.tree.Nodes[idx]
	n.Feature = s.Feature
	n.Threshold = s.Threshold
	n.Gain = s.Gain
	n.Left = left
	n.Right = right
	n.Value = 0
	return left, right
}

// SetValue overwrites the value of leaf idx.
func (b *Builder) SetValue(idx int, value float64) {
	b.tree.Nodes[idx].Value = value
}

// Tree returns the assembled tree.
func (b *Builder) Tree() *Tree {
	t := b.tree
	return &t
}
