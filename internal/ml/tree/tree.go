// Package tree builds CART decision trees for regression (squared error)
// and classification (gini), with optional extremely-randomized splits.
package tree

import (
	"gonum.org/v1/gonum/mat"
)

// A Node represents a splitting decision of the form "x[FeatureIndex] < Threshold ?"
type Node struct {
	// FeatureIndex indicates which feature is used in this splitting decision
	FeatureIndex int `json:"feature_index"`
	// Threshold indicates the cutoff value between the left and right subtrees
	Threshold float64 `json:"threshold"`
	// LeftChild is the index of the node or leaf representing the left subtree
	LeftChild int `json:"left_child"`
	// LeftIsLeaf indicates whether the left subtree is a leaf
	LeftIsLeaf bool `json:"left_is_leaf"`
	// RightChild is the index of the node or leaf representing the right subtree
	RightChild int `json:"right_child"`
	// RightIsLeaf indicates whether the right subtree is a leaf
	RightIsLeaf bool `json:"right_is_leaf"`
}

// A Tree maps a feature vector to a leaf output
type Tree struct {
	// Nodes is a flat list of all split nodes; Nodes[0] is the root
	Nodes []Node `json:"nodes"`
	// Outputs holds Width values per leaf, leaf k at [k*Width, (k+1)*Width)
	Outputs []float64 `json:"outputs"`
	// Width is the number of outputs per leaf (1 for regression)
	Width int `json:"width"`
	// FeatureSize is the length of feature vectors processed by this tree
	FeatureSize int `json:"feature_size"`
	// RootIsLeaf is set when the tree never split
	RootIsLeaf bool `json:"root_is_leaf"`
	// Importances is the total impurity decrease per feature
	Importances []float64 `json:"importances"`
}

// Leaf drops a feature vector down the tree and returns its leaf index
func (t *Tree) Leaf(x []float64) int {
	if len(x) != t.FeatureSize {
		panic("feature vector had incorrect length")
	}
	if t.RootIsLeaf {
		return 0
	}
	cur := t.Nodes[0]
	for {
		if x[cur.FeatureIndex] < cur.Threshold {
			if cur.LeftIsLeaf {
				return cur.LeftChild
			}
			cur = t.Nodes[cur.LeftChild]
		} else {
			if cur.RightIsLeaf {
				return cur.RightChild
			}
			cur = t.Nodes[cur.RightChild]
		}
	}
}

// Evaluate returns the leaf outputs for x
func (t *Tree) Evaluate(x []float64) []float64 {
	k := t.Leaf(x)
	return t.Outputs[k*t.Width : (k+1)*t.Width]
}

// Value returns the first leaf output, the prediction of a regression tree
func (t *Tree) Value(x []float64) float64 {
	return t.Outputs[t.Leaf(x)*t.Width]
}

// Leaves returns the number of leaves
func (t *Tree) Leaves() int {
	return len(t.Outputs) / t.Width
}

// Depth returns the maximum depth of any leaf
func (t *Tree) Depth() int {
	if t.RootIsLeaf {
		return 0
	}
	var walk func(n, d int) int
	walk = func(n, d int) int {
		node := t.Nodes[n]
		l, r := d+1, d+1
		if !node.LeftIsLeaf {
			l = walk(node.LeftChild, d+1)
		}
		if !node.RightIsLeaf {
			r = walk(node.RightChild, d+1)
		}
		if l > r {
			return l
		}
		return r
	}
	return walk(0, 0)
}

// Data is a feature-major copy of a design matrix, shared read-only by
// every tree fit on it
type Data struct {
	Cols [][]float64
	Rows int
}

// NewData copies x into feature-major columns
func NewData(x mat.Matrix) *Data {
	r, c := x.Dims()
	cols := make([][]float64, c)
	for j := range cols {
		cols[j] = mat.Col(nil, j, x)
	}
	return &Data{Cols: cols, Rows: r}
}

// Row returns row i as a vector
func (d *Data) Row(i int) []float64 {
	row := make([]float64, len(d.Cols))
	for j, col := range d.Cols {
		row[j] = col[i]
	}
	return row
}

// All returns the indices of every row
func (d *Data) All() []int {
	idx := make([]int, d.Rows)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
