package tree

import (
	"math/rand"
	"sort"
)

// Criterion selects the split quality measure
type Criterion int

const (
	// SquaredError is variance reduction, for regression
	SquaredError Criterion = iota
	// Gini is gini impurity, for classification. Targets are class indices.
	Gini
)

// Options configure tree growth. Zero values mean unlimited depth, all
// features, min split 2 and min leaf 1.
type Options struct {
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	RandomSplits    bool
	Criterion       Criterion
	NumClasses      int
}

// LeafFunc computes the outputs of a leaf from the rows that reach it
type LeafFunc func(idx []int) []float64

type builder struct {
	data   *Data
	y      []float64
	opts   Options
	rng    *rand.Rand
	leaf   LeafFunc
	width  int
	tree   *Tree
	counts []float64
}

type split struct {
	feature   int
	threshold float64
	gain      float64
}

// Build grows a tree on the rows idx (duplicates allowed, as in a bootstrap
// sample) with targets y
func Build(data *Data, y []float64, idx []int, opts Options, rng *rand.Rand) *Tree {
	return BuildWithLeaves(data, y, idx, opts, rng, nil)
}

// BuildWithLeaves grows a tree whose leaf outputs come from leaf instead of
// the criterion default (mean for regression, class frequencies for gini)
func BuildWithLeaves(data *Data, y []float64, idx []int, opts Options, rng *rand.Rand, leaf LeafFunc) *Tree {
	if opts.MinSamplesSplit < 2 {
		opts.MinSamplesSplit = 2
	}
	if opts.MinSamplesLeaf < 1 {
		opts.MinSamplesLeaf = 1
	}
	nf := len(data.Cols)
	if opts.MaxFeatures <= 0 || opts.MaxFeatures > nf {
		opts.MaxFeatures = nf
	}

	b := &builder{data: data, y: y, opts: opts, rng: rng, leaf: leaf}
	b.width = 1
	if opts.Criterion == Gini && leaf == nil {
		b.width = opts.NumClasses
	}
	if leaf == nil {
		b.leaf = b.defaultLeaf
	}
	if opts.Criterion == Gini {
		b.counts = make([]float64, opts.NumClasses)
	}
	b.tree = &Tree{
		Width:       b.width,
		FeatureSize: nf,
		Importances: make([]float64, nf),
	}

	rows := append([]int(nil), idx...)
	if _, isLeaf := b.grow(rows, 0); isLeaf {
		b.tree.RootIsLeaf = true
	}
	return b.tree
}

func (b *builder) grow(idx []int, depth int) (int, bool) {
	if len(idx) < b.opts.MinSamplesSplit ||
		(b.opts.MaxDepth > 0 && depth >= b.opts.MaxDepth) ||
		b.pure(idx) {
		return b.addLeaf(idx), true
	}

	best, ok := b.findSplit(idx)
	if !ok {
		return b.addLeaf(idx), true
	}

	col := b.data.Cols[best.feature]
	var left, right []int
	for _, i := range idx {
		if col[i] < best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	b.tree.Importances[best.feature] += best.gain
	pos := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, Node{FeatureIndex: best.feature, Threshold: best.threshold})

	l, lLeaf := b.grow(left, depth+1)
	r, rLeaf := b.grow(right, depth+1)
	node := &b.tree.Nodes[pos]
	node.LeftChild, node.LeftIsLeaf = l, lLeaf
	node.RightChild, node.RightIsLeaf = r, rLeaf
	return pos, false
}

func (b *builder) addLeaf(idx []int) int {
	k := len(b.tree.Outputs) / b.width
	b.tree.Outputs = append(b.tree.Outputs, b.leaf(idx)...)
	return k
}

func (b *builder) defaultLeaf(idx []int) []float64 {
	if b.opts.Criterion == Gini {
		out := make([]float64, b.opts.NumClasses)
		for _, i := range idx {
			out[int(b.y[i])]++
		}
		for c := range out {
			out[c] /= float64(len(idx))
		}
		return out
	}
	var sum float64
	for _, i := range idx {
		sum += b.y[i]
	}
	return []float64{sum / float64(len(idx))}
}

func (b *builder) pure(idx []int) bool {
	first := b.y[idx[0]]
	for _, i := range idx[1:] {
		if b.y[i] != first {
			return false
		}
	}
	return true
}

// candidates returns the features considered at a node
func (b *builder) candidates() []int {
	nf := len(b.data.Cols)
	if b.opts.MaxFeatures >= nf {
		feats := make([]int, nf)
		for i := range feats {
			feats[i] = i
		}
		return feats
	}
	return b.rng.Perm(nf)[:b.opts.MaxFeatures]
}

func (b *builder) findSplit(idx []int) (split, bool) {
	parent := b.proxy(idx)
	best := split{gain: 0}
	found := false
	for _, f := range b.candidates() {
		var s split
		var ok bool
		if b.opts.RandomSplits {
			s, ok = b.randomSplit(f, idx)
		} else {
			s, ok = b.exactSplit(f, idx)
		}
		if !ok {
			continue
		}
		s.gain -= parent
		if s.gain > best.gain {
			best = s
			found = true
		}
	}
	return best, found
}

// proxy is sum^2/n for squared error and sum_c count_c^2/n for gini; the
// impurity decrease of a split is proxy(left)+proxy(right)-proxy(parent)
func (b *builder) proxy(idx []int) float64 {
	n := float64(len(idx))
	if b.opts.Criterion == Gini {
		for c := range b.counts {
			b.counts[c] = 0
		}
		for _, i := range idx {
			b.counts[int(b.y[i])]++
		}
		var s float64
		for _, c := range b.counts {
			s += c * c
		}
		return s / n
	}
	var sum float64
	for _, i := range idx {
		sum += b.y[i]
	}
	return sum * sum / n
}

// sideStats accumulates the running sums of one side of a split
type sideStats struct {
	n      float64
	sum    float64
	counts []float64
	sq     float64
}

func (b *builder) newSide() *sideStats {
	s := &sideStats{}
	if b.opts.Criterion == Gini {
		s.counts = make([]float64, b.opts.NumClasses)
	}
	return s
}

func (s *sideStats) add(y float64, gini bool) {
	s.n++
	if gini {
		c := int(y)
		s.sq += 2*s.counts[c] + 1
		s.counts[c]++
		return
	}
	s.sum += y
}

func (s *sideStats) remove(y float64, gini bool) {
	s.n--
	if gini {
		c := int(y)
		s.counts[c]--
		s.sq -= 2*s.counts[c] + 1
		return
	}
	s.sum -= y
}

func (s *sideStats) proxy(gini bool) float64 {
	if gini {
		return s.sq / s.n
	}
	return s.sum * s.sum / s.n
}

func (b *builder) exactSplit(f int, idx []int) (split, bool) {
	col := b.data.Cols[f]
	order := append([]int(nil), idx...)
	sort.SliceStable(order, func(i, j int) bool { return col[order[i]] < col[order[j]] })

	gini := b.opts.Criterion == Gini
	left, right := b.newSide(), b.newSide()
	for _, i := range order {
		right.add(b.y[i], gini)
	}

	minLeaf := float64(b.opts.MinSamplesLeaf)
	best := split{feature: f}
	found := false
	for k := 0; k < len(order)-1; k++ {
		y := b.y[order[k]]
		left.add(y, gini)
		right.remove(y, gini)

		lo, hi := col[order[k]], col[order[k+1]]
		if lo == hi || left.n < minLeaf || right.n < minLeaf {
			continue
		}
		score := left.proxy(gini) + right.proxy(gini)
		if !found || score > best.gain {
			thr := (lo + hi) / 2
			if thr <= lo {
				thr = hi
			}
			best.threshold = thr
			best.gain = score
			found = true
		}
	}
	return best, found
}

func (b *builder) randomSplit(f int, idx []int) (split, bool) {
	col := b.data.Cols[f]
	lo, hi := col[idx[0]], col[idx[0]]
	for _, i := range idx[1:] {
		if col[i] < lo {
			lo = col[i]
		}
		if col[i] > hi {
			hi = col[i]
		}
	}
	if hi <= lo {
		return split{}, false
	}
	thr := lo + b.rng.Float64()*(hi-lo)
	if thr <= lo {
		thr = hi
	}

	gini := b.opts.Criterion == Gini
	left, right := b.newSide(), b.newSide()
	for _, i := range idx {
		if col[i] < thr {
			left.add(b.y[i], gini)
		} else {
			right.add(b.y[i], gini)
		}
	}
	minLeaf := float64(b.opts.MinSamplesLeaf)
	if left.n < minLeaf || right.n < minLeaf {
		return split{}, false
	}
	return split{feature: f, threshold: thr, gain: left.proxy(gini) + right.proxy(gini)}, true
}
