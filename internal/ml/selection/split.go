// Package selection partitions rows for held-out evaluation and
// cross-validation. Every partition is a pure function of its seed.
package selection

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"thermal-backend/internal/ml/metrics"
)

// Split is a train/test partition of row indices
type Split struct {
	Train []int
	Test  []int
}

// TrainTestSplit shuffles rows and holds out ceil(testSize*n) of them
func TrainTestSplit(n int, testSize float64, seed int64) (Split, error) {
	nTest, err := testCount(n, testSize)
	if err != nil {
		return Split{}, err
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return Split{
		Test:  append([]int(nil), perm[:nTest]...),
		Train: append([]int(nil), perm[nTest:]...),
	}, nil
}

// StratifiedSplit holds out a share of each class close to testSize,
// keeping class proportions in both partitions
func StratifiedSplit(labels []int, testSize float64, seed int64) (Split, error) {
	n := len(labels)
	nTest, err := testCount(n, testSize)
	if err != nil {
		return Split{}, err
	}
	rng := rand.New(rand.NewSource(seed))
	byClass := groupByClass(labels)

	// largest-remainder allocation of the test rows across classes
	classes := sortedKeys(byClass)
	alloc := make(map[int]int, len(classes))
	type rem struct {
		class int
		frac  float64
	}
	rems := make([]rem, 0, len(classes))
	assigned := 0
	for _, c := range classes {
		exact := float64(nTest) * float64(len(byClass[c])) / float64(n)
		alloc[c] = int(math.Floor(exact))
		assigned += alloc[c]
		rems = append(rems, rem{class: c, frac: exact - math.Floor(exact)})
	}
	sort.SliceStable(rems, func(i, j int) bool { return rems[i].frac > rems[j].frac })
	for i := 0; assigned < nTest && i < len(rems); i++ {
		c := rems[i].class
		if alloc[c] < len(byClass[c]) {
			alloc[c]++
			assigned++
		}
	}

	var s Split
	for _, c := range classes {
		rows := byClass[c]
		rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		s.Test = append(s.Test, rows[:alloc[c]]...)
		s.Train = append(s.Train, rows[alloc[c]:]...)
	}
	rng.Shuffle(len(s.Train), func(i, j int) { s.Train[i], s.Train[j] = s.Train[j], s.Train[i] })
	rng.Shuffle(len(s.Test), func(i, j int) { s.Test[i], s.Test[j] = s.Test[j], s.Test[i] })
	return s, nil
}

// KFold splits shuffled rows into k folds; the first n%k folds get one
// extra row
func KFold(n, k int, seed int64) ([]Split, error) {
	if k < 2 || k > n {
		return nil, fmt.Errorf("kfold: need 2 <= k <= n, got k=%d n=%d", k, n)
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	folds := make([]Split, k)
	start := 0
	for f := 0; f < k; f++ {
		size := n / k
		if f < n%k {
			size++
		}
		folds[f] = complement(perm, start, start+size)
		start += size
	}
	return folds, nil
}

// StratifiedKFold deals each class's shuffled rows round-robin across folds
func StratifiedKFold(labels []int, k int, seed int64) ([]Split, error) {
	n := len(labels)
	if k < 2 || k > n {
		return nil, fmt.Errorf("stratified kfold: need 2 <= k <= n, got k=%d n=%d", k, n)
	}
	rng := rand.New(rand.NewSource(seed))
	byClass := groupByClass(labels)
	assign := make([]int, n)
	next := 0
	for _, c := range sortedKeys(byClass) {
		rows := byClass[c]
		rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		for _, r := range rows {
			assign[r] = next % k
			next++
		}
	}

	folds := make([]Split, k)
	for r := 0; r < n; r++ {
		for f := range folds {
			if assign[r] == f {
				folds[f].Test = append(folds[f].Test, r)
			} else {
				folds[f].Train = append(folds[f].Train, r)
			}
		}
	}
	return folds, nil
}

// ScoreFunc fits on train rows and scores on test rows
type ScoreFunc func(ctx context.Context, split Split) (float64, error)

// CrossValidate scores every fold in order
func CrossValidate(ctx context.Context, folds []Split, score ScoreFunc) (metrics.Summary, error) {
	scores := make([]float64, 0, len(folds))
	for i, fold := range folds {
		if err := ctx.Err(); err != nil {
			return metrics.Summary{}, err
		}
		s, err := score(ctx, fold)
		if err != nil {
			return metrics.Summary{}, fmt.Errorf("fold %d: %w", i+1, err)
		}
		scores = append(scores, s)
	}
	return metrics.Summarize(scores), nil
}

func testCount(n int, testSize float64) (int, error) {
	if testSize <= 0 || testSize >= 1 {
		return 0, fmt.Errorf("test size must be in (0, 1), got %v", testSize)
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest < 1 || nTest >= n {
		return 0, fmt.Errorf("cannot hold out %d of %d rows", nTest, n)
	}
	return nTest, nil
}

func complement(perm []int, lo, hi int) Split {
	s := Split{Test: append([]int(nil), perm[lo:hi]...)}
	s.Train = append(append([]int(nil), perm[:lo]...), perm[hi:]...)
	return s
}

func groupByClass(labels []int) map[int][]int {
	out := make(map[int][]int)
	for i, c := range labels {
		out[c] = append(out[c], i)
	}
	return out
}

func sortedKeys(m map[int][]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
