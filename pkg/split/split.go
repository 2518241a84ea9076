// Package split produces reproducible train/test partitions for evaluating
// a pipeline outside of training.
package split

import (
	"fmt"
	"math/rand"

	"telcochurn/pkg/data"
)

// TrainTestSplit shuffles 0..n-1 with the seed and returns the train and
// test indices. The test set holds int(n*testRatio) rows.
func TrainTestSplit(n int, testRatio float64, seed int64) (train, test []int, err error) {
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, fmt.Errorf("split: test ratio must be in (0, 1), got %v", testRatio)
	}
	indices := rand.New(rand.NewSource(seed)).Perm(n)
	nTest := int(float64(n) * testRatio)
	return indices[nTest:], indices[:nTest], nil
}

// KFold yields k folds of shuffled indices; fold sizes differ by at most one.
func KFold(n, k int, seed int64) ([][]int, error) {
	if k < 2 || k > n {
		return nil, fmt.Errorf("split: need 2 <= k <= %d, got %d", n, k)
	}
	indices := rand.New(rand.NewSource(seed)).Perm(n)
	folds := make([][]int, k)
	for i := range n {
		folds[i%k] = append(folds[i%k], indices[i])
	}
	return folds, nil
}

// Holdout splits a table into train and test tables.
func Holdout(t *data.Table, testRatio float64, seed int64) (train, test *data.Table, err error) {
	tr, te, err := TrainTestSplit(t.Len(), testRatio, seed)
	if err != nil {
		return nil, nil, err
	}
	return t.Subset(tr), t.Subset(te), nil
}
