package split

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telcochurn/pkg/data"
)

func TestTrainTestSplit(t *testing.T) {
	train, test, err := TrainTestSplit(10, 0.3, 7)
	require.NoError(t, err)
	assert.Len(t, test, 3)
	assert.Len(t, train, 7)

	all := append(append([]int{}, train...), test...)
	sort.Ints(all)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, all)

	train2, test2, err := TrainTestSplit(10, 0.3, 7)
	require.NoError(t, err)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)

	_, _, err = TrainTestSplit(10, 1, 7)
	assert.Error(t, err)
}

func TestKFold(t *testing.T) {
	folds, err := KFold(11, 3, 1)
	require.NoError(t, err)
	require.Len(t, folds, 3)
	total := 0
	for _, f := range folds {
		assert.InDelta(t, 11.0/3, float64(len(f)), 1)
		total += len(f)
	}
	assert.Equal(t, 11, total)

	_, err = KFold(3, 5, 1)
	assert.Error(t, err)
}

func TestHoldout(t *testing.T) {
	csv := "Latitude;Longitude;Monthly Charges;Total Charges;Churn Label\n" +
		"1;1;10;10;Yes\n2;2;20;20;No\n3;3;30;30;No\n4;4;40;40;Yes\n"
	tbl, err := data.Parse(strings.NewReader(csv))
	require.NoError(t, err)

	train, test, err := Holdout(tbl, 0.25, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, train.Len())
	assert.Equal(t, 1, test.Len())
	assert.True(t, test.Has(data.ColChurnLabel))
}
