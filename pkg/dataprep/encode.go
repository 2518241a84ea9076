package dataprep

import (
	"errors"
	"fmt"
	"sort"
)

// OneHotEncoder one-hot encodes a block of categorical columns. Categories are
// learned per column at fit time and sorted, so the output layout does not
// depend on row order. Values never seen during Fit encode to all zeros.
type OneHotEncoder struct {
	Columns    []string
	Categories [][]string

	index []map[string]int
}

// NewOneHotEncoder creates an encoder for the named columns.
func NewOneHotEncoder(columns ...string) *OneHotEncoder {
	return &OneHotEncoder{Columns: columns}
}

// Fit learns the categories of each column. rows[i][j] is the value of column j.
func (e *OneHotEncoder) Fit(rows [][]string) error {
	if len(rows) == 0 {
		return errors.New("onehot: no rows to fit")
	}
	e.Categories = make([][]string, len(e.Columns))
	for j := range e.Columns {
		seen := map[string]struct{}{}
		for i, row := range rows {
			if len(row) != len(e.Columns) {
				return fmt.Errorf("onehot: row %d has %d values, want %d", i, len(row), len(e.Columns))
			}
			seen[row[j]] = struct{}{}
		}
		cats := make([]string, 0, len(seen))
		for c := range seen {
			cats = append(cats, c)
		}
		sort.Strings(cats)
		e.Categories[j] = cats
	}
	e.buildIndex()
	return nil
}

// Restore rebuilds lookup tables after Columns and Categories were decoded.
func (e *OneHotEncoder) Restore() error {
	if len(e.Categories) != len(e.Columns) {
		return fmt.Errorf("onehot: %d category lists for %d columns", len(e.Categories), len(e.Columns))
	}
	e.buildIndex()
	return nil
}

func (e *OneHotEncoder) buildIndex() {
	e.index = make([]map[string]int, len(e.Categories))
	offset := 0
	for j, cats := range e.Categories {
		m := make(map[string]int, len(cats))
		for k, c := range cats {
			m[c] = offset + k
		}
		e.index[j] = m
		offset += len(cats)
	}
}

// Width is the number of output features.
func (e *OneHotEncoder) Width() int {
	n := 0
	for _, cats := range e.Categories {
		n += len(cats)
	}
	return n
}

// FeatureNames returns "column=category" for every output position.
func (e *OneHotEncoder) FeatureNames() []string {
	names := make([]string, 0, e.Width())
	for j, cats := range e.Categories {
		for _, c := range cats {
			names = append(names, e.Columns[j]+"="+c)
		}
	}
	return names
}

// EncodeRow writes the encoding of one row into dst (len(dst) == Width()).
func (e *OneHotEncoder) EncodeRow(row []string, dst []float64) {
	for k := range dst {
		dst[k] = 0
	}
	for j, v := range row {
		if j >= len(e.index) {
			break
		}
		if pos, ok := e.index[j][v]; ok {
			dst[pos] = 1
		}
	}
}

// Transform encodes every row.
func (e *OneHotEncoder) Transform(rows [][]string) [][]float64 {
	w := e.Width()
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = make([]float64, w)
		e.EncodeRow(row, out[i])
	}
	return out
}
