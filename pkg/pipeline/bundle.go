package pipeline

import (
	"encoding/gob"
	"fmt"
	"io"
	"math"

	"telcochurn/pkg/dataprep"
	"telcochurn/pkg/model"
	"telcochurn/pkg/stats"
)

// FormatVersion is bumped whenever the snapshot layout changes.
const FormatVersion = 1

// snapshot is the serialized form of a Pipeline.
type snapshot struct {
	Version    int
	Schema     Schema
	Mean       []float64
	Std        []float64
	Columns    []string
	Categories [][]string
	Weights    []float64
	Bias       float64
	C          float64
	Solver     string
	Meta       Meta
}

// Encode writes the pipeline as a versioned gob snapshot.
func (p *Pipeline) Encode(w io.Writer) error {
	snap := snapshot{
		Version:    FormatVersion,
		Schema:     p.Schema,
		Mean:       p.Pre.Scaler.Mean,
		Std:        p.Pre.Scaler.Std,
		Columns:    p.Pre.Encoder.Columns,
		Categories: p.Pre.Encoder.Categories,
		Weights:    p.Model.W,
		Bias:       p.Model.B,
		C:          p.Model.C,
		Solver:     string(p.Model.Solver),
		Meta:       p.Meta,
	}
	if err := gob.NewEncoder(w).Encode(&snap); err != nil {
		return fmt.Errorf("pipeline: encode: %w", err)
	}
	return nil
}

// Decode reads a pipeline written by Encode and checks that its parts agree.
func Decode(r io.Reader) (*Pipeline, error) {
	var snap snapshot
	if err := gob.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("pipeline: decode: %w", err)
	}
	if snap.Version != FormatVersion {
		return nil, fmt.Errorf("pipeline: unsupported format version %d, want %d", snap.Version, FormatVersion)
	}

	nNum := len(snap.Schema.Numeric())
	if len(snap.Mean) != nNum || len(snap.Std) != nNum {
		return nil, fmt.Errorf("pipeline: scaler has %d/%d columns, schema has %d numeric features", len(snap.Mean), len(snap.Std), nNum)
	}
	for j := range snap.Mean {
		if !finite(snap.Mean[j]) || !finite(snap.Std[j]) || snap.Std[j] <= 0 {
			return nil, fmt.Errorf("pipeline: scaler column %d has mean %v, std %v", j, snap.Mean[j], snap.Std[j])
		}
	}
	if len(snap.Columns) != len(snap.Schema.Categorical()) {
		return nil, fmt.Errorf("pipeline: encoder has %d columns, schema has %d categorical features", len(snap.Columns), len(snap.Schema.Categorical()))
	}

	enc := &dataprep.OneHotEncoder{Columns: snap.Columns, Categories: snap.Categories}
	if err := enc.Restore(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	pre := &Preprocessor{
		Scaler:  &stats.StandardScaler{Mean: snap.Mean, Std: snap.Std},
		Encoder: enc,
		numeric: nNum,
	}
	if len(snap.Weights) != pre.Width() {
		return nil, fmt.Errorf("pipeline: %d weights for %d encoded features", len(snap.Weights), pre.Width())
	}

	if !finite(snap.Bias) {
		return nil, fmt.Errorf("pipeline: bias is %v", snap.Bias)
	}
	for j, w := range snap.Weights {
		if !finite(w) {
			return nil, fmt.Errorf("pipeline: weight %d is %v", j, w)
		}
	}

	m := model.NewLogisticRegression(model.WithC(snap.C), model.WithSolver(model.Solver(snap.Solver)))
	m.W = snap.Weights
	m.B = snap.Bias
	m.Iterations = snap.Meta.Report.Iterations
	m.Loss = snap.Meta.Report.Loss

	return &Pipeline{Schema: snap.Schema, Pre: pre, Model: m, Meta: snap.Meta}, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
