// Package pipeline trains and applies the churn model: standard scaling and
// one-hot encoding in front of a logistic regression.
package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"telcochurn/pkg/apperr"
	"telcochurn/pkg/data"
	"telcochurn/pkg/dataprep"
	"telcochurn/pkg/metrics"
	"telcochurn/pkg/model"
)

// Pipeline is a trained model with its preprocessing. It is read-only after
// Train or Decode and safe for concurrent use.
type Pipeline struct {
	Schema Schema
	Pre    *Preprocessor
	Model  *model.LogisticRegression
	Meta   Meta
}

// Meta identifies a trained pipeline.
type Meta struct {
	ID        string
	CreatedAt time.Time
	Report    Report
}

// Report summarizes a training run on the training rows themselves.
type Report struct {
	Rows        int           `json:"rows"`
	SkippedRows int           `json:"skipped_rows"`
	Features    int           `json:"features"`
	Solver      string        `json:"solver"`
	Iterations  int           `json:"iterations"`
	Loss        float64       `json:"loss"`
	Accuracy    float64       `json:"accuracy"`
	Precision   float64       `json:"precision"`
	Recall      float64       `json:"recall"`
	F1          float64       `json:"f1"`
	ChurnRate   float64       `json:"churn_rate"`
	Duration    time.Duration `json:"duration"`
}

type trainConfig struct {
	schema    Schema
	modelOpts []model.Option
	log       *zap.Logger
}

// Option configures Train.
type Option func(*trainConfig)

// WithModelOptions passes options to the logistic regression.
func WithModelOptions(opts ...model.Option) Option {
	return func(c *trainConfig) { c.modelOpts = append(c.modelOpts, opts...) }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *trainConfig) { c.log = log }
}

func WithSchema(s Schema) Option {
	return func(c *trainConfig) { c.schema = s }
}

// Train fits the pipeline on every usable row of the table.
func Train(table *data.Table, opts ...Option) (*Pipeline, error) {
	cfg := trainConfig{schema: DefaultSchema(), log: zap.NewNop()}
	for _, o := range opts {
		o(&cfg)
	}
	s := cfg.schema
	start := time.Now()

	if table == nil || !table.Has(s.Target) {
		return nil, apperr.NewConfigurationError(s.Target, errors.New("target column missing"))
	}
	for _, f := range s.Features {
		if !table.Has(f.Column) {
			return nil, apperr.NewConfigurationError(f.Column, errors.New("feature column missing"))
		}
	}

	// ---- Extract ----
	var num [][]float64
	var cat [][]string
	var y []float64
	numCols := make([][]float64, len(s.Numeric()))
	seenCategory := make([]bool, len(s.Categorical()))
	skipped := 0
	for i := range table.Records {
		c := &table.Records[i]
		n, k := s.Extract(c)
		usable := true
		for j, v := range n {
			numCols[j] = append(numCols[j], v)
			if data.IsMissing(v) {
				usable = false
			}
		}
		for j, v := range k {
			if v != "" {
				seenCategory[j] = true
			}
		}
		if !usable {
			skipped++
			continue
		}
		num = append(num, n)
		cat = append(cat, k)
		y = append(y, float64(c.Churn))
	}
	for j, f := range s.Numeric() {
		if dataprep.AllMissing(numCols[j]) {
			return nil, apperr.NewConfigurationError(f.Column, errors.New("feature column has no values"))
		}
	}
	for j, f := range s.Categorical() {
		if !seenCategory[j] {
			return nil, apperr.NewConfigurationError(f.Column, errors.New("feature column has no values"))
		}
	}
	if len(y) == 0 {
		return nil, apperr.New(apperr.CodeTrainingFailed, "no usable training rows")
	}
	positives := 0
	for _, v := range y {
		positives += int(v)
	}
	if positives == 0 || positives == len(y) {
		return nil, apperr.New(apperr.CodeTrainingFailed, "target has a single class")
	}

	// ---- Preprocess ----
	pre := NewPreprocessor(s)
	X, err := pre.FitTransform(num, cat)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeTrainingFailed, "preprocessing failed", err)
	}

	// ---- Fit ----
	m := model.NewLogisticRegression(cfg.modelOpts...)
	if err := m.Fit(X, y); err != nil {
		return nil, apperr.Wrap(apperr.CodeTrainingFailed, "model fit failed", err)
	}

	// ---- Report ----
	eval := model.Evaluate(y, m.PredictProba(X))
	rep := Report{
		Rows:        len(y),
		SkippedRows: skipped,
		Features:    pre.Width(),
		Solver:      string(m.Solver),
		Iterations:  m.Iterations,
		Loss:        m.Loss,
		Accuracy:    eval.Accuracy,
		Precision:   eval.Precision,
		Recall:      eval.Recall,
		F1:          eval.F1,
		ChurnRate:   float64(positives) / float64(len(y)),
		Duration:    time.Since(start),
	}
	metrics.TrainingDuration.WithLabelValues(rep.Solver).Observe(rep.Duration.Seconds())

	p := &Pipeline{
		Schema: s,
		Pre:    pre,
		Model:  m,
		Meta:   Meta{ID: uuid.NewString(), CreatedAt: time.Now().UTC(), Report: rep},
	}
	cfg.log.Info("pipeline trained",
		zap.String("model_id", p.Meta.ID),
		zap.Int("rows", rep.Rows),
		zap.Int("skipped", rep.SkippedRows),
		zap.Int("features", rep.Features),
		zap.String("solver", rep.Solver),
		zap.Int("iterations", rep.Iterations),
		zap.Float64("loss", rep.Loss),
		zap.Float64("accuracy", rep.Accuracy),
		zap.Duration("duration", rep.Duration),
	)
	return p, nil
}

// Transform coerces a named feature mapping and applies the training
// preprocessing. Keys may come in any order; extra keys are ignored.
func (p *Pipeline) Transform(features map[string]any) ([]float64, error) {
	var num []float64
	var cat []string
	var missing, invalid []string
	for _, f := range p.Schema.Features {
		v, ok := features[f.Name]
		if !ok {
			missing = append(missing, f.Name)
			continue
		}
		if f.Kind == Numeric {
			x, ok := ToFloat(v)
			if !ok {
				invalid = append(invalid, fmt.Sprintf("%s: expected a number, got %v", f.Name, v))
			}
			num = append(num, x)
		} else {
			s, ok := ToCategory(v)
			if !ok {
				invalid = append(invalid, fmt.Sprintf("%s: unsupported value %v", f.Name, v))
			}
			cat = append(cat, s)
		}
	}
	if len(missing) > 0 || len(invalid) > 0 {
		sort.Strings(missing)
		details := invalid
		if len(missing) > 0 {
			details = append([]string{"missing fields: " + strings.Join(missing, ", ")}, invalid...)
		}
		return nil, apperr.NewInvalidInputError(details)
	}
	return p.Pre.TransformRow(num, cat), nil
}

// TransformCustomer encodes a dataset row. It returns false when a numeric
// feature is missing.
func (p *Pipeline) TransformCustomer(c *data.Customer) ([]float64, bool) {
	num, cat := p.Schema.Extract(c)
	for _, v := range num {
		if data.IsMissing(v) {
			return nil, false
		}
	}
	return p.Pre.TransformRow(num, cat), true
}

// PredictProba returns p(churn) for one named feature mapping.
func (p *Pipeline) PredictProba(features map[string]any) (float64, error) {
	x, err := p.Transform(features)
	if err != nil {
		return 0, err
	}
	return p.Model.ProbaOne(x), nil
}

// FeatureNames names every encoded column, matching Model.W.
func (p *Pipeline) FeatureNames() []string { return p.Pre.FeatureNames(p.Schema) }
