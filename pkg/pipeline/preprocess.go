package pipeline

import (
	"fmt"

	"telcochurn/pkg/dataprep"
	"telcochurn/pkg/stats"
)

// Preprocessor standardizes the numeric block and one-hot encodes the
// categorical block. Output is numeric features followed by the one-hot
// columns in schema order.
type Preprocessor struct {
	Scaler  *stats.StandardScaler
	Encoder *dataprep.OneHotEncoder

	numeric int
}

// NewPreprocessor prepares a preprocessor for the schema's features.
func NewPreprocessor(s Schema) *Preprocessor {
	cat := s.Categorical()
	cols := make([]string, len(cat))
	for i, f := range cat {
		cols[i] = f.Name
	}
	return &Preprocessor{
		Scaler:  stats.NewStandardScaler(),
		Encoder: dataprep.NewOneHotEncoder(cols...),
		numeric: len(s.Numeric()),
	}
}

// FitTransform learns scaling parameters and categories from the training
// rows and returns them encoded.
func (p *Preprocessor) FitTransform(num [][]float64, cat [][]string) ([][]float64, error) {
	if len(num) != len(cat) {
		return nil, fmt.Errorf("preprocess: %d numeric rows, %d categorical rows", len(num), len(cat))
	}
	scaled, err := p.Scaler.FitTransform(num)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}
	if err := p.Encoder.Fit(cat); err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}
	onehot := p.Encoder.Transform(cat)

	out := make([][]float64, len(num))
	for i := range num {
		out[i] = append(append(make([]float64, 0, p.Width()), scaled[i]...), onehot[i]...)
	}
	return out, nil
}

// Width is the length of a transformed row.
func (p *Preprocessor) Width() int { return p.numeric + p.Encoder.Width() }

// FeatureNames names every output column.
func (p *Preprocessor) FeatureNames(s Schema) []string {
	var names []string
	for _, f := range s.Numeric() {
		names = append(names, f.Name)
	}
	return append(names, p.Encoder.FeatureNames()...)
}

// TransformRow encodes one row.
func (p *Preprocessor) TransformRow(num []float64, cat []string) []float64 {
	out := make([]float64, p.Width())
	p.Scaler.TransformRow(num, out[:p.numeric])
	p.Encoder.EncodeRow(cat, out[p.numeric:])
	return out
}
