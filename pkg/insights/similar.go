package insights

import (
	"errors"

	"telcochurn/pkg/data"
	"telcochurn/pkg/model"
	"telcochurn/pkg/pipeline"
)

// Match is a customer close to a queried profile.
type Match struct {
	CustomerID     string  `json:"customer_id"`
	City           string  `json:"city"`
	Distance       float64 `json:"distance"`
	Churned        bool    `json:"churned"`
	ChurnReason    string  `json:"churn_reason,omitempty"`
	TenureMonths   float64 `json:"tenure_months"`
	MonthlyCharges float64 `json:"monthly_charges"`
	Contract       string  `json:"contract"`
}

// Neighbourhood is the result of a similar-customer query.
type Neighbourhood struct {
	Matches []Match `json:"matches"`
	// ChurnShare is the fraction of matches that churned.
	ChurnShare float64 `json:"churn_share"`
}

// SimilarIndex answers nearest-customer queries in the pipeline's encoded
// feature space.
type SimilarIndex struct {
	p       *pipeline.Pipeline
	rows    []*data.Customer
	encoded [][]float64
	labels  []float64
}

// NewSimilarIndex encodes every table row the pipeline can encode.
func NewSimilarIndex(p *pipeline.Pipeline, t *data.Table) (*SimilarIndex, error) {
	if p == nil {
		return nil, errors.New("insights: similar customers need a trained pipeline")
	}
	idx := &SimilarIndex{p: p}
	for i := range t.Records {
		c := &t.Records[i]
		x, ok := p.TransformCustomer(c)
		if !ok {
			continue
		}
		idx.rows = append(idx.rows, c)
		idx.encoded = append(idx.encoded, x)
		idx.labels = append(idx.labels, float64(c.Churn))
	}
	return idx, nil
}

func (s *SimilarIndex) Len() int { return len(s.rows) }

// Query returns the k customers nearest to the profile, nearest first.
func (s *SimilarIndex) Query(features map[string]any, k int) (Neighbourhood, error) {
	x, err := s.p.Transform(features)
	if err != nil {
		return Neighbourhood{}, err
	}
	if k < 1 {
		k = 1
	}
	knn := model.NewKNN(k)
	if err := knn.Fit(s.encoded, s.labels); err != nil {
		return Neighbourhood{}, err
	}

	var out Neighbourhood
	churned := 0
	for _, n := range knn.Neighbors(x) {
		c := s.rows[n.Index]
		out.Matches = append(out.Matches, Match{
			CustomerID:     c.CustomerID,
			City:           c.City,
			Distance:       n.Distance,
			Churned:        c.Churn == 1,
			ChurnReason:    c.ChurnReason,
			TenureMonths:   c.TenureMonths,
			MonthlyCharges: c.MonthlyCharges,
			Contract:       c.Contract,
		})
		churned += c.Churn
	}
	if len(out.Matches) > 0 {
		out.ChurnShare = float64(churned) / float64(len(out.Matches))
	}
	return out, nil
}
