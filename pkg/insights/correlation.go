package insights

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"telcochurn/pkg/data"
)

// Correlation is a Pearson correlation matrix over named fields.
type Correlation struct {
	Fields []string    `json:"fields"`
	Values [][]float64 `json:"values"`
	Rows   int         `json:"rows"`
}

var correlationFields = []string{"tenure_months", "monthly_charges", "total_charges", "churn"}

// Correlate computes pairwise correlations of tenure, charges and churn over
// rows where all of them are present. A constant field correlates as 0.
func Correlate(t *data.Table) (Correlation, error) {
	var vals []float64
	rows := 0
	for i := range t.Records {
		c := &t.Records[i]
		row := []float64{c.TenureMonths, c.MonthlyCharges, c.TotalCharges, float64(c.Churn)}
		usable := true
		for _, v := range row {
			if data.IsMissing(v) {
				usable = false
				break
			}
		}
		if !usable {
			continue
		}
		vals = append(vals, row...)
		rows++
	}
	if rows < 2 {
		return Correlation{}, errors.New("insights: correlation needs at least two complete rows")
	}

	k := len(correlationFields)
	var sym mat.SymDense
	stat.CorrelationMatrix(&sym, mat.NewDense(rows, k, vals), nil)

	out := Correlation{Fields: correlationFields, Rows: rows, Values: make([][]float64, k)}
	for i := 0; i < k; i++ {
		out.Values[i] = make([]float64, k)
		for j := 0; j < k; j++ {
			v := sym.At(i, j)
			if math.IsNaN(v) {
				v = 0
			}
			out.Values[i][j] = v
		}
	}
	return out, nil
}
