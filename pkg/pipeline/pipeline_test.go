package pipeline

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"telcochurn/pkg/apperr"
	"telcochurn/pkg/data"
	"telcochurn/pkg/model"
)

var testColumns = []string{
	data.ColCustomerID, data.ColCity, data.ColLatitude, data.ColLongitude,
	data.ColGender, data.ColSeniorCitizen, data.ColPartner, data.ColDependents,
	data.ColTenureMonths, data.ColPhoneService, data.ColInternetService,
	data.ColOnlineSecurity, data.ColTechSupport, data.ColContract,
	data.ColPaymentMethod, data.ColMonthlyCharges, data.ColTotalCharges,
	data.ColChurnLabel,
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func comma(v float64) string {
	return strings.Replace(fmt.Sprintf("%.2f", v), ".", ",", 1)
}

// syntheticCSV builds n rows where short month-to-month contracts churn most
// often and long two-year contracts rarely do.
func syntheticCSV(n int, drop string) string {
	var b strings.Builder
	cols := make([]string, 0, len(testColumns))
	for _, c := range testColumns {
		if c != drop {
			cols = append(cols, c)
		}
	}
	b.WriteString(strings.Join(cols, ";") + "\n")

	for i := 0; i < n; i++ {
		var contract string
		var tenure int
		var churn bool
		switch i % 3 {
		case 0:
			contract, tenure, churn = "Month-to-month", 1+i%12, i%4 != 0
		case 1:
			contract, tenure, churn = "One year", 12+i%24, i%5 == 0
		default:
			contract, tenure, churn = "Two year", 36+i%36, i%17 == 0
		}
		internet := "DSL"
		if i%2 == 1 {
			internet = "Fiber optic"
		}
		if i%7 == 0 {
			internet = "No"
		}
		monthly := 20 + float64(i%50)*1.7
		values := map[string]string{
			data.ColCustomerID:      fmt.Sprintf("%04d-X", i),
			data.ColCity:            []string{"Los Angeles", "San Diego", "Fresno"}[i%3],
			data.ColLatitude:        comma(33 + float64(i%10)/10),
			data.ColLongitude:       comma(-118 + float64(i%7)/10),
			data.ColGender:          []string{"Male", "Female"}[i%2],
			data.ColSeniorCitizen:   yesNo(i%6 == 0),
			data.ColPartner:         yesNo(i%4 < 2),
			data.ColDependents:      yesNo(i%5 == 1),
			data.ColTenureMonths:    fmt.Sprint(tenure),
			data.ColPhoneService:    yesNo(i%9 != 0),
			data.ColInternetService: internet,
			data.ColOnlineSecurity:  yesNo(i%3 == 2),
			data.ColTechSupport:     yesNo(i%2 == 0),
			data.ColContract:        contract,
			data.ColPaymentMethod:   []string{"Electronic check", "Mailed check", "Bank transfer (automatic)"}[i%3],
			data.ColMonthlyCharges:  comma(monthly),
			data.ColTotalCharges:    comma(monthly * float64(tenure)),
			data.ColChurnLabel:      yesNo(churn),
		}
		row := make([]string, 0, len(cols))
		for _, c := range cols {
			row = append(row, values[c])
		}
		b.WriteString(strings.Join(row, ";") + "\n")
	}
	return b.String()
}

func loadTable(t *testing.T, n int, drop string) *data.Table {
	t.Helper()
	tbl, err := data.Parse(strings.NewReader(syntheticCSV(n, drop)))
	require.NoError(t, err)
	return tbl
}

func profile(tenure int, contract string, monthly float64) map[string]any {
	return map[string]any{
		"tenure_months":    tenure,
		"monthly_charges":  monthly,
		"total_charges":    monthly * float64(tenure),
		"gender":           "Female",
		"senior_citizen":   "No",
		"partner":          "No",
		"dependents":       "No",
		"phone_service":    "Yes",
		"internet_service": "Fiber optic",
		"contract":         contract,
		"payment_method":   "Electronic check",
		"online_security":  "No",
		"tech_support":     "No",
	}
}

func TestTrainEndToEnd(t *testing.T) {
	tbl := loadTable(t, 300, "")
	p, err := Train(tbl, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	assert.NotEmpty(t, p.Meta.ID)
	assert.Equal(t, 300, p.Meta.Report.Rows)
	assert.Equal(t, 0, p.Meta.Report.SkippedRows)
	assert.Equal(t, len(p.Model.W), p.Pre.Width())
	assert.Equal(t, p.Pre.Width(), len(p.FeatureNames()))
	assert.Greater(t, p.Meta.Report.Accuracy, 0.7)

	risky, err := p.PredictProba(profile(1, "Month-to-month", 90))
	require.NoError(t, err)
	safe, err := p.PredictProba(profile(70, "Two year", 25))
	require.NoError(t, err)
	assert.Greater(t, risky, safe)
	assert.Greater(t, risky, 0.5)
	assert.Less(t, safe, 0.25)
}

func TestPredictProbaUnseenCategoryAndExtraKeys(t *testing.T) {
	p, err := Train(loadTable(t, 120, ""))
	require.NoError(t, err)

	in := profile(10, "Three year", 50)
	in["internet_service"] = "Satellite"
	in["favourite_colour"] = "blue"
	got, err := p.PredictProba(in)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got, 0.0)
	assert.LessOrEqual(t, got, 1.0)
}

func TestPredictProbaIsDeterministic(t *testing.T) {
	p, err := Train(loadTable(t, 120, ""))
	require.NoError(t, err)

	in := profile(5, "One year", 60)
	a, err := p.PredictProba(in)
	require.NoError(t, err)
	b, err := p.PredictProba(in)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestTransformRejectsIncompleteInput(t *testing.T) {
	p, err := Train(loadTable(t, 120, ""))
	require.NoError(t, err)

	in := profile(5, "One year", 60)
	delete(in, "contract")
	delete(in, "gender")
	in["monthly_charges"] = []int{1}

	_, err = p.Transform(in)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidInput))

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	require.Len(t, appErr.Details, 2)
	assert.Equal(t, "missing fields: contract, gender", appErr.Details[0])
	assert.Contains(t, appErr.Details[1], "monthly_charges")
}

func TestTrainFailures(t *testing.T) {
	tests := []struct {
		name  string
		table func(t *testing.T) *data.Table
		code  apperr.Code
	}{
		{
			name:  "target column absent",
			table: func(t *testing.T) *data.Table { return loadTable(t, 30, data.ColChurnLabel) },
			code:  apperr.CodeConfiguration,
		},
		{
			name:  "feature column absent",
			table: func(t *testing.T) *data.Table { return loadTable(t, 30, data.ColContract) },
			code:  apperr.CodeConfiguration,
		},
		{
			name: "feature column entirely missing",
			table: func(t *testing.T) *data.Table {
				tbl := loadTable(t, 30, "")
				for i := range tbl.Records {
					tbl.Records[i].TenureMonths = math.NaN()
				}
				return tbl
			},
			code: apperr.CodeConfiguration,
		},
		{
			name: "categorical column entirely empty",
			table: func(t *testing.T) *data.Table {
				tbl := loadTable(t, 120, "")
				for i := range tbl.Records {
					tbl.Records[i].Contract = ""
				}
				return tbl
			},
			code: apperr.CodeConfiguration,
		},
		{
			name: "single class target",
			table: func(t *testing.T) *data.Table {
				tbl := loadTable(t, 30, "")
				for i := range tbl.Records {
					tbl.Records[i].Churn = 0
				}
				return tbl
			},
			code: apperr.CodeTrainingFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Train(tt.table(t))
			require.Error(t, err)
			assert.Equal(t, tt.code, apperr.CodeOf(err))
		})
	}
}

func TestPreprocessorFitTransformMatchesRows(t *testing.T) {
	s := DefaultSchema()
	tbl := loadTable(t, 40, "")
	var num [][]float64
	var cat [][]string
	for i := range tbl.Records {
		n, k := s.Extract(&tbl.Records[i])
		num = append(num, n)
		cat = append(cat, k)
	}

	pre := NewPreprocessor(s)
	X, err := pre.FitTransform(num, cat)
	require.NoError(t, err)
	require.Len(t, X, len(num))
	for i := range X {
		assert.Len(t, X[i], pre.Width())
		assert.Equal(t, pre.TransformRow(num[i], cat[i]), X[i])
	}

	_, err = NewPreprocessor(s).FitTransform(num, cat[1:])
	assert.Error(t, err)
}

func TestTrainNotConvergedIsReported(t *testing.T) {
	_, err := Train(loadTable(t, 120, ""), WithModelOptions(model.WithMaxIter(1), model.WithTol(1e-14)))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeTrainingFailed))
	assert.ErrorIs(t, err, model.ErrNotConverged)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p, err := Train(loadTable(t, 150, ""))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, p.Encode(&buf))
	q, err := Decode(&buf)
	require.NoError(t, err)

	assert.Equal(t, p.Meta.ID, q.Meta.ID)
	assert.Equal(t, p.FeatureNames(), q.FeatureNames())
	for _, in := range []map[string]any{
		profile(1, "Month-to-month", 90),
		profile(70, "Two year", 25),
		profile(12, "Unknown", 45),
	} {
		a, err := p.PredictProba(in)
		require.NoError(t, err)
		b, err := q.PredictProba(in)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

// withValue returns a copy of xs with xs[i] replaced.
func withValue(xs []float64, i int, v float64) []float64 {
	out := append([]float64(nil), xs...)
	out[i] = v
	return out
}

func TestDecodeRejectsBadSnapshots(t *testing.T) {
	p, err := Train(loadTable(t, 60, ""))
	require.NoError(t, err)

	good := snapshot{
		Version:    FormatVersion,
		Schema:     p.Schema,
		Mean:       p.Pre.Scaler.Mean,
		Std:        p.Pre.Scaler.Std,
		Columns:    p.Pre.Encoder.Columns,
		Categories: p.Pre.Encoder.Categories,
		Weights:    p.Model.W,
		C:          1,
		Solver:     string(model.SolverLBFGS),
	}

	tests := []struct {
		name   string
		mutate func(s *snapshot)
	}{
		{"unknown version", func(s *snapshot) { s.Version = 99 }},
		{"weight count", func(s *snapshot) { s.Weights = s.Weights[1:] }},
		{"scaler width", func(s *snapshot) { s.Mean = s.Mean[:1] }},
		{"encoder columns", func(s *snapshot) { s.Columns = s.Columns[1:] }},
		{"nan weight", func(s *snapshot) { s.Weights = withValue(s.Weights, 0, math.NaN()) }},
		{"infinite bias", func(s *snapshot) { s.Bias = math.Inf(1) }},
		{"nan mean", func(s *snapshot) { s.Mean = withValue(s.Mean, 1, math.NaN()) }},
		{"zero std", func(s *snapshot) { s.Std = withValue(s.Std, 0, 0) }},
		{"infinite std", func(s *snapshot) { s.Std = withValue(s.Std, 2, math.Inf(1)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := good
			tt.mutate(&s)
			var buf bytes.Buffer
			require.NoError(t, gob.NewEncoder(&buf).Encode(&s))
			_, err := Decode(&buf)
			assert.Error(t, err)
		})
	}

	_, err = Decode(strings.NewReader("not a gob stream"))
	assert.Error(t, err)
}
