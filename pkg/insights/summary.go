// Package insights computes the dashboard analytics over a loaded customer
// table. Every function is pure: the same table gives the same answer.
package insights

import (
	"fmt"
	"sort"

	"telcochurn/pkg/apperr"
	"telcochurn/pkg/data"
	"telcochurn/pkg/pipeline"
	"telcochurn/pkg/stats"
)

// KPIs are the headline numbers.
type KPIs struct {
	Customers          int     `json:"customers"`
	Churned            int     `json:"churned"`
	ChurnRate          float64 `json:"churn_rate"`
	AvgTenureMonths    float64 `json:"avg_tenure_months"`
	AvgMonthlyCharges  float64 `json:"avg_monthly_charges"`
	MonthlyRevenueLost float64 `json:"monthly_revenue_lost"`
}

// Summarize computes the KPIs. Missing numeric values are skipped.
func Summarize(t *data.Table) KPIs {
	k := KPIs{Customers: t.Len(), Churned: t.Churned()}
	if k.Customers == 0 {
		return k
	}
	k.ChurnRate = float64(k.Churned) / float64(k.Customers)

	var tenure, monthly []float64
	for i := range t.Records {
		c := &t.Records[i]
		if !data.IsMissing(c.TenureMonths) {
			tenure = append(tenure, c.TenureMonths)
		}
		if !data.IsMissing(c.MonthlyCharges) {
			monthly = append(monthly, c.MonthlyCharges)
			if c.Churn == 1 {
				k.MonthlyRevenueLost += c.MonthlyCharges
			}
		}
	}
	k.AvgTenureMonths = stats.Mean(tenure)
	k.AvgMonthlyCharges = stats.Mean(monthly)
	return k
}

// ReasonCount is one churn reason and how many churned customers gave it.
type ReasonCount struct {
	Reason string  `json:"reason"`
	Count  int     `json:"count"`
	Share  float64 `json:"share"`
}

// Reasons ranks churn reasons among churned customers, most frequent first
// with ties by name. Empty reasons are skipped. limit <= 0 returns all.
func Reasons(t *data.Table, limit int) []ReasonCount {
	counts := map[string]int{}
	total := 0
	for i := range t.Records {
		c := &t.Records[i]
		if c.Churn != 1 || c.ChurnReason == "" {
			continue
		}
		counts[c.ChurnReason]++
		total++
	}

	out := make([]ReasonCount, 0, len(counts))
	for r, n := range counts {
		out = append(out, ReasonCount{Reason: r, Count: n, Share: float64(n) / float64(total)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Segment is the churn rate of one value of a categorical field.
type Segment struct {
	Value     string  `json:"value"`
	Customers int     `json:"customers"`
	Churned   int     `json:"churned"`
	ChurnRate float64 `json:"churn_rate"`
}

// FieldColumns maps the request field names accepted by Breakdown and
// Options to dataset columns.
func FieldColumns() map[string]string {
	m := map[string]string{"city": data.ColCity}
	for _, f := range pipeline.DefaultSchema().Categorical() {
		m[f.Name] = f.Column
	}
	return m
}

func columnFor(field string) (string, error) {
	col, ok := FieldColumns()[field]
	if !ok {
		return "", apperr.NewInvalidInputError([]string{fmt.Sprintf("unknown field %q", field)})
	}
	return col, nil
}

// Breakdown groups customers by a categorical field. Segments keep the
// field's first-seen order.
func Breakdown(t *data.Table, field string) ([]Segment, error) {
	col, err := columnFor(field)
	if err != nil {
		return nil, err
	}
	idx := map[string]int{}
	var out []Segment
	for i := range t.Records {
		c := &t.Records[i]
		v := c.Text(col)
		j, ok := idx[v]
		if !ok {
			j = len(out)
			idx[v] = j
			out = append(out, Segment{Value: v})
		}
		out[j].Customers++
		out[j].Churned += c.Churn
	}
	for j := range out {
		out[j].ChurnRate = float64(out[j].Churned) / float64(out[j].Customers)
	}
	return out, nil
}

// Distribution is a numeric column summarized separately for churned and
// retained customers, the data behind a box plot.
type Distribution struct {
	Column   string        `json:"column"`
	Churned  stats.Summary `json:"churned"`
	Retained stats.Summary `json:"retained"`
}

// Distributions summarizes tenure and monthly charges by churn outcome.
func Distributions(t *data.Table) []Distribution {
	cols := []string{data.ColTenureMonths, data.ColMonthlyCharges, data.ColTotalCharges}
	out := make([]Distribution, 0, len(cols))
	for _, col := range cols {
		var yes, no []float64
		for i := range t.Records {
			c := &t.Records[i]
			if c.Churn == 1 {
				yes = append(yes, c.Number(col))
			} else {
				no = append(no, c.Number(col))
			}
		}
		out = append(out, Distribution{Column: col, Churned: stats.Describe(yes), Retained: stats.Describe(no)})
	}
	return out
}

// Options lists the distinct values of every categorical input, keyed by
// request field name, for building selectors.
func Options(t *data.Table) map[string][]string {
	out := map[string][]string{}
	for _, f := range pipeline.DefaultSchema().Categorical() {
		out[f.Name] = t.Categories(f.Column)
	}
	return out
}
