package insights

import (
	"sort"

	"telcochurn/pkg/data"
)

// SurvivalPoint is one step of the Kaplan-Meier retention curve.
type SurvivalPoint struct {
	Month     int     `json:"month"`
	AtRisk    int     `json:"at_risk"`
	Churned   int     `json:"churned"`
	Censored  int     `json:"censored"`
	Retention float64 `json:"retention"`
}

// Survival estimates retention by tenure month. Churn is the event; active
// customers are censored at their current tenure. Rows without a tenure are
// skipped.
func Survival(t *data.Table) []SurvivalPoint {
	type tally struct{ events, censored int }
	byMonth := map[int]*tally{}
	n := 0
	for i := range t.Records {
		c := &t.Records[i]
		if data.IsMissing(c.TenureMonths) {
			continue
		}
		m := int(c.TenureMonths)
		tl, ok := byMonth[m]
		if !ok {
			tl = &tally{}
			byMonth[m] = tl
		}
		if c.Churn == 1 {
			tl.events++
		} else {
			tl.censored++
		}
		n++
	}

	months := make([]int, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Ints(months)

	out := make([]SurvivalPoint, 0, len(months))
	atRisk := n
	s := 1.0
	for _, m := range months {
		tl := byMonth[m]
		if atRisk > 0 {
			s *= 1 - float64(tl.events)/float64(atRisk)
		}
		out = append(out, SurvivalPoint{
			Month:     m,
			AtRisk:    atRisk,
			Churned:   tl.events,
			Censored:  tl.censored,
			Retention: s,
		})
		atRisk -= tl.events + tl.censored
	}
	return out
}
