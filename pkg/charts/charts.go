// Package charts renders the exploratory churn charts to image files.
package charts

import (
	"fmt"
	"image/color"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"telcochurn/pkg/data"
	"telcochurn/pkg/insights"
)

var (
	colorRetained = color.RGBA{R: 0x63, G: 0x6E, B: 0xFA, A: 255}
	colorChurned  = color.RGBA{R: 0xEF, G: 0x55, B: 0x3B, A: 255}
)

// ChurnByCategory draws grouped bars of retained and churned customers for
// each value of a categorical field.
func ChurnByCategory(t *data.Table, field, filename string) error {
	segs, err := insights.Breakdown(t, field)
	if err != nil {
		return err
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Churn by %s", field)
	p.Y.Label.Text = "Customers"

	retained := make(plotter.Values, len(segs))
	churned := make(plotter.Values, len(segs))
	names := make([]string, len(segs))
	for i, s := range segs {
		retained[i] = float64(s.Customers - s.Churned)
		churned[i] = float64(s.Churned)
		names[i] = s.Value
	}

	w := vg.Points(20)
	no, err := plotter.NewBarChart(retained, w)
	if err != nil {
		return err
	}
	no.Color = colorRetained
	no.Offset = -w / 2

	yes, err := plotter.NewBarChart(churned, w)
	if err != nil {
		return err
	}
	yes.Color = colorChurned
	yes.Offset = w / 2

	p.Add(no, yes)
	p.Legend.Add("No", no)
	p.Legend.Add("Yes", yes)
	p.Legend.Top = true
	p.NominalX(names...)

	return p.Save(6*vg.Inch, 4*vg.Inch, filename)
}

// BoxByChurn draws a numeric column as one box per churn outcome.
func BoxByChurn(t *data.Table, column, filename string) error {
	var no, yes plotter.Values
	for i := range t.Records {
		c := &t.Records[i]
		v := c.Number(column)
		if data.IsMissing(v) {
			continue
		}
		if c.Churn == 1 {
			yes = append(yes, v)
		} else {
			no = append(no, v)
		}
	}
	if len(no) == 0 || len(yes) == 0 {
		return fmt.Errorf("charts: %s needs values for both outcomes", column)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s vs. churn", column)
	p.Y.Label.Text = column

	w := vg.Points(40)
	bNo, err := plotter.NewBoxPlot(w, 0, no)
	if err != nil {
		return err
	}
	bNo.FillColor = colorRetained
	bYes, err := plotter.NewBoxPlot(w, 1, yes)
	if err != nil {
		return err
	}
	bYes.FillColor = colorChurned

	p.Add(bNo, bYes)
	p.NominalX("No", "Yes")
	return p.Save(4*vg.Inch, 4*vg.Inch, filename)
}

// SurvivalCurve draws the retention step curve.
func SurvivalCurve(points []insights.SurvivalPoint, filename string) error {
	if len(points) == 0 {
		return fmt.Errorf("charts: empty survival curve")
	}
	p := plot.New()
	p.Title.Text = "Retention by tenure"
	p.X.Label.Text = "Tenure (months)"
	p.Y.Label.Text = "Retention"
	p.Y.Min, p.Y.Max = 0, 1

	pts := plotter.XYs{{X: 0, Y: 1}}
	for _, sp := range points {
		pts = append(pts, plotter.XY{X: float64(sp.Month), Y: sp.Retention})
	}
	l, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	l.StepStyle = plotter.PostStep
	l.Color = colorChurned
	l.LineStyle.Width = vg.Points(2)
	p.Add(l)

	return p.Save(6*vg.Inch, 4*vg.Inch, filename)
}

// CityScatter draws a scatter map layer as longitude/latitude points.
func CityScatter(layer insights.Layer, filename string) error {
	p := plot.New()
	p.Title.Text = layer.City
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Latitude"

	var active, churned plotter.XYs
	for _, pt := range layer.Points {
		xy := plotter.XY{X: pt.Longitude, Y: pt.Latitude}
		if pt.Churned {
			churned = append(churned, xy)
		} else {
			active = append(active, xy)
		}
	}
	for _, set := range []struct {
		name string
		pts  plotter.XYs
		c    color.RGBA
	}{
		{"Active", active, color.RGBA{G: 128, A: 160}},
		{"Churned", churned, color.RGBA{R: 255, A: 160}},
	} {
		if len(set.pts) == 0 {
			continue
		}
		s, err := plotter.NewScatter(set.pts)
		if err != nil {
			return err
		}
		s.Color = set.c
		s.Shape = draw.CircleGlyph{}
		p.Add(s)
		p.Legend.Add(set.name, s)
	}
	return p.Save(5*vg.Inch, 5*vg.Inch, filename)
}

// Report renders the standard chart set into dir and returns the files.
func Report(t *data.Table, dir string) ([]string, error) {
	var files []string
	out := func(name string) string {
		f := filepath.Join(dir, name)
		files = append(files, f)
		return f
	}

	if err := ChurnByCategory(t, "contract", out("churn_by_contract.png")); err != nil {
		return nil, err
	}
	if err := ChurnByCategory(t, "internet_service", out("churn_by_internet_service.png")); err != nil {
		return nil, err
	}
	if err := BoxByChurn(t, data.ColTenureMonths, out("tenure_vs_churn.png")); err != nil {
		return nil, err
	}
	if err := BoxByChurn(t, data.ColMonthlyCharges, out("monthly_charges_vs_churn.png")); err != nil {
		return nil, err
	}
	if err := SurvivalCurve(insights.Survival(t), out("retention_curve.png")); err != nil {
		return nil, err
	}
	return files, nil
}
