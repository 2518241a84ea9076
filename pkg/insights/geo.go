package insights

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"telcochurn/pkg/apperr"
	"telcochurn/pkg/data"
)

// Map render modes.
const (
	ModeScatter = "scatter"
	ModeHexagon = "hexagon"
	ModeHeatmap = "heatmap"
)

// DefaultHexRadius is the hexagon cell radius in degrees (roughly 500 m).
const DefaultHexRadius = 0.005

var (
	colorChurned = [4]uint8{255, 0, 0, 160}
	colorActive  = [4]uint8{0, 128, 0, 160}
)

// ErrNoCustomers is returned for a city with no customers.
var ErrNoCustomers = errors.New("insights: no customers in city")

// CityCount is a city with its customer count and centroid.
type CityCount struct {
	City      string  `json:"city"`
	Customers int     `json:"customers"`
	Churned   int     `json:"churned"`
	ChurnRate float64 `json:"churn_rate"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// TopCities ranks cities by customer count, ties by name.
func TopCities(t *data.Table, limit int) []CityCount {
	idx := map[string]int{}
	var out []CityCount
	for i := range t.Records {
		c := &t.Records[i]
		j, ok := idx[c.City]
		if !ok {
			j = len(out)
			idx[c.City] = j
			out = append(out, CityCount{City: c.City})
		}
		out[j].Customers++
		out[j].Churned += c.Churn
		out[j].Latitude += c.Latitude
		out[j].Longitude += c.Longitude
	}
	for j := range out {
		n := float64(out[j].Customers)
		out[j].ChurnRate = float64(out[j].Churned) / n
		out[j].Latitude /= n
		out[j].Longitude /= n
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Customers != out[b].Customers {
			return out[a].Customers > out[b].Customers
		}
		return out[a].City < out[b].City
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// View is the initial camera of a map layer.
type View struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Zoom      float64 `json:"zoom"`
	Pitch     float64 `json:"pitch"`
}

// Point is one customer on the map.
type Point struct {
	CustomerID     string   `json:"customer_id"`
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	MonthlyCharges float64  `json:"monthly_charges"`
	Churned        bool     `json:"churned"`
	Color          [4]uint8 `json:"color"`
	Weight         float64  `json:"weight"`
}

// Cell is one hexagon of the binned layer.
type Cell struct {
	Q         int     `json:"q"`
	R         int     `json:"r"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Customers int     `json:"customers"`
	Churned   int     `json:"churned"`
	ChurnRate float64 `json:"churn_rate"`
}

// Layer is everything a map widget needs to draw one city.
type Layer struct {
	City   string  `json:"city"`
	Mode   string  `json:"mode"`
	View   View    `json:"view"`
	Radius float64 `json:"radius"`
	Points []Point `json:"points,omitempty"`
	Cells  []Cell  `json:"cells,omitempty"`
}

// MapLayer builds the layer for a city. scatter returns every customer
// coloured by outcome, heatmap returns churned customers weighted by their
// monthly charges, hexagon bins customers into cells.
func MapLayer(t *data.Table, city, mode string) (Layer, error) {
	var rows []*data.Customer
	for i := range t.Records {
		if t.Records[i].City == city {
			rows = append(rows, &t.Records[i])
		}
	}
	if len(rows) == 0 {
		return Layer{}, fmt.Errorf("%w: %q", ErrNoCustomers, city)
	}

	layer := Layer{City: city, Mode: mode, View: View{Zoom: 11, Pitch: 50}}
	for _, c := range rows {
		layer.View.Latitude += c.Latitude
		layer.View.Longitude += c.Longitude
	}
	layer.View.Latitude /= float64(len(rows))
	layer.View.Longitude /= float64(len(rows))

	switch mode {
	case ModeScatter:
		layer.Radius = 50
		for _, c := range rows {
			p := point(c)
			p.Weight = 1
			layer.Points = append(layer.Points, p)
		}
	case ModeHeatmap:
		layer.View.Pitch = 0
		for _, c := range rows {
			if c.Churn != 1 {
				continue
			}
			p := point(c)
			p.Weight = 1
			if !data.IsMissing(c.MonthlyCharges) {
				p.Weight = c.MonthlyCharges
			}
			layer.Points = append(layer.Points, p)
		}
	case ModeHexagon:
		layer.Radius = DefaultHexRadius
		layer.Cells = hexBin(rows, DefaultHexRadius)
	default:
		return Layer{}, apperr.NewInvalidInputError([]string{fmt.Sprintf("unknown map mode %q", mode)})
	}
	return layer, nil
}

func point(c *data.Customer) Point {
	p := Point{
		CustomerID:     c.CustomerID,
		Latitude:       c.Latitude,
		Longitude:      c.Longitude,
		MonthlyCharges: c.MonthlyCharges,
		Churned:        c.Churn == 1,
		Color:          colorActive,
	}
	if math.IsNaN(p.MonthlyCharges) {
		p.MonthlyCharges = 0
	}
	if p.Churned {
		p.Color = colorChurned
	}
	return p
}

// hexBin assigns points to a pointy-top hexagonal grid with axial
// coordinates, treating longitude as x and latitude as y.
func hexBin(rows []*data.Customer, size float64) []Cell {
	type key struct{ q, r int }
	idx := map[key]int{}
	var out []Cell
	for _, c := range rows {
		q, r := hexRound(
			(math.Sqrt(3)/3*c.Longitude-c.Latitude/3)/size,
			(2.0/3*c.Latitude)/size,
		)
		k := key{q, r}
		j, ok := idx[k]
		if !ok {
			j = len(out)
			idx[k] = j
			out = append(out, Cell{
				Q:         q,
				R:         r,
				Longitude: size * math.Sqrt(3) * (float64(q) + float64(r)/2),
				Latitude:  size * 1.5 * float64(r),
			})
		}
		out[j].Customers++
		out[j].Churned += c.Churn
	}
	for j := range out {
		out[j].ChurnRate = float64(out[j].Churned) / float64(out[j].Customers)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Customers != out[b].Customers {
			return out[a].Customers > out[b].Customers
		}
		if out[a].Q != out[b].Q {
			return out[a].Q < out[b].Q
		}
		return out[a].R < out[b].R
	})
	return out
}

// hexRound rounds fractional axial coordinates to the containing hexagon.
func hexRound(q, r float64) (int, int) {
	s := -q - r
	rq, rr, rs := math.Round(q), math.Round(r), math.Round(s)
	dq, dr, ds := math.Abs(rq-q), math.Abs(rr-r), math.Abs(rs-s)
	switch {
	case dq > dr && dq > ds:
		rq = -rr - rs
	case dr > ds:
		rr = -rq - rs
	}
	return int(rq), int(rr)
}
