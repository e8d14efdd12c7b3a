package report

import (
	"github.com/clinsight/clinsight/internal/domain/match"
	"github.com/clinsight/clinsight/internal/platform/jpcal"
)

// Slot is one weekday/hour cell of the demand-and-revenue grid. The full
// 8x24 grid is always emitted; zero-demand cells are well-defined.
type Slot struct {
	Weekday string `json:"weekday"`
	Hour    int    `json:"hour"`
	Visits  int    `json:"visits"`
	Points  int    `json:"points"`
}

type gridKey struct {
	weekday string
	hour    int
}

// Slots aggregates matched visits into the weekday/hour grid. Only visits
// whose reservation pairing recovered an hour contribute; unmatched visits
// have no slot to land in.
func Slots(matched []match.MatchedVisit) []Slot {
	type cell struct{ visits, points int }
	grid := make(map[gridKey]*cell)

	for _, mv := range matched {
		if mv.Reservation == nil || mv.Hour < 0 || mv.Weekday == "" {
			continue
		}
		k := gridKey{mv.Weekday, mv.Hour}
		c := grid[k]
		if c == nil {
			c = &cell{}
			grid[k] = c
		}
		c.visits++
		c.points += mv.Visit.Points
	}

	out := make([]Slot, 0, 8*24)
	for _, wd := range jpcal.Buckets() {
		for hour := 0; hour < 24; hour++ {
			s := Slot{Weekday: wd.String(), Hour: hour}
			if c := grid[gridKey{wd.String(), hour}]; c != nil {
				s.Visits = c.visits
				s.Points = c.points
			}
			out = append(out, s)
		}
	}
	return out
}
