package models

import "sort"

// GradeBand maps totals at or above MinScore to a grade and point
type GradeBand struct {
	MinScore float64 `json:"minScore" db:"min_score"`
	Grade    string  `json:"grade" db:"grade"`
	Point    float64 `json:"point" db:"point"`
}

// DefaultGradeBands is used when no grading scheme is configured
var DefaultGradeBands = []GradeBand{
	{MinScore: 80, Grade: "A", Point: 4.0},
	{MinScore: 75, Grade: "B+", Point: 3.5},
	{MinScore: 70, Grade: "B", Point: 3.0},
	{MinScore: 65, Grade: "C+", Point: 2.5},
	{MinScore: 60, Grade: "C", Point: 2.0},
	{MinScore: 0, Grade: "F", Point: 0.0},
}

// SortBands returns a copy ordered by MinScore descending
func SortBands(bands []GradeBand) []GradeBand {
	sorted := make([]GradeBand, len(bands))
	copy(sorted, bands)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinScore > sorted[j].MinScore
	})
	return sorted
}

// LookupGrade picks the band with the highest MinScore not above total.
// ok is false when total is below every band.
func LookupGrade(bands []GradeBand, total float64) (band GradeBand, ok bool) {
	if len(bands) == 0 {
		bands = DefaultGradeBands
	}
	for _, b := range SortBands(bands) {
		if total >= b.MinScore {
			return b, true
		}
	}
	return GradeBand{}, false
}
