package dashboard

import "math"

const (
	// LargeRadius is used for the percentage circles (C level).
	LargeRadius = 40.0
	// SmallRadius is used for the overall rating circles.
	SmallRadius = 30.0

	RatingScale = 5.0
)

// StrokeGeometry holds the SVG stroke-dasharray / stroke-dashoffset pair that
// draws a circular progress arc.
type StrokeGeometry struct {
	DashArray  float64 `json:"dashArray"`
	DashOffset float64 `json:"dashOffset"`
}

// ComputeStroke derives the arc for a 0-100 percentage on a circle of the
// given radius. Percentages outside [0,100] are clamped so the arc never
// overdraws or runs backwards.
func ComputeStroke(percent, radius float64) StrokeGeometry {
	circumference := 2 * math.Pi * radius
	return StrokeGeometry{
		DashArray:  circumference,
		DashOffset: circumference - (ClampPercent(percent)/100.0)*circumference,
	}
}

// RatingPercent maps a rating on a scale (5 when scale <= 0) to 0-100.
func RatingPercent(rating, scale float64) float64 {
	if scale <= 0 {
		scale = RatingScale
	}
	return rating / scale * 100.0
}

func ClampPercent(percent float64) float64 {
	if math.IsNaN(percent) {
		return 0
	}
	return math.Min(100, math.Max(0, percent))
}
