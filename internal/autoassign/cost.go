package autoassign

import (
	"fmt"
	"math"

	"github.com/curbsideops/dispatch-backend/pkg/routing"
)

// Metric selects which insertion-cost dimension ranks candidate days.
type Metric string

const (
	MetricDistance Metric = "distance"
	MetricTime     Metric = "time"
	MetricBoth     Metric = "both"
)

// ParseMetric converts raw config input into a Metric.
func ParseMetric(value string) (Metric, error) {
	switch Metric(value) {
	case MetricDistance, MetricTime, MetricBoth:
		return Metric(value), nil
	}
	return "", fmt.Errorf("invalid optimization metric %q", value)
}

// defaultTravelSpeedKMH converts detour distance into detour time when the
// provider's routes carry geometry but no per-insertion timing.
const defaultTravelSpeedKMH = 30.0

// DayCost is the marginal cost of inserting an address into the best-fit
// route of one pickup day.
type DayCost struct {
	Day          string  `json:"day"`
	ExtraKM      float64 `json:"extra_km"`
	ExtraMinutes float64 `json:"extra_minutes"`
}

// score collapses a cost to a single comparable number under the metric.
// Under both, minutes are converted to km-equivalents and averaged in.
func (c DayCost) score(metric Metric) float64 {
	switch metric {
	case MetricDistance:
		return c.ExtraKM
	case MetricTime:
		return c.ExtraMinutes
	default:
		kmEquivalent := c.ExtraMinutes * defaultTravelSpeedKMH / 60
		return (c.ExtraKM + kmEquivalent) / 2
	}
}

// withinThresholds applies the auto-approval gates. The gates are independent
// AND conditions: exceeding either dimension alone forces manual review. A
// threshold of zero means that dimension is unconstrained.
func withinThresholds(cost DayCost, maxKM, maxMinutes float64) bool {
	if maxKM > 0 && cost.ExtraKM > maxKM {
		return false
	}
	if maxMinutes > 0 && cost.ExtraMinutes > maxMinutes {
		return false
	}
	return true
}

// insertionCostKM returns the cheapest detour for visiting (lat, lng) along
// the route: either spliced between two consecutive stops, or as an
// out-and-back spur from a single stop. The second return is false when the
// route carries no usable stop geometry.
func insertionCostKM(route routing.DriverRoute, lat, lng float64) (float64, bool) {
	located := make([]routing.RouteStop, 0, len(route.Stops))
	for _, stop := range route.Stops {
		if stop.Lat == 0 && stop.Lng == 0 {
			continue
		}
		located = append(located, stop)
	}
	if len(located) == 0 {
		return 0, false
	}

	best := math.MaxFloat64
	for i, stop := range located {
		spur := 2 * routing.HaversineKM(stop.Lat, stop.Lng, lat, lng)
		if spur < best {
			best = spur
		}
		if i+1 < len(located) {
			next := located[i+1]
			splice := routing.HaversineKM(stop.Lat, stop.Lng, lat, lng) +
				routing.HaversineKM(lat, lng, next.Lat, next.Lng) -
				routing.HaversineKM(stop.Lat, stop.Lng, next.Lat, next.Lng)
			if splice < best {
				best = splice
			}
		}
	}
	return best, true
}
