package model

import (
	"math"
	"time"
)

// Minutes converts a duration to fractional minutes
func Minutes(d time.Duration) float64 {
	return d.Seconds() / 60
}

// Round2 rounds to two decimal places
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CalculateCost returns timeSpent (minutes) priced at hourlyRate, rounded to
// two decimals. It is zero when either input is absent.
func CalculateCost(timeSpent float64, hourlyRate *float64) float64 {
	if hourlyRate == nil || *hourlyRate == 0 || timeSpent == 0 {
		return 0
	}
	return Round2(timeSpent / 60 * *hourlyRate)
}

// TimeSpentFrom sums the durations of closed sessions. Open sessions never
// count toward the total.
func TimeSpentFrom(records []TimeTrackingRecord) float64 {
	var total float64
	for _, r := range records {
		if r.Open() {
			continue
		}
		total += r.Duration
	}
	return total
}

// Derive recomputes every derived field on t from its inputs. All mutation
// paths go through here.
func (t *Task) Derive(fromHistory bool) {
	if fromHistory {
		t.TimeSpent = TimeSpentFrom(t.TimeTracking)
	}
	t.Cost = CalculateCost(t.TimeSpent, t.HourlyRate)
}
