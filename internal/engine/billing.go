package engine

import (
	"math"
	"time"
)

// Cost maps a parked interval and an hourly rate to a monetary amount,
// rounded half-up to two decimal places.
//
// Caller contract: start must not be after end (Claim/Release clamp a
// skewed interval to zero before calling) and hourlyRate must be
// non-negative (validated when the lot is created or updated).
func Cost(start, end time.Time, hourlyRate float64) float64 {
	hours := end.Sub(start).Seconds() / 3600.0
	return math.Round(hours*hourlyRate*100) / 100
}
