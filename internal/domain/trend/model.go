package trend

import (
	"time"
)

// Signal represents a detected volume surge for a single tag. Signals
// are produced per detection call; persistence of emitted signals is a
// concern of the orchestration layer, not the detector.
type Signal struct {
	Name             string    `json:"name"`
	CurrentVolume    int       `json:"current_volume"`
	HistoricalVolume int       `json:"historical_volume"`
	GrowthRate       float64   `json:"growth_rate"`
	DetectedAt       time.Time `json:"detected_at"`
}

// Filter defines criteria for querying persisted signal history
type Filter struct {
	MinGrowthRate float64
	Since         time.Time
	Limit         int
}
