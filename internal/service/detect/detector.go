package detect

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"trendpulse/internal/domain/content"
	"trendpulse/internal/domain/trend"
)

// DetectorConfig contains configuration for the surge detector
type DetectorConfig struct {
	// GrowthFactor is how far current volume must exceed the baseline
	// (strictly greater than GrowthFactor * historical)
	GrowthFactor float64

	// MinVolume rejects low-volume noise: current volume must strictly
	// exceed it regardless of history
	MinVolume int

	// TopN is how many of the most frequent tags are considered per batch
	TopN int
}

// DefaultDetectorConfig returns the default detection thresholds
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		GrowthFactor: 2.0,
		MinVolume:    5,
		TopN:         20,
	}
}

// Detector compares current hashtag volume against the counts observed
// in the previous batch and emits a signal for every tag that surged.
// The baseline is a one-call memory: each Detect call overwrites it with
// the current batch, so a spike stops triggering once the baseline
// catches up.
type Detector struct {
	log    *zap.Logger
	config DetectorConfig

	mu         sync.Mutex
	historical map[string]int
}

// NewDetector creates a surge detector with an empty baseline
func NewDetector(log *zap.Logger, config DetectorConfig) *Detector {
	if config.GrowthFactor <= 0 {
		config.GrowthFactor = 2.0
	}
	if config.MinVolume <= 0 {
		config.MinVolume = 5
	}
	if config.TopN <= 0 {
		config.TopN = 20
	}

	return &Detector{
		log:        log,
		config:     config,
		historical: make(map[string]int),
	}
}

// Detect tallies hashtag frequency across the batch, evaluates the top
// candidates against the baseline and returns the emitted signals. The
// baseline is updated with every tallied tag's count afterwards, whether
// or not a signal was emitted for it. An empty batch leaves the baseline
// untouched.
func (d *Detector) Detect(items []content.Item) []trend.Signal {
	counts := make(map[string]int)
	order := make([]string, 0)

	for _, item := range items {
		for _, tag := range item.Entities.Hashtags {
			if tag == "" {
				continue
			}
			if _, seen := counts[tag]; !seen {
				order = append(order, tag)
			}
			counts[tag]++
		}
	}

	signals := []trend.Signal{}
	if len(counts) == 0 {
		return signals
	}

	// Rank by count; stable sort keeps first-appearance order for ties.
	ranked := make([]string, len(order))
	copy(ranked, order)
	sort.SliceStable(ranked, func(i, j int) bool {
		return counts[ranked[i]] > counts[ranked[j]]
	})
	if len(ranked) > d.config.TopN {
		ranked = ranked[:d.config.TopN]
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	detectedAt := time.Now().UTC()
	for _, tag := range ranked {
		current := counts[tag]
		historical := d.historical[tag]

		if float64(current) <= d.config.GrowthFactor*float64(historical) || current <= d.config.MinVolume {
			continue
		}

		baseline := historical
		if baseline < 1 {
			baseline = 1
		}

		signals = append(signals, trend.Signal{
			Name:             tag,
			CurrentVolume:    current,
			HistoricalVolume: historical,
			GrowthRate:       float64(current-historical) / float64(baseline),
			DetectedAt:       detectedAt,
		})
	}

	// Today's counts become tomorrow's baseline, for every tag observed
	// in the batch, not just the ranked ones.
	for tag, count := range counts {
		d.historical[tag] = count
	}

	d.log.Debug("trend detection pass",
		zap.Int("itemCount", len(items)),
		zap.Int("uniqueHashtags", len(counts)),
		zap.Int("emittedSignals", len(signals)),
	)

	return signals
}

// Baseline returns the last observed count for a tag (zero when the tag
// has never been seen)
func (d *Detector) Baseline(tag string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.historical[tag]
}
