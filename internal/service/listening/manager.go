package listening

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"trendpulse/internal/domain/content"
	"trendpulse/internal/domain/trend"
)

// SignalStore defines persistence for emitted signals
type SignalStore interface {
	SaveSignal(ctx context.Context, sig trend.Signal) error
}

// ManagerConfig contains configuration for the pipeline manager
type ManagerConfig struct {
	// ScanInterval drives the periodic fetch loop; zero disables it
	ScanInterval time.Duration

	// ScanQuery is the search query used by the periodic fetch loop
	ScanQuery string

	// FetchBatchSize is how many records to request per source fetch
	FetchBatchSize int

	// NormalizeWorkers bounds the concurrency of per-item normalization
	NormalizeWorkers int

	// RetentionDays is the raw envelope retention window
	RetentionDays int

	// PurgeInterval drives the periodic retention purge; zero disables it
	PurgeInterval time.Duration

	// EventsTopic is the NATS subject prefix for emitted signals
	EventsTopic string
}

// Stats tracks per-platform scrape counters across pipeline runs
type Stats struct {
	TotalScraped   int            `json:"total_scraped"`
	ByPlatform     map[string]int `json:"by_platform"`
	SignalsEmitted int            `json:"signals_emitted"`
	LastRunAt      time.Time      `json:"last_run_at"`
}

// Manager wires the ingest pipeline: raw records are persisted, then
// normalized concurrently, then run through trend detection; emitted
// signals are persisted, published to the event bus and handed to
// registered handlers. Pipeline runs are serialized per manager so the
// detector's baseline is only ever touched by one run at a time.
type Manager struct {
	log         *zap.Logger
	config      ManagerConfig
	normalizer  content.Normalizer
	detector    trend.Detector
	rawStore    content.Store
	signalStore SignalStore
	eventBus    *nats.Conn

	sourcesLock sync.RWMutex
	sources     map[content.Platform]Source

	mu       sync.RWMutex
	handlers []func(trend.Signal) error
	stats    Stats

	runMu  sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a pipeline manager. The signal store and event bus
// may be nil, in which case persistence and publishing are skipped.
func NewManager(
	log *zap.Logger,
	normalizer content.Normalizer,
	detector trend.Detector,
	rawStore content.Store,
	signalStore SignalStore,
	eventBus *nats.Conn,
	config ManagerConfig,
) *Manager {
	if config.FetchBatchSize <= 0 {
		config.FetchBatchSize = 50
	}
	if config.NormalizeWorkers <= 0 {
		config.NormalizeWorkers = 4
	}
	if config.EventsTopic == "" {
		config.EventsTopic = "trend"
	}

	return &Manager{
		log:         log,
		config:      config,
		normalizer:  normalizer,
		detector:    detector,
		rawStore:    rawStore,
		signalStore: signalStore,
		eventBus:    eventBus,
		sources:     make(map[content.Platform]Source),
		handlers:    []func(trend.Signal) error{},
		stats: Stats{
			ByPlatform: make(map[string]int),
		},
	}
}

// AddSource registers a platform source for the periodic scan loop
func (m *Manager) AddSource(source Source) {
	m.sourcesLock.Lock()
	m.sources[source.Name()] = source
	m.sourcesLock.Unlock()
}

// RegisterSignalHandler registers a callback invoked for every emitted
// signal
func (m *Manager) RegisterSignalHandler(handler func(trend.Signal) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handler)
}

// Ingest runs one pipeline pass over a batch of raw payloads: persist
// each payload's envelope, normalize the survivors concurrently, detect
// surges, then dispatch the emitted signals. A failed durable write
// drops that item from the run and leaves its siblings untouched.
func (m *Manager) Ingest(ctx context.Context, platform content.Platform, payloads []map[string]interface{}) ([]content.Item, []trend.Signal, error) {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	stored := make([]map[string]interface{}, 0, len(payloads))
	for _, payload := range payloads {
		if _, err := m.rawStore.Put(platform, payload); err != nil {
			m.log.Error("raw store write failed, skipping item",
				zap.String("platform", string(platform)),
				zap.Error(err),
			)
			continue
		}
		stored = append(stored, payload)
	}

	items := m.normalizeBatch(platform, stored)
	signals := m.detector.Detect(items)

	for _, sig := range signals {
		m.dispatchSignal(ctx, sig)
	}

	m.mu.Lock()
	m.stats.TotalScraped += len(items)
	m.stats.ByPlatform[string(platform)] += len(items)
	m.stats.SignalsEmitted += len(signals)
	m.stats.LastRunAt = time.Now().UTC()
	m.mu.Unlock()

	m.log.Info("pipeline run complete",
		zap.String("platform", string(platform)),
		zap.Int("rawCount", len(payloads)),
		zap.Int("storedCount", len(stored)),
		zap.Int("signalCount", len(signals)),
	)

	return items, signals, nil
}

// Scrape fetches a batch from the registered source for the platform and
// ingests it
func (m *Manager) Scrape(ctx context.Context, platform content.Platform, query string) ([]content.Item, []trend.Signal, error) {
	m.sourcesLock.RLock()
	source, ok := m.sources[platform]
	m.sourcesLock.RUnlock()

	if !ok {
		return nil, nil, fmt.Errorf("no source registered for platform %s", platform)
	}

	payloads, err := source.Fetch(ctx, query, m.config.FetchBatchSize)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching from %s: %w", platform, err)
	}

	return m.Ingest(ctx, platform, payloads)
}

// Stats returns a copy of the scrape counters
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byPlatform := make(map[string]int, len(m.stats.ByPlatform))
	for platform, count := range m.stats.ByPlatform {
		byPlatform[platform] = count
	}

	stats := m.stats
	stats.ByPlatform = byPlatform
	return stats
}

// Start launches the periodic scan and purge loops
func (m *Manager) Start(ctx context.Context) error {
	ctx, m.cancel = context.WithCancel(ctx)

	if m.config.ScanInterval > 0 {
		m.wg.Add(1)
		go m.scanLoop(ctx)
	}

	if m.config.PurgeInterval > 0 && m.config.RetentionDays > 0 {
		m.wg.Add(1)
		go m.purgeLoop(ctx)
	}

	return nil
}

// Stop cancels the background loops and waits for them to finish, up to
// the deadline of ctx
func (m *Manager) Stop(ctx context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) scanLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.scanSources(ctx)
		}
	}
}

func (m *Manager) scanSources(ctx context.Context) {
	m.sourcesLock.RLock()
	platforms := make([]content.Platform, 0, len(m.sources))
	for platform := range m.sources {
		platforms = append(platforms, platform)
	}
	m.sourcesLock.RUnlock()

	for _, platform := range platforms {
		if _, _, err := m.Scrape(ctx, platform, m.config.ScanQuery); err != nil {
			m.log.Error("scheduled scrape failed",
				zap.String("platform", string(platform)),
				zap.Error(err),
			)
		}
	}
}

func (m *Manager) purgeLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.PurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.rawStore.Purge(m.config.RetentionDays); err != nil {
				m.log.Error("retention purge failed", zap.Error(err))
			}
		}
	}
}

// normalizeBatch normalizes payloads concurrently. Items are independent,
// so the only coordination is the worker bound.
func (m *Manager) normalizeBatch(platform content.Platform, payloads []map[string]interface{}) []content.Item {
	items := make([]content.Item, len(payloads))

	var wg sync.WaitGroup
	sem := make(chan struct{}, m.config.NormalizeWorkers)

	for i, payload := range payloads {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, payload map[string]interface{}) {
			defer wg.Done()
			items[i] = m.normalizer.Normalize(platform, payload)
			<-sem
		}(i, payload)
	}
	wg.Wait()

	return items
}

// dispatchSignal persists, publishes and fans out one emitted signal.
// None of the three sinks can fail the pipeline run.
func (m *Manager) dispatchSignal(ctx context.Context, sig trend.Signal) {
	if m.signalStore != nil {
		if err := m.signalStore.SaveSignal(ctx, sig); err != nil {
			m.log.Error("failed to persist signal",
				zap.String("tag", sig.Name),
				zap.Error(err),
			)
		}
	}

	if err := m.publishSignal(sig); err != nil {
		m.log.Warn("failed to publish signal event",
			zap.String("tag", sig.Name),
			zap.Error(err),
		)
	}

	m.mu.RLock()
	handlers := make([]func(trend.Signal) error, len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(sig); err != nil {
			m.log.Warn("signal handler failed",
				zap.String("tag", sig.Name),
				zap.Error(err),
			)
		}
	}
}

func (m *Manager) publishSignal(sig trend.Signal) error {
	if m.eventBus == nil {
		return nil
	}

	data, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("encoding signal: %w", err)
	}

	subject := fmt.Sprintf("%s.detected", m.config.EventsTopic)
	return m.eventBus.Publish(subject, data)
}
