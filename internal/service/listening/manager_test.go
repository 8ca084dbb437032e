package listening

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trendpulse/internal/domain/content"
	"trendpulse/internal/domain/trend"
	"trendpulse/internal/service/detect"
	"trendpulse/internal/service/normalize"
)

// memStore is an in-memory content.Store; ids follow the platform+native
// id rule closely enough for pipeline tests
type memStore struct {
	mu      sync.Mutex
	records map[string]map[string]interface{}
	failOn  string
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]map[string]interface{})}
}

func (s *memStore) Put(platform content.Platform, payload map[string]interface{}) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nativeID, _ := payload["id"].(string)
	if s.failOn != "" && nativeID == s.failOn {
		return "", errors.New("disk full")
	}

	id := fmt.Sprintf("%s_%s", platform, nativeID)
	s.records[id] = payload
	return id, nil
}

func (s *memStore) Get(id string) (map[string]interface{}, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.records[id]
	return payload, ok, nil
}

func (s *memStore) Purge(retentionDays int) (int, error) {
	return 0, nil
}

// capturingSignalStore records every persisted signal
type capturingSignalStore struct {
	mu     sync.Mutex
	saved  []trend.Signal
	failed bool
}

func (c *capturingSignalStore) SaveSignal(_ context.Context, sig trend.Signal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failed {
		return errors.New("db down")
	}
	c.saved = append(c.saved, sig)
	return nil
}

// stubSource returns a fixed batch of raw records
type stubSource struct {
	platform content.Platform
	records  []map[string]interface{}
	err      error
}

func (s *stubSource) Name() content.Platform { return s.platform }

func (s *stubSource) Fetch(_ context.Context, _ string, _ int) ([]map[string]interface{}, error) {
	return s.records, s.err
}

func tweetRecord(nativeID, text string) map[string]interface{} {
	return map[string]interface{}{
		"id":   nativeID,
		"text": text,
		"user": map[string]interface{}{"id": "author"},
	}
}

func newTestManager(store content.Store, signals SignalStore, cfg ManagerConfig) *Manager {
	normalizer := normalize.NewNormalizer(normalize.NewEntityExtractor())
	detector := detect.NewDetector(zap.NewNop(), detect.DefaultDetectorConfig())
	return NewManager(zap.NewNop(), normalizer, detector, store, signals, nil, cfg)
}

func TestIngest_EndToEnd(t *testing.T) {
	store := newMemStore()
	signalStore := &capturingSignalStore{}
	manager := newTestManager(store, signalStore, ManagerConfig{})

	var handled []trend.Signal
	manager.RegisterSignalHandler(func(sig trend.Signal) error {
		handled = append(handled, sig)
		return nil
	})

	payloads := make([]map[string]interface{}, 0, 6)
	for i := 0; i < 6; i++ {
		payloads = append(payloads, tweetRecord(fmt.Sprintf("t%d", i), "big news #launch"))
	}

	items, signals, err := manager.Ingest(context.Background(), content.PlatformTwitter, payloads)
	require.NoError(t, err)

	require.Len(t, items, 6)
	for _, item := range items {
		assert.Equal(t, []string{"launch"}, item.Entities.Hashtags)
		assert.Equal(t, "author", item.AuthorID)
	}

	require.Len(t, signals, 1)
	assert.Equal(t, "launch", signals[0].Name)
	assert.Equal(t, 6, signals[0].CurrentVolume)

	// Raw envelopes persisted, signal persisted and handled
	assert.Len(t, store.records, 6)
	assert.Equal(t, signals, signalStore.saved)
	assert.Equal(t, signals, handled)

	stats := manager.Stats()
	assert.Equal(t, 6, stats.TotalScraped)
	assert.Equal(t, 6, stats.ByPlatform["twitter"])
	assert.Equal(t, 1, stats.SignalsEmitted)
	assert.False(t, stats.LastRunAt.IsZero())
}

func TestIngest_StorageFailureIsolatedPerItem(t *testing.T) {
	store := newMemStore()
	store.failOn = "bad"
	manager := newTestManager(store, nil, ManagerConfig{})

	payloads := []map[string]interface{}{
		tweetRecord("ok1", "#x"),
		tweetRecord("bad", "#x"),
		tweetRecord("ok2", "#x"),
	}

	items, _, err := manager.Ingest(context.Background(), content.PlatformTwitter, payloads)
	require.NoError(t, err)

	// The failed item is dropped; its siblings survive
	assert.Len(t, items, 2)
	assert.Len(t, store.records, 2)
}

func TestIngest_SignalStoreFailureDoesNotFailRun(t *testing.T) {
	store := newMemStore()
	signalStore := &capturingSignalStore{failed: true}
	manager := newTestManager(store, signalStore, ManagerConfig{})

	payloads := make([]map[string]interface{}, 0, 6)
	for i := 0; i < 6; i++ {
		payloads = append(payloads, tweetRecord(fmt.Sprintf("s%d", i), "#surge"))
	}

	_, signals, err := manager.Ingest(context.Background(), content.PlatformTwitter, payloads)
	require.NoError(t, err)
	assert.Len(t, signals, 1)
}

func TestIngest_EmptyBatch(t *testing.T) {
	manager := newTestManager(newMemStore(), nil, ManagerConfig{})

	items, signals, err := manager.Ingest(context.Background(), content.PlatformTwitter, nil)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, signals)
}

func TestScrape_UsesRegisteredSource(t *testing.T) {
	store := newMemStore()
	manager := newTestManager(store, nil, ManagerConfig{})

	records := make([]map[string]interface{}, 0, 7)
	for i := 0; i < 7; i++ {
		records = append(records, tweetRecord(fmt.Sprintf("r%d", i), "watch #viral now"))
	}
	manager.AddSource(&stubSource{platform: content.PlatformTwitter, records: records})

	items, signals, err := manager.Scrape(context.Background(), content.PlatformTwitter, "#viral")
	require.NoError(t, err)
	assert.Len(t, items, 7)
	require.Len(t, signals, 1)
	assert.Equal(t, "viral", signals[0].Name)
}

func TestScrape_UnknownPlatform(t *testing.T) {
	manager := newTestManager(newMemStore(), nil, ManagerConfig{})

	_, _, err := manager.Scrape(context.Background(), content.PlatformTikTok, "query")
	assert.Error(t, err)
}

func TestScrape_SourceFailureSurfaces(t *testing.T) {
	manager := newTestManager(newMemStore(), nil, ManagerConfig{})
	manager.AddSource(&stubSource{platform: content.PlatformTwitter, err: errors.New("rate limited")})

	_, _, err := manager.Scrape(context.Background(), content.PlatformTwitter, "anything")
	assert.ErrorContains(t, err, "rate limited")
}

func TestDetectorBaselinePersistsAcrossRuns(t *testing.T) {
	store := newMemStore()
	manager := newTestManager(store, nil, ManagerConfig{})

	batch := func(run int) []map[string]interface{} {
		payloads := make([]map[string]interface{}, 0, 6)
		for i := 0; i < 6; i++ {
			payloads = append(payloads, tweetRecord(fmt.Sprintf("run%d-%d", run, i), "#steady"))
		}
		return payloads
	}

	_, first, err := manager.Ingest(context.Background(), content.PlatformTwitter, batch(1))
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Same volume again: the first run's count is now the baseline
	_, second, err := manager.Ingest(context.Background(), content.PlatformTwitter, batch(2))
	require.NoError(t, err)
	assert.Empty(t, second)
}
