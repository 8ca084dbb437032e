package storage

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"trendpulse/internal/domain/content"
)

// RawStore persists raw payload envelopes as one JSON file per content
// id, with an in-memory index in front of the durable files. The index
// is only updated after the durable write succeeds, so it never claims
// presence of data that failed to persist.
type RawStore struct {
	log *zap.Logger
	dir string

	mu    sync.RWMutex
	index map[string]content.RawRecord

	now func() time.Time
}

// NewRawStore creates a raw store rooted at dir, creating it if needed
func NewRawStore(log *zap.Logger, dir string) (*RawStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &RawStore{
		log:   log,
		dir:   dir,
		index: make(map[string]content.RawRecord),
		now:   time.Now,
	}, nil
}

// Put writes an envelope for the payload and indexes it. Payloads that
// carry the same native id map to the same content id, so re-storing is
// idempotent: the existing envelope is overwritten in place.
func (s *RawStore) Put(platform content.Platform, payload map[string]interface{}) (string, error) {
	id := contentID(platform, payload, s.now())

	record := content.RawRecord{
		ID:        id,
		Platform:  platform,
		Payload:   payload,
		ScrapedAt: s.now().UTC(),
	}

	// Durable write first, index second
	if err := s.writeRecord(record); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.index[id] = record
	s.mu.Unlock()

	s.log.Debug("raw content stored",
		zap.String("contentId", id),
		zap.String("platform", string(platform)),
	)

	return id, nil
}

// Get returns the payload stored under id, checking the index first and
// falling back to the durable file. Absence is reported via the boolean,
// never as an error.
func (s *RawStore) Get(id string) (map[string]interface{}, bool, error) {
	s.mu.RLock()
	record, ok := s.index[id]
	s.mu.RUnlock()
	if ok {
		return record.Payload, true, nil
	}

	data, err := os.ReadFile(s.recordPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading envelope %s: %w", id, err)
	}

	var stored content.RawRecord
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, false, fmt.Errorf("decoding envelope %s: %w", id, err)
	}

	return stored.Payload, true, nil
}

// Purge removes every envelope whose scrape time is older than the
// retention window, from both durable storage and the index, and returns
// how many were removed. Each file is removed before its index entry, so
// an envelope that could not be removed stays indexed and readable.
func (s *RawStore) Purge(retentionDays int) (int, error) {
	cutoff := s.now().UTC().AddDate(0, 0, -retentionDays)

	s.mu.RLock()
	expired := make([]string, 0)
	for id, record := range s.index {
		if record.ScrapedAt.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	s.mu.RUnlock()

	removed := 0
	for _, id := range expired {
		if err := os.Remove(s.recordPath(id)); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("removing envelope %s: %w", id, err)
		}
		s.mu.Lock()
		delete(s.index, id)
		s.mu.Unlock()
		removed++
	}

	s.log.Info("retention purge complete",
		zap.Int("removedCount", removed),
		zap.Int("retentionDays", retentionDays),
	)

	return removed, nil
}

func (s *RawStore) writeRecord(record content.RawRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding envelope %s: %w", record.ID, err)
	}

	if err := os.WriteFile(s.recordPath(record.ID), data, 0o644); err != nil {
		return fmt.Errorf("writing envelope %s: %w", record.ID, err)
	}

	return nil
}

func (s *RawStore) recordPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// contentID derives a deterministic id for the payload: platform plus
// native id when the payload carries one, otherwise platform plus scrape
// timestamp plus a hash of the whole payload.
func contentID(platform content.Platform, payload map[string]interface{}, now time.Time) string {
	var combined string
	if nativeID := nativeID(payload); nativeID != "" {
		combined = fmt.Sprintf("%s_%s", platform, nativeID)
	} else {
		combined = fmt.Sprintf("%s_%d_%s", platform, now.UnixNano(), payloadHash(payload))
	}

	sum := md5.Sum([]byte(combined))
	return hex.EncodeToString(sum[:])
}

func nativeID(payload map[string]interface{}) string {
	switch v := payload["id"].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case int:
		return strconv.Itoa(v)
	}
	return ""
}

func payloadHash(payload map[string]interface{}) string {
	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
