// Package history keeps the persisted list of recent queries and their results.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"truthlens/internal/logger"
	"truthlens/internal/models"
	"truthlens/internal/storage"

	"github.com/google/uuid"
)

const (
	// StorageKey is the fixed namespace the list is serialized under
	StorageKey = "truthlens:search-history"

	// MaxItems caps the list; the oldest entries are evicted first
	MaxItems = 10
)

// ErrItemNotFound is returned when an id matches no history entry
var ErrItemNotFound = errors.New("history item not found")

// Store owns the history list and is its only writer. Every mutation is
// written through to the key-value store before the lock is released.
type Store struct {
	mu       sync.RWMutex
	kv       storage.KeyValueStore
	items    []models.HistoryItem
	selected string
	now      func() time.Time
	newID    func() string
}

// Option customises a Store
type Option func(*Store)

// WithClock overrides the timestamp source
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides how entry ids are minted
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// NewStore loads the persisted list. Missing or unreadable data yields an empty history.
func NewStore(kv storage.KeyValueStore, opts ...Option) *Store {
	s := &Store{
		kv:  kv,
		now: func() time.Time { return time.Now().UTC() },
		newID: func() string {
			// v7 ids sort by creation time
			return uuid.Must(uuid.NewV7()).String()
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.items = s.load()
	return s
}

func (s *Store) load() []models.HistoryItem {
	raw, found, err := s.kv.Get(StorageKey)
	if err != nil {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"operation": "history_load",
			"key":       StorageKey,
		})
		return []models.HistoryItem{}
	}
	if !found || raw == "" {
		return []models.HistoryItem{}
	}

	var items []models.HistoryItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		logger.Log.WithFields(map[string]interface{}{
			"key":   StorageKey,
			"error": err.Error(),
		}).Warn("Stored history is malformed, starting with an empty list")
		return []models.HistoryItem{}
	}
	if len(items) > MaxItems {
		items = items[:MaxItems]
	}

	logger.Log.WithField("count", len(items)).Debug("History loaded")
	return items
}

// persistLocked serializes the full list. Callers must hold the write lock.
func (s *Store) persistLocked() error {
	data, err := json.Marshal(s.items)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	if err := s.kv.Set(StorageKey, string(data)); err != nil {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"operation": "history_persist",
			"key":       StorageKey,
			"count":     len(s.items),
		})
		return fmt.Errorf("failed to persist history: %w", err)
	}
	return nil
}

// Add records a new query at the head of the list and returns its id.
// The entry is kept in memory even when persisting fails.
func (s *Store) Add(query string, result *models.AnalysisResult) (string, error) {
	item := models.HistoryItem{
		ID:        s.newID(),
		Query:     query,
		Timestamp: s.now(),
		Kind:      models.ClassifyQuery(query),
		Result:    result,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]models.HistoryItem, 0, MaxItems)
	items = append(items, item)
	items = append(items, s.items...)
	if len(items) > MaxItems {
		items = items[:MaxItems]
	}
	s.items = items

	logger.Log.WithFields(map[string]interface{}{
		"history_id": item.ID,
		"kind":       item.Kind,
		"count":      len(s.items),
	}).Info("History item added")

	return item.ID, s.persistLocked()
}

// UpdateResult attaches a result to an entry. Unknown ids are ignored.
func (s *Store) UpdateResult(id string, result *models.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		logger.Log.WithField("history_id", id).Debug("No history item to attach result to")
		return nil
	}
	s.items[idx].Result = result
	return s.persistLocked()
}

// Clear empties the list and drops any pending selection
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = []models.HistoryItem{}
	s.selected = ""
	logger.Log.Info("History cleared")
	return s.persistLocked()
}

// GetByID looks an entry up without mutating anything
func (s *Store) GetByID(id string) (models.HistoryItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return models.HistoryItem{}, false
	}
	return s.items[idx], true
}

// List returns the entries, most recent first
func (s *Store) List() []models.HistoryItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]models.HistoryItem, len(s.items))
	copy(items, s.items)
	return items
}

// Len returns the number of entries
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Select marks an entry as the one the UI should display next
func (s *Store) Select(id string) (models.HistoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return models.HistoryItem{}, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	s.selected = id
	return s.items[idx], nil
}

// Selected peeks at the current selection. A selection whose entry has since
// been evicted reads as empty.
func (s *Store) Selected() (models.HistoryItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexLocked(s.selected)
	if s.selected == "" || idx < 0 {
		return models.HistoryItem{}, false
	}
	return s.items[idx], true
}

// ConsumeSelection returns the current selection and clears the slot
func (s *Store) ConsumeSelection() (models.HistoryItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.selected
	s.selected = ""
	idx := s.indexLocked(id)
	if id == "" || idx < 0 {
		return models.HistoryItem{}, false
	}
	return s.items[idx], true
}

// ClearSelection empties the selection slot
func (s *Store) ClearSelection() {
	s.mu.Lock()
	s.selected = ""
	s.mu.Unlock()
}

func (s *Store) indexLocked(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}
