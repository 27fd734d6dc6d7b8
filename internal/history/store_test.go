package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"truthlens/internal/models"
	"truthlens/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockKeyValueStore for testing persistence failures
type MockKeyValueStore struct {
	mock.Mock
}

func (m *MockKeyValueStore) Get(key string) (string, bool, error) {
	args := m.Called(key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockKeyValueStore) Set(key, value string) error {
	args := m.Called(key, value)
	return args.Error(0)
}

// sequentialIDs returns an id generator producing id-1, id-2, ...
func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func fixedClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Minute)
		return current
	}
}

func newTestStore(kv storage.KeyValueStore) *Store {
	return NewStore(kv,
		WithIDGenerator(sequentialIDs()),
		WithClock(fixedClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))),
	)
}

func sampleResult(verdict models.Verdict) *models.AnalysisResult {
	return &models.AnalysisResult{
		Verdict:          verdict,
		CredibilityScore: 81,
		SourceVerification: models.SourceVerification{
			TotalSourcesChecked:      2,
			ConfirmingSources:        1,
			CrossPlatformConsistency: 50,
			TrustedSources: []models.TrustedSourceCheck{
				{Name: "NDTV", URL: "https://ndtv.com", Found: true, MatchScore: 77, ReportType: models.ReportConfirms, Snippet: "Official statements corroborate these claims..."},
				{Name: "PTI News", URL: "https://ptinews.com", ReportType: models.ReportNotFound},
			},
		},
		AIAnalysis: models.AIAnalysis{
			LanguagePatterns:      models.ScoredFindings{Score: 80, Findings: []string{"a"}},
			ClaimConsistency:      models.ScoredFindings{Score: 70, Findings: []string{"b"}},
			EmotionalTone:         models.ToneFindings{Score: 65, Tone: "neutral", Findings: []string{"c"}},
			CredibilityIndicators: models.ScoredFindings{Score: 90, Findings: []string{"d"}},
		},
		Summary:         "summary",
		Recommendations: []string{"one", "two"},
	}
}

func TestStore_Add(t *testing.T) {
	store := newTestStore(storage.NewMemoryStore())

	id, err := store.Add("https://news.example.com/breaking-story-2024", nil)
	require.NoError(t, err)
	assert.Equal(t, "id-1", id)

	item, ok := store.GetByID(id)
	require.True(t, ok)
	assert.Equal(t, models.QueryKindURL, item.Kind)
	assert.Equal(t, "https://news.example.com/breaking-story-2024", item.Query)
	assert.Nil(t, item.Result)
	assert.Equal(t, time.Date(2024, 6, 1, 12, 1, 0, 0, time.UTC), item.Timestamp)

	id, err = store.Add("Scientists discover high water content in Mars samples", sampleResult(models.VerdictReal))
	require.NoError(t, err)
	item, _ = store.GetByID(id)
	assert.Equal(t, models.QueryKindText, item.Kind)
	require.NotNil(t, item.Result)
	assert.Equal(t, models.VerdictReal, item.Result.Verdict)
}

func TestStore_Add_CapsAtMostRecentTen(t *testing.T) {
	store := newTestStore(storage.NewMemoryStore())

	for i := 1; i <= 25; i++ {
		_, err := store.Add(fmt.Sprintf("query %d", i), nil)
		require.NoError(t, err)
		assert.LessOrEqual(t, store.Len(), MaxItems)
	}

	items := store.List()
	require.Len(t, items, MaxItems)
	for i, item := range items {
		assert.Equal(t, fmt.Sprintf("query %d", 25-i), item.Query, "position %d", i)
		if i > 0 {
			assert.True(t, items[i-1].Timestamp.After(item.Timestamp))
		}
	}

	_, ok := store.GetByID("id-15")
	assert.False(t, ok, "oldest entries are evicted")
	_, ok = store.GetByID("id-16")
	assert.True(t, ok)
}

func TestStore_UpdateResult(t *testing.T) {
	kv := storage.NewMemoryStore()
	store := newTestStore(kv)

	id, err := store.Add("claim", nil)
	require.NoError(t, err)
	result := sampleResult(models.VerdictMisleading)

	require.NoError(t, store.UpdateResult(id, result))
	once := store.List()
	persistedOnce, _, _ := kv.Get(StorageKey)

	require.NoError(t, store.UpdateResult(id, result))
	assert.Equal(t, once, store.List(), "second update must not change state")
	persistedTwice, _, _ := kv.Get(StorageKey)
	assert.Equal(t, persistedOnce, persistedTwice)

	item, _ := store.GetByID(id)
	assert.Same(t, result, item.Result)
}

func TestStore_UpdateResult_UnknownIDIsNoop(t *testing.T) {
	kv := &MockKeyValueStore{}
	kv.On("Get", StorageKey).Return("", false, nil)
	store := newTestStore(kv)

	err := store.UpdateResult("does-not-exist", sampleResult(models.VerdictFake))

	assert.NoError(t, err)
	assert.Equal(t, 0, store.Len())
	kv.AssertNotCalled(t, "Set", mock.Anything, mock.Anything)
}

func TestStore_Clear(t *testing.T) {
	kv := storage.NewMemoryStore()
	store := newTestStore(kv)
	id, _ := store.Add("first", nil)
	_, _ = store.Add("second", nil)
	_, err := store.Select(id)
	require.NoError(t, err)

	require.NoError(t, store.Clear())

	assert.Empty(t, store.List())
	_, ok := store.Selected()
	assert.False(t, ok)
	raw, found, err := kv.Get(StorageKey)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "[]", raw)
}

func TestStore_PersistenceRoundTrip(t *testing.T) {
	kv := storage.NewMemoryStore()
	store := NewStore(kv)

	urlID, err := store.Add("https://worldreport.org/economy-update", sampleResult(models.VerdictReal))
	require.NoError(t, err)
	textID, err := store.Add("Government announces new climate policy measures for 2025", nil)
	require.NoError(t, err)

	reloaded := NewStore(kv)

	original := store.List()
	loaded := reloaded.List()
	require.Len(t, loaded, 2)
	for i := range original {
		assert.Equal(t, original[i].ID, loaded[i].ID)
		assert.Equal(t, original[i].Query, loaded[i].Query)
		assert.Equal(t, original[i].Kind, loaded[i].Kind)
		assert.Equal(t, original[i].Result, loaded[i].Result)
		assert.WithinDuration(t, original[i].Timestamp, loaded[i].Timestamp, time.Second)
	}
	assert.Equal(t, textID, loaded[0].ID)
	assert.Equal(t, urlID, loaded[1].ID)
}

func TestStore_PersistsISOTimestamps(t *testing.T) {
	kv := storage.NewMemoryStore()
	store := newTestStore(kv)
	_, err := store.Add("claim", nil)
	require.NoError(t, err)

	raw, _, _ := kv.Get(StorageKey)
	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "2024-06-01T12:01:00Z", decoded[0]["timestamp"])
}

func TestNewStore_FallsBackToEmpty(t *testing.T) {
	tests := []struct {
		name  string
		setup func(kv *MockKeyValueStore)
	}{
		{
			name: "absent key",
			setup: func(kv *MockKeyValueStore) {
				kv.On("Get", StorageKey).Return("", false, nil)
			},
		},
		{
			name: "malformed json",
			setup: func(kv *MockKeyValueStore) {
				kv.On("Get", StorageKey).Return("{not json", true, nil)
			},
		},
		{
			name: "wrong shape",
			setup: func(kv *MockKeyValueStore) {
				kv.On("Get", StorageKey).Return(`{"id":"1"}`, true, nil)
			},
		},
		{
			name: "backing store error",
			setup: func(kv *MockKeyValueStore) {
				kv.On("Get", StorageKey).Return("", false, errors.New("disk on fire"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := &MockKeyValueStore{}
			tt.setup(kv)

			store := NewStore(kv)

			assert.NotNil(t, store)
			assert.Empty(t, store.List())
			kv.AssertExpectations(t)
		})
	}
}

func TestNewStore_TruncatesOversizedList(t *testing.T) {
	items := make([]models.HistoryItem, 15)
	for i := range items {
		items[i] = models.HistoryItem{ID: fmt.Sprintf("stored-%d", i), Query: "q", Kind: models.QueryKindText}
	}
	data, err := json.Marshal(items)
	require.NoError(t, err)
	kv := storage.NewMemoryStore()
	require.NoError(t, kv.Set(StorageKey, string(data)))

	store := NewStore(kv)

	assert.Equal(t, MaxItems, store.Len())
	assert.Equal(t, "stored-0", store.List()[0].ID)
}

func TestStore_PersistFailureKeepsMemoryState(t *testing.T) {
	kv := &MockKeyValueStore{}
	kv.On("Get", StorageKey).Return("", false, nil)
	kv.On("Set", StorageKey, mock.AnythingOfType("string")).Return(errors.New("write failed"))
	store := newTestStore(kv)

	id, err := store.Add("claim", nil)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to persist history")
	_, ok := store.GetByID(id)
	assert.True(t, ok)
}

func TestStore_Selection(t *testing.T) {
	store := newTestStore(storage.NewMemoryStore())
	id, _ := store.Add("claim", nil)

	_, ok := store.Selected()
	assert.False(t, ok)

	_, err := store.Select("missing")
	assert.ErrorIs(t, err, ErrItemNotFound)

	item, err := store.Select(id)
	require.NoError(t, err)
	assert.Equal(t, id, item.ID)

	// the selection reflects results attached after selecting
	require.NoError(t, store.UpdateResult(id, sampleResult(models.VerdictFake)))
	peeked, ok := store.Selected()
	require.True(t, ok)
	require.NotNil(t, peeked.Result)

	consumed, ok := store.ConsumeSelection()
	require.True(t, ok)
	assert.Equal(t, id, consumed.ID)

	_, ok = store.ConsumeSelection()
	assert.False(t, ok, "selection is cleared once consumed")
}

func TestStore_SelectionOfEvictedItem(t *testing.T) {
	store := newTestStore(storage.NewMemoryStore())
	id, _ := store.Add("oldest", nil)
	_, err := store.Select(id)
	require.NoError(t, err)

	for i := 0; i < MaxItems; i++ {
		_, _ = store.Add("newer", nil)
	}

	_, ok := store.Selected()
	assert.False(t, ok)
}

func TestStore_ClearSelection(t *testing.T) {
	store := newTestStore(storage.NewMemoryStore())
	id, _ := store.Add("claim", nil)
	_, _ = store.Select(id)

	store.ClearSelection()

	_, ok := store.Selected()
	assert.False(t, ok)
}

func TestStore_ListReturnsCopy(t *testing.T) {
	store := newTestStore(storage.NewMemoryStore())
	_, _ = store.Add("claim", nil)

	items := store.List()
	items[0].Query = "tampered"

	assert.Equal(t, "claim", store.List()[0].Query)
}
