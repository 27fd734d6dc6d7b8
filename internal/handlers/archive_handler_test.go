package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"truthlens/internal/events"
	"truthlens/internal/models"
	"truthlens/internal/services"
)

type MockArchiveService struct {
	mock.Mock
}

func (m *MockArchiveService) Archive(ctx context.Context, event events.AnalysisCompleted) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockArchiveService) ListReports(page, perPage int) ([]models.ArchivedReport, int64, error) {
	args := m.Called(page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.ArchivedReport), args.Get(1).(int64), args.Error(2)
}

func (m *MockArchiveService) GetReport(historyID string) (*models.ArchivedReport, error) {
	args := m.Called(historyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ArchivedReport), args.Error(1)
}

func TestArchiveHandler_ListReports(t *testing.T) {
	tests := []struct {
		name            string
		query           string
		expectedPage    int
		expectedPerPage int
	}{
		{"defaults", "", 1, 20},
		{"explicit", "?page=2&per_page=5", 2, 5},
		{"clamped", "?page=0&per_page=1000", 1, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			archive := new(MockArchiveService)
			archive.On("ListReports", tt.expectedPage, tt.expectedPerPage).Return([]models.ArchivedReport{
				{HistoryID: "h1", Verdict: "real", CredibilityScore: 80},
			}, int64(11), nil)
			router := setupTestRouter(new(MockAnalysisService), archive)

			recorder := performRequest(router, http.MethodGet, "/api/archive"+tt.query, nil)

			assert.Equal(t, http.StatusOK, recorder.Code)
			var response map[string]interface{}
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
			assert.Equal(t, float64(11), response["total"])
			assert.Equal(t, float64(tt.expectedPage), response["page"])
			assert.Len(t, response["reports"], 1)
			archive.AssertExpectations(t)
		})
	}
}

func TestArchiveHandler_GetReport(t *testing.T) {
	id := uuid.Must(uuid.NewV7()).String()

	archive := new(MockArchiveService)
	archive.On("GetReport", id).Return(nil, services.ErrReportNotFound)
	router := setupTestRouter(new(MockAnalysisService), archive)

	recorder := performRequest(router, http.MethodGet, "/api/archive/"+id, nil)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "REPORT_NOT_FOUND", decodeError(t, recorder)["code"])
}

func TestArchiveRoutes_AbsentWithoutDatabase(t *testing.T) {
	router := setupTestRouter(new(MockAnalysisService), nil)

	recorder := performRequest(router, http.MethodGet, "/api/archive", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
