package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"truthlens/internal/events"
	"truthlens/internal/logger"
	"truthlens/internal/models"
)

// ErrReportNotFound is returned when no archived report matches
var ErrReportNotFound = errors.New("archived report not found")

// ArchiveServiceInterface defines the archived report operations
type ArchiveServiceInterface interface {
	Archive(ctx context.Context, event events.AnalysisCompleted) error
	ListReports(page, perPage int) ([]models.ArchivedReport, int64, error)
	GetReport(historyID string) (*models.ArchivedReport, error)
}

// ArchiveService keeps completed analyses beyond the history cap
type ArchiveService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewArchiveService(db *gorm.DB) *ArchiveService {
	return &ArchiveService{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Archive stores the event's report. Redelivered events overwrite the earlier copy.
func (s *ArchiveService) Archive(ctx context.Context, event events.AnalysisCompleted) error {
	if event.Result == nil {
		return fmt.Errorf("%w: missing result", events.ErrMalformedEvent)
	}
	payload, err := json.Marshal(event.Result)
	if err != nil {
		return fmt.Errorf("failed to serialize result: %w", err)
	}

	report := &models.ArchivedReport{
		HistoryID:        event.HistoryID,
		Query:            event.Query,
		Kind:             string(event.Kind),
		Verdict:          string(event.Result.Verdict),
		CredibilityScore: event.Result.CredibilityScore,
		Result:           datatypes.JSON(payload),
		CompletedAt:      event.CompletedAt,
		ArchivedAt:       s.now(),
	}

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "history_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"verdict", "credibility_score", "result", "completed_at", "archived_at"}),
	}).Create(report).Error
	if err != nil {
		logger.LogErrorWithStackAndCorrelation(err, event.CorrelationID, map[string]interface{}{
			"history_id": event.HistoryID,
			"operation":  "archive_report",
		})
		return fmt.Errorf("failed to archive report: %w", err)
	}

	logger.WithHistoryItem(event.CorrelationID, event.HistoryID).WithFields(map[string]interface{}{
		"verdict":           report.Verdict,
		"credibility_score": report.CredibilityScore,
	}).Info("Report archived")
	return nil
}

// ListReports returns paginated archived reports, newest first
func (s *ArchiveService) ListReports(page, perPage int) ([]models.ArchivedReport, int64, error) {
	var reports []models.ArchivedReport
	var total int64

	offset := (page - 1) * perPage

	if err := s.db.Model(&models.ArchivedReport{}).Count(&total).Error; err != nil {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"operation": "count_archived_reports",
			"page":      page,
			"per_page":  perPage,
		})
		return nil, 0, fmt.Errorf("failed to count archived reports: %w", err)
	}

	if err := s.db.
		Order("completed_at DESC").
		Offset(offset).
		Limit(perPage).
		Find(&reports).Error; err != nil {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"operation": "list_archived_reports",
			"page":      page,
			"per_page":  perPage,
			"offset":    offset,
		})
		return nil, 0, fmt.Errorf("failed to list archived reports: %w", err)
	}

	return reports, total, nil
}

// GetReport looks an archived report up by its history id
func (s *ArchiveService) GetReport(historyID string) (*models.ArchivedReport, error) {
	var report models.ArchivedReport
	if err := s.db.Where("history_id = ?", historyID).First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrReportNotFound, historyID)
		}
		logger.LogErrorWithStack(err, map[string]interface{}{
			"history_id": historyID,
			"operation":  "get_archived_report",
		})
		return nil, fmt.Errorf("failed to get archived report: %w", err)
	}
	return &report, nil
}
