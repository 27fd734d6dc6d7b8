package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"truthlens/internal/analysis"
	"truthlens/internal/config"
	"truthlens/internal/events"
	"truthlens/internal/history"
	"truthlens/internal/logger"
	"truthlens/internal/models"
	"truthlens/internal/utils"
)

var (
	// ErrHistoryItemNotFound is returned when an id matches no history entry
	ErrHistoryItemNotFound = history.ErrItemNotFound
	// ErrNothingToReplay is returned for entries whose analysis never finished
	ErrNothingToReplay = errors.New("history item has no result")
	// ErrNoSelection is returned when no history item is waiting to be shown
	ErrNoSelection = errors.New("no history item selected")
	// ErrAnalysisInProgress is returned when a replay would replace a live run
	ErrAnalysisInProgress = errors.New("an analysis is still running")
)

// AnalysisServiceInterface defines the interface for analysis service operations
type AnalysisServiceInterface interface {
	Submit(query, correlationID string) (*SubmitResponse, error)
	Current() analysis.Snapshot
	Subscribe() (<-chan analysis.Snapshot, func())
	Cancel(correlationID string)
	ListHistory() []models.HistoryItem
	GetHistoryItem(id string) (*models.HistoryItem, error)
	ClearHistory(correlationID string) error
	Replay(id, correlationID string) (*models.HistoryItem, error)
	ConsumeSelection() (*models.HistoryItem, error)
	Report(id string) (*ReportResponse, error)
}

// AnalysisRunner is the simulator surface the service drives
type AnalysisRunner interface {
	Run(ctx context.Context, query string) (*models.AnalysisResult, error)
	Reset()
	Snapshot() analysis.Snapshot
	Subscribe() (<-chan analysis.Snapshot, func())
	LoadResult(query string, result *models.AnalysisResult)
}

// SubmitResponse acknowledges a query that is now being analyzed
type SubmitResponse struct {
	HistoryID string           `json:"history_id"`
	Query     string           `json:"query"`
	Kind      models.QueryKind `json:"kind"`
	Status    string           `json:"status"`
	Message   string           `json:"message"`
}

// ReportResponse is the downloadable form of a finished analysis
type ReportResponse struct {
	HistoryID string `json:"history_id"`
	Filename  string `json:"filename"`
	Text      string `json:"text"`
	ShareText string `json:"share_text"`
}

type AnalysisService struct {
	history   *history.Store
	runner    AnalysisRunner
	publisher events.Publisher
	config    *config.Config
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewAnalysisService(store *history.Store, runner AnalysisRunner, publisher events.Publisher, cfg *config.Config) *AnalysisService {
	ctx, cancel := context.WithCancel(context.Background())
	return &AnalysisService{
		history:   store,
		runner:    runner,
		publisher: publisher,
		config:    cfg,
		now:       func() time.Time { return time.Now().UTC() },
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Submit records the query in history and starts analyzing it in the background
func (s *AnalysisService) Submit(query, correlationID string) (*SubmitResponse, error) {
	log := logger.WithCorrelationID(correlationID)

	// history keeps the query as submitted; trimming only gates validation
	if _, err := utils.ValidateQuery(query, s.config.MaxQueryLength); err != nil {
		log.WithError(err).Warn("Rejected analysis query")
		return nil, err
	}

	id, err := s.history.Add(query, nil)
	if err != nil {
		// the entry is still tracked in memory
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"history_id": id,
			"operation":  "history_add",
		})
	}

	s.wg.Add(1)
	go s.runAnalysis(id, query, correlationID)

	kind := models.ClassifyQuery(query)
	logger.WithHistoryItem(correlationID, id).WithField("kind", kind).Info("Analysis submitted")

	return &SubmitResponse{
		HistoryID: id,
		Query:     query,
		Kind:      kind,
		Status:    string(analysis.StatusRunning),
		Message:   "Analysis started",
	}, nil
}

func (s *AnalysisService) runAnalysis(id, query, correlationID string) {
	defer s.wg.Done()
	log := logger.WithHistoryItem(correlationID, id)

	start := s.now()
	result, err := s.runner.Run(s.ctx, query)
	if err != nil {
		if analysis.IsCancelled(err) {
			log.Info("Analysis ended without a result")
			return
		}
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"history_id": id,
			"operation":  "run_analysis",
		})
		return
	}
	if result == nil {
		return
	}

	if err := s.history.UpdateResult(id, result); err != nil {
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"history_id": id,
			"operation":  "history_update_result",
		})
	}

	completedAt := s.now()
	log.WithFields(map[string]interface{}{
		"verdict":           result.Verdict,
		"credibility_score": result.CredibilityScore,
		"duration_ms":       completedAt.Sub(start).Milliseconds(),
	}).Info("Analysis completed")

	event := events.AnalysisCompleted{
		HistoryID:     id,
		Query:         query,
		Kind:          models.ClassifyQuery(query),
		Result:        result,
		CompletedAt:   completedAt,
		CorrelationID: correlationID,
	}
	if err := s.publisher.PublishAnalysisCompleted(s.ctx, event); err != nil {
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"history_id": id,
			"operation":  "publish_analysis_completed",
		})
	}
}

// Current returns the live simulator state
func (s *AnalysisService) Current() analysis.Snapshot {
	return s.runner.Snapshot()
}

// Subscribe streams simulator transitions
func (s *AnalysisService) Subscribe() (<-chan analysis.Snapshot, func()) {
	return s.runner.Subscribe()
}

// Cancel abandons any in-flight analysis
func (s *AnalysisService) Cancel(correlationID string) {
	s.runner.Reset()
	logger.WithCorrelationID(correlationID).Info("Analysis reset")
}

func (s *AnalysisService) ListHistory() []models.HistoryItem {
	return s.history.List()
}

func (s *AnalysisService) GetHistoryItem(id string) (*models.HistoryItem, error) {
	item, ok := s.history.GetByID(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHistoryItemNotFound, id)
	}
	return &item, nil
}

func (s *AnalysisService) ClearHistory(correlationID string) error {
	if err := s.history.Clear(); err != nil {
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"operation": "history_clear",
		})
		return fmt.Errorf("failed to clear history: %w", err)
	}
	logger.WithCorrelationID(correlationID).Info("History cleared")
	return nil
}

// Replay selects a past entry and shows its stored result. The simulator is not run,
// and a replay is refused while a run is live so that run still reaches history.
func (s *AnalysisService) Replay(id, correlationID string) (*models.HistoryItem, error) {
	log := logger.WithHistoryItem(correlationID, id)

	if s.runner.Snapshot().Status == analysis.StatusRunning {
		log.Info("Replay refused while an analysis is running")
		return nil, ErrAnalysisInProgress
	}

	item, err := s.history.Select(id)
	if err != nil {
		log.Warn("Replay requested for unknown history item")
		return nil, err
	}
	if item.Result == nil {
		log.Info("Replay requested before the analysis finished")
		return &item, ErrNothingToReplay
	}

	s.runner.LoadResult(item.Query, item.Result)
	log.WithField("verdict", item.Result.Verdict).Info("Replaying stored analysis")
	return &item, nil
}

// ConsumeSelection hands the selected entry to the caller exactly once
func (s *AnalysisService) ConsumeSelection() (*models.HistoryItem, error) {
	item, ok := s.history.ConsumeSelection()
	if !ok {
		return nil, ErrNoSelection
	}
	return &item, nil
}

// Report renders the text report for a finished entry
func (s *AnalysisService) Report(id string) (*ReportResponse, error) {
	item, err := s.GetHistoryItem(id)
	if err != nil {
		return nil, err
	}
	if item.Result == nil {
		return nil, ErrNothingToReplay
	}
	return &ReportResponse{
		HistoryID: item.ID,
		Filename:  analysis.ReportFilename,
		Text:      analysis.RenderReport(item.Query, item.Result),
		ShareText: analysis.ShareText(item.Query, item.Result),
	}, nil
}

// Wait blocks until every background analysis has returned
func (s *AnalysisService) Wait() {
	s.wg.Wait()
}

// Close abandons running analyses and waits for them to unwind
func (s *AnalysisService) Close() {
	s.cancel()
	s.wg.Wait()
}
