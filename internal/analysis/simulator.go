package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"truthlens/internal/logger"
	"truthlens/internal/models"
)

// RunStatus is the lifecycle state of the simulator
type RunStatus string

const (
	StatusIdle    RunStatus = "idle"
	StatusRunning RunStatus = "running"
	StatusDone    RunStatus = "done"
)

const subscriberBuffer = 64

// Snapshot is a point-in-time copy of the simulator state.
// CurrentStageIndex never decreases within a run.
type Snapshot struct {
	RunID             uint64                     `json:"runId"`
	Status            RunStatus                  `json:"status"`
	Query             string                     `json:"query,omitempty"`
	CurrentStage      models.StageID             `json:"currentStage,omitempty"`
	CurrentStageIndex int                        `json:"currentStageIndex"`
	Stages            []models.VerificationStage `json:"stages"`
	Result            *models.AnalysisResult     `json:"result,omitempty"`
	Error             string                     `json:"error,omitempty"`
}

// clone copies the stage list. Results are immutable and shared.
func (s Snapshot) clone() Snapshot {
	out := s
	out.Stages = make([]models.VerificationStage, len(s.Stages))
	for i, stage := range s.Stages {
		out.Stages[i] = stage
		if stage.Sources != nil {
			out.Stages[i].Sources = append([]models.TrustedSourceCheck(nil), stage.Sources...)
		}
	}
	return out
}

// ActiveStages counts the stages currently marked active
func (s Snapshot) ActiveStages() int {
	n := 0
	for _, stage := range s.Stages {
		if stage.Status == models.StageActive {
			n++
		}
	}
	return n
}

// SleepFunc waits for d or until ctx ends
type SleepFunc func(ctx context.Context, d time.Duration) error

// ContextSleep is the real-time SleepFunc
func ContextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Option configures a Simulator
type Option func(*Simulator)

// WithSleep replaces the wait between progress steps
func WithSleep(sleep SleepFunc) Option {
	return func(s *Simulator) {
		s.sleep = sleep
	}
}

// WithDelayScale multiplies every stage delay. Zero runs instantly.
func WithDelayScale(scale float64) Option {
	return func(s *Simulator) {
		if scale >= 0 {
			s.scale = scale
		}
	}
}

// WithPlans overrides the stage plans
func WithPlans(plans []StagePlan) Option {
	return func(s *Simulator) {
		if len(plans) > 0 {
			s.plans = plans
		}
	}
}

// Simulator walks a query through the timed verification stages.
// Only one run is live at a time; starting a run or resetting
// abandons the previous one, and abandoned runs never write state.
type Simulator struct {
	sources  SourceSynthesizer
	verdicts VerdictSynthesizer
	sleep    SleepFunc
	scale    float64
	plans    []StagePlan

	mu          sync.Mutex
	state       Snapshot
	generation  uint64
	cancel      context.CancelFunc
	subscribers map[int]chan Snapshot
	nextSubID   int
}

// NewSimulator creates an idle simulator
func NewSimulator(sources SourceSynthesizer, verdicts VerdictSynthesizer, opts ...Option) *Simulator {
	s := &Simulator{
		sources:     sources,
		verdicts:    verdicts,
		sleep:       ContextSleep,
		scale:       1,
		plans:       DefaultPlans,
		state:       Snapshot{Status: StatusIdle, Stages: []models.VerificationStage{}},
		subscribers: make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run analyzes query and blocks until the run finishes, fails or is abandoned.
// A blank query is ignored and returns (nil, nil).
func (s *Simulator) Run(ctx context.Context, query string) (*models.AnalysisResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	gen := s.generation
	s.cancel = cancel
	s.state = Snapshot{
		RunID:        gen,
		Status:       StatusRunning,
		Query:        query,
		CurrentStage: s.plans[0].ID,
		Stages:       initialStages(s.plans),
	}
	s.state.Stages[0].Status = models.StageActive
	s.state.Stages[0].Detail = firstDetail(s.plans[0])
	s.publishLocked()
	s.mu.Unlock()

	log := logger.Log.WithFields(map[string]interface{}{
		"run_id":     gen,
		"query_kind": models.ClassifyQuery(query),
	})
	log.Info("Analysis run started")

	result, err := s.walk(runCtx, gen, query)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != gen {
		log.Info("Analysis run abandoned")
		return nil, ErrRunCancelled
	}
	s.cancel = nil

	if err == nil {
		log.WithField("verdict", result.Verdict).Info("Analysis run completed")
		return result, nil
	}

	if ctxErr := runCtx.Err(); ctxErr != nil && IsCancelled(err) {
		s.resetLocked()
		log.Info("Analysis run cancelled")
		return nil, fmt.Errorf("%w: %w", ErrRunCancelled, ctxErr)
	}

	var simErr *SimulationError
	if !errors.As(err, &simErr) {
		simErr = NewSimulationError(s.state.CurrentStage, "analysis failed", err)
	}
	for i := range s.state.Stages {
		if s.state.Stages[i].ID == simErr.Stage {
			s.state.Stages[i].Status = models.StageError
		}
	}
	s.state.Status = StatusIdle
	s.state.Result = nil
	s.state.Error = simErr.Error()
	s.publishLocked()

	logger.LogErrorWithStack(simErr, map[string]interface{}{
		"operation": "analysis_run",
		"run_id":    gen,
		"stage":     simErr.Stage,
	})
	return nil, simErr
}

func (s *Simulator) walk(ctx context.Context, gen uint64, query string) (result *models.AnalysisResult, err error) {
	current := 0
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = NewSimulationError(s.plans[current].ID, "panic during stage", fmt.Errorf("%v", r))
		}
	}()

	var sources []models.TrustedSourceCheck
	for i, plan := range s.plans {
		current = i
		for j, step := range plan.Steps {
			if j > 0 {
				detail := step.Detail
				if !s.update(gen, func(st *Snapshot) { st.Stages[i].Detail = detail }) {
					return nil, ErrRunCancelled
				}
			}
			if err := s.sleep(ctx, s.scaled(step.Delay)); err != nil {
				return nil, NewSimulationError(plan.ID, "stage interrupted", err)
			}
		}

		done := plan.Done
		var stageSources []models.TrustedSourceCheck
		switch plan.ID {
		case models.StageVerify:
			sources, err = s.sources.SynthesizeSources(ctx, query)
			if err != nil {
				return nil, NewSimulationError(plan.ID, "source synthesis failed", err)
			}
			done = fmt.Sprintf(plan.Done, len(sources))
			stageSources = sources
		case models.StageCompile:
			result, err = s.verdicts.SynthesizeResult(ctx, query, sources)
			if err != nil {
				return nil, NewSimulationError(plan.ID, "verdict synthesis failed", err)
			}
		}

		last := i == len(s.plans)-1
		ok := s.update(gen, func(st *Snapshot) {
			st.Stages[i].Status = models.StageCompleted
			st.Stages[i].Detail = done
			if stageSources != nil {
				st.Stages[i].Sources = append([]models.TrustedSourceCheck(nil), stageSources...)
			}
			if last {
				st.Status = StatusDone
				st.Result = result
				return
			}
			st.CurrentStage = s.plans[i+1].ID
			st.CurrentStageIndex = i + 1
			st.Stages[i+1].Status = models.StageActive
			st.Stages[i+1].Detail = firstDetail(s.plans[i+1])
		})
		if !ok {
			return nil, ErrRunCancelled
		}
	}

	if result == nil {
		return nil, NewSimulationError(s.plans[current].ID, "no result produced", nil)
	}
	return result, nil
}

// update applies fn and notifies subscribers unless the run is stale
func (s *Simulator) update(gen uint64, fn func(*Snapshot)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return false
	}
	fn(&s.state)
	s.publishLocked()
	return true
}

func (s *Simulator) scaled(d time.Duration) time.Duration {
	return time.Duration(float64(d) * s.scale)
}

// Reset abandons any run and returns to idle with no stages or result
func (s *Simulator) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Simulator) resetLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.generation++
	s.state = Snapshot{RunID: s.generation, Status: StatusIdle, Stages: []models.VerificationStage{}}
	s.publishLocked()
}

// LoadResult shows a previously computed result without running any stage
func (s *Simulator) LoadResult(query string, result *models.AnalysisResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.generation++
	s.state = Snapshot{
		RunID:  s.generation,
		Status: StatusDone,
		Query:  query,
		Stages: []models.VerificationStage{},
		Result: result,
	}
	s.publishLocked()
}

// Snapshot returns a copy of the current state
func (s *Simulator) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe streams a snapshot on every transition, starting with the
// current state. A slow subscriber loses its oldest buffered snapshots,
// never the latest one.
// The returned func unsubscribes and closes the channel.
func (s *Simulator) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, subscriberBuffer)

	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch
	ch <- s.state.clone()
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			close(ch)
			s.mu.Unlock()
		})
	}
}

func (s *Simulator) publishLocked() {
	if len(s.subscribers) == 0 {
		return
	}
	snapshot := s.state.clone()
	for id, ch := range s.subscribers {
		select {
		case ch <- snapshot:
			continue
		default:
		}
		// only publishLocked sends, so one receive frees a slot
		select {
		case <-ch:
			logger.Log.WithField("subscriber", id).Debug("Dropped oldest snapshot for slow subscriber")
		default:
		}
		select {
		case ch <- snapshot:
		default:
		}
	}
}

func firstDetail(plan StagePlan) string {
	if len(plan.Steps) == 0 {
		return ""
	}
	return plan.Steps[0].Detail
}
