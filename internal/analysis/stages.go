package analysis

import (
	"time"

	"truthlens/internal/models"
)

// StageStep is one progress message shown while a stage works
type StageStep struct {
	Detail string
	Delay  time.Duration
}

// StagePlan describes how a stage is walked
type StagePlan struct {
	ID    models.StageID
	Label string
	Steps []StageStep
	// Done is the detail left on the stage once it completes
	Done string
}

// DefaultPlans are the five verification stages in execution order
var DefaultPlans = []StagePlan{
	{
		ID:    models.StageSearch,
		Label: "Searching trusted news sources",
		Steps: []StageStep{
			{Detail: "Querying major news databases...", Delay: 3 * time.Second},
			{Detail: "Scanning Times of India, The Hindu, NDTV...", Delay: 3 * time.Second},
			{Detail: "Checking international wire services...", Delay: 2 * time.Second},
		},
		Done: "Found relevant coverage in multiple sources",
	},
	{
		ID:    models.StageVerify,
		Label: "Verifying content across multiple outlets",
		Steps: []StageStep{
			{Detail: "Comparing headlines and content...", Delay: 3 * time.Second},
			{Detail: "Analyzing source consistency...", Delay: 2500 * time.Millisecond},
		},
		Done: "Verified against %d trusted sources",
	},
	{
		ID:    models.StageCrossref,
		Label: "Cross-referencing fact-check databases",
		Steps: []StageStep{
			{Detail: "Querying Alt News database...", Delay: 2500 * time.Millisecond},
			{Detail: "Checking Boom Live and AFP archives...", Delay: 2500 * time.Millisecond},
		},
		Done: "Fact-check database scan complete",
	},
	{
		ID:    models.StageAnalyze,
		Label: "Analyzing content using AI",
		Steps: []StageStep{
			{Detail: "Running NLP language pattern analysis...", Delay: 3 * time.Second},
			{Detail: "Evaluating emotional tone and credibility signals...", Delay: 3 * time.Second},
			{Detail: "Analyzing claim consistency...", Delay: 2500 * time.Millisecond},
		},
		Done: "AI analysis complete",
	},
	{
		ID:    models.StageCompile,
		Label: "Compiling verification report",
		Steps: []StageStep{
			{Detail: "Generating verification report...", Delay: 2 * time.Second},
		},
		Done: "Report ready",
	},
}

// TotalDelay is the unscaled wall time of a full run
func TotalDelay(plans []StagePlan) time.Duration {
	var total time.Duration
	for _, plan := range plans {
		for _, step := range plan.Steps {
			total += step.Delay
		}
	}
	return total
}

func initialStages(plans []StagePlan) []models.VerificationStage {
	stages := make([]models.VerificationStage, len(plans))
	for i, plan := range plans {
		stages[i] = models.VerificationStage{
			ID:     plan.ID,
			Label:  plan.Label,
			Status: models.StagePending,
		}
	}
	return stages
}
