package analysis

import (
	"context"
	"fmt"
	"math"

	"truthlens/internal/logger"
	"truthlens/internal/models"
)

// Tones the emotional tone analysis can report
var Tones = []string{"neutral", "sensationalist", "balanced", "alarming", "persuasive"}

// VerdictSynthesizer turns the source checks into a finished report
type VerdictSynthesizer interface {
	SynthesizeResult(ctx context.Context, query string, sources []models.TrustedSourceCheck) (*models.AnalysisResult, error)
}

// SubScores are the four content scores feeding the verdict
type SubScores struct {
	LanguagePatterns      int
	ClaimConsistency      int
	EmotionalTone         int
	CredibilityIndicators int
}

// RandomVerdictSynthesizer draws random sub-scores and applies the verdict rule
type RandomVerdictSynthesizer struct {
	rng Rand
}

// NewRandomVerdictSynthesizer creates a verdict synthesizer drawing from rng
func NewRandomVerdictSynthesizer(rng Rand) *RandomVerdictSynthesizer {
	return &RandomVerdictSynthesizer{rng: rng}
}

func (m *RandomVerdictSynthesizer) SynthesizeResult(ctx context.Context, query string, sources []models.TrustedSourceCheck) (*models.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scores := SubScores{
		LanguagePatterns:      60 + m.rng.Intn(35),
		ClaimConsistency:      55 + m.rng.Intn(40),
		EmotionalTone:         50 + m.rng.Intn(45),
		CredibilityIndicators: 60 + m.rng.Intn(35),
	}
	tone := Tones[m.rng.Intn(len(Tones))]

	result := BuildResult(sources, scores, tone)
	logger.Log.WithFields(map[string]interface{}{
		"verdict":           result.Verdict,
		"credibility_score": result.CredibilityScore,
		"confirming":        result.SourceVerification.ConfirmingSources,
		"disputing":         result.SourceVerification.DisputingSources,
	}).Debug("Synthesized analysis result")
	return result, nil
}

// BuildResult assembles a report from fixed inputs
func BuildResult(sources []models.TrustedSourceCheck, scores SubScores, tone string) *models.AnalysisResult {
	confirming, disputing, found := CountReports(sources)
	consistency := CrossPlatformConsistency(confirming, found)
	avg := AverageScore(scores, consistency)
	verdict := DecideVerdict(confirming, disputing, avg)

	trusted := make([]models.TrustedSourceCheck, len(sources))
	copy(trusted, sources)

	return &models.AnalysisResult{
		Verdict:          verdict,
		CredibilityScore: int(math.Round(avg)),
		SourceVerification: models.SourceVerification{
			TotalSourcesChecked:      len(sources),
			ConfirmingSources:        confirming,
			DisputingSources:         disputing,
			CrossPlatformConsistency: consistency,
			TrustedSources:           trusted,
		},
		AIAnalysis:      buildAIAnalysis(scores, tone),
		Summary:         Summary(verdict, confirming, disputing, avg),
		Recommendations: Recommendations(verdict),
	}
}

// CountReports tallies confirming, disputing and found sources
func CountReports(sources []models.TrustedSourceCheck) (confirming, disputing, found int) {
	for _, s := range sources {
		switch s.ReportType {
		case models.ReportConfirms:
			confirming++
		case models.ReportDisputes:
			disputing++
		}
		if s.Found {
			found++
		}
	}
	return confirming, disputing, found
}

// CrossPlatformConsistency is the percentage of found sources that confirm, or 50 when none were found
func CrossPlatformConsistency(confirming, found int) int {
	if found <= 0 {
		return 50
	}
	pct := int(math.Round(float64(confirming) / float64(found) * 100))
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}

// AverageScore is the mean of the four sub-scores and the consistency percentage
func AverageScore(scores SubScores, consistency int) float64 {
	sum := scores.LanguagePatterns + scores.ClaimConsistency + scores.EmotionalTone +
		scores.CredibilityIndicators + consistency
	return float64(sum) / 5
}

// DecideVerdict applies the verdict rules in precedence order. A low average
// is classified fake before the unverified fallback is reached.
func DecideVerdict(confirming, disputing int, avg float64) models.Verdict {
	switch {
	case disputing > confirming || avg < 50:
		return models.VerdictFake
	case avg >= 75 && confirming >= 2:
		return models.VerdictReal
	case avg >= 60 || disputing > 0:
		return models.VerdictMisleading
	default:
		return models.VerdictUnverified
	}
}

func pick(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}

func buildAIAnalysis(scores SubScores, tone string) models.AIAnalysis {
	return models.AIAnalysis{
		LanguagePatterns: models.ScoredFindings{
			Score: scores.LanguagePatterns,
			Findings: []string{
				pick(scores.LanguagePatterns > 70, "Writing style consistent with professional journalism", "Some informal language patterns detected"),
				pick(scores.LanguagePatterns > 60, "Proper attribution of sources", "Limited source attribution"),
				"Grammar and syntax analysis complete",
			},
		},
		ClaimConsistency: models.ScoredFindings{
			Score: scores.ClaimConsistency,
			Findings: []string{
				pick(scores.ClaimConsistency > 70, "Claims are internally consistent", "Some inconsistencies in claims detected"),
				pick(scores.ClaimConsistency > 60, "Facts align with known information", "Unable to verify all factual claims"),
				"Cross-referenced with available databases",
			},
		},
		EmotionalTone: models.ToneFindings{
			Score: scores.EmotionalTone,
			Tone:  tone,
			Findings: []string{
				fmt.Sprintf("Detected %s tone in the content", tone),
				pick(scores.EmotionalTone > 70, "Balanced emotional presentation", "Elevated emotional language detected"),
				pick(scores.EmotionalTone > 60, "No manipulation tactics identified", "Potential persuasion techniques present"),
			},
		},
		CredibilityIndicators: models.ScoredFindings{
			Score: scores.CredibilityIndicators,
			Findings: []string{
				pick(scores.CredibilityIndicators > 70, "Strong credibility signals present", "Mixed credibility indicators"),
				pick(scores.CredibilityIndicators > 60, "Author/source appears legitimate", "Unable to fully verify source authenticity"),
				"Digital footprint analysis complete",
			},
		},
	}
}

// Summary renders the verdict paragraph
func Summary(verdict models.Verdict, confirming, disputing int, score float64) string {
	rounded := int(math.Round(score))
	switch verdict {
	case models.VerdictReal:
		return fmt.Sprintf("This content appears to be credible based on verification across %d trusted sources. "+
			"Cross-platform consistency is high, and AI analysis detected professional journalistic patterns with a %d%% confidence score.",
			confirming, rounded)
	case models.VerdictFake:
		return fmt.Sprintf("This content shows significant credibility issues. %d trusted sources dispute these claims. "+
			"AI analysis detected patterns commonly associated with misinformation, including emotional manipulation and inconsistent claims.",
			disputing)
	case models.VerdictMisleading:
		return fmt.Sprintf("This content contains partially accurate information but may be misleading. "+
			"While some sources confirm elements of the story, there are inconsistencies that warrant caution. "+
			"The credibility score of %d%% reflects mixed signals.", rounded)
	default:
		return "Unable to definitively verify this content. Limited coverage in trusted sources and insufficient data points " +
			"for conclusive AI analysis. We recommend seeking additional sources before forming conclusions."
	}
}

var baselineRecommendations = []string{
	"Always verify information from multiple independent sources",
	"Check the publication date and context of the news",
}

var verdictRecommendations = map[models.Verdict][]string{
	models.VerdictReal: {
		"This appears trustworthy but continue to verify major claims",
		"Share responsibly with proper context",
	},
	models.VerdictFake: {
		"Do not share this content",
		"Report to fact-checking organizations",
		"Inform others who may have seen this",
	},
	models.VerdictMisleading: {
		"Read the full article, not just headlines",
		"Look for the original source of claims",
		"Be cautious when sharing",
	},
	models.VerdictUnverified: {
		"Wait for more coverage before drawing conclusions",
		"Check back later for updates",
		"Avoid sharing until verified",
	},
}

// Recommendations returns the baseline advice followed by the verdict-specific advice
func Recommendations(verdict models.Verdict) []string {
	specific, ok := verdictRecommendations[verdict]
	if !ok {
		specific = verdictRecommendations[models.VerdictUnverified]
	}
	recs := make([]string, 0, len(baselineRecommendations)+len(specific))
	recs = append(recs, baselineRecommendations...)
	return append(recs, specific...)
}
