package analysis

import (
	"fmt"
	"strings"

	"truthlens/internal/models"
)

// ReportFilename is the suggested download name for a text report
const ReportFilename = "truthlens-report.txt"

const shareQueryLimit = 100

// RenderReport formats a finished analysis as a plain-text report
func RenderReport(query string, result *models.AnalysisResult) string {
	var b strings.Builder
	b.WriteString("TruthLens Verification Report\n")
	b.WriteString("=============================\n")
	fmt.Fprintf(&b, "Query: %s\n", query)
	fmt.Fprintf(&b, "Verdict: %s\n", result.Verdict.Label())
	fmt.Fprintf(&b, "Credibility Score: %d%%\n\n", result.CredibilityScore)

	b.WriteString("Summary:\n")
	b.WriteString(result.Summary)
	b.WriteString("\n\n")

	sv := result.SourceVerification
	fmt.Fprintf(&b, "Sources Checked: %d\n", sv.TotalSourcesChecked)
	fmt.Fprintf(&b, "Confirming Sources: %d\n", sv.ConfirmingSources)
	fmt.Fprintf(&b, "Disputing Sources: %d\n\n", sv.DisputingSources)

	b.WriteString("Recommendations:\n")
	for i, rec := range result.Recommendations {
		fmt.Fprintf(&b, "%d. %s\n", i+1, rec)
	}
	b.WriteString("\nGenerated by TruthLens AI Fact Checker")
	return b.String()
}

// ShareText is the one-line summary used when sharing a report
func ShareText(query string, result *models.AnalysisResult) string {
	runes := []rune(query)
	if len(runes) > shareQueryLimit {
		runes = runes[:shareQueryLimit]
	}
	return fmt.Sprintf("TruthLens Report: %s (%d%% credibility) - %s...",
		result.Verdict.Label(), result.CredibilityScore, string(runes))
}
