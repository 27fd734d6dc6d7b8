package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QueryKind classifies a submitted query
type QueryKind string

const (
	QueryKindURL  QueryKind = "url"
	QueryKindText QueryKind = "text"
)

// ClassifyQuery reports whether a query is a link or free text
func ClassifyQuery(query string) QueryKind {
	if strings.HasPrefix(query, "http://") || strings.HasPrefix(query, "https://") {
		return QueryKindURL
	}
	return QueryKindText
}

// Verdict is the final judgment attached to an analysis
type Verdict string

const (
	VerdictReal       Verdict = "real"
	VerdictFake       Verdict = "fake"
	VerdictMisleading Verdict = "misleading"
	VerdictUnverified Verdict = "unverified"
)

// Label returns the headline shown for a verdict in reports
func (v Verdict) Label() string {
	switch v {
	case VerdictReal:
		return "Credible News"
	case VerdictFake:
		return "Fake News Detected"
	case VerdictMisleading:
		return "Misleading Content"
	default:
		return "Unverified"
	}
}

// ReportType describes how a trusted source covered the story
type ReportType string

const (
	ReportConfirms  ReportType = "confirms"
	ReportDisputes  ReportType = "disputes"
	ReportUnrelated ReportType = "unrelated"
	ReportNotFound  ReportType = "not_found"
)

// StageID identifies one of the five verification stages
type StageID string

const (
	StageSearch   StageID = "search"
	StageVerify   StageID = "verify"
	StageCrossref StageID = "crossref"
	StageAnalyze  StageID = "analyze"
	StageCompile  StageID = "compile"
)

// StageStatus is the progress state of a single stage
type StageStatus string

const (
	StagePending   StageStatus = "pending"
	StageActive    StageStatus = "active"
	StageCompleted StageStatus = "completed"
	StageError     StageStatus = "error"
)

// TrustedSourceCheck is the outcome of looking a story up in one outlet
type TrustedSourceCheck struct {
	Name       string     `json:"name"`
	URL        string     `json:"url"`
	Found      bool       `json:"found"`
	MatchScore int        `json:"matchScore"`
	ReportType ReportType `json:"reportType"`
	Snippet    string     `json:"snippet,omitempty"`
}

// VerificationStage tracks one phase of an analysis run
type VerificationStage struct {
	ID      StageID              `json:"id"`
	Label   string               `json:"label"`
	Status  StageStatus          `json:"status"`
	Detail  string               `json:"detail,omitempty"`
	Sources []TrustedSourceCheck `json:"sources,omitempty"`
}

// SourceVerification aggregates the trusted source checks
type SourceVerification struct {
	TotalSourcesChecked      int                  `json:"totalSourcesChecked"`
	ConfirmingSources        int                  `json:"confirmingSources"`
	DisputingSources         int                  `json:"disputingSources"`
	CrossPlatformConsistency int                  `json:"crossPlatformConsistency"`
	TrustedSources           []TrustedSourceCheck `json:"trustedSources"`
}

// ScoredFindings is a sub-score together with its textual findings
type ScoredFindings struct {
	Score    int      `json:"score"`
	Findings []string `json:"findings"`
}

// ToneFindings is the emotional tone sub-score
type ToneFindings struct {
	Score    int      `json:"score"`
	Tone     string   `json:"tone"`
	Findings []string `json:"findings"`
}

// AIAnalysis holds the four content sub-scores
type AIAnalysis struct {
	LanguagePatterns      ScoredFindings `json:"languagePatterns"`
	ClaimConsistency      ScoredFindings `json:"claimConsistency"`
	EmotionalTone         ToneFindings   `json:"emotionalTone"`
	CredibilityIndicators ScoredFindings `json:"credibilityIndicators"`
}

// AnalysisResult is the finished verification report. It is never mutated after construction.
type AnalysisResult struct {
	Verdict            Verdict            `json:"verdict"`
	CredibilityScore   int                `json:"credibilityScore"`
	SourceVerification SourceVerification `json:"sourceVerification"`
	AIAnalysis         AIAnalysis         `json:"aiAnalysis"`
	Summary            string             `json:"summary"`
	Recommendations    []string           `json:"recommendations"`
}

// HistoryItem is a persisted record of one past query
type HistoryItem struct {
	ID        string          `json:"id"`
	Query     string          `json:"query"`
	Timestamp time.Time       `json:"timestamp"`
	Kind      QueryKind       `json:"kind"`
	Result    *AnalysisResult `json:"result,omitempty"`
}

// KVEntry backs the key-value persistence provider in SQL databases
type KVEntry struct {
	Key       string    `gorm:"primaryKey;size:255" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName pins the table name regardless of naming strategy
func (KVEntry) TableName() string {
	return "kv_entries"
}

// ArchivedReport is a completed analysis kept beyond the history cap
type ArchivedReport struct {
	ID               uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	HistoryID        string         `gorm:"size:64;not null;uniqueIndex" json:"history_id"`
	Query            string         `gorm:"type:text;not null" json:"query"`
	Kind             string         `gorm:"size:10;not null" json:"kind"`
	Verdict          string         `gorm:"size:20;not null;index" json:"verdict"`
	CredibilityScore int            `gorm:"not null" json:"credibility_score"`
	Result           datatypes.JSON `json:"result"`
	CompletedAt      time.Time      `gorm:"index" json:"completed_at"`
	ArchivedAt       time.Time      `json:"archived_at"`
}

// BeforeCreate will set a UUID rather than numeric ID
func (r *ArchivedReport) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// AutoMigrate creates or updates database tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&KVEntry{}, &ArchivedReport{})
}
