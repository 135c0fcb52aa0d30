package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

type AnalysisSource string

const (
	SourceLLM      AnalysisSource = "llm"
	SourceFallback AnalysisSource = "fallback"
)

// DetectedIssue is one pattern hit inside a log's content.
type DetectedIssue struct {
	LineNumber int      `json:"lineNumber"` // 1-based
	Snippet    string   `json:"snippet"`
	Category   string   `json:"category"`
	Severity   Severity `json:"severity"`
	Confidence float64  `json:"confidence"`
}

// SimilarityMatch points at a previously analyzed log whose content is close
// to the target's.
type SimilarityMatch struct {
	CrID           string   `json:"crId"`
	Score          float64  `json:"score"`
	Method         string   `json:"method"`
	SharedKeywords []string `json:"sharedKeywords"`
}

// AnalysisResult is the outcome of analyzing one error log, either from the
// live LLM backend or from the local fallback path. Severity is never below
// the highest severity among Issues, and Source records which path produced
// the record.
type AnalysisResult struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	CrID           string         `json:"crId" gorm:"type:uuid;not null;index"`
	Summary        string         `json:"summary" gorm:"type:text"`
	Severity       Severity       `json:"severity" gorm:"type:varchar(20);not null"`
	Confidence     float64        `json:"confidence" gorm:"not null"`
	Source         AnalysisSource `json:"source" gorm:"type:varchar(20);not null"`
	Issues         IssueList      `json:"issues" gorm:"type:jsonb"`
	Remediations   pq.StringArray `json:"remediations" gorm:"type:text[]"`
	Keywords       pq.StringArray `json:"keywords" gorm:"type:text[]"`
	SimilarMatches MatchList      `json:"similarMatches" gorm:"type:jsonb"`
	RootCause      string         `json:"rootCause" gorm:"type:text"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}

func (AnalysisResult) TableName() string {
	return "analysis_results"
}
