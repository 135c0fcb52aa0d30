package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bugseek/backend/internal/logger"
	"github.com/bugseek/backend/internal/models"
	"gorm.io/gorm"
)

// MemoryCorpus implements CorpusProvider over the analysis_memories table.
type MemoryCorpus struct {
	db *gorm.DB
}

func NewMemoryCorpus(db *gorm.DB) *MemoryCorpus {
	return &MemoryCorpus{db: db}
}

// FetchRecentVectors loads the newest stored vectors, excluding the log
// being analyzed so it never matches itself.
func (mc *MemoryCorpus) FetchRecentVectors(excludingID string, limit int) (map[string]models.FeatureVector, error) {
	query := mc.db.Order("created_at DESC").Limit(limit)
	if excludingID != "" {
		query = query.Where("cr_id <> ?", excludingID)
	}

	var memories []models.AnalysisMemory
	if err := query.Find(&memories).Error; err != nil {
		return nil, fmt.Errorf("failed to load analysis memories: %w", err)
	}

	corpus := make(map[string]models.FeatureVector, len(memories))
	for _, m := range memories {
		if len(m.Vector) > 0 {
			corpus[m.CrID] = m.Vector
		}
	}
	return corpus, nil
}

// SimilarLogRef is a similarity match joined with the matched log's metadata
// for report payloads.
type SimilarLogRef struct {
	CrID           string    `json:"crId"`
	Score          float64   `json:"score"`
	SharedKeywords []string  `json:"sharedKeywords"`
	TeamName       string    `json:"teamName"`
	Module         string    `json:"module"`
	ErrorName      string    `json:"errorName"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Report is the full analysis view of one error log.
type Report struct {
	Log         *models.ErrorLog        `json:"log"`
	LogPreview  string                  `json:"logPreview"`
	Status      models.AnalysisStatus   `json:"status"`
	Analysis    *models.AnalysisResult  `json:"analysis,omitempty"`
	SimilarLogs []SimilarLogRef         `json:"similarLogs"`
	Feedback    *models.FeedbackSummary `json:"feedback"`
}

// AnalysisService runs the orchestrated analysis for stored logs and
// persists the outcome.
type AnalysisService struct {
	db           *gorm.DB
	orchestrator *AnalysisOrchestrator
}

func NewAnalysisService(db *gorm.DB, orchestrator *AnalysisOrchestrator) *AnalysisService {
	return &AnalysisService{db: db, orchestrator: orchestrator}
}

// RunAnalysis analyzes one stored log end to end: orchestrate, persist the
// result and the similarity memory, and flip the log's status. The analysis
// itself cannot fail; returned errors are storage errors only.
func (as *AnalysisService) RunAnalysis(ctx context.Context, crID string) (*models.AnalysisResult, error) {
	var errorLog models.ErrorLog
	if err := as.db.Where("cr_id = ?", crID).First(&errorLog).Error; err != nil {
		return nil, fmt.Errorf("failed to load error log %s: %w", crID, err)
	}

	if err := as.db.Model(&models.ErrorLog{}).Where("cr_id = ?", crID).
		Update("analysis_status", models.AnalysisStatusRunning).Error; err != nil {
		return nil, fmt.Errorf("failed to mark analysis running: %w", err)
	}

	outcome := as.orchestrator.Analyze(ctx, crID, errorLog.LogContent, errorLog.TeamName, errorLog.Module)
	result := outcome.Result

	vector := as.orchestrator.FeatureVectorFor(crID, errorLog.LogContent)

	err := as.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cr_id = ?", crID).Delete(&models.AnalysisResult{}).Error; err != nil {
			return err
		}
		if err := tx.Create(result).Error; err != nil {
			return err
		}

		if err := tx.Where("cr_id = ?", crID).Delete(&models.AnalysisMemory{}).Error; err != nil {
			return err
		}
		memory := &models.AnalysisMemory{
			CrID:     crID,
			Vector:   vector,
			Keywords: result.Keywords,
		}
		if err := tx.Create(memory).Error; err != nil {
			return err
		}

		return tx.Model(&models.ErrorLog{}).Where("cr_id = ?", crID).Updates(map[string]interface{}{
			"analysis_status":   models.AnalysisStatusCompleted,
			"solution_possible": len(result.Remediations) > 0,
		}).Error
	})
	if err != nil {
		as.db.Model(&models.ErrorLog{}).Where("cr_id = ?", crID).
			Update("analysis_status", models.AnalysisStatusFailed)
		return nil, fmt.Errorf("failed to persist analysis for %s: %w", crID, err)
	}

	logger.WithAnalysis(crID, string(result.Source)).Info(fmt.Sprintf(
		"analysis persisted: severity=%s confidence=%.2f issues=%d matches=%d attempts=%d",
		result.Severity, result.Confidence, len(result.Issues), len(outcome.Matches), outcome.LLMAttempts))

	return result, nil
}

// GetReport assembles the report payload for one log: metadata, the latest
// analysis, enriched similarity matches, and feedback counts. A log whose
// analysis has not finished yet still gets a report with a pending status.
func (as *AnalysisService) GetReport(crID string) (*Report, error) {
	var errorLog models.ErrorLog
	if err := as.db.Where("cr_id = ?", crID).First(&errorLog).Error; err != nil {
		return nil, fmt.Errorf("failed to load error log %s: %w", crID, err)
	}

	preview := errorLog.ContentPreview()
	// Full content stays behind the log detail endpoint.
	errorLog.LogContent = ""

	report := &Report{
		Log:         &errorLog,
		LogPreview:  preview,
		Status:      errorLog.AnalysisStatus,
		SimilarLogs: []SimilarLogRef{},
	}

	var result models.AnalysisResult
	err := as.db.Where("cr_id = ?", crID).Order("created_at DESC").First(&result).Error
	if err == nil {
		report.Analysis = &result
		report.SimilarLogs = as.enrichMatches(result.SimilarMatches)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load analysis for %s: %w", crID, err)
	}

	var summary models.FeedbackSummary
	summary.CrID = crID
	as.db.Model(&models.AnalysisFeedback{}).Where("cr_id = ? AND helpful = ?", crID, true).Count(&summary.Helpful)
	as.db.Model(&models.AnalysisFeedback{}).Where("cr_id = ? AND helpful = ?", crID, false).Count(&summary.Unhelpful)
	report.Feedback = &summary

	return report, nil
}

func (as *AnalysisService) enrichMatches(matches models.MatchList) []SimilarLogRef {
	refs := make([]SimilarLogRef, 0, len(matches))
	if len(matches) == 0 {
		return refs
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.CrID)
	}

	var logs []models.ErrorLog
	if err := as.db.Where("cr_id IN ?", ids).Find(&logs).Error; err != nil {
		logger.WithError(err, "analysis_service").Warn("failed to enrich similarity matches")
	}
	byID := make(map[string]models.ErrorLog, len(logs))
	for _, l := range logs {
		byID[l.CrID] = l
	}

	for _, m := range matches {
		ref := SimilarLogRef{
			CrID:           m.CrID,
			Score:          m.Score,
			SharedKeywords: m.SharedKeywords,
		}
		if l, ok := byID[m.CrID]; ok {
			ref.TeamName = l.TeamName
			ref.Module = l.Module
			ref.ErrorName = l.ErrorName
			ref.CreatedAt = l.CreatedAt
		}
		refs = append(refs, ref)
	}
	return refs
}
