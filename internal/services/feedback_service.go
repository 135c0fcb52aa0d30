package services

import (
	"fmt"

	"github.com/bugseek/backend/internal/logger"
	"github.com/bugseek/backend/internal/models"
	"gorm.io/gorm"
)

// FeedbackService records and aggregates reader feedback on analysis reports.
type FeedbackService struct {
	db *gorm.DB
}

// NewFeedbackService creates a new feedback service
func NewFeedbackService(db *gorm.DB) *FeedbackService {
	return &FeedbackService{
		db: db,
	}
}

// Submit stores one feedback entry for a log's analysis. The log must exist.
func (fs *FeedbackService) Submit(crID string, userID *uint, helpful bool, comment string) (*models.AnalysisFeedback, error) {
	var count int64
	if err := fs.db.Model(&models.ErrorLog{}).Where("cr_id = ?", crID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to look up log: %w", err)
	}
	if count == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	feedback := &models.AnalysisFeedback{
		CrID:    crID,
		UserID:  userID,
		Helpful: helpful,
		Comment: comment,
	}
	if err := fs.db.Create(feedback).Error; err != nil {
		return nil, fmt.Errorf("failed to save feedback: %w", err)
	}

	logger.WithAnalysis(crID, "").Info("feedback recorded")
	return feedback, nil
}

// Summary counts helpful and unhelpful votes for one log.
func (fs *FeedbackService) Summary(crID string) (*models.FeedbackSummary, error) {
	summary := &models.FeedbackSummary{CrID: crID}

	if err := fs.db.Model(&models.AnalysisFeedback{}).
		Where("cr_id = ? AND helpful = ?", crID, true).
		Count(&summary.Helpful).Error; err != nil {
		return nil, fmt.Errorf("failed to count feedback: %w", err)
	}
	if err := fs.db.Model(&models.AnalysisFeedback{}).
		Where("cr_id = ? AND helpful = ?", crID, false).
		Count(&summary.Unhelpful).Error; err != nil {
		return nil, fmt.Errorf("failed to count feedback: %w", err)
	}
	return summary, nil
}

// List returns all feedback entries for one log, newest first.
func (fs *FeedbackService) List(crID string) ([]models.AnalysisFeedback, error) {
	var feedbacks []models.AnalysisFeedback
	if err := fs.db.Where("cr_id = ?", crID).Order("created_at DESC").Find(&feedbacks).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch feedback: %w", err)
	}
	return feedbacks, nil
}
