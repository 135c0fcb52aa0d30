package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/bugseek/backend/internal/logger"
	"github.com/bugseek/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ErrorLogFilters narrows List results. Zero values mean "no filter".
type ErrorLogFilters struct {
	TeamName  string
	Module    string
	Owner     string
	ErrorName string
	Search    string
	Page      int
	Limit     int
}

// TeamCount / ModuleCount / SeverityCount are statistics rows.
type TeamCount struct {
	TeamName string `json:"teamName"`
	Count    int64  `json:"count"`
}

type ModuleCount struct {
	Module string `json:"module"`
	Count  int64  `json:"count"`
}

type SeverityCount struct {
	Severity models.Severity `json:"severity"`
	Count    int64           `json:"count"`
}

// Statistics is the dashboard aggregate payload.
type Statistics struct {
	TotalLogs        int64           `json:"totalLogs"`
	AnalyzedLogs     int64           `json:"analyzedLogs"`
	SolutionPossible int64           `json:"solutionPossible"`
	RecentLogs       int64           `json:"recentLogs"` // last 7 days
	Teams            []TeamCount     `json:"teams"`
	Modules          []ModuleCount   `json:"modules"`
	Severities       []SeverityCount `json:"severities"`
}

// ErrorLogService owns CRUD access to stored error logs.
type ErrorLogService struct {
	db *gorm.DB
}

func NewErrorLogService(db *gorm.DB) *ErrorLogService {
	return &ErrorLogService{db: db}
}

// Create stores a new error log, assigning its correlation ID when unset.
func (s *ErrorLogService) Create(errorLog *models.ErrorLog) error {
	if errorLog.CrID == "" {
		errorLog.CrID = uuid.NewString()
	}
	if errorLog.AnalysisStatus == "" {
		errorLog.AnalysisStatus = models.AnalysisStatusPending
	}
	if err := s.db.Create(errorLog).Error; err != nil {
		return fmt.Errorf("failed to create error log: %w", err)
	}
	logger.WithErrorLog(errorLog.CrID, errorLog.LogFileName).Info("error log created")
	return nil
}

// List returns one page of logs matching the filters, newest first, plus the
// total match count for pagination.
func (s *ErrorLogService) List(filters ErrorLogFilters) ([]models.ErrorLog, int64, error) {
	query := s.db.Model(&models.ErrorLog{})

	if filters.TeamName != "" {
		query = query.Where("team_name ILIKE ?", filters.TeamName)
	}
	if filters.Module != "" {
		query = query.Where("module ILIKE ?", filters.Module)
	}
	if filters.Owner != "" {
		query = query.Where("owner ILIKE ?", filters.Owner)
	}
	if filters.ErrorName != "" {
		query = query.Where("error_name ILIKE ?", "%"+filters.ErrorName+"%")
	}
	if filters.Search != "" {
		like := "%" + strings.TrimSpace(filters.Search) + "%"
		query = query.Where("description ILIKE ? OR error_name ILIKE ? OR log_file_name ILIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count error logs: %w", err)
	}

	page := filters.Page
	if page < 1 {
		page = 1
	}
	limit := filters.Limit
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	var logs []models.ErrorLog
	err := query.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list error logs: %w", err)
	}
	return logs, total, nil
}

// GetByCrID loads one log with full content.
func (s *ErrorLogService) GetByCrID(crID string) (*models.ErrorLog, error) {
	var errorLog models.ErrorLog
	if err := s.db.Where("cr_id = ?", crID).First(&errorLog).Error; err != nil {
		return nil, err
	}
	return &errorLog, nil
}

// Delete removes a log and everything derived from it in one transaction.
func (s *ErrorLogService) Delete(crID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cr_id = ?", crID).Delete(&models.AnalysisFeedback{}).Error; err != nil {
			return fmt.Errorf("failed to delete feedback: %w", err)
		}
		if err := tx.Where("cr_id = ?", crID).Delete(&models.AnalysisMemory{}).Error; err != nil {
			return fmt.Errorf("failed to delete analysis memory: %w", err)
		}
		if err := tx.Where("cr_id = ?", crID).Delete(&models.AnalysisResult{}).Error; err != nil {
			return fmt.Errorf("failed to delete analysis results: %w", err)
		}
		if err := tx.Where("cr_id = ?", crID).Delete(&models.Job{}).Error; err != nil {
			return fmt.Errorf("failed to delete jobs: %w", err)
		}
		if err := tx.Where("cr_id = ?", crID).Delete(&models.ErrorLog{}).Error; err != nil {
			return fmt.Errorf("failed to delete error log: %w", err)
		}
		return nil
	})
}

// Statistics aggregates the dashboard counters.
func (s *ErrorLogService) Statistics() (*Statistics, error) {
	stats := &Statistics{
		Teams:      []TeamCount{},
		Modules:    []ModuleCount{},
		Severities: []SeverityCount{},
	}

	if err := s.db.Model(&models.ErrorLog{}).Count(&stats.TotalLogs).Error; err != nil {
		return nil, fmt.Errorf("failed to count logs: %w", err)
	}
	s.db.Model(&models.ErrorLog{}).
		Where("analysis_status = ?", models.AnalysisStatusCompleted).
		Count(&stats.AnalyzedLogs)
	s.db.Model(&models.ErrorLog{}).
		Where("solution_possible = ?", true).
		Count(&stats.SolutionPossible)
	s.db.Model(&models.ErrorLog{}).
		Where("created_at > ?", time.Now().AddDate(0, 0, -7)).
		Count(&stats.RecentLogs)

	if err := s.db.Model(&models.ErrorLog{}).
		Select("team_name, count(*) as count").
		Group("team_name").
		Order("count DESC").
		Scan(&stats.Teams).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate teams: %w", err)
	}

	if err := s.db.Model(&models.ErrorLog{}).
		Select("module, count(*) as count").
		Group("module").
		Order("count DESC").
		Scan(&stats.Modules).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate modules: %w", err)
	}

	if err := s.db.Model(&models.AnalysisResult{}).
		Select("severity, count(*) as count").
		Group("severity").
		Order("count DESC").
		Scan(&stats.Severities).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate severities: %w", err)
	}

	return stats, nil
}

// CleanupOldLogs hard-deletes logs older than the retention window along
// with their derived rows, returning how many logs went away.
func (s *ErrorLogService) CleanupOldLogs(retentionDays int) (int64, error) {
	if retentionDays < 1 {
		retentionDays = 30
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	// Unscoped so logs a user already deleted still age out of the table.
	var ids []string
	if err := s.db.Unscoped().Model(&models.ErrorLog{}).
		Where("created_at < ?", cutoff).
		Pluck("cr_id", &ids).Error; err != nil {
		return 0, fmt.Errorf("failed to find expired logs: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cr_id IN ?", ids).Delete(&models.AnalysisFeedback{}).Error; err != nil {
			return err
		}
		if err := tx.Where("cr_id IN ?", ids).Delete(&models.AnalysisMemory{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("cr_id IN ?", ids).Delete(&models.AnalysisResult{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("cr_id IN ?", ids).Delete(&models.Job{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Where("cr_id IN ?", ids).Delete(&models.ErrorLog{}).Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired logs: %w", err)
	}

	logger.Info("cleanup removed expired logs", map[string]interface{}{
		"count":         len(ids),
		"retentionDays": retentionDays,
	})
	return int64(len(ids)), nil
}
