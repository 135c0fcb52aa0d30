package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bugseek/backend/internal/logger"
	"github.com/bugseek/backend/internal/models"
	"gorm.io/gorm"
)

// JobRequest represents a job request
type JobRequest struct {
	JobID uint
	Type  string
}

type JobService struct {
	db              *gorm.DB
	analysisService *AnalysisService
	errorLogService *ErrorLogService
	jobQueue        chan JobRequest
	workerCount     int
	retentionDays   int
	stopChan        chan struct{}
	wg              sync.WaitGroup
}

// NewJobService creates a new job service and starts its worker pool.
func NewJobService(db *gorm.DB, analysisService *AnalysisService, errorLogService *ErrorLogService) *JobService {
	js := &JobService{
		db:              db,
		analysisService: analysisService,
		errorLogService: errorLogService,
		jobQueue:        make(chan JobRequest, 100),
		workerCount:     envInt("JOB_WORKER_COUNT", 2),
		retentionDays:   envInt("LOG_RETENTION_DAYS", 30),
		stopChan:        make(chan struct{}),
	}

	// Start workers
	for i := 0; i < js.workerCount; i++ {
		js.wg.Add(1)
		go js.worker(i)
	}

	return js
}

// worker processes jobs from the queue
func (js *JobService) worker(id int) {
	defer js.wg.Done()

	for {
		select {
		case jobReq := <-js.jobQueue:
			logger.Info("Worker processing job", map[string]interface{}{
				"workerID": id,
				"jobID":    jobReq.JobID,
				"type":     jobReq.Type,
			})

			switch jobReq.Type {
			case models.JobTypeProcessLog:
				js.ProcessLogJob(jobReq.JobID)
			case models.JobTypeCleanupLogs:
				js.ProcessCleanupJob(jobReq.JobID)
			default:
				logger.Error("Unknown job type", map[string]interface{}{
					"jobID": jobReq.JobID,
					"type":  jobReq.Type,
				})
			}

		case <-js.stopChan:
			logger.Info("Worker stopping", map[string]interface{}{"workerID": id})
			return
		}
	}
}

// EnqueueProcessLog creates an analysis job for the given log and queues it.
func (js *JobService) EnqueueProcessLog(crID string) (*models.Job, error) {
	job := &models.Job{
		Type:     models.JobTypeProcessLog,
		CrID:     crID,
		Status:   models.JobStatusPending,
		Progress: 0,
	}
	if err := js.db.Create(job).Error; err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	if err := js.db.Model(&models.ErrorLog{}).Where("cr_id = ?", crID).
		Update("analysis_status", models.AnalysisStatusPending).Error; err != nil {
		return nil, fmt.Errorf("failed to update log status: %w", err)
	}

	select {
	case js.jobQueue <- JobRequest{JobID: job.ID, Type: job.Type}:
	default:
		js.updateJobStatus(job.ID, models.JobStatusFailed, "job queue is full", nil)
		return nil, fmt.Errorf("job queue is full")
	}
	return job, nil
}

// EnqueueCleanup queues a retention sweep over old logs.
func (js *JobService) EnqueueCleanup() (*models.Job, error) {
	job := &models.Job{
		Type:     models.JobTypeCleanupLogs,
		Status:   models.JobStatusPending,
		Progress: 0,
	}
	if err := js.db.Create(job).Error; err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	select {
	case js.jobQueue <- JobRequest{JobID: job.ID, Type: job.Type}:
	default:
		js.updateJobStatus(job.ID, models.JobStatusFailed, "job queue is full", nil)
		return nil, fmt.Errorf("job queue is full")
	}
	return job, nil
}

// ProcessLogJob runs the analysis pipeline for one stored log.
func (js *JobService) ProcessLogJob(jobID uint) {
	now := time.Now()
	if err := js.db.Model(&models.Job{}).Where("id = ?", jobID).Updates(map[string]interface{}{
		"status":     models.JobStatusRunning,
		"started_at": &now,
		"progress":   10,
	}).Error; err != nil {
		logger.Error("Failed to update job status to running", map[string]interface{}{"jobID": jobID, "error": err})
		return
	}

	var job models.Job
	if err := js.db.First(&job, jobID).Error; err != nil {
		logger.Error("Failed to get job details", map[string]interface{}{"jobID": jobID, "error": err})
		js.updateJobStatus(jobID, models.JobStatusFailed, "Failed to get job details", nil)
		return
	}

	js.updateJobProgress(jobID, 25)

	result, err := js.analysisService.RunAnalysis(context.Background(), job.CrID)
	if err != nil {
		logger.Error("Analysis failed", map[string]interface{}{"jobID": jobID, "crID": job.CrID, "error": err})
		js.updateJobStatus(jobID, models.JobStatusFailed, err.Error(), nil)
		js.db.Model(&models.ErrorLog{}).Where("cr_id = ?", job.CrID).
			Update("analysis_status", models.AnalysisStatusFailed)
		return
	}

	js.updateJobProgress(jobID, 80)

	completedAt := time.Now()
	if err := js.db.Model(&models.Job{}).Where("id = ?", jobID).Updates(map[string]interface{}{
		"status":   models.JobStatusCompleted,
		"progress": 100,
		"result": models.JSONB{
			"severity":   result.Severity,
			"source":     result.Source,
			"confidence": result.Confidence,
			"issueCount": len(result.Issues),
		},
		"completed_at": &completedAt,
	}).Error; err != nil {
		logger.Error("Failed to update job completion", map[string]interface{}{"jobID": jobID, "error": err})
		return
	}

	logger.WithJob(jobID, job.Type).Info("log analysis job completed")
}

// ProcessCleanupJob deletes logs past the retention window.
func (js *JobService) ProcessCleanupJob(jobID uint) {
	now := time.Now()
	if err := js.db.Model(&models.Job{}).Where("id = ?", jobID).Updates(map[string]interface{}{
		"status":     models.JobStatusRunning,
		"started_at": &now,
		"progress":   10,
	}).Error; err != nil {
		logger.Error("Failed to update job status to running", map[string]interface{}{"jobID": jobID, "error": err})
		return
	}

	removed, err := js.errorLogService.CleanupOldLogs(js.retentionDays)
	if err != nil {
		logger.Error("Cleanup failed", map[string]interface{}{"jobID": jobID, "error": err})
		js.updateJobStatus(jobID, models.JobStatusFailed, err.Error(), nil)
		return
	}

	js.updateJobStatus(jobID, models.JobStatusCompleted, "", map[string]interface{}{
		"removedLogs":   removed,
		"retentionDays": js.retentionDays,
	})
	js.updateJobProgress(jobID, 100)
	logger.WithJob(jobID, models.JobTypeCleanupLogs).Info("cleanup job completed")
}

// Stop drains the worker pool. Queued jobs that never started stay pending.
func (js *JobService) Stop() {
	close(js.stopChan)
	js.wg.Wait()
	logger.Info("Job workers stopped", nil)
}

// updateJobProgress updates the job progress
func (js *JobService) updateJobProgress(jobID uint, progress int) {
	if err := js.db.Model(&models.Job{}).Where("id = ?", jobID).Update("progress", progress).Error; err != nil {
		logger.Error("Failed to update job progress", map[string]interface{}{"jobID": jobID, "error": err})
	}
}

// updateJobStatus updates the job status
func (js *JobService) updateJobStatus(jobID uint, status models.JobStatus, errorMsg string, result map[string]interface{}) {
	updates := map[string]interface{}{
		"status": status,
	}

	if errorMsg != "" {
		updates["error"] = errorMsg
	}

	if result != nil {
		updates["result"] = models.JSONB(result)
	}

	if status == models.JobStatusFailed || status == models.JobStatusCompleted {
		now := time.Now()
		updates["completed_at"] = &now
	}

	if err := js.db.Model(&models.Job{}).Where("id = ?", jobID).Updates(updates).Error; err != nil {
		logger.Error("Failed to update job status", map[string]interface{}{"jobID": jobID, "error": err})
	}
}

// GetJob returns the current state of a job
func (js *JobService) GetJob(jobID uint) (*models.Job, error) {
	var job models.Job
	if err := js.db.First(&job, jobID).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// GetJobsByCrID returns all jobs recorded for a log
func (js *JobService) GetJobsByCrID(crID string) ([]models.Job, error) {
	var jobs []models.Job
	if err := js.db.Where("cr_id = ?", crID).Order("created_at DESC").Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}
