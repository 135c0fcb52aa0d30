package controllers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bugseek/backend/internal/logger"
	"github.com/bugseek/backend/internal/models"
	"github.com/bugseek/backend/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type LogController struct {
	errorLogService *services.ErrorLogService
	jobService      *services.JobService
	uploadDir       string
	maxUploadBytes  int64
}

func NewLogController(errorLogService *services.ErrorLogService, jobService *services.JobService) *LogController {
	maxMB := 16
	if v := os.Getenv("MAX_UPLOAD_SIZE_MB"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			maxMB = parsed
		}
	}
	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "uploads/logs"
	}
	return &LogController{
		errorLogService: errorLogService,
		jobService:      jobService,
		uploadDir:       uploadDir,
		maxUploadBytes:  int64(maxMB) * 1024 * 1024,
	}
}

// LogSummary is the listing shape: full content replaced with a preview.
type LogSummary struct {
	CrID           string                `json:"crId"`
	TeamName       string                `json:"teamName"`
	Module         string                `json:"module"`
	Description    string                `json:"description"`
	Owner          string                `json:"owner"`
	LogFileName    string                `json:"logFileName"`
	ErrorName      string                `json:"errorName"`
	ContentPreview string                `json:"contentPreview"`
	FileSize       int64                 `json:"fileSize"`
	AnalysisStatus models.AnalysisStatus `json:"analysisStatus"`
	CreatedAt      time.Time             `json:"createdAt"`
}

// Upload accepts a multipart log file plus metadata and queues its analysis.
func (lc *LogController) Upload(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	file, err := c.FormFile("logfile")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	meta := UploadMeta{
		TeamName:    c.PostForm("teamName"),
		Module:      c.PostForm("module"),
		Owner:       c.PostForm("owner"),
		Description: c.PostForm("description"),
		ErrorName:   c.PostForm("errorName"),
		FileName:    file.Filename,
		FileSize:    file.Size,
	}
	if problems := ValidateUploadMeta(meta, lc.maxUploadBytes); len(problems) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid upload", "problems": problems})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}
	defer src.Close()

	content, err := io.ReadAll(io.LimitReader(src, lc.maxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}
	if int64(len(content)) > lc.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File exceeds upload size limit"})
		return
	}

	// Keep the raw upload on disk under a unique name for later download.
	if err := os.MkdirAll(lc.uploadDir, 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create upload directory"})
		return
	}
	storedName := fmt.Sprintf("%d_%s", time.Now().Unix(), filepath.Base(file.Filename))
	if err := os.WriteFile(filepath.Join(lc.uploadDir, storedName), content, 0644); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file"})
		return
	}

	uid := userID.(uint)
	errorLog := &models.ErrorLog{
		TeamName:    meta.TeamName,
		Module:      meta.Module,
		Description: meta.Description,
		Owner:       meta.Owner,
		LogFileName: file.Filename,
		ErrorName:   meta.ErrorName,
		LogContent:  string(content),
		FileSize:    file.Size,
		UploadedBy:  &uid,
	}
	if err := lc.errorLogService.Create(errorLog); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save log record"})
		return
	}

	job, err := lc.jobService.EnqueueProcessLog(errorLog.CrID)
	if err != nil {
		logger.WithErrorLog(errorLog.CrID, errorLog.LogFileName).WithField("error", err).
			Error("failed to enqueue analysis job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue analysis"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":   "Log uploaded, analysis queued",
		"crId":      errorLog.CrID,
		"jobId":     job.ID,
		"reportUrl": fmt.Sprintf("/api/v1/reports/%s", errorLog.CrID),
	})
}

// List returns a filtered, paginated page of logs with content previews.
func (lc *LogController) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	filters := services.ErrorLogFilters{
		TeamName:  c.Query("teamName"),
		Module:    c.Query("module"),
		Owner:     c.Query("owner"),
		ErrorName: c.Query("errorName"),
		Search:    c.Query("search"),
		Page:      page,
		Limit:     limit,
	}

	logs, total, err := lc.errorLogService.List(filters)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch logs"})
		return
	}

	summaries := make([]LogSummary, 0, len(logs))
	for _, l := range logs {
		summaries = append(summaries, LogSummary{
			CrID:           l.CrID,
			TeamName:       l.TeamName,
			Module:         l.Module,
			Description:    l.Description,
			Owner:          l.Owner,
			LogFileName:    l.LogFileName,
			ErrorName:      l.ErrorName,
			ContentPreview: l.ContentPreview(),
			FileSize:       l.FileSize,
			AnalysisStatus: l.AnalysisStatus,
			CreatedAt:      l.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"logs": summaries,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// Get returns one log with full content and its processing jobs.
func (lc *LogController) Get(c *gin.Context) {
	crID := c.Param("crId")

	errorLog, err := lc.errorLogService.GetByCrID(crID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Log not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch log"})
		}
		return
	}

	jobs, err := lc.jobService.GetJobsByCrID(crID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch jobs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"log":  errorLog,
		"jobs": jobs,
	})
}

// Delete removes a log. Only the uploader or an admin may delete.
func (lc *LogController) Delete(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	crID := c.Param("crId")

	errorLog, err := lc.errorLogService.GetByCrID(crID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Log not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch log"})
		}
		return
	}

	role, _ := c.Get("userRole")
	isAdmin := role == string(models.RoleAdmin)
	isOwner := errorLog.UploadedBy != nil && *errorLog.UploadedBy == userID.(uint)
	if !isAdmin && !isOwner {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	if err := lc.errorLogService.Delete(crID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete log"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Log deleted successfully"})
}

// GetJob returns job status and progress for upload polling.
func (lc *LogController) GetJob(c *gin.Context) {
	jobID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid job ID"})
		return
	}

	job, err := lc.jobService.GetJob(uint(jobID))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch job"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"job": job})
}
