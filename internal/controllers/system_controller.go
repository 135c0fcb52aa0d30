package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/bugseek/backend/internal/models"
	"github.com/bugseek/backend/internal/services"
	"github.com/gin-gonic/gin"
)

type SystemController struct {
	errorLogService *services.ErrorLogService
	jobService      *services.JobService
	orchestrator    *services.AnalysisOrchestrator
}

func NewSystemController(errorLogService *services.ErrorLogService, jobService *services.JobService, orchestrator *services.AnalysisOrchestrator) *SystemController {
	return &SystemController{
		errorLogService: errorLogService,
		jobService:      jobService,
		orchestrator:    orchestrator,
	}
}

// Statistics returns the dashboard aggregates.
func (sc *SystemController) Statistics(c *gin.Context) {
	stats, err := sc.errorLogService.Statistics()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute statistics"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"statistics": stats})
}

// LLMHealth probes the configured LLM backend.
func (sc *SystemController) LLMHealth(c *gin.Context) {
	if !sc.orchestrator.Enabled() {
		c.JSON(http.StatusOK, gin.H{
			"status":  "disabled",
			"enabled": false,
		})
		return
	}

	probeCtx, probeCancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer probeCancel()

	if err := sc.orchestrator.LLMHealth(probeCtx); err != nil {
		c.JSON(http.StatusOK, gin.H{
			"status":  "unhealthy",
			"enabled": true,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"enabled": true,
	})
}

// AdminCleanup queues a retention sweep. Admin only.
func (sc *SystemController) AdminCleanup(c *gin.Context) {
	role, _ := c.Get("userRole")
	if role != string(models.RoleAdmin) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}

	job, err := sc.jobService.EnqueueCleanup()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue cleanup"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Cleanup queued",
		"jobId":   job.ID,
	})
}
