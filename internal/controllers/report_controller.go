package controllers

import (
	"errors"
	"net/http"

	"github.com/bugseek/backend/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ReportController struct {
	analysisService *services.AnalysisService
	feedbackService *services.FeedbackService
}

func NewReportController(analysisService *services.AnalysisService, feedbackService *services.FeedbackService) *ReportController {
	return &ReportController{
		analysisService: analysisService,
		feedbackService: feedbackService,
	}
}

type SubmitFeedbackRequest struct {
	Helpful *bool  `json:"helpful" binding:"required"`
	Comment string `json:"comment"`
}

// GetReport returns the analysis report for a log. While analysis is still
// pending or running the envelope carries the status and no analysis body.
func (rc *ReportController) GetReport(c *gin.Context) {
	crID := c.Param("crId")

	report, err := rc.analysisService.GetReport(crID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Log not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch report"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}

// SubmitFeedback records whether the report helped.
func (rc *ReportController) SubmitFeedback(c *gin.Context) {
	crID := c.Param("crId")

	var req SubmitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := c.Get("userID")
	var userIDPtr *uint
	if uid, ok := userID.(uint); ok {
		userIDPtr = &uid
	}

	feedback, err := rc.feedbackService.Submit(crID, userIDPtr, *req.Helpful, req.Comment)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Log not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store feedback"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Feedback submitted successfully",
		"feedback": feedback,
	})
}

// ListFeedback returns the helpful/unhelpful tallies and every feedback
// entry for a log.
func (rc *ReportController) ListFeedback(c *gin.Context) {
	crID := c.Param("crId")

	summary, err := rc.feedbackService.Summary(crID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch feedback"})
		return
	}

	feedbacks, err := rc.feedbackService.List(crID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch feedback"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"summary":  summary,
		"feedback": feedbacks,
	})
}
