package models

import (
	"time"

	"gorm.io/gorm"
)

type AnalysisStatus string

const (
	AnalysisStatusPending   AnalysisStatus = "pending"
	AnalysisStatusRunning   AnalysisStatus = "running"
	AnalysisStatusCompleted AnalysisStatus = "completed"
	AnalysisStatusFailed    AnalysisStatus = "failed"
)

// ContentPreviewChars bounds how much log content list and report payloads
// carry; full content stays behind the detail endpoint.
const ContentPreviewChars = 500

type ErrorLog struct {
	CrID             string         `json:"crId" gorm:"type:uuid;primaryKey"`
	TeamName         string         `json:"teamName" gorm:"not null;index"`
	Module           string         `json:"module" gorm:"not null;index"`
	Description      string         `json:"description" gorm:"type:text"`
	Owner            string         `json:"owner" gorm:"index"`
	LogFileName      string         `json:"logFileName" gorm:"not null"`
	ErrorName        string         `json:"errorName" gorm:"index"`
	LogContent       string         `json:"logContent" gorm:"type:text"`
	FileSize         int64          `json:"fileSize"`
	SolutionPossible bool           `json:"solutionPossible" gorm:"default:false"`
	AnalysisStatus   AnalysisStatus `json:"analysisStatus" gorm:"not null;default:'pending'"`
	UploadedBy       *uint          `json:"uploadedBy"`
	CreatedAt        time.Time      `json:"createdAt" gorm:"index"`
	UpdatedAt        time.Time      `json:"updatedAt"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`
}

func (ErrorLog) TableName() string {
	return "error_logs"
}

// ContentPreview returns the truncated log content used in list payloads.
func (e *ErrorLog) ContentPreview() string {
	if len(e.LogContent) <= ContentPreviewChars {
		return e.LogContent
	}
	return e.LogContent[:ContentPreviewChars] + "..."
}
