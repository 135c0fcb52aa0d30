package models

import (
	"time"

	"gorm.io/gorm"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

const (
	JobTypeProcessLog  = "process_log"
	JobTypeCleanupLogs = "cleanup_old_logs"
)

type Job struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Type        string         `json:"type" gorm:"not null"` // process_log, cleanup_old_logs
	CrID        string         `json:"crId" gorm:"type:uuid;index"`
	Status      JobStatus      `json:"status" gorm:"not null;default:'pending'"`
	Progress    int            `json:"progress" gorm:"default:0"`
	Result      JSONB          `json:"result" gorm:"type:jsonb"`
	Error       string         `json:"error"`
	StartedAt   *time.Time     `json:"startedAt"`
	CompletedAt *time.Time     `json:"completedAt"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Job) TableName() string {
	return "jobs"
}
