package models

import (
	"time"
)

// AnalysisFeedback records whether a report's analysis was useful to a
// reader, with an optional free-form correction.
type AnalysisFeedback struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CrID      string    `json:"crId" gorm:"type:uuid;not null;index"`
	UserID    *uint     `json:"userId"`
	Helpful   bool      `json:"helpful"`
	Comment   string    `json:"comment" gorm:"type:text"`
	CreatedAt time.Time `json:"createdAt"`
}

// FeedbackSummary aggregates feedback for one log's report.
type FeedbackSummary struct {
	CrID      string `json:"crId"`
	Helpful   int64  `json:"helpful"`
	Unhelpful int64  `json:"unhelpful"`
}

func (AnalysisFeedback) TableName() string {
	return "analysis_feedbacks"
}
