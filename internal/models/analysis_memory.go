package models

import (
	"time"

	"github.com/lib/pq"
)

// AnalysisMemory holds the feature vector of a previously analyzed log. The
// set of memories is the corpus the similarity index ranks against.
type AnalysisMemory struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CrID      string         `json:"crId" gorm:"type:uuid;uniqueIndex;not null"`
	Vector    FeatureVector  `json:"vector" gorm:"type:jsonb"`
	Keywords  pq.StringArray `json:"keywords" gorm:"type:text[]"`
	CreatedAt time.Time      `json:"createdAt" gorm:"index"`
}

func (AnalysisMemory) TableName() string {
	return "analysis_memories"
}
