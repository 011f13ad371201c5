package model

import (
	"time"
)

type FeedbackKind string

const (
	FeedbackImplicit FeedbackKind = "implicit"
	FeedbackExplicit FeedbackKind = "explicit"
)

// FeedbackRecord 对某条推荐的显式/隐式反馈，只追加不修改
type FeedbackRecord struct {
	BaseModel
	UserID           uint          `gorm:"index;not null" json:"userId"`
	RecommendationID string        `gorm:"size:36;index;not null" json:"recommendationId"`
	CourseID         *uint         `gorm:"index" json:"courseId,omitempty"`
	Kind             FeedbackKind  `gorm:"size:16" json:"kind"`
	Action           string        `gorm:"size:32" json:"action,omitempty"` // 隐式反馈的动作
	Value            float64       `json:"value"`                           // 显式为 0..5 评分，隐式为动作满意度
	Context          EventMetadata `gorm:"type:json;serializer:json" json:"context,omitempty"`
	Timestamp        time.Time     `gorm:"index" json:"timestamp"`
}

func (FeedbackRecord) TableName() string {
	return "feedback_records"
}

// FeedbackSummary 跨推荐的质量汇总
type FeedbackSummary struct {
	Recommendations int     `json:"recommendations"`
	MeanQuality     float64 `json:"meanQuality"`
	StdDevQuality   float64 `json:"stdDevQuality"`
	HighQuality     int     `json:"highQuality"` // quality > 0.7
	LowQuality      int     `json:"lowQuality"`  // quality < 0.3
}
