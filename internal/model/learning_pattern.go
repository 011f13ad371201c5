package model

import (
	"time"
)

type LearningStyle string

const (
	StyleVisual      LearningStyle = "visual"
	StyleAuditory    LearningStyle = "auditory"
	StyleKinesthetic LearningStyle = "kinesthetic"
	StyleReading     LearningStyle = "reading"
	StyleMixed       LearningStyle = "mixed"
	StyleUnknown     LearningStyle = "unknown"
)

// LearningPattern 由行为事件聚合得出的风格画像前驱。
// 周期性整体重算，不做增量合并。
type LearningPattern struct {
	BaseModel
	UserID                  uint          `gorm:"uniqueIndex;not null" json:"userId"`
	Style                   LearningStyle `gorm:"size:16;default:'unknown'" json:"style"`
	Confidence              float64       `gorm:"default:0" json:"confidence"` // 0..1
	PreferredContentTypes   []string      `gorm:"type:json;serializer:json" json:"preferredContentTypes"`
	OptimalSessionMinutes   float64       `gorm:"default:0" json:"optimalSessionMinutes"`
	PreferredHours          []int         `gorm:"type:json;serializer:json" json:"preferredHours"` // 0..23
	AvgAttentionSpanMinutes float64       `gorm:"default:0" json:"avgAttentionSpanMinutes"`
	StrongTopics            []string      `gorm:"type:json;serializer:json" json:"strongTopics"`
	ChallengingTopics       []string      `gorm:"type:json;serializer:json" json:"challengingTopics"`
	DataPointCount          int           `gorm:"default:0" json:"dataPointCount"`
	LastCalculated          time.Time     `json:"lastCalculated"`
}

func (LearningPattern) TableName() string {
	return "learning_patterns"
}
