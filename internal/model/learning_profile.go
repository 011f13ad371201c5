package model

import (
	"time"
)

type DifficultyPreference string

const (
	DifficultyBeginner     DifficultyPreference = "beginner"
	DifficultyIntermediate DifficultyPreference = "intermediate"
	DifficultyAdvanced     DifficultyPreference = "advanced"
)

// UserLearningProfile 每用户唯一的学习画像，驱动所有下游个性化决策。
// 首次合成时创建，之后原地更新；所有有界分值保持在 [0,1]。
type UserLearningProfile struct {
	BaseModel
	UserID                 uint                 `gorm:"uniqueIndex;not null" json:"userId"`
	LearningStyle          LearningStyle        `gorm:"size:16;default:'unknown'" json:"learningStyle"`
	AttentionSpan          float64              `gorm:"default:0" json:"attentionSpan"` // 分钟
	PreferredDifficulty    DifficultyPreference `gorm:"size:16;default:'beginner'" json:"preferredDifficulty"`
	CompletionRate         float64              `gorm:"default:0" json:"completionRate"`
	AvgSessionDuration     float64              `gorm:"default:0" json:"avgSessionDuration"` // 分钟
	TotalLearningTime      float64              `gorm:"default:0" json:"totalLearningTime"`  // 分钟
	CoursesCompleted       int                  `gorm:"default:0" json:"coursesCompleted"`
	EngagementScore        float64              `gorm:"default:0" json:"engagementScore"`
	ConsistencyScore       float64              `gorm:"default:0" json:"consistencyScore"`
	ChallengePreference    float64              `gorm:"default:0" json:"challengePreference"`
	StrongTopics           []string             `gorm:"type:json;serializer:json" json:"strongTopics"`
	ChallengingTopics      []string             `gorm:"type:json;serializer:json" json:"challengingTopics"`
	CurrentDifficultyLevel float64              `gorm:"default:0" json:"currentDifficultyLevel"`
	AdaptationRate         float64              `gorm:"default:0.1" json:"adaptationRate"`
	LastUpdated            time.Time            `json:"lastUpdated"`
}

func (UserLearningProfile) TableName() string {
	return "user_learning_profiles"
}

// ClampScores 保证有界字段落在 [0,1]
func (p *UserLearningProfile) ClampScores() {
	p.CompletionRate = clamp01(p.CompletionRate)
	p.EngagementScore = clamp01(p.EngagementScore)
	p.ConsistencyScore = clamp01(p.ConsistencyScore)
	p.ChallengePreference = clamp01(p.ChallengePreference)
	p.CurrentDifficultyLevel = clamp01(p.CurrentDifficultyLevel)
	p.AdaptationRate = clamp01(p.AdaptationRate)
}

// DifficultyBandFor 把连续难度映射到偏好档位
func DifficultyBandFor(level float64) DifficultyPreference {
	switch {
	case level < 0.35:
		return DifficultyBeginner
	case level < 0.7:
		return DifficultyIntermediate
	default:
		return DifficultyAdvanced
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
