package model

// AdaptedContent 单次请求计算的内容适配结果，不落库
type AdaptedContent struct {
	ContentID          uint     `json:"contentId"`
	OriginalDifficulty float64  `json:"originalDifficulty"`
	AdaptedDifficulty  float64  `json:"adaptedDifficulty"`
	Modifications      []string `json:"modifications"`
	ExplanationStyle   string   `json:"explanationStyle"`
	PacingMultiplier   float64  `json:"pacingMultiplier"`
}

// PacingAdjustment 节奏调整建议，置信度不足时不产出
type PacingAdjustment struct {
	UserID     uint    `json:"userId"`
	CourseID   uint    `json:"courseId"`
	Multiplier float64 `json:"multiplier"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// AssessmentModification 测评难度调整；幅度小于阈值时不返回，避免频繁抖动
type AssessmentModification struct {
	AssessmentID       uint    `json:"assessmentId"`
	OriginalDifficulty float64 `json:"originalDifficulty"`
	AdjustedDifficulty float64 `json:"adjustedDifficulty"`
	PerformanceTrend   float64 `json:"performanceTrend"`
	Reason             string  `json:"reason"`
}
