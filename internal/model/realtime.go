package model

import (
	"time"
)

type AdjustmentType string

const (
	AdjustEngagementBoost     AdjustmentType = "engagement_boost"
	AdjustDifficultyReduction AdjustmentType = "difficulty_reduction"
	AdjustDifficultyIncrease  AdjustmentType = "difficulty_increase"
	AdjustAttentionRecovery   AdjustmentType = "attention_recovery"
	AdjustPacingBreak         AdjustmentType = "pacing_break"
)

// SessionWindowMetrics 滚动 5 分钟窗口的会话指标
type SessionWindowMetrics struct {
	InteractionRate float64 `json:"interactionRate"`
	StruggleCount   float64 `json:"struggleCount"`
	SuccessCount    float64 `json:"successCount"`
	AttentionScore  float64 `json:"attentionScore"`
	SessionMinutes  float64 `json:"sessionMinutes"`
}

// AdjustmentDirective 单条触发的调整指令
type AdjustmentDirective struct {
	Type    AdjustmentType `json:"type"`
	Message string         `json:"message"`
	Hints   []string       `json:"hints,omitempty"`
	Weight  float64        `json:"weight"`
}

// RealTimeAdjustment 至少一条规则触发时的实时调整载荷
type RealTimeAdjustment struct {
	SessionID   string                `json:"sessionId"`
	UserID      uint                  `json:"userId"`
	Directives  []AdjustmentDirective `json:"directives"`
	Confidence  float64               `json:"confidence"`
	Window      SessionWindowMetrics  `json:"window"`
	GeneratedAt time.Time             `json:"generatedAt"`
}
