package model

import (
	"time"
)

// TrainingReport 一次模型训练的结果
type TrainingReport struct {
	Model             string             `json:"model"`
	Rows              int                `json:"rows"`
	Metrics           map[string]float64 `json:"metrics"`
	FeatureImportance map[string]float64 `json:"featureImportance"`
	TrainedAt         time.Time          `json:"trainedAt"`
}

// ModelStatus 模型的可用状态
type ModelStatus struct {
	Name        string     `json:"name"`
	IsTrained   bool       `json:"isTrained"`
	LastTrained *time.Time `json:"lastTrained,omitempty"`
	Rows        int        `json:"rows"`
}

// PredictedOutcome 预测分析引擎的综合产出
type PredictedOutcome struct {
	UserID               uint      `json:"userId"`
	CompletionLikelihood float64   `json:"completionLikelihood"`
	SuccessProbability   float64   `json:"successProbability"`
	EngagementForecast   float64   `json:"engagementForecast"`
	PredictedOutcome     float64   `json:"predictedOutcome"` // 0.4/0.4/0.2 加权
	Confidence           float64   `json:"confidence"`       // 1 - stdev(三个原始预测)
	Recommendations      []string  `json:"recommendations"`
	GeneratedAt          time.Time `json:"generatedAt"`
}
