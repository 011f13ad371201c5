package model

// ComponentScores 综合分的各组成项
type ComponentScores struct {
	TopicMatch       float64 `json:"topicMatch"`
	StyleMatch       float64 `json:"styleMatch"`
	DifficultyMatch  float64 `json:"difficultyMatch"`
	PerformanceBoost float64 `json:"performanceBoost"`
	Popularity       float64 `json:"popularity"`
	Collaborative    float64 `json:"collaborative"`
}

// CourseRecommendation 排序后的推荐条目，不落库；
// RecommendationID 用于反馈闭环的归因。
type CourseRecommendation struct {
	RecommendationID      string          `json:"recommendationId"`
	CourseID              uint            `json:"courseId"`
	Title                 string          `json:"title"`
	CompositeScore        float64         `json:"compositeScore"`
	ComponentScores       ComponentScores `json:"componentScores"`
	Reason                string          `json:"reason"`
	RecommendedDifficulty float64         `json:"recommendedDifficulty"`
	EstimatedMinutes      float64         `json:"estimatedMinutes"`
}
