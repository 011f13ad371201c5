package model

import (
	"time"
)

type TestStatus string

const (
	TestActive    TestStatus = "active"
	TestCompleted TestStatus = "completed"
)

// VariantStats 单个实验分支的累计指标
type VariantStats struct {
	Users       int     `json:"users"`
	Conversions int     `json:"conversions"`
	MetricSum   float64 `json:"metricSum"`
}

// ABTest 一次受控实验。创建后由分配/转化调用修改，
// 过了结束时间只读。
type ABTest struct {
	BaseModel
	Name          string                   `gorm:"size:128;uniqueIndex;not null" json:"name"`
	Variants      []string                 `gorm:"type:json;serializer:json" json:"variants"`
	TrafficSplit  []float64                `gorm:"type:json;serializer:json" json:"trafficSplit"`
	SuccessMetric string                   `gorm:"size:64" json:"successMetric"`
	StartDate     time.Time                `json:"startDate"`
	EndDate       time.Time                `json:"endDate"`
	Status        TestStatus               `gorm:"size:16;default:'active'" json:"status"`
	Assignments   map[string]string        `gorm:"type:json;serializer:json" json:"assignments"` // userID -> variant
	Stats         map[string]*VariantStats `gorm:"type:json;serializer:json" json:"stats"`
}

func (ABTest) TableName() string {
	return "ab_tests"
}

func (t *ABTest) CompletedAt(now time.Time) bool {
	return now.After(t.EndDate)
}

// VariantResult 实验结果中单分支的汇总
type VariantResult struct {
	Variant        string  `json:"variant"`
	Users          int     `json:"users"`
	Conversions    int     `json:"conversions"`
	ConversionRate float64 `json:"conversionRate"`
	AvgMetric      float64 `json:"avgMetric"`
}

// SignificanceResult 两分支实验的双比例 z 检验结果
type SignificanceResult struct {
	ZScore       float64 `json:"zScore"`
	PValue       float64 `json:"pValue"`
	Significant  bool    `json:"significant"` // p < 0.05
	RelativeLift float64 `json:"relativeLift"`
}

type TestResults struct {
	Name         string              `json:"name"`
	Status       TestStatus          `json:"status"`
	Variants     []VariantResult     `json:"variants"`
	Significance *SignificanceResult `json:"significance,omitempty"`
}
