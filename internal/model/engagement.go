package model

import (
	"time"
)

// EngagementMetric 每用户每日的参与度聚合，由行为存储按需算出
type EngagementMetric struct {
	UserID        uint      `json:"userId"`
	Date          time.Time `json:"date"`
	SessionCount  int       `json:"sessionCount"`
	TotalMinutes  float64   `json:"totalMinutes"`
	AvgEngagement float64   `json:"avgEngagement"`
}
