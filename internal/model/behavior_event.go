package model

import (
	"time"
)

type EventType string

const (
	EventPageView           EventType = "page_view"
	EventClick              EventType = "click"
	EventScroll             EventType = "scroll"
	EventCourseStart        EventType = "course_start"
	EventCourseComplete     EventType = "course_complete"
	EventChapterStart       EventType = "chapter_start"
	EventChapterComplete    EventType = "chapter_complete"
	EventAssessmentStart    EventType = "assessment_start"
	EventAssessmentComplete EventType = "assessment_complete"
	EventContentInteraction EventType = "content_interaction"
)

// metadataKeyKinds 元数据白名单：键 -> 允许的值类型
var metadataKeyKinds = map[string]string{
	"action":       "string",
	"topic":        "string",
	"content_type": "string",
	"device":       "string",
	"source":       "string",
	"correct":      "bool",
	"score":        "number",
	"progress":     "number",
	"tags":         "strings",
}

const maxMetadataTags = 8

// EventMetadata 事件元数据。只接受白名单内、类型正确的键，
// 其余在入口处丢弃。
type EventMetadata map[string]interface{}

// Sanitize 返回只含合法键值的副本，非法键直接丢弃。
func (m EventMetadata) Sanitize() EventMetadata {
	if m == nil {
		return nil
	}
	out := make(EventMetadata, len(m))
	for key, raw := range m {
		kind, ok := metadataKeyKinds[key]
		if !ok {
			continue
		}
		switch kind {
		case "string":
			if s, ok := raw.(string); ok && s != "" {
				out[key] = s
			}
		case "bool":
			if b, ok := raw.(bool); ok {
				out[key] = b
			}
		case "number":
			switch v := raw.(type) {
			case float64:
				out[key] = v
			case int:
				out[key] = float64(v)
			}
		case "strings":
			out.putStrings(key, raw)
		}
	}
	return out
}

func (m EventMetadata) putStrings(key string, raw interface{}) {
	var tags []string
	switch v := raw.(type) {
	case []string:
		tags = v
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				tags = append(tags, s)
			}
		}
	default:
		return
	}
	if len(tags) == 0 {
		return
	}
	if len(tags) > maxMetadataTags {
		tags = tags[:maxMetadataTags]
	}
	m[key] = tags
}

func (m EventMetadata) GetString(key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func (m EventMetadata) GetNumber(key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	if v, ok := m[key].(float64); ok {
		return v, true
	}
	return 0, false
}

// Action 实时监控里最常读取的键
func (m EventMetadata) Action() string {
	return m.GetString("action")
}

// BehaviorEvent 一条用户交互记录。由外部采集链路写入，核心只读；
// 匿名化重写是唯一的例外。
type BehaviorEvent struct {
	BaseModel
	UserID          uint          `gorm:"index;not null" json:"userId"`
	SessionID       string        `gorm:"size:64;index" json:"sessionId"`
	EventType       EventType     `gorm:"size:32;index" json:"eventType"`
	CourseID        *uint         `gorm:"index" json:"courseId,omitempty"`
	ChapterID       *uint         `json:"chapterId,omitempty"`
	Timestamp       time.Time     `gorm:"index" json:"timestamp"`
	DurationSeconds float64       `gorm:"default:0" json:"durationSeconds"`
	EngagementScore float64       `gorm:"default:0" json:"engagementScore"` // 0..1
	Metadata        EventMetadata `gorm:"type:json;serializer:json" json:"metadata,omitempty"`
	IsAnonymized    bool          `gorm:"default:false" json:"isAnonymized"`
}

func (BehaviorEvent) TableName() string {
	return "behavior_events"
}
