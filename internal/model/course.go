package model

// Course 课程目录条目（目录本身由外部维护，核心只查询）
type Course struct {
	BaseModel
	Title           string   `gorm:"size:255;not null" json:"title"`
	Description     string   `gorm:"type:text" json:"description"`
	Topic           string   `gorm:"size:64;index" json:"topic"`
	Difficulty      float64  `gorm:"default:0.5" json:"difficulty"` // 0..1
	DurationMinutes float64  `gorm:"default:0" json:"durationMinutes"`
	Popularity      float64  `gorm:"default:0" json:"popularity"` // 0..1
	ContentTypes    []string `gorm:"type:json;serializer:json" json:"contentTypes"`
	Tags            []string `gorm:"type:json;serializer:json" json:"tags"`
}

func (Course) TableName() string {
	return "courses"
}
