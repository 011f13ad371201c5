package repository

import (
	"time"

	"mentora_backend/internal/model"

	"gorm.io/gorm"
)

// FeedbackRepository 推荐反馈的追加与查询
type FeedbackRepository struct {
	DB *gorm.DB
}

func NewFeedbackRepository(db *gorm.DB) *FeedbackRepository {
	return &FeedbackRepository{DB: db}
}

func (r *FeedbackRepository) Create(record *model.FeedbackRecord) error {
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	record.Context = record.Context.Sanitize()
	return r.DB.Create(record).Error
}

func (r *FeedbackRepository) FindByRecommendation(recommendationID string) ([]model.FeedbackRecord, error) {
	var records []model.FeedbackRecord
	err := r.DB.Where("recommendation_id = ?", recommendationID).
		Order("timestamp ASC").
		Find(&records).Error
	return records, err
}

func (r *FeedbackRepository) FindByCourse(courseID uint) ([]model.FeedbackRecord, error) {
	var records []model.FeedbackRecord
	err := r.DB.Where("course_id = ?", courseID).
		Order("timestamp ASC").
		Find(&records).Error
	return records, err
}

func (r *FeedbackRepository) DistinctRecommendationIDs() ([]string, error) {
	var ids []string
	err := r.DB.Model(&model.FeedbackRecord{}).
		Distinct("recommendation_id").
		Pluck("recommendation_id", &ids).Error
	return ids, err
}
