package repository

import (
	"time"

	"mentora_backend/internal/model"

	"gorm.io/gorm"
)

// BehaviorRepository 行为存储：追加/查询交互事件与参与度聚合
type BehaviorRepository struct {
	DB *gorm.DB
}

func NewBehaviorRepository(db *gorm.DB) *BehaviorRepository {
	return &BehaviorRepository{DB: db}
}

func (r *BehaviorRepository) Create(event *model.BehaviorEvent) error {
	event.Metadata = event.Metadata.Sanitize()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return r.DB.Create(event).Error
}

// QueryByUser 按时间升序返回窗口内的事件；types 为空时不过滤类型
func (r *BehaviorRepository) QueryByUser(userID uint, since, until time.Time, types []model.EventType) ([]model.BehaviorEvent, error) {
	var events []model.BehaviorEvent
	q := r.DB.Where("user_id = ? AND timestamp >= ? AND timestamp <= ?", userID, since, until)
	if len(types) > 0 {
		q = q.Where("event_type IN ?", types)
	}
	err := q.Order("timestamp ASC").Find(&events).Error
	return events, err
}

func (r *BehaviorRepository) CountByUser(userID uint, since time.Time) (int64, error) {
	var count int64
	err := r.DB.Model(&model.BehaviorEvent{}).
		Where("user_id = ? AND timestamp >= ?", userID, since).
		Count(&count).Error
	return count, err
}

// DistinctUserIDs 窗口内有行为记录的用户
func (r *BehaviorRepository) DistinctUserIDs(since time.Time) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.BehaviorEvent{}).
		Where("timestamp >= ?", since).
		Distinct("user_id").
		Pluck("user_id", &ids).Error
	return ids, err
}

// AnonymizeByUser 抹掉元数据与会话标识，数值字段留给聚合统计
func (r *BehaviorRepository) AnonymizeByUser(userID uint) (int64, error) {
	result := r.DB.Model(&model.BehaviorEvent{}).
		Where("user_id = ? AND is_anonymized = ?", userID, false).
		Updates(map[string]interface{}{
			"metadata":      nil,
			"session_id":    "",
			"is_anonymized": true,
		})
	return result.RowsAffected, result.Error
}

// EngagementMetrics 按天聚合的参与度指标
func (r *BehaviorRepository) EngagementMetrics(userID uint, since time.Time) ([]model.EngagementMetric, error) {
	var metrics []model.EngagementMetric
	err := r.DB.Raw(`
		SELECT user_id,
		       DATE(timestamp) AS date,
		       COUNT(DISTINCT session_id) AS session_count,
		       COALESCE(SUM(duration_seconds), 0) / 60 AS total_minutes,
		       COALESCE(AVG(engagement_score), 0) AS avg_engagement
		FROM behavior_events
		WHERE user_id = ? AND timestamp >= ? AND deleted_at IS NULL
		GROUP BY user_id, DATE(timestamp)
		ORDER BY date ASC`, userID, since).
		Scan(&metrics).Error
	return metrics, err
}
