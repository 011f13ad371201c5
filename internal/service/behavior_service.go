package service

import (
	"time"

	"mentora_backend/internal/model"
	"mentora_backend/internal/repository"
)

// BehaviorService 行为事件的写入口与隐私处理
type BehaviorService struct {
	BehaviorRepo *repository.BehaviorRepository
}

func NewBehaviorService(behaviorRepo *repository.BehaviorRepository) *BehaviorService {
	return &BehaviorService{BehaviorRepo: behaviorRepo}
}

// Record 事件入库，元数据在仓储层过白名单
func (s *BehaviorService) Record(event *model.BehaviorEvent) error {
	return s.BehaviorRepo.Create(event)
}

// History 查询窗口内的事件
func (s *BehaviorService) History(userID uint, window time.Duration) ([]model.BehaviorEvent, error) {
	now := time.Now()
	return s.BehaviorRepo.QueryByUser(userID, now.Add(-window), now, nil)
}

// Anonymize 抹掉用户事件的元数据与会话关联，保留聚合所需的数值字段
func (s *BehaviorService) Anonymize(userID uint) (int64, error) {
	return s.BehaviorRepo.AnonymizeByUser(userID)
}
