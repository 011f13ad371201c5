package service

import (
	"mentora_backend/internal/model"
	"mentora_backend/internal/repository"
	"mentora_backend/internal/util"
)

// implicitSatisfaction 隐式动作的满意度映射，未知动作中性 0.5
var implicitSatisfaction = map[string]float64{
	"complete": 0.9,
	"rate":     0.7,
	"click":    0.6,
	"view":     0.5,
	"skip":     0.2,
}

// 反馈权重：显式评分权重高于隐式信号
const (
	explicitWeight = 1.0
	implicitWeight = 0.5
)

// FeedbackService 反馈闭环：记录推荐反馈并折算质量分
type FeedbackService struct {
	FeedbackRepo *repository.FeedbackRepository
}

func NewFeedbackService(feedbackRepo *repository.FeedbackRepository) *FeedbackService {
	return &FeedbackService{FeedbackRepo: feedbackRepo}
}

// CollectImplicit 记录一次隐式反馈（点击、完成、跳过等）
func (s *FeedbackService) CollectImplicit(userID uint, recommendationID string, courseID *uint, action string, ctx model.EventMetadata) (*model.FeedbackRecord, error) {
	value, ok := implicitSatisfaction[action]
	if !ok {
		value = 0.5
	}
	record := &model.FeedbackRecord{
		UserID:           userID,
		RecommendationID: recommendationID,
		CourseID:         courseID,
		Kind:             model.FeedbackImplicit,
		Action:           action,
		Value:            value,
		Context:          ctx,
	}
	if err := s.FeedbackRepo.Create(record); err != nil {
		return nil, err
	}
	return record, nil
}

// CollectExplicit 记录一次显式评分，评分范围 0..5
func (s *FeedbackService) CollectExplicit(userID uint, recommendationID string, courseID *uint, rating float64, ctx model.EventMetadata) (*model.FeedbackRecord, error) {
	if rating < 0 || rating > 5 {
		return nil, util.ErrInvalidRating
	}
	record := &model.FeedbackRecord{
		UserID:           userID,
		RecommendationID: recommendationID,
		CourseID:         courseID,
		Kind:             model.FeedbackExplicit,
		Value:            rating,
		Context:          ctx,
	}
	if err := s.FeedbackRepo.Create(record); err != nil {
		return nil, err
	}
	return record, nil
}

// QualityScore 单条推荐的加权质量分。显式评分保持 0..5 的原始刻度，
// 隐式满意度为 0..1；无反馈时中性 0.5。
func (s *FeedbackService) QualityScore(recommendationID string) (float64, error) {
	records, err := s.FeedbackRepo.FindByRecommendation(recommendationID)
	if err != nil {
		return 0, err
	}
	return qualityFromRecords(records, false), nil
}

// QualityForCourse 课程维度的质量分，显式评分折算到 0..1 后参与加权，
// 供推荐侧的协同信号使用。
func (s *FeedbackService) QualityForCourse(courseID uint) (float64, error) {
	records, err := s.FeedbackRepo.FindByCourse(courseID)
	if err != nil {
		return 0, err
	}
	return qualityFromRecords(records, true), nil
}

// qualityFromRecords 纯计算路径。normalize 为真时显式评分除以 5。
func qualityFromRecords(records []model.FeedbackRecord, normalize bool) float64 {
	if len(records) == 0 {
		return 0.5
	}
	weightedSum, weightTotal := 0.0, 0.0
	for _, rec := range records {
		value := rec.Value
		weight := implicitWeight
		if rec.Kind == model.FeedbackExplicit {
			weight = explicitWeight
			if normalize {
				value = value / 5
			}
		}
		weightedSum += value * weight
		weightTotal += weight
	}
	if weightTotal == 0 {
		return 0.5
	}
	return weightedSum / weightTotal
}

// PerformanceMetrics 跨推荐的质量汇总（质量统一折算到 0..1）
func (s *FeedbackService) PerformanceMetrics() (*model.FeedbackSummary, error) {
	ids, err := s.FeedbackRepo.DistinctRecommendationIDs()
	if err != nil {
		return nil, err
	}

	summary := &model.FeedbackSummary{Recommendations: len(ids)}
	if len(ids) == 0 {
		return summary, nil
	}

	qualities := make([]float64, 0, len(ids))
	for _, id := range ids {
		records, err := s.FeedbackRepo.FindByRecommendation(id)
		if err != nil {
			return nil, err
		}
		q := qualityFromRecords(records, true)
		qualities = append(qualities, q)
		if q > 0.7 {
			summary.HighQuality++
		} else if q < 0.3 {
			summary.LowQuality++
		}
	}

	summary.MeanQuality = mean(qualities)
	summary.StdDevQuality = stddev(qualities)
	return summary, nil
}
