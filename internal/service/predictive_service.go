package service

import (
	"math"
	"sync"
	"time"

	"mentora_backend/internal/config"
	"mentora_backend/internal/model"
	"mentora_backend/internal/repository"
	"mentora_backend/internal/util"
)

// PredictiveService 学习结果预测：完成率（线性）、成功率（逻辑）、
// 参与度走势（线性）三个模型，特征来自行为特征向量。
type PredictiveService struct {
	Cfg          *config.PersonalizationConfig
	BehaviorRepo *repository.BehaviorRepository
	Features     *FeatureService

	mu         sync.RWMutex
	completion linearModel
	success    logisticModel
	engagement linearModel
	trained    bool
	trainedAt  time.Time
	rows       int
}

func NewPredictiveService(cfg *config.PersonalizationConfig, behaviorRepo *repository.BehaviorRepository, features *FeatureService) *PredictiveService {
	return &PredictiveService{Cfg: cfg, BehaviorRepo: behaviorRepo, Features: features}
}

func (s *PredictiveService) minTrainingRows() int {
	if s.Cfg != nil && s.Cfg.MinTrainingRows > 0 {
		return s.Cfg.MinTrainingRows
	}
	return 50
}

func (s *PredictiveService) window() time.Duration {
	if s.Cfg != nil {
		return s.Cfg.ProfileWindow()
	}
	return 90 * 24 * time.Hour
}

// Train 重训三个预测模型。活跃用户不足时返回 util.ErrInsufficientData。
func (s *PredictiveService) Train() (*model.TrainingReport, error) {
	since := time.Now().Add(-s.window())
	userIDs, err := s.BehaviorRepo.DistinctUserIDs(since)
	if err != nil {
		return nil, err
	}
	if len(userIDs) < s.minTrainingRows() {
		return nil, util.ErrInsufficientData
	}

	features := make([][]float64, 0, len(userIDs))
	completionTargets := make([]float64, 0, len(userIDs))
	successLabels := make([]float64, 0, len(userIDs))
	engagementTargets := make([]float64, 0, len(userIDs))

	for _, userID := range userIDs {
		vec, events, err := s.Features.ExtractForUser(userID, s.window())
		if err != nil {
			return nil, err
		}
		if len(events) == 0 {
			continue
		}

		completion := completionRatio(events)
		features = append(features, vec.Slice())
		completionTargets = append(completionTargets, completion)
		if completion >= 0.5 {
			successLabels = append(successLabels, 1)
		} else {
			successLabels = append(successLabels, 0)
		}
		engagementTargets = append(engagementTargets, vec.AvgEngagement)
	}

	if len(features) < s.minTrainingRows() {
		return nil, util.ErrInsufficientData
	}

	s.mu.Lock()
	s.completion.fit(features, completionTargets)
	s.success.fit(features, successLabels)
	s.engagement.fit(features, engagementTargets)

	mse := 0.0
	for i, row := range features {
		d := s.completion.predict(row) - completionTargets[i]
		mse += d * d
	}
	importance := normalizedOutcomeImportance(s.completion.weights)
	s.trained = true
	s.trainedAt = time.Now()
	s.rows = len(features)
	s.mu.Unlock()

	return &model.TrainingReport{
		Model: "outcome",
		Rows:  len(features),
		Metrics: map[string]float64{
			"completion_mse": mse / float64(len(features)),
		},
		FeatureImportance: importance,
		TrainedAt:         time.Now(),
	}, nil
}

func completionRatio(events []model.BehaviorEvent) float64 {
	started, completed := 0, 0
	for _, ev := range events {
		switch ev.EventType {
		case model.EventCourseStart:
			started++
		case model.EventCourseComplete:
			completed++
		}
	}
	if started == 0 {
		return 0
	}
	return clamp01(float64(completed) / float64(started))
}

func normalizedOutcomeImportance(weights []float64) map[string]float64 {
	total := 0.0
	for _, w := range weights {
		total += math.Abs(w)
	}
	out := make(map[string]float64, len(weights))
	for i, w := range weights {
		if total == 0 {
			out[FeatureNames[i]] = 0
			continue
		}
		out[FeatureNames[i]] = math.Abs(w) / total
	}
	return out
}

// PredictOutcome 综合预测。模型未训练时返回 util.ErrModelNotTrained。
func (s *PredictiveService) PredictOutcome(userID uint) (*model.PredictedOutcome, error) {
	s.mu.RLock()
	trained := s.trained
	s.mu.RUnlock()
	if !trained {
		return nil, util.ErrModelNotTrained
	}

	vec, _, err := s.Features.ExtractForUser(userID, s.window())
	if err != nil {
		return nil, err
	}
	return s.Predict(userID, vec), nil
}

// Predict 纯计算路径。结果 = 0.4*完成率 + 0.4*成功率 + 0.2*参与度，
// 置信度 = 1 - stdev(三个原始预测)。
func (s *PredictiveService) Predict(userID uint, vec FeatureVector) *model.PredictedOutcome {
	row := vec.Slice()

	s.mu.RLock()
	completion := clamp01(s.completion.predict(row))
	success := s.success.predict(row)
	engagement := clamp01(s.engagement.predict(row))
	s.mu.RUnlock()

	outcome := 0.4*completion + 0.4*success + 0.2*engagement
	confidence := clamp01(1 - stddev([]float64{completion, success, engagement}))

	return &model.PredictedOutcome{
		UserID:               userID,
		CompletionLikelihood: completion,
		SuccessProbability:   success,
		EngagementForecast:   engagement,
		PredictedOutcome:     outcome,
		Confidence:           confidence,
		Recommendations:      outcomeRecommendations(completion, success, engagement),
		GeneratedAt:          time.Now(),
	}
}

func outcomeRecommendations(completion, success, engagement float64) []string {
	var recs []string
	if completion < 0.5 {
		recs = append(recs, "break content into smaller chunks to improve completion")
	}
	if success < 0.5 {
		recs = append(recs, "review prerequisite material before advancing")
	}
	if engagement < 0.4 {
		recs = append(recs, "try interactive content formats to boost engagement")
	}
	if len(recs) == 0 {
		recs = append(recs, "keep the current learning plan")
	}
	return recs
}

// Status 预测模型的训练状态
func (s *PredictiveService) Status() model.ModelStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status := model.ModelStatus{Name: "outcome", IsTrained: s.trained, Rows: s.rows}
	if s.trained {
		t := s.trainedAt
		status.LastTrained = &t
	}
	return status
}
