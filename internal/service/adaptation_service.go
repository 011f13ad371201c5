package service

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"mentora_backend/internal/model"
	"mentora_backend/internal/repository"
	"mentora_backend/internal/util"

	"gorm.io/gorm"
)

// AdaptationService 内容适配：难度收敛、呈现方式调整、节奏倍率、测评难度
type AdaptationService struct {
	BehaviorRepo *repository.BehaviorRepository
	ProfileRepo  *repository.ProfileRepository
}

func NewAdaptationService(behaviorRepo *repository.BehaviorRepository, profileRepo *repository.ProfileRepository) *AdaptationService {
	return &AdaptationService{BehaviorRepo: behaviorRepo, ProfileRepo: profileRepo}
}

// TargetDifficulty 0.7*当前难度水平 + 0.3*挑战偏好
func TargetDifficulty(profile *model.UserLearningProfile) float64 {
	return 0.7*profile.CurrentDifficultyLevel + 0.3*profile.ChallengePreference
}

// AdaptForUser 读画像后做内容适配；画像缺失时返回 util.ErrProfileNotFound
func (s *AdaptationService) AdaptForUser(userID, contentID uint, originalDifficulty float64) (*model.AdaptedContent, error) {
	profile, err := s.ProfileRepo.GetProfile(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrProfileNotFound
		}
		return nil, err
	}
	return s.Adapt(profile, contentID, originalDifficulty), nil
}

// Adapt 纯计算路径：难度按适配速率向目标收敛，结果夹在 [0.1, 0.9]
func (s *AdaptationService) Adapt(profile *model.UserLearningProfile, contentID uint, originalDifficulty float64) *model.AdaptedContent {
	target := TargetDifficulty(profile)
	adapted := originalDifficulty*(1-profile.AdaptationRate) + target*profile.AdaptationRate
	adapted = clamp(adapted, 0.1, 0.9)

	return &model.AdaptedContent{
		ContentID:          contentID,
		OriginalDifficulty: originalDifficulty,
		AdaptedDifficulty:  adapted,
		Modifications:      modificationsFor(profile),
		ExplanationStyle:   explanationStyleFor(profile.LearningStyle),
		PacingMultiplier:   PacingMultiplier(profile),
	}
}

func explanationStyleFor(style model.LearningStyle) string {
	switch style {
	case model.StyleVisual:
		return "diagram_first"
	case model.StyleAuditory:
		return "narrated"
	case model.StyleKinesthetic:
		return "example_driven"
	case model.StyleReading:
		return "text_detailed"
	default:
		return "balanced"
	}
}

func modificationsFor(profile *model.UserLearningProfile) []string {
	var mods []string
	switch profile.LearningStyle {
	case model.StyleVisual:
		mods = append(mods, "add_visual_aids")
	case model.StyleAuditory:
		mods = append(mods, "add_audio_narration")
	case model.StyleKinesthetic:
		mods = append(mods, "add_interactive_exercises")
	case model.StyleReading:
		mods = append(mods, "expand_written_explanations")
	}

	if profile.AttentionSpan > 0 && profile.AttentionSpan < 20 {
		mods = append(mods, "chunk_into_short_segments")
	} else if profile.AttentionSpan > 60 {
		mods = append(mods, "allow_longer_sections")
	}

	if profile.ChallengePreference > 0.7 {
		mods = append(mods, "include_advanced_challenges")
	} else if profile.ChallengePreference < 0.3 {
		mods = append(mods, "include_simplified_examples")
	}
	return mods
}

// PacingMultiplier 各因素连乘，结果夹在 [0.5, 2.0]
func PacingMultiplier(profile *model.UserLearningProfile) float64 {
	m := 1.0

	if profile.CompletionRate > 0.8 {
		m *= 1.2
	} else if profile.CompletionRate < 0.4 {
		m *= 0.7
	}

	if profile.EngagementScore > 0.7 {
		m *= 1.1
	} else if profile.EngagementScore < 0.3 {
		m *= 0.8
	}

	if profile.AttentionSpan > 0 && profile.AttentionSpan < 20 {
		m *= 0.85
	} else if profile.AttentionSpan > 60 {
		m *= 1.15
	}

	return clamp(m, 0.5, 2.0)
}

// AdjustPacing 最近活动 + 画像完整度折算置信度，不足 0.6 时返回
// (nil, util.ErrInsufficientData)，调用方应保持当前节奏。
func (s *AdaptationService) AdjustPacing(userID, courseID uint) (*model.PacingAdjustment, error) {
	profile, err := s.ProfileRepo.GetProfile(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrProfileNotFound
		}
		return nil, err
	}

	now := time.Now()
	recent, err := s.BehaviorRepo.QueryByUser(userID, now.Add(-14*24*time.Hour), now, nil)
	if err != nil {
		return nil, err
	}

	return s.PacingFromActivity(profile, courseID, recent)
}

// PacingFromActivity 纯计算路径
func (s *AdaptationService) PacingFromActivity(profile *model.UserLearningProfile, courseID uint, recent []model.BehaviorEvent) (*model.PacingAdjustment, error) {
	sessions := groupBySession(recent)
	confidence := math.Min(1, float64(len(recent))/20)*0.4 +
		math.Min(1, float64(len(sessions))/5)*0.3 +
		profileCompleteness(profile)*0.3

	if confidence < 0.6 {
		return nil, util.ErrInsufficientData
	}

	multiplier := PacingMultiplier(profile)
	return &model.PacingAdjustment{
		UserID:     profile.UserID,
		CourseID:   courseID,
		Multiplier: multiplier,
		Confidence: confidence,
		Reason:     pacingReason(multiplier),
	}, nil
}

func profileCompleteness(profile *model.UserLearningProfile) float64 {
	filled := 0.0
	if profile.LearningStyle != model.StyleUnknown && profile.LearningStyle != "" {
		filled++
	}
	if profile.AttentionSpan > 0 {
		filled++
	}
	if profile.CompletionRate > 0 {
		filled++
	}
	if profile.EngagementScore > 0 {
		filled++
	}
	if profile.ConsistencyScore > 0 {
		filled++
	}
	return filled / 5
}

func pacingReason(multiplier float64) string {
	switch {
	case multiplier > 1.05:
		return fmt.Sprintf("learner keeps up well, speeding up to %.2fx", multiplier)
	case multiplier < 0.95:
		return fmt.Sprintf("learner shows signs of struggle, slowing down to %.2fx", multiplier)
	default:
		return "current pacing fits the learner"
	}
}

// ModifyAssessmentDifficulty 按近期测评表现趋势微调难度。
// 调整幅度小于 0.1 时返回 (nil, nil)，表示维持原难度。
func (s *AdaptationService) ModifyAssessmentDifficulty(userID, assessmentID uint, originalDifficulty float64) (*model.AssessmentModification, error) {
	profile, err := s.ProfileRepo.GetProfile(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrProfileNotFound
		}
		return nil, err
	}

	now := time.Now()
	events, err := s.BehaviorRepo.QueryByUser(userID, now.Add(-30*24*time.Hour), now,
		[]model.EventType{model.EventAssessmentComplete})
	if err != nil {
		return nil, err
	}

	return s.AssessmentFromHistory(profile, assessmentID, originalDifficulty, events), nil
}

// AssessmentFromHistory 纯计算路径。trend = 近半段与前半段平均参与度之差。
func (s *AdaptationService) AssessmentFromHistory(profile *model.UserLearningProfile, assessmentID uint, originalDifficulty float64, completed []model.BehaviorEvent) *model.AssessmentModification {
	trend := performanceTrend(completed)
	target := TargetDifficulty(profile) + 0.1*trend
	adjusted := clamp(target, 0.1, 0.9)

	if math.Abs(adjusted-originalDifficulty) < 0.1 {
		return nil
	}

	reason := "recent assessment performance is trending down, easing difficulty"
	if adjusted > originalDifficulty {
		reason = "recent assessment performance is trending up, raising difficulty"
	}

	return &model.AssessmentModification{
		AssessmentID:       assessmentID,
		OriginalDifficulty: originalDifficulty,
		AdjustedDifficulty: adjusted,
		PerformanceTrend:   trend,
		Reason:             reason,
	}
}

func performanceTrend(completed []model.BehaviorEvent) float64 {
	if len(completed) < 4 {
		return 0
	}
	sorted := make([]model.BehaviorEvent, len(completed))
	copy(sorted, completed)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	mid := len(sorted) / 2
	older, newer := sorted[:mid], sorted[mid:]
	return avgScore(newer) - avgScore(older)
}

func avgScore(events []model.BehaviorEvent) float64 {
	if len(events) == 0 {
		return 0
	}
	sum := 0.0
	for _, ev := range events {
		if score, ok := ev.Metadata.GetNumber("score"); ok {
			sum += score
		} else {
			sum += ev.EngagementScore
		}
	}
	return sum / float64(len(events))
}
