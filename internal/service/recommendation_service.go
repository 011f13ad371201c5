package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"mentora_backend/internal/config"
	"mentora_backend/internal/model"
	"mentora_backend/internal/repository"
	"mentora_backend/internal/util"

	"gorm.io/gorm"
)

// 综合分权重，四项和为 1
const (
	weightTopicMatch       = 0.4
	weightStyleMatch       = 0.25
	weightDifficultyMatch  = 0.2
	weightPerformanceBoost = 0.15
)

// RecommendationService 规则打分的课程推荐。主题路径走固定权重公式，
// 仪表盘路径额外混入反馈质量信号。
type RecommendationService struct {
	Cfg         *config.PersonalizationConfig
	CourseRepo  *repository.CourseRepository
	ProfileRepo *repository.ProfileRepository
	Feedback    *FeedbackService
}

func NewRecommendationService(cfg *config.PersonalizationConfig, courseRepo *repository.CourseRepository, profileRepo *repository.ProfileRepository, feedback *FeedbackService) *RecommendationService {
	return &RecommendationService{Cfg: cfg, CourseRepo: courseRepo, ProfileRepo: profileRepo, Feedback: feedback}
}

func (s *RecommendationService) floor() float64 {
	if s.Cfg != nil && s.Cfg.RecommendationFloor > 0 {
		return s.Cfg.RecommendationFloor
	}
	return 0.3
}

// RecommendByTopic 主题推荐入口。画像缺失时返回 util.ErrProfileNotFound，
// 调用方可降级为热门课程。
func (s *RecommendationService) RecommendByTopic(userID uint, topic string, limit int) ([]model.CourseRecommendation, error) {
	profile, err := s.ProfileRepo.GetProfile(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrProfileNotFound
		}
		return nil, err
	}

	courses, err := s.CourseRepo.Search(topic)
	if err != nil {
		return nil, err
	}

	return s.Rank(profile, topic, courses, limit, s.floor(), false), nil
}

// RecommendForDashboard 无主题的全量排序，不设最低分，
// 并混入协同信号（历史反馈质量）。
func (s *RecommendationService) RecommendForDashboard(userID uint, limit int) ([]model.CourseRecommendation, error) {
	profile, err := s.ProfileRepo.GetProfile(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrProfileNotFound
		}
		return nil, err
	}

	courses, err := s.CourseRepo.List()
	if err != nil {
		return nil, err
	}

	return s.Rank(profile, "", courses, limit, 0, true), nil
}

// Rank 纯计算路径：逐课程打分、过滤、稳定排序、截断。
// 输入课程需按目录顺序，排序稳定性依赖这一点。
func (s *RecommendationService) Rank(profile *model.UserLearningProfile, topic string, courses []model.Course, limit int, floor float64, collaborative bool) []model.CourseRecommendation {
	pacing := PacingMultiplier(profile)
	target := clamp(TargetDifficulty(profile), 0.1, 0.9)

	recs := make([]model.CourseRecommendation, 0, len(courses))
	for _, course := range courses {
		scores := s.componentScores(profile, topic, &course)
		composite := weightTopicMatch*scores.TopicMatch +
			weightStyleMatch*scores.StyleMatch +
			weightDifficultyMatch*scores.DifficultyMatch +
			weightPerformanceBoost*scores.PerformanceBoost

		if collaborative {
			scores.Collaborative = s.collaborativeSignal(course.ID)
			composite = 0.85*composite + 0.15*scores.Collaborative
		}

		if composite < floor {
			continue
		}

		recs = append(recs, model.CourseRecommendation{
			RecommendationID:      model.GenerateUUID(),
			CourseID:              course.ID,
			Title:                 course.Title,
			CompositeScore:        composite,
			ComponentScores:       scores,
			Reason:                recommendationReason(profile, scores, &course),
			RecommendedDifficulty: target,
			EstimatedMinutes:      course.DurationMinutes / pacing,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].CompositeScore > recs[j].CompositeScore
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}

func (s *RecommendationService) componentScores(profile *model.UserLearningProfile, topic string, course *model.Course) model.ComponentScores {
	return model.ComponentScores{
		TopicMatch:       topicMatch(topic, course),
		StyleMatch:       styleMatch(profile.LearningStyle, course.ContentTypes),
		DifficultyMatch:  1 - abs(course.Difficulty-profile.CurrentDifficultyLevel),
		PerformanceBoost: performanceBoost(profile, course.Topic),
		Popularity:       clamp01(course.Popularity),
	}
}

// topicMatch 空主题中性记 0.5。标题命中 +0.8，词元重叠按比例最多 +0.4，
// 描述命中 +0.3，封顶 1.0。
func topicMatch(topic string, course *model.Course) float64 {
	topic = strings.ToLower(strings.TrimSpace(topic))
	if topic == "" {
		return 0.5
	}

	score := 0.0
	title := strings.ToLower(course.Title)
	if strings.Contains(title, topic) {
		score += 0.8
	}

	queryTokens := strings.Fields(topic)
	if len(queryTokens) > 0 {
		courseTokens := make(map[string]bool)
		for _, tok := range strings.Fields(strings.ToLower(course.Topic + " " + title)) {
			courseTokens[tok] = true
		}
		hits := 0
		for _, tok := range queryTokens {
			if courseTokens[tok] {
				hits++
			}
		}
		score += 0.4 * float64(hits) / float64(len(queryTokens))
	}

	if strings.Contains(strings.ToLower(course.Description), topic) {
		score += 0.3
	}
	return clamp01(score)
}

// styleMatch 命中风格对应的内容类型记 1.0，不命中记 0.2；
// 风格未知或课程没有内容类型记 0.5。
func styleMatch(style model.LearningStyle, contentTypes []string) float64 {
	preferred, ok := styleContentTypes[style]
	if !ok || len(contentTypes) == 0 {
		return 0.5
	}
	for _, ct := range contentTypes {
		for _, p := range preferred {
			if ct == p {
				return 1.0
			}
		}
	}
	return 0.2
}

// performanceBoost 弱项主题优先补强
func performanceBoost(profile *model.UserLearningProfile, courseTopic string) float64 {
	topic := strings.ToLower(courseTopic)
	for _, t := range profile.ChallengingTopics {
		if strings.ToLower(t) == topic {
			return 1.0
		}
	}
	for _, t := range profile.StrongTopics {
		if strings.ToLower(t) == topic {
			return 0.6
		}
	}
	return 0.3
}

// collaborativeSignal 该课程历史推荐的反馈质量；无反馈时中性 0.5
func (s *RecommendationService) collaborativeSignal(courseID uint) float64 {
	if s.Feedback == nil {
		return 0.5
	}
	quality, err := s.Feedback.QualityForCourse(courseID)
	if err != nil {
		return 0.5
	}
	return quality
}

// PopularCourses 冷启动回退：画像缺失时按热度排序
func (s *RecommendationService) PopularCourses(limit int) ([]model.CourseRecommendation, error) {
	courses, err := s.CourseRepo.List()
	if err != nil {
		return nil, err
	}

	recs := make([]model.CourseRecommendation, 0, len(courses))
	for _, course := range courses {
		recs = append(recs, model.CourseRecommendation{
			RecommendationID: model.GenerateUUID(),
			CourseID:         course.ID,
			Title:            course.Title,
			CompositeScore:   clamp01(course.Popularity),
			ComponentScores: model.ComponentScores{
				Popularity: clamp01(course.Popularity),
			},
			Reason:                "popular with other learners",
			RecommendedDifficulty: course.Difficulty,
			EstimatedMinutes:      course.DurationMinutes,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].CompositeScore > recs[j].CompositeScore
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

func recommendationReason(profile *model.UserLearningProfile, scores model.ComponentScores, course *model.Course) string {
	switch {
	case scores.PerformanceBoost >= 1.0:
		return fmt.Sprintf("strengthens %s, a topic you have found challenging", course.Topic)
	case scores.TopicMatch >= 0.8:
		return fmt.Sprintf("closely matches your search for %s", course.Topic)
	case scores.StyleMatch >= 1.0:
		return fmt.Sprintf("fits your %s learning style", profile.LearningStyle)
	case scores.DifficultyMatch >= 0.8:
		return "matches your current difficulty level"
	default:
		return "broadens your learning path"
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
