package service

import (
	"errors"
	"math"
	"sort"
	"time"

	"mentora_backend/internal/config"
	"mentora_backend/internal/model"
	"mentora_backend/internal/repository"
	"mentora_backend/internal/util"

	"gorm.io/gorm"
)

// ProfileService 画像合成：把行为事件窗口汇聚成 UserLearningProfile，
// 并周期性重算 LearningPattern。
type ProfileService struct {
	Cfg          *config.PersonalizationConfig
	BehaviorRepo *repository.BehaviorRepository
	ProfileRepo  *repository.ProfileRepository
	Features     *FeatureService
}

func NewProfileService(cfg *config.PersonalizationConfig, behaviorRepo *repository.BehaviorRepository, profileRepo *repository.ProfileRepository, features *FeatureService) *ProfileService {
	return &ProfileService{Cfg: cfg, BehaviorRepo: behaviorRepo, ProfileRepo: profileRepo, Features: features}
}

func (s *ProfileService) minDataPoints() int {
	if s.Cfg != nil && s.Cfg.MinDataPoints > 0 {
		return s.Cfg.MinDataPoints
	}
	return 5
}

// SynthesizeForUser 读窗口、合成、落库。事件不足时返回
// (现有画像, util.ErrInsufficientData)，不落库。
func (s *ProfileService) SynthesizeForUser(userID uint) (*model.UserLearningProfile, error) {
	window := 90 * 24 * time.Hour
	if s.Cfg != nil {
		window = s.Cfg.ProfileWindow()
	}

	now := time.Now()
	events, err := s.BehaviorRepo.QueryByUser(userID, now.Add(-window), now, nil)
	if err != nil {
		return nil, err
	}

	existing, err := s.ProfileRepo.GetProfile(userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var pattern *model.LearningPattern
	if p, err := s.ProfileRepo.GetPattern(userID); err == nil {
		pattern = p
	}

	metrics, err := s.BehaviorRepo.EngagementMetrics(userID, now.Add(-window))
	if err != nil {
		return nil, err
	}

	profile, err := s.Synthesize(userID, existing, events, pattern, metrics)
	if err != nil {
		return profile, err
	}

	if err := s.ProfileRepo.UpsertProfile(profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// Synthesize 纯计算路径。existing 为 nil 时按默认值新建；
// 否则原地合并，保留未覆盖的字段。
func (s *ProfileService) Synthesize(userID uint, existing *model.UserLearningProfile, events []model.BehaviorEvent, pattern *model.LearningPattern, metrics []model.EngagementMetric) (*model.UserLearningProfile, error) {
	if len(events) < s.minDataPoints() {
		return existing, util.ErrInsufficientData
	}

	profile := existing
	if profile == nil {
		profile = &model.UserLearningProfile{
			UserID:         userID,
			AdaptationRate: 0.1,
		}
	}

	started, completed := 0, 0
	totalMinutes := 0.0
	for _, ev := range events {
		switch ev.EventType {
		case model.EventCourseStart:
			started++
		case model.EventCourseComplete:
			completed++
		}
		totalMinutes += ev.DurationSeconds / 60
	}

	completionRate := 0.0
	if started > 0 {
		completionRate = clamp01(float64(completed) / float64(started))
	}

	engagement := 0.5
	if avg, ok := avgEngagement(events); ok {
		engagement = avg
	}

	profile.CompletionRate = completionRate
	profile.EngagementScore = engagement
	profile.ConsistencyScore = consistencyScore(events)
	profile.ChallengePreference = math.Min(1, completionRate+0.3*engagement)
	profile.CurrentDifficultyLevel = 0.7*completionRate + 0.3*engagement
	profile.PreferredDifficulty = model.DifficultyBandFor(profile.CurrentDifficultyLevel)
	profile.CoursesCompleted = completed
	profile.TotalLearningTime = totalMinutes

	if sessions, avgDur := sessionDurations(metrics); sessions > 0 {
		profile.AvgSessionDuration = avgDur
	}

	if pattern != nil {
		profile.LearningStyle = pattern.Style
		profile.AttentionSpan = pattern.AvgAttentionSpanMinutes
		profile.StrongTopics = pattern.StrongTopics
		profile.ChallengingTopics = pattern.ChallengingTopics
	} else if profile.LearningStyle == "" {
		profile.LearningStyle = model.StyleUnknown
	}

	profile.LastUpdated = time.Now()
	profile.ClampScores()
	return profile, nil
}

// consistencyScore 1 - clamp(变异系数/2, 0, 1)，按日事件数计算。
// 活跃天数不足 3 天直接记 0。
func consistencyScore(events []model.BehaviorEvent) float64 {
	daily := make(map[string]float64)
	for _, ev := range events {
		daily[ev.Timestamp.Format("2006-01-02")]++
	}
	if len(daily) < 3 {
		return 0
	}
	counts := make([]float64, 0, len(daily))
	for _, n := range daily {
		counts = append(counts, n)
	}
	m := mean(counts)
	if m == 0 {
		return 0
	}
	cv := stddev(counts) / m
	return 1 - clamp(cv/2, 0, 1)
}

func sessionDurations(metrics []model.EngagementMetric) (int, float64) {
	sessions := 0
	minutes := 0.0
	for _, m := range metrics {
		sessions += m.SessionCount
		minutes += m.TotalMinutes
	}
	if sessions == 0 {
		return 0, 0
	}
	return sessions, minutes / float64(sessions)
}

// RecomputePattern 整体重算学习模式并落库。事件不足时返回
// util.ErrInsufficientData，保留旧模式。
func (s *ProfileService) RecomputePattern(userID uint) (*model.LearningPattern, error) {
	window := 90 * 24 * time.Hour
	if s.Cfg != nil {
		window = s.Cfg.ProfileWindow()
	}
	now := time.Now()
	events, err := s.BehaviorRepo.QueryByUser(userID, now.Add(-window), now, nil)
	if err != nil {
		return nil, err
	}

	pattern, err := s.BuildPattern(userID, events)
	if err != nil {
		return nil, err
	}
	if err := s.ProfileRepo.UpsertPattern(pattern); err != nil {
		return nil, err
	}
	return pattern, nil
}

// styleContentTypes 学习风格与内容类型的对应关系，
// 推荐侧的风格匹配也用同一张表。
var styleContentTypes = map[model.LearningStyle][]string{
	model.StyleVisual:      {"video", "diagram", "infographic"},
	model.StyleAuditory:    {"audio", "podcast", "discussion"},
	model.StyleKinesthetic: {"interactive", "exercise", "project"},
	model.StyleReading:     {"article", "text", "book"},
}

// BuildPattern 纯计算路径：风格投票、高峰时段、强弱主题
func (s *ProfileService) BuildPattern(userID uint, events []model.BehaviorEvent) (*model.LearningPattern, error) {
	if len(events) < s.minDataPoints() {
		return nil, util.ErrInsufficientData
	}

	style, confidence, preferredTypes := detectStyle(events)
	strong, challenging := topicPerformance(events)
	sessions := groupBySession(events)

	return &model.LearningPattern{
		UserID:                  userID,
		Style:                   style,
		Confidence:              confidence,
		PreferredContentTypes:   preferredTypes,
		OptimalSessionMinutes:   optimalSessionMinutes(sessions),
		PreferredHours:          topHours(events, 3),
		AvgAttentionSpanMinutes: attentionSpan(sessions),
		StrongTopics:            strong,
		ChallengingTopics:       challenging,
		DataPointCount:          len(events),
		LastCalculated:          time.Now(),
	}, nil
}

// detectStyle 按内容类型给风格计票。最高票占比 <0.4 记 mixed，
// 没有任何内容类型元数据记 unknown。
func detectStyle(events []model.BehaviorEvent) (model.LearningStyle, float64, []string) {
	votes := make(map[model.LearningStyle]int)
	typeCounts := make(map[string]int)
	total := 0
	for _, ev := range events {
		ct := ev.Metadata.GetString("content_type")
		if ct == "" {
			continue
		}
		typeCounts[ct]++
		total++
		for style, types := range styleContentTypes {
			for _, t := range types {
				if t == ct {
					votes[style]++
				}
			}
		}
	}
	if total == 0 {
		return model.StyleUnknown, 0, nil
	}

	var best model.LearningStyle
	bestN := 0
	for style, n := range votes {
		if n > bestN || (n == bestN && style < best) {
			best, bestN = style, n
		}
	}

	share := float64(bestN) / float64(total)
	preferred := rankedContentTypes(typeCounts, 3)
	if share < 0.4 {
		return model.StyleMixed, share, preferred
	}
	return best, share, preferred
}

func rankedContentTypes(counts map[string]int, limit int) []string {
	type pair struct {
		ct string
		n  int
	}
	pairs := make([]pair, 0, len(counts))
	for ct, n := range counts {
		pairs = append(pairs, pair{ct, n})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].n != pairs[j].n {
			return pairs[i].n > pairs[j].n
		}
		return pairs[i].ct < pairs[j].ct
	})
	if len(pairs) > limit {
		pairs = pairs[:limit]
	}
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.ct
	}
	return out
}

func optimalSessionMinutes(sessions map[string][]model.BehaviorEvent) float64 {
	var durations []float64
	for _, evs := range sessions {
		if len(evs) < 2 {
			continue
		}
		d := evs[len(evs)-1].Timestamp.Sub(evs[0].Timestamp).Minutes()
		if d > 0 {
			durations = append(durations, d)
		}
	}
	return median(durations)
}

func topHours(events []model.BehaviorEvent, limit int) []int {
	var counts [24]int
	for _, ev := range events {
		counts[ev.Timestamp.Hour()]++
	}
	hours := make([]int, 0, 24)
	for h := 0; h < 24; h++ {
		if counts[h] > 0 {
			hours = append(hours, h)
		}
	}
	sort.Slice(hours, func(i, j int) bool {
		if counts[hours[i]] != counts[hours[j]] {
			return counts[hours[i]] > counts[hours[j]]
		}
		return hours[i] < hours[j]
	})
	if len(hours) > limit {
		hours = hours[:limit]
	}
	sort.Ints(hours)
	return hours
}

// topicPerformance 主题平均参与度 >=0.7 记强项，<=0.4 记弱项；
// 单主题至少要 2 个数据点。
func topicPerformance(events []model.BehaviorEvent) (strong, challenging []string) {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, ev := range events {
		topic := ev.Metadata.GetString("topic")
		if topic == "" || ev.EngagementScore <= 0 {
			continue
		}
		sums[topic] += ev.EngagementScore
		counts[topic]++
	}

	topics := make([]string, 0, len(counts))
	for topic := range counts {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	for _, topic := range topics {
		if counts[topic] < 2 {
			continue
		}
		avg := sums[topic] / float64(counts[topic])
		switch {
		case avg >= 0.7:
			strong = append(strong, topic)
		case avg <= 0.4:
			challenging = append(challenging, topic)
		}
	}
	return strong, challenging
}
