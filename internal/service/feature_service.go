package service

import (
	"math"
	"sort"
	"time"

	"mentora_backend/internal/model"
	"mentora_backend/internal/repository"
)

// attentionGapCapMinutes 会话内交互间隔的上限，超过视为离开
const attentionGapCapMinutes = 60.0

// FeatureNames 固定顺序的特征名，训练报告里的重要度按这个顺序归因
var FeatureNames = []string{
	"session_frequency",
	"avg_engagement",
	"first_session_engagement",
	"preferred_hour",
	"attention_span_minutes",
	"content_type_preference",
	"social_learning_score",
}

// FeatureVector 固定顺序的数值特征。空输入时各字段取文档化的默认值，
// 不会报错。
type FeatureVector struct {
	SessionFrequency       float64 // 窗口内 会话数/天；无事件时为 0
	AvgEngagement          float64 // 平均参与度；无评分事件时取中性 0.5
	FirstSessionEngagement float64 // 首个会话的平均参与度；默认 0.5
	PreferredHour          float64 // 众数小时 / 23；无事件时取 0.5
	AttentionSpanMinutes   float64 // 会话内相邻交互间隔的中位数，封顶 60；默认 0
	ContentTypePreference  float64 // 最常见内容类型的占比；默认 0
	SocialLearningScore    float64 // 社交学习占位值，固定 0.5
}

func (v FeatureVector) Slice() []float64 {
	return []float64{
		v.SessionFrequency,
		v.AvgEngagement,
		v.FirstSessionEngagement,
		v.PreferredHour,
		v.AttentionSpanMinutes,
		v.ContentTypePreference,
		v.SocialLearningScore,
	}
}

// FeatureService 把行为事件窗口转成数值特征向量
type FeatureService struct {
	BehaviorRepo *repository.BehaviorRepository
}

func NewFeatureService(behaviorRepo *repository.BehaviorRepository) *FeatureService {
	return &FeatureService{BehaviorRepo: behaviorRepo}
}

// ExtractForUser 读取窗口内的事件并抽取特征
func (s *FeatureService) ExtractForUser(userID uint, window time.Duration) (FeatureVector, []model.BehaviorEvent, error) {
	now := time.Now()
	events, err := s.BehaviorRepo.QueryByUser(userID, now.Add(-window), now, nil)
	if err != nil {
		return FeatureVector{}, nil, err
	}
	return s.Extract(events), events, nil
}

// Extract 纯计算路径。events 需按时间升序（仓储层保证）。
func (s *FeatureService) Extract(events []model.BehaviorEvent) FeatureVector {
	v := FeatureVector{
		AvgEngagement:          0.5,
		FirstSessionEngagement: 0.5,
		PreferredHour:          0.5,
		SocialLearningScore:    0.5,
	}
	if len(events) == 0 {
		return v
	}

	sessions := groupBySession(events)
	days := math.Max(1, events[len(events)-1].Timestamp.Sub(events[0].Timestamp).Hours()/24)
	v.SessionFrequency = float64(len(sessions)) / days

	if avg, ok := avgEngagement(events); ok {
		v.AvgEngagement = avg
	}
	if first := firstSession(sessions); first != nil {
		if avg, ok := avgEngagement(first); ok {
			v.FirstSessionEngagement = avg
		}
	}

	v.PreferredHour = float64(modalHour(events)) / 23.0
	v.AttentionSpanMinutes = attentionSpan(sessions)
	v.ContentTypePreference = contentTypePreference(events)

	return v
}

func groupBySession(events []model.BehaviorEvent) map[string][]model.BehaviorEvent {
	sessions := make(map[string][]model.BehaviorEvent)
	for _, ev := range events {
		key := ev.SessionID
		if key == "" {
			// 无会话标识的事件按天归并
			key = ev.Timestamp.Format("2006-01-02")
		}
		sessions[key] = append(sessions[key], ev)
	}
	return sessions
}

func avgEngagement(events []model.BehaviorEvent) (float64, bool) {
	sum, n := 0.0, 0
	for _, ev := range events {
		if ev.EngagementScore > 0 {
			sum += ev.EngagementScore
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func firstSession(sessions map[string][]model.BehaviorEvent) []model.BehaviorEvent {
	var first []model.BehaviorEvent
	var earliest time.Time
	for _, evs := range sessions {
		if len(evs) == 0 {
			continue
		}
		if first == nil || evs[0].Timestamp.Before(earliest) {
			first = evs
			earliest = evs[0].Timestamp
		}
	}
	return first
}

func modalHour(events []model.BehaviorEvent) int {
	var counts [24]int
	for _, ev := range events {
		counts[ev.Timestamp.Hour()]++
	}
	best := 0
	for h := 1; h < 24; h++ {
		if counts[h] > counts[best] {
			best = h
		}
	}
	return best
}

// attentionSpan 会话内相邻交互间隔（分钟）的中位数，封顶 60
func attentionSpan(sessions map[string][]model.BehaviorEvent) float64 {
	var gaps []float64
	for _, evs := range sessions {
		for i := 1; i < len(evs); i++ {
			gap := evs[i].Timestamp.Sub(evs[i-1].Timestamp).Minutes()
			if gap <= 0 {
				continue
			}
			if gap > attentionGapCapMinutes {
				gap = attentionGapCapMinutes
			}
			gaps = append(gaps, gap)
		}
	}
	return median(gaps)
}

func contentTypePreference(events []model.BehaviorEvent) float64 {
	counts := make(map[string]int)
	total := 0
	for _, ev := range events {
		if ct := ev.Metadata.GetString("content_type"); ct != "" {
			counts[ct]++
			total++
		}
	}
	if total == 0 {
		return 0
	}
	best := 0
	for _, n := range counts {
		if n > best {
			best = n
		}
	}
	return float64(best) / float64(total)
}

// DominantContentType 出现最多的内容类型；没有元数据时返回空串
func DominantContentType(events []model.BehaviorEvent) string {
	counts := make(map[string]int)
	for _, ev := range events {
		if ct := ev.Metadata.GetString("content_type"); ct != "" {
			counts[ct]++
		}
	}
	best, bestN := "", 0
	for ct, n := range counts {
		if n > bestN || (n == bestN && ct < best) {
			best, bestN = ct, n
		}
	}
	return best
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}
