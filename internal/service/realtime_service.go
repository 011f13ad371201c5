package service

import (
	"math"
	"sync"
	"time"

	"mentora_backend/internal/config"
	"mentora_backend/internal/model"
	"mentora_backend/internal/repository"
)

// 滚动窗口与规则阈值
const (
	rollingWindow        = 5 * time.Minute
	lowInteractionRate   = 0.3
	struggleThreshold    = 0.7
	successThreshold     = 0.8
	highInteractionRate  = 0.7
	lowAttentionScore    = 0.4
	defaultAttentionSpan = 45.0 // 分钟，画像缺失时的回退值
)

// struggleActions / successActions 事件元数据 action 的分类表
var struggleActions = map[string]bool{
	"help_request": true,
	"retry":        true,
	"long_pause":   true,
}

var successActions = map[string]bool{
	"correct_answer": true,
	"completion":     true,
	"progress":       true,
}

type sessionState struct {
	mu        sync.Mutex
	userID    uint
	events    []model.BehaviorEvent
	startedAt time.Time
	lastSeen  time.Time
}

// RealTimeService 会话级实时监控：滚动窗口指标 + 规则触发的即时调整。
// 会话状态常驻内存，由后台清扫回收。
type RealTimeService struct {
	Cfg         *config.PersonalizationConfig
	ProfileRepo *repository.ProfileRepository
	Hub         *RealtimeHub

	mu       sync.RWMutex
	sessions map[string]*sessionState
}

func NewRealTimeService(cfg *config.PersonalizationConfig, profileRepo *repository.ProfileRepository, hub *RealtimeHub) *RealTimeService {
	return &RealTimeService{
		Cfg:         cfg,
		ProfileRepo: profileRepo,
		Hub:         hub,
		sessions:    make(map[string]*sessionState),
	}
}

func (s *RealTimeService) session(sessionID string, userID uint) *sessionState {
	s.mu.RLock()
	state, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return state
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok = s.sessions[sessionID]; ok {
		return state
	}
	now := time.Now()
	state = &sessionState{userID: userID, startedAt: now, lastSeen: now}
	s.sessions[sessionID] = state
	return state
}

// TrackEvent 记录会话事件并立即分析。无规则触发时返回 (nil, nil)。
func (s *RealTimeService) TrackEvent(sessionID string, userID uint, event model.BehaviorEvent) (*model.RealTimeAdjustment, error) {
	event.Metadata = event.Metadata.Sanitize()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	state := s.session(sessionID, userID)
	state.mu.Lock()
	state.events = append(state.events, event)
	state.lastSeen = time.Now()
	adjustment := s.analyzeLocked(sessionID, state)
	state.mu.Unlock()

	if adjustment != nil && s.Hub != nil {
		s.Hub.Push(userID, adjustment)
	}
	return adjustment, nil
}

// Analyze 只读分析当前会话，不追加事件。会话不存在时返回 (nil, nil)。
func (s *RealTimeService) Analyze(sessionID string) (*model.RealTimeAdjustment, error) {
	s.mu.RLock()
	state, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	return s.analyzeLocked(sessionID, state), nil
}

func (s *RealTimeService) analyzeLocked(sessionID string, state *sessionState) *model.RealTimeAdjustment {
	now := time.Now()
	window := windowMetrics(state, now)
	directives := s.evaluateRules(state.userID, window)
	if len(directives) == 0 {
		return nil
	}

	confidence := 0.0
	for _, d := range directives {
		confidence += d.Weight
	}

	return &model.RealTimeAdjustment{
		SessionID:   sessionID,
		UserID:      state.userID,
		Directives:  directives,
		Confidence:  math.Min(1, confidence),
		Window:      window,
		GeneratedAt: now,
	}
}

// windowMetrics 最近 5 分钟的滚动指标。
// 空窗口交互率恰好为 0，会触发参与度规则。
func windowMetrics(state *sessionState, now time.Time) model.SessionWindowMetrics {
	cutoff := now.Add(-rollingWindow)
	var recent []model.BehaviorEvent
	for _, ev := range state.events {
		if !ev.Timestamp.Before(cutoff) {
			recent = append(recent, ev)
		}
	}

	metrics := model.SessionWindowMetrics{
		SessionMinutes: now.Sub(state.startedAt).Minutes(),
	}

	// 每分钟事件数折算到 [0,1]，10 次/分钟封顶
	metrics.InteractionRate = math.Min(1, float64(len(recent))/rollingWindow.Minutes()/10)

	attentionEvents := 0
	for _, ev := range recent {
		action := ev.Metadata.Action()
		if struggleActions[action] {
			metrics.StruggleCount++
		}
		if successActions[action] || isCompletionEvent(ev.EventType) {
			metrics.SuccessCount++
		} else if correct, ok := ev.Metadata["correct"].(bool); ok && correct {
			metrics.SuccessCount++
		}
		switch ev.EventType {
		case model.EventClick, model.EventScroll, model.EventContentInteraction:
			attentionEvents++
		}
	}
	metrics.AttentionScore = math.Min(1, float64(attentionEvents)/10)
	return metrics
}

func isCompletionEvent(t model.EventType) bool {
	switch t {
	case model.EventCourseComplete, model.EventChapterComplete, model.EventAssessmentComplete:
		return true
	}
	return false
}

func (s *RealTimeService) evaluateRules(userID uint, w model.SessionWindowMetrics) []model.AdjustmentDirective {
	var directives []model.AdjustmentDirective

	if w.InteractionRate < lowInteractionRate {
		directives = append(directives, model.AdjustmentDirective{
			Type:    model.AdjustEngagementBoost,
			Message: "interaction has dropped, try a quick quiz or interactive element",
			Weight:  0.3,
		})
	}

	if w.StruggleCount >= struggleThreshold {
		directives = append(directives, model.AdjustmentDirective{
			Type:    model.AdjustDifficultyReduction,
			Message: "learner appears to be struggling, easing difficulty",
			Hints: []string{
				"offer a worked example",
				"link prerequisite material",
			},
			Weight: 0.3,
		})
	}

	if w.SuccessCount >= successThreshold && w.InteractionRate > highInteractionRate {
		directives = append(directives, model.AdjustmentDirective{
			Type:    model.AdjustDifficultyIncrease,
			Message: "learner is cruising, raising the challenge",
			Weight:  0.25,
		})
	}

	if w.AttentionScore < lowAttentionScore {
		directives = append(directives, model.AdjustmentDirective{
			Type:    model.AdjustAttentionRecovery,
			Message: "attention seems low, switching content format may help",
			Weight:  0.2,
		})
	}

	if w.SessionMinutes > s.attentionSpan(userID) {
		directives = append(directives, model.AdjustmentDirective{
			Type:    model.AdjustPacingBreak,
			Message: "session has run past the learner's usual span, suggest a break",
			Weight:  0.15,
		})
	}

	return directives
}

func (s *RealTimeService) attentionSpan(userID uint) float64 {
	if s.ProfileRepo == nil {
		return defaultAttentionSpan
	}
	profile, err := s.ProfileRepo.GetProfile(userID)
	if err != nil || profile.AttentionSpan <= 0 {
		return defaultAttentionSpan
	}
	return profile.AttentionSpan
}

// ActiveSessions 当前在内存中的会话数
func (s *RealTimeService) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep 清掉超过 maxAge 未活跃的会话，返回回收数量。
// 由后台定时任务调用。
func (s *RealTimeService) Sweep(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	s.mu.RLock()
	var stale []string
	for id, state := range s.sessions {
		state.mu.Lock()
		if state.lastSeen.Before(cutoff) {
			stale = append(stale, id)
		}
		state.mu.Unlock()
	}
	s.mu.RUnlock()

	if len(stale) == 0 {
		return 0
	}

	s.mu.Lock()
	removed := 0
	for _, id := range stale {
		if state, ok := s.sessions[id]; ok {
			state.mu.Lock()
			gone := state.lastSeen.Before(cutoff)
			state.mu.Unlock()
			if gone {
				delete(s.sessions, id)
				removed++
			}
		}
	}
	s.mu.Unlock()
	return removed
}
