package service

import (
	"errors"
	"testing"
	"time"

	"mentora_backend/internal/model"
	"mentora_backend/internal/util"
)

func dayEvent(day int, eventType model.EventType, engagement float64) model.BehaviorEvent {
	return model.BehaviorEvent{
		EventType:       eventType,
		Timestamp:       time.Date(2026, 8, day, 10, 0, 0, 0, time.UTC),
		EngagementScore: engagement,
	}
}

func TestSynthesizeInsufficientData(t *testing.T) {
	svc := &ProfileService{}
	existing := &model.UserLearningProfile{UserID: 7, CompletionRate: 0.42}

	events := []model.BehaviorEvent{dayEvent(1, model.EventPageView, 0.5)}
	got, err := svc.Synthesize(7, existing, events, nil, nil)

	if !errors.Is(err, util.ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
	if got != existing {
		t.Error("existing profile should be returned untouched")
	}
	if got.CompletionRate != 0.42 {
		t.Errorf("CompletionRate = %v, existing value must survive", got.CompletionRate)
	}
}

func TestSynthesizeNewProfile(t *testing.T) {
	svc := &ProfileService{}
	events := []model.BehaviorEvent{
		dayEvent(1, model.EventCourseStart, 0.8),
		dayEvent(1, model.EventCourseStart, 0.8),
		dayEvent(2, model.EventCourseComplete, 0.8),
		dayEvent(3, model.EventPageView, 0.8),
		dayEvent(4, model.EventPageView, 0.8),
	}

	profile, err := svc.Synthesize(7, nil, events, nil, nil)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	if profile.UserID != 7 {
		t.Errorf("UserID = %d, want 7", profile.UserID)
	}
	if profile.AdaptationRate != 0.1 {
		t.Errorf("AdaptationRate = %v, want default 0.1", profile.AdaptationRate)
	}
	if !almostEqual(profile.CompletionRate, 0.5) {
		t.Errorf("CompletionRate = %v, want 0.5 (1 of 2 starts completed)", profile.CompletionRate)
	}
	if !almostEqual(profile.EngagementScore, 0.8) {
		t.Errorf("EngagementScore = %v, want 0.8", profile.EngagementScore)
	}

	wantLevel := 0.7*0.5 + 0.3*0.8
	if !almostEqual(profile.CurrentDifficultyLevel, wantLevel) {
		t.Errorf("CurrentDifficultyLevel = %v, want %v", profile.CurrentDifficultyLevel, wantLevel)
	}
	if profile.PreferredDifficulty != model.DifficultyIntermediate {
		t.Errorf("PreferredDifficulty = %v, want intermediate for level %v", profile.PreferredDifficulty, wantLevel)
	}
	if profile.CoursesCompleted != 1 {
		t.Errorf("CoursesCompleted = %d, want 1", profile.CoursesCompleted)
	}
}

func TestSynthesizeBoundsClamped(t *testing.T) {
	svc := &ProfileService{}
	// many completions per start would overflow the ratio without clamping
	events := []model.BehaviorEvent{
		dayEvent(1, model.EventCourseStart, 1.0),
		dayEvent(1, model.EventCourseComplete, 1.0),
		dayEvent(2, model.EventCourseComplete, 1.0),
		dayEvent(3, model.EventCourseComplete, 1.0),
		dayEvent(4, model.EventCourseComplete, 1.0),
	}

	profile, err := svc.Synthesize(1, nil, events, nil, nil)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	checks := map[string]float64{
		"CompletionRate":         profile.CompletionRate,
		"EngagementScore":        profile.EngagementScore,
		"ConsistencyScore":       profile.ConsistencyScore,
		"ChallengePreference":    profile.ChallengePreference,
		"CurrentDifficultyLevel": profile.CurrentDifficultyLevel,
	}
	for name, v := range checks {
		if v < 0 || v > 1 {
			t.Errorf("%s = %v, out of [0,1]", name, v)
		}
	}
}

func TestConsistencyScore(t *testing.T) {
	t.Run("fewer than three active days", func(t *testing.T) {
		events := []model.BehaviorEvent{
			dayEvent(1, model.EventPageView, 0.5),
			dayEvent(2, model.EventPageView, 0.5),
		}
		if got := consistencyScore(events); got != 0 {
			t.Errorf("consistencyScore = %v, want 0", got)
		}
	})

	t.Run("perfectly even days score highest", func(t *testing.T) {
		var events []model.BehaviorEvent
		for day := 1; day <= 5; day++ {
			events = append(events, dayEvent(day, model.EventPageView, 0.5))
			events = append(events, dayEvent(day, model.EventClick, 0.5))
		}
		if got := consistencyScore(events); !almostEqual(got, 1) {
			t.Errorf("consistencyScore = %v, want 1 for uniform activity", got)
		}
	})
}

func TestBuildPatternStyleDetection(t *testing.T) {
	svc := &ProfileService{}
	base := time.Date(2026, 8, 1, 20, 0, 0, 0, time.UTC)

	withType := func(ct string, i int) model.BehaviorEvent {
		return model.BehaviorEvent{
			SessionID:       "s1",
			Timestamp:       base.Add(time.Duration(i) * time.Minute),
			EngagementScore: 0.5,
			Metadata:        model.EventMetadata{"content_type": ct},
		}
	}

	events := []model.BehaviorEvent{
		withType("video", 0),
		withType("video", 1),
		withType("video", 2),
		withType("diagram", 3),
		withType("article", 4),
	}

	pattern, err := svc.BuildPattern(3, events)
	if err != nil {
		t.Fatalf("BuildPattern: %v", err)
	}
	if pattern.Style != model.StyleVisual {
		t.Errorf("Style = %v, want visual", pattern.Style)
	}
	if pattern.DataPointCount != 5 {
		t.Errorf("DataPointCount = %d, want 5", pattern.DataPointCount)
	}
	if len(pattern.PreferredHours) == 0 || pattern.PreferredHours[0] != 20 {
		t.Errorf("PreferredHours = %v, want [20]", pattern.PreferredHours)
	}
}

func TestDetectStyleMixedAndUnknown(t *testing.T) {
	t.Run("no content metadata", func(t *testing.T) {
		style, confidence, _ := detectStyle([]model.BehaviorEvent{{}, {}})
		if style != model.StyleUnknown {
			t.Errorf("style = %v, want unknown", style)
		}
		if confidence != 0 {
			t.Errorf("confidence = %v, want 0", confidence)
		}
	})

	t.Run("no dominant style", func(t *testing.T) {
		events := []model.BehaviorEvent{
			{Metadata: model.EventMetadata{"content_type": "video"}},
			{Metadata: model.EventMetadata{"content_type": "audio"}},
			{Metadata: model.EventMetadata{"content_type": "exercise"}},
			{Metadata: model.EventMetadata{"content_type": "article"}},
		}
		style, _, _ := detectStyle(events)
		if style != model.StyleMixed {
			t.Errorf("style = %v, want mixed when best share < 0.4", style)
		}
	})
}

func TestTopicPerformance(t *testing.T) {
	withTopic := func(topic string, engagement float64) model.BehaviorEvent {
		return model.BehaviorEvent{
			EngagementScore: engagement,
			Metadata:        model.EventMetadata{"topic": topic},
		}
	}

	events := []model.BehaviorEvent{
		withTopic("algebra", 0.9),
		withTopic("algebra", 0.8),
		withTopic("calculus", 0.2),
		withTopic("calculus", 0.3),
		withTopic("geometry", 0.1), // single data point, excluded
	}

	strong, challenging := topicPerformance(events)
	if len(strong) != 1 || strong[0] != "algebra" {
		t.Errorf("strong = %v, want [algebra]", strong)
	}
	if len(challenging) != 1 || challenging[0] != "calculus" {
		t.Errorf("challenging = %v, want [calculus]", challenging)
	}
}
