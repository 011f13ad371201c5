package service

import (
	"errors"
	"testing"
	"time"

	"mentora_backend/internal/model"
	"mentora_backend/internal/util"
)

func baseProfile() *model.UserLearningProfile {
	return &model.UserLearningProfile{
		UserID:                 1,
		LearningStyle:          model.StyleVisual,
		AttentionSpan:          30,
		CompletionRate:         0.6,
		EngagementScore:        0.5,
		ConsistencyScore:       0.5,
		ChallengePreference:    0.5,
		CurrentDifficultyLevel: 0.5,
		AdaptationRate:         0.1,
	}
}

func TestAdaptConvergesTowardTarget(t *testing.T) {
	svc := &AdaptationService{}
	profile := baseProfile()

	target := TargetDifficulty(profile) // 0.7*0.5 + 0.3*0.5 = 0.5
	adapted := svc.Adapt(profile, 42, 0.9)

	want := 0.9*(1-0.1) + target*0.1
	if !almostEqual(adapted.AdaptedDifficulty, want) {
		t.Errorf("AdaptedDifficulty = %v, want %v", adapted.AdaptedDifficulty, want)
	}
	if adapted.ContentID != 42 {
		t.Errorf("ContentID = %d, want 42", adapted.ContentID)
	}
	if adapted.OriginalDifficulty != 0.9 {
		t.Errorf("OriginalDifficulty = %v, want 0.9", adapted.OriginalDifficulty)
	}
}

func TestAdaptDifficultyBounds(t *testing.T) {
	svc := &AdaptationService{}

	low := baseProfile()
	low.CurrentDifficultyLevel = 0
	low.ChallengePreference = 0
	low.AdaptationRate = 1
	if got := svc.Adapt(low, 1, 0).AdaptedDifficulty; got != 0.1 {
		t.Errorf("lower bound = %v, want 0.1", got)
	}

	high := baseProfile()
	high.CurrentDifficultyLevel = 1
	high.ChallengePreference = 1
	high.AdaptationRate = 1
	if got := svc.Adapt(high, 1, 1).AdaptedDifficulty; got != 0.9 {
		t.Errorf("upper bound = %v, want 0.9", got)
	}
}

func TestAdaptModifications(t *testing.T) {
	svc := &AdaptationService{}

	profile := baseProfile()
	profile.LearningStyle = model.StyleKinesthetic
	profile.AttentionSpan = 15
	profile.ChallengePreference = 0.8

	adapted := svc.Adapt(profile, 1, 0.5)

	want := map[string]bool{
		"add_interactive_exercises":   true,
		"chunk_into_short_segments":   true,
		"include_advanced_challenges": true,
	}
	if len(adapted.Modifications) != len(want) {
		t.Fatalf("Modifications = %v, want %d entries", adapted.Modifications, len(want))
	}
	for _, m := range adapted.Modifications {
		if !want[m] {
			t.Errorf("unexpected modification %q", m)
		}
	}
	if adapted.ExplanationStyle != "example_driven" {
		t.Errorf("ExplanationStyle = %q, want example_driven", adapted.ExplanationStyle)
	}
}

func TestPacingMultiplier(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.UserLearningProfile)
		want   float64
	}{
		{"neutral profile", func(p *model.UserLearningProfile) {}, 1.0},
		{"fast learner", func(p *model.UserLearningProfile) {
			p.CompletionRate = 0.9
			p.EngagementScore = 0.8
			p.AttentionSpan = 90
		}, 1.2 * 1.1 * 1.15},
		{"struggling learner", func(p *model.UserLearningProfile) {
			p.CompletionRate = 0.2
			p.EngagementScore = 0.2
			p.AttentionSpan = 10
		}, 0.7 * 0.8 * 0.85},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := baseProfile()
			tt.mutate(p)
			if got := PacingMultiplier(p); !almostEqual(got, tt.want) {
				t.Errorf("PacingMultiplier = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPacingMultiplierClamped(t *testing.T) {
	p := baseProfile()
	p.CompletionRate = 0.2
	p.EngagementScore = 0.1
	p.AttentionSpan = 5
	// 0.7*0.8*0.85 = 0.476 would fall below the floor
	if got := PacingMultiplier(p); got < 0.5 || got > 2.0 {
		t.Errorf("PacingMultiplier = %v, out of [0.5, 2.0]", got)
	}
}

func TestPacingFromActivityLowConfidence(t *testing.T) {
	svc := &AdaptationService{}
	profile := baseProfile()

	_, err := svc.PacingFromActivity(profile, 9, nil)
	if !errors.Is(err, util.ErrInsufficientData) {
		t.Errorf("err = %v, want ErrInsufficientData for empty activity", err)
	}
}

func TestPacingFromActivityConfident(t *testing.T) {
	svc := &AdaptationService{}
	profile := baseProfile()

	var recent []model.BehaviorEvent
	base := time.Now().Add(-24 * time.Hour)
	for s := 0; s < 5; s++ {
		for i := 0; i < 5; i++ {
			recent = append(recent, model.BehaviorEvent{
				SessionID: string(rune('a' + s)),
				Timestamp: base.Add(time.Duration(s*60+i) * time.Minute),
			})
		}
	}

	adjustment, err := svc.PacingFromActivity(profile, 9, recent)
	if err != nil {
		t.Fatalf("PacingFromActivity: %v", err)
	}
	if adjustment.CourseID != 9 {
		t.Errorf("CourseID = %d, want 9", adjustment.CourseID)
	}
	if adjustment.Confidence < 0.6 {
		t.Errorf("Confidence = %v, want >= 0.6", adjustment.Confidence)
	}
	if adjustment.Reason == "" {
		t.Error("Reason must be populated")
	}
}

func TestAssessmentModificationThreshold(t *testing.T) {
	svc := &AdaptationService{}
	profile := baseProfile() // target difficulty 0.5

	t.Run("small delta keeps original", func(t *testing.T) {
		if mod := svc.AssessmentFromHistory(profile, 1, 0.55, nil); mod != nil {
			t.Errorf("modification = %+v, want nil for delta below 0.1", mod)
		}
	})

	t.Run("large delta adjusts", func(t *testing.T) {
		mod := svc.AssessmentFromHistory(profile, 1, 0.9, nil)
		if mod == nil {
			t.Fatal("expected a modification for a 0.4 delta")
		}
		if !almostEqual(mod.AdjustedDifficulty, 0.5) {
			t.Errorf("AdjustedDifficulty = %v, want 0.5", mod.AdjustedDifficulty)
		}
		if mod.AdjustedDifficulty >= mod.OriginalDifficulty && mod.Reason == "" {
			t.Error("Reason must be populated")
		}
	})
}

func TestPerformanceTrend(t *testing.T) {
	base := time.Now()
	scored := func(i int, score float64) model.BehaviorEvent {
		return model.BehaviorEvent{
			EventType: model.EventAssessmentComplete,
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Metadata:  model.EventMetadata{"score": score},
		}
	}

	t.Run("too few events", func(t *testing.T) {
		events := []model.BehaviorEvent{scored(0, 0.2), scored(1, 0.9)}
		if got := performanceTrend(events); got != 0 {
			t.Errorf("trend = %v, want 0 for fewer than 4 events", got)
		}
	})

	t.Run("improving", func(t *testing.T) {
		events := []model.BehaviorEvent{scored(0, 0.2), scored(1, 0.2), scored(2, 0.8), scored(3, 0.8)}
		if got := performanceTrend(events); !almostEqual(got, 0.6) {
			t.Errorf("trend = %v, want 0.6", got)
		}
	})
}
