package service

import (
	"errors"
	"testing"

	"mentora_backend/internal/model"
	"mentora_backend/internal/util"
)

func TestQualityFromRecordsEmpty(t *testing.T) {
	if got := qualityFromRecords(nil, false); got != 0.5 {
		t.Errorf("quality = %v, want neutral 0.5", got)
	}
}

func TestQualityFromRecordsWeighting(t *testing.T) {
	records := []model.FeedbackRecord{
		{Kind: model.FeedbackExplicit, Value: 4},
		{Kind: model.FeedbackImplicit, Value: 0.2},
	}

	t.Run("raw scale", func(t *testing.T) {
		// (4*1.0 + 0.2*0.5) / 1.5
		want := (4*explicitWeight + 0.2*implicitWeight) / (explicitWeight + implicitWeight)
		if got := qualityFromRecords(records, false); !almostEqual(got, want) {
			t.Errorf("quality = %v, want %v", got, want)
		}
	})

	t.Run("normalized scale", func(t *testing.T) {
		// 显式评分折算到 0..1 再加权
		want := (0.8*explicitWeight + 0.2*implicitWeight) / (explicitWeight + implicitWeight)
		if got := qualityFromRecords(records, true); !almostEqual(got, want) {
			t.Errorf("quality = %v, want %v", got, want)
		}
	})
}

func TestQualityFromRecordsImplicitOnly(t *testing.T) {
	records := []model.FeedbackRecord{
		{Kind: model.FeedbackImplicit, Value: 0.9},
		{Kind: model.FeedbackImplicit, Value: 0.5},
	}
	if got := qualityFromRecords(records, true); !almostEqual(got, 0.7) {
		t.Errorf("quality = %v, want 0.7", got)
	}
}

func TestImplicitSatisfactionMapping(t *testing.T) {
	tests := []struct {
		action string
		want   float64
	}{
		{"complete", 0.9},
		{"rate", 0.7},
		{"click", 0.6},
		{"view", 0.5},
		{"skip", 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			if got := implicitSatisfaction[tt.action]; got != tt.want {
				t.Errorf("satisfaction[%q] = %v, want %v", tt.action, got, tt.want)
			}
		})
	}

	if _, known := implicitSatisfaction["unknown_action"]; known {
		t.Error("unknown actions must fall through to the neutral default")
	}
}

func TestCollectExplicitRejectsOutOfRangeRating(t *testing.T) {
	svc := NewFeedbackService(nil)

	for _, rating := range []float64{-0.1, 5.1} {
		if _, err := svc.CollectExplicit(1, "rec-1", nil, rating, nil); !errors.Is(err, util.ErrInvalidRating) {
			t.Errorf("rating %v: err = %v, want ErrInvalidRating", rating, err)
		}
	}
}
