package service

import (
	"testing"

	"mentora_backend/internal/model"
)

func catalog() []model.Course {
	return []model.Course{
		{BaseModel: model.BaseModel{ID: 1}, Title: "Go 语言入门", Topic: "golang", Difficulty: 0.2, DurationMinutes: 240, Popularity: 0.9, ContentTypes: []string{"video", "exercise"}},
		{BaseModel: model.BaseModel{ID: 2}, Title: "Advanced Golang Patterns", Topic: "golang", Difficulty: 0.8, DurationMinutes: 300, Popularity: 0.5, ContentTypes: []string{"article"}},
		{BaseModel: model.BaseModel{ID: 3}, Title: "Calculus Basics", Topic: "calculus", Difficulty: 0.5, DurationMinutes: 400, Popularity: 0.7, ContentTypes: []string{"video", "diagram"}},
	}
}

func TestTopicMatch(t *testing.T) {
	course := &model.Course{Title: "Advanced Golang Patterns", Topic: "golang", Description: "deep dive into golang concurrency"}

	tests := []struct {
		name  string
		topic string
		want  float64
	}{
		{"empty topic is neutral", "", 0.5},
		{"title substring plus token plus description", "golang", 1.0}, // 0.8 + 0.4 + 0.3 capped
		{"unrelated topic", "pottery", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := topicMatch(tt.topic, course); !almostEqual(got, tt.want) {
				t.Errorf("topicMatch(%q) = %v, want %v", tt.topic, got, tt.want)
			}
		})
	}
}

func TestStyleMatch(t *testing.T) {
	tests := []struct {
		name  string
		style model.LearningStyle
		types []string
		want  float64
	}{
		{"matching type", model.StyleVisual, []string{"video"}, 1.0},
		{"no matching type", model.StyleVisual, []string{"article"}, 0.2},
		{"unknown style", model.StyleUnknown, []string{"video"}, 0.5},
		{"no content types", model.StyleVisual, nil, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := styleMatch(tt.style, tt.types); !almostEqual(got, tt.want) {
				t.Errorf("styleMatch = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPerformanceBoost(t *testing.T) {
	profile := baseProfile()
	profile.ChallengingTopics = []string{"calculus"}
	profile.StrongTopics = []string{"golang"}

	if got := performanceBoost(profile, "Calculus"); got != 1.0 {
		t.Errorf("challenging topic boost = %v, want 1.0", got)
	}
	if got := performanceBoost(profile, "golang"); got != 0.6 {
		t.Errorf("strong topic boost = %v, want 0.6", got)
	}
	if got := performanceBoost(profile, "history"); got != 0.3 {
		t.Errorf("neutral topic boost = %v, want 0.3", got)
	}
}

func TestRankOrdersByCompositeScore(t *testing.T) {
	svc := &RecommendationService{}
	profile := baseProfile()
	profile.ChallengingTopics = []string{"calculus"}

	recs := svc.Rank(profile, "", catalog(), 0, 0, false)
	if len(recs) != 3 {
		t.Fatalf("got %d recommendations, want 3", len(recs))
	}
	for i := 1; i < len(recs); i++ {
		if recs[i].CompositeScore > recs[i-1].CompositeScore {
			t.Errorf("recommendations not sorted: %v before %v", recs[i-1].CompositeScore, recs[i].CompositeScore)
		}
	}
	for _, rec := range recs {
		if rec.RecommendationID == "" {
			t.Error("RecommendationID must be assigned")
		}
		if rec.Reason == "" {
			t.Error("Reason must be populated")
		}
		if rec.RecommendedDifficulty < 0.1 || rec.RecommendedDifficulty > 0.9 {
			t.Errorf("RecommendedDifficulty = %v, out of [0.1, 0.9]", rec.RecommendedDifficulty)
		}
	}
}

func TestCompositeScoreMonotonicInTopicMatch(t *testing.T) {
	svc := &RecommendationService{}
	profile := baseProfile()
	course := catalog()[1:2] // 同一门课，其余分量保持不变

	// 主题依次抬高 topicMatch：无命中 0、词元半命中 0.2、标题命中封顶 1.0
	topics := []string{"pottery", "golang basics", "golang"}

	var lastTopic, lastComposite float64
	for i, topic := range topics {
		recs := svc.Rank(profile, topic, course, 0, 0, false)
		if len(recs) != 1 {
			t.Fatalf("topic %q: got %d recommendations, want 1", topic, len(recs))
		}
		got := recs[0]

		if i > 0 {
			if got.ComponentScores.TopicMatch <= lastTopic {
				t.Fatalf("fixture must raise topic match: %v after %v", got.ComponentScores.TopicMatch, lastTopic)
			}
			if got.CompositeScore < lastComposite {
				t.Errorf("composite dropped from %v to %v while topic match rose", lastComposite, got.CompositeScore)
			}
			wantDelta := weightTopicMatch * (got.ComponentScores.TopicMatch - lastTopic)
			if !almostEqual(got.CompositeScore-lastComposite, wantDelta) {
				t.Errorf("composite delta = %v, want %v for the topic component alone", got.CompositeScore-lastComposite, wantDelta)
			}
		}
		lastTopic = got.ComponentScores.TopicMatch
		lastComposite = got.CompositeScore
	}
}

func TestRankAppliesFloorAndLimit(t *testing.T) {
	svc := &RecommendationService{}
	profile := baseProfile()

	t.Run("floor filters weak matches", func(t *testing.T) {
		recs := svc.Rank(profile, "pottery", catalog(), 0, 0.3, false)
		for _, rec := range recs {
			if rec.CompositeScore < 0.3 {
				t.Errorf("score %v below floor survived filtering", rec.CompositeScore)
			}
		}
	})

	t.Run("limit truncates", func(t *testing.T) {
		recs := svc.Rank(profile, "", catalog(), 2, 0, false)
		if len(recs) != 2 {
			t.Errorf("got %d recommendations, want 2", len(recs))
		}
	})
}

func TestRankEstimatedMinutesFollowPacing(t *testing.T) {
	svc := &RecommendationService{}

	fast := baseProfile()
	fast.CompletionRate = 0.9
	fast.EngagementScore = 0.8

	recs := svc.Rank(fast, "", catalog()[:1], 0, 0, false)
	if len(recs) != 1 {
		t.Fatalf("got %d recommendations, want 1", len(recs))
	}
	pacing := PacingMultiplier(fast)
	if pacing <= 1 {
		t.Fatalf("pacing = %v, expected above 1 for a fast learner", pacing)
	}
	want := 240 / pacing
	if !almostEqual(recs[0].EstimatedMinutes, want) {
		t.Errorf("EstimatedMinutes = %v, want %v", recs[0].EstimatedMinutes, want)
	}
}

func TestRankCollaborativeBlending(t *testing.T) {
	svc := &RecommendationService{} // nil feedback service -> neutral 0.5 signal
	profile := baseProfile()

	plain := svc.Rank(profile, "", catalog()[:1], 0, 0, false)
	blended := svc.Rank(profile, "", catalog()[:1], 0, 0, true)

	want := 0.85*plain[0].CompositeScore + 0.15*0.5
	if !almostEqual(blended[0].CompositeScore, want) {
		t.Errorf("blended score = %v, want %v", blended[0].CompositeScore, want)
	}
	if blended[0].ComponentScores.Collaborative != 0.5 {
		t.Errorf("Collaborative = %v, want neutral 0.5", blended[0].ComponentScores.Collaborative)
	}
}
