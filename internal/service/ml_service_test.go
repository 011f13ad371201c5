package service

import (
	"errors"
	"testing"

	"mentora_backend/internal/model"
	"mentora_backend/internal/util"
)

func TestPredictBeforeTraining(t *testing.T) {
	svc := NewMLService(nil, nil, nil, nil)
	profile := baseProfile()

	if _, err := svc.PredictAffinity(profile); !errors.Is(err, util.ErrModelNotTrained) {
		t.Errorf("PredictAffinity err = %v, want ErrModelNotTrained", err)
	}
	if _, err := svc.PredictDifficulty(profile); !errors.Is(err, util.ErrModelNotTrained) {
		t.Errorf("PredictDifficulty err = %v, want ErrModelNotTrained", err)
	}
	if _, err := svc.AssignCluster(profile); !errors.Is(err, util.ErrModelNotTrained) {
		t.Errorf("AssignCluster err = %v, want ErrModelNotTrained", err)
	}
}

func TestLogisticModelSeparableData(t *testing.T) {
	var m logisticModel
	features := [][]float64{
		{0.1, 0.1}, {0.2, 0.1}, {0.1, 0.2}, {0.2, 0.2},
		{0.8, 0.9}, {0.9, 0.8}, {0.9, 0.9}, {0.8, 0.8},
	}
	labels := []float64{0, 0, 0, 0, 1, 1, 1, 1}

	m.fit(features, labels)

	// 正类的最小概率必须高于负类的最大概率
	minPositive, maxNegative := 1.0, 0.0
	for i, row := range features {
		p := m.predict(row)
		if labels[i] == 1 && p < minPositive {
			minPositive = p
		}
		if labels[i] == 0 && p > maxNegative {
			maxNegative = p
		}
	}
	if minPositive <= maxNegative {
		t.Errorf("classes not separated: min positive %v <= max negative %v", minPositive, maxNegative)
	}
}

func TestLinearModelFitsConstantTarget(t *testing.T) {
	var m linearModel
	features := [][]float64{{0.1}, {0.5}, {0.9}, {0.3}, {0.7}}
	targets := []float64{0.6, 0.6, 0.6, 0.6, 0.6}

	m.fit(features, targets)

	for _, row := range features {
		got := m.predict(row)
		if got < 0.5 || got > 0.7 {
			t.Errorf("predict(%v) = %v, want near 0.6", row, got)
		}
	}
}

func TestKMeansDeterministic(t *testing.T) {
	features := [][]float64{
		{0.1, 0.1}, {0.15, 0.1}, {0.1, 0.15},
		{0.9, 0.9}, {0.85, 0.9}, {0.9, 0.85},
	}

	var m1, m2 kmeansModel
	m1.fit(features, 2)
	m2.fit(features, 2)

	for i, row := range features {
		if m1.assign(row) != m2.assign(row) {
			t.Errorf("row %d assigned differently across identical runs", i)
		}
	}

	// 同一簇内的点落在一起
	if m1.assign(features[0]) != m1.assign(features[1]) {
		t.Error("nearby points split across clusters")
	}
	if m1.assign(features[0]) == m1.assign(features[3]) {
		t.Error("distant points share a cluster")
	}
}

func TestKMeansCapsClusterCount(t *testing.T) {
	var m kmeansModel
	m.fit([][]float64{{0.1}, {0.9}}, 5)
	if len(m.centroids) != 2 {
		t.Errorf("centroids = %d, want capped at sample count 2", len(m.centroids))
	}
}

func TestNormalizedImportanceSumsToOne(t *testing.T) {
	importance := normalizedImportance([]float64{0.5, -1.5, 1.0, 0, 2.0})
	sum := 0.0
	for _, v := range importance {
		if v < 0 {
			t.Errorf("importance %v must be non-negative", v)
		}
		sum += v
	}
	if !almostEqual(sum, 1) {
		t.Errorf("importance sum = %v, want 1", sum)
	}
}

func TestRescoreWithoutModelIsIdentity(t *testing.T) {
	svc := NewMLService(nil, nil, nil, nil)
	recs := []model.CourseRecommendation{{CompositeScore: 0.8}, {CompositeScore: 0.4}}

	out := svc.RescoreRecommendations(baseProfile(), recs)
	if out[0].CompositeScore != 0.8 || out[1].CompositeScore != 0.4 {
		t.Errorf("scores changed without a trained model: %+v", out)
	}
}

func TestStatusReportsUntrainedModels(t *testing.T) {
	svc := NewMLService(nil, nil, nil, nil)
	statuses := svc.Status()
	if len(statuses) != 3 {
		t.Fatalf("got %d statuses, want 3", len(statuses))
	}
	for _, st := range statuses {
		if st.IsTrained {
			t.Errorf("model %s reported trained before any training", st.Name)
		}
		if st.LastTrained != nil {
			t.Errorf("model %s has LastTrained before any training", st.Name)
		}
	}
}
