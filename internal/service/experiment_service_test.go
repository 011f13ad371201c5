package service

import (
	"errors"
	"testing"
	"time"

	"mentora_backend/internal/model"
	"mentora_backend/internal/util"
)

func activeWindow() (time.Time, time.Time) {
	now := time.Now()
	return now.Add(-time.Hour), now.Add(24 * time.Hour)
}

func TestCreateTestValidation(t *testing.T) {
	svc := NewExperimentService(nil)
	start, end := activeWindow()

	tests := []struct {
		name     string
		testName string
		variants []string
		split    []float64
	}{
		{"missing name", "", []string{"a", "b"}, []float64{0.5, 0.5}},
		{"single variant", "t1", []string{"a"}, []float64{1}},
		{"length mismatch", "t2", []string{"a", "b"}, []float64{1}},
		{"split sums below one", "t3", []string{"a", "b"}, []float64{0.5, 0.4}},
		{"split sums above one", "t5", []string{"a", "b"}, []float64{0.6, 0.5}},
		{"negative share", "t4", []string{"a", "b"}, []float64{1.5, -0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTest(tt.testName, tt.variants, tt.split, "conversion", start, end)
			if !errors.Is(err, util.ErrInvalidTestConfig) {
				t.Errorf("err = %v, want ErrInvalidTestConfig", err)
			}
		})
	}

	t.Run("split sum within tolerance", func(t *testing.T) {
		_, err := svc.CreateTest("tolerant", []string{"a", "b"}, []float64{0.5004, 0.5001}, "conversion", start, end)
		if err != nil {
			t.Errorf("err = %v, want success within 1e-3 tolerance", err)
		}
	})
}

func TestCreateTestDuplicate(t *testing.T) {
	svc := NewExperimentService(nil)
	start, end := activeWindow()

	if _, err := svc.CreateTest("dup", []string{"a", "b"}, []float64{0.5, 0.5}, "conversion", start, end); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.CreateTest("dup", []string{"a", "b"}, []float64{0.5, 0.5}, "conversion", start, end); !errors.Is(err, util.ErrExperimentExists) {
		t.Errorf("err = %v, want ErrExperimentExists", err)
	}
}

func TestAssignDeterministic(t *testing.T) {
	svc := NewExperimentService(nil)
	start, end := activeWindow()
	if _, err := svc.CreateTest("det", []string{"control", "treatment"}, []float64{0.5, 0.5}, "conversion", start, end); err != nil {
		t.Fatalf("create: %v", err)
	}

	for userID := uint(1); userID <= 50; userID++ {
		first, err := svc.Assign("det", userID)
		if err != nil {
			t.Fatalf("assign user %d: %v", userID, err)
		}
		second, err := svc.Assign("det", userID)
		if err != nil {
			t.Fatalf("re-assign user %d: %v", userID, err)
		}
		if first != second {
			t.Errorf("user %d got %q then %q", userID, first, second)
		}
	}
}

func TestAssignRespectsTrafficSplit(t *testing.T) {
	svc := NewExperimentService(nil)
	start, end := activeWindow()
	if _, err := svc.CreateTest("split", []string{"a", "b"}, []float64{0.9, 0.1}, "conversion", start, end); err != nil {
		t.Fatalf("create: %v", err)
	}

	counts := map[string]int{}
	for userID := uint(1); userID <= 1000; userID++ {
		variant, err := svc.Assign("split", userID)
		if err != nil {
			t.Fatalf("assign: %v", err)
		}
		counts[variant]++
	}

	// 哈希分流的波动范围给足余量
	if counts["a"] < 800 || counts["a"] > 980 {
		t.Errorf("variant a got %d of 1000 users, expected near 900", counts["a"])
	}
}

func TestAssignExpiredExperiment(t *testing.T) {
	svc := NewExperimentService(nil)
	now := time.Now()
	if _, err := svc.CreateTest("expired", []string{"a", "b"}, []float64{0.5, 0.5}, "conversion", now.Add(-48*time.Hour), now.Add(-24*time.Hour)); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Assign("expired", 1); !errors.Is(err, util.ErrExperimentCompleted) {
		t.Errorf("err = %v, want ErrExperimentCompleted", err)
	}

	results, err := svc.Results("expired")
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if results.Status != model.TestCompleted {
		t.Errorf("status = %v, want completed after expiry", results.Status)
	}
}

func TestAssignUnknownExperiment(t *testing.T) {
	svc := NewExperimentService(nil)
	if _, err := svc.Assign("nope", 1); !errors.Is(err, util.ErrExperimentNotFound) {
		t.Errorf("err = %v, want ErrExperimentNotFound", err)
	}
}

func TestRecordConversionUnassignedIsNoop(t *testing.T) {
	svc := NewExperimentService(nil)
	start, end := activeWindow()
	if _, err := svc.CreateTest("conv", []string{"a", "b"}, []float64{0.5, 0.5}, "conversion", start, end); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.RecordConversion("conv", 99, 1.0); err != nil {
		t.Fatalf("conversion for unassigned user: %v", err)
	}

	results, err := svc.Results("conv")
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	for _, v := range results.Variants {
		if v.Conversions != 0 {
			t.Errorf("variant %s has %d conversions, want 0", v.Variant, v.Conversions)
		}
	}
}

func TestResultsConversionRates(t *testing.T) {
	svc := NewExperimentService(nil)
	start, end := activeWindow()
	if _, err := svc.CreateTest("rates", []string{"a", "b"}, []float64{0.5, 0.5}, "conversion", start, end); err != nil {
		t.Fatalf("create: %v", err)
	}

	assigned := map[string][]uint{}
	for userID := uint(1); userID <= 20; userID++ {
		variant, err := svc.Assign("rates", userID)
		if err != nil {
			t.Fatalf("assign: %v", err)
		}
		assigned[variant] = append(assigned[variant], userID)
	}

	// convert every user in one variant
	for _, userID := range assigned["a"] {
		if err := svc.RecordConversion("rates", userID, 2.0); err != nil {
			t.Fatalf("conversion: %v", err)
		}
	}

	results, err := svc.Results("rates")
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	for _, v := range results.Variants {
		if v.Variant == "a" && v.Users > 0 {
			if !almostEqual(v.ConversionRate, 1) {
				t.Errorf("variant a rate = %v, want 1", v.ConversionRate)
			}
			if !almostEqual(v.AvgMetric, 2.0) {
				t.Errorf("variant a avg metric = %v, want 2.0", v.AvgMetric)
			}
		}
		if v.Variant == "b" && v.ConversionRate != 0 {
			t.Errorf("variant b rate = %v, want 0", v.ConversionRate)
		}
	}
	if results.Significance != nil {
		t.Error("significance should be withheld below the sample threshold")
	}
}

func TestTwoProportionZTest(t *testing.T) {
	t.Run("clear difference is significant", func(t *testing.T) {
		a := model.VariantResult{Variant: "a", Users: 500, Conversions: 100, ConversionRate: 0.2}
		b := model.VariantResult{Variant: "b", Users: 500, Conversions: 200, ConversionRate: 0.4}
		sig := twoProportionZTest(a, b)
		if !sig.Significant {
			t.Errorf("p = %v, expected significance for 20pt lift at n=500", sig.PValue)
		}
		if !almostEqual(sig.RelativeLift, 1.0) {
			t.Errorf("lift = %v, want 1.0 (0.2 -> 0.4)", sig.RelativeLift)
		}
		if sig.ZScore <= 0 {
			t.Errorf("z = %v, want positive for an improvement", sig.ZScore)
		}
	})

	t.Run("identical variants are not significant", func(t *testing.T) {
		a := model.VariantResult{Variant: "a", Users: 500, Conversions: 100, ConversionRate: 0.2}
		sig := twoProportionZTest(a, a)
		if sig.Significant {
			t.Errorf("p = %v, identical variants must not be significant", sig.PValue)
		}
		if sig.ZScore != 0 {
			t.Errorf("z = %v, want 0", sig.ZScore)
		}
	})
}

func TestNormalCDF(t *testing.T) {
	if !almostEqual(normalCDF(0), 0.5) {
		t.Errorf("normalCDF(0) = %v, want 0.5", normalCDF(0))
	}
	if normalCDF(3) < 0.99 {
		t.Errorf("normalCDF(3) = %v, want > 0.99", normalCDF(3))
	}
}
