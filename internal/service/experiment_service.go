package service

import (
	"crypto/md5"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"mentora_backend/internal/model"
	"mentora_backend/internal/repository"
	"mentora_backend/internal/util"

	"gorm.io/gorm"
)

const (
	trafficBuckets      = 1000
	minUsersForZTest    = 30
	significanceLevel   = 0.05
	trafficSplitEpsilon = 1e-3
)

type experimentState struct {
	mu   sync.Mutex
	test *model.ABTest
}

// ExperimentService A/B 实验：确定性分流、转化记录、显著性检验。
// 状态常驻内存，仓储可选，用于重启后恢复。
type ExperimentService struct {
	Repo *repository.ExperimentRepository

	mu    sync.RWMutex
	tests map[string]*experimentState
}

func NewExperimentService(repo *repository.ExperimentRepository) *ExperimentService {
	return &ExperimentService{Repo: repo, tests: make(map[string]*experimentState)}
}

// Restore 从仓储恢复实验状态，应用启动时调用一次
func (s *ExperimentService) Restore() error {
	if s.Repo == nil {
		return nil
	}
	tests, err := s.Repo.List()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range tests {
		test := tests[i]
		s.tests[test.Name] = &experimentState{test: &test}
	}
	return nil
}

// CreateTest 创建实验。分支与分流配比长度必须一致，
// 配比之和必须为 1（容差 1e-3）。
func (s *ExperimentService) CreateTest(name string, variants []string, trafficSplit []float64, successMetric string, start, end time.Time) (*model.ABTest, error) {
	if name == "" || len(variants) < 2 {
		return nil, fmt.Errorf("%w: need a name and at least two variants", util.ErrInvalidTestConfig)
	}
	if len(variants) != len(trafficSplit) {
		return nil, fmt.Errorf("%w: variants and traffic split length mismatch", util.ErrInvalidTestConfig)
	}
	sum := 0.0
	for _, share := range trafficSplit {
		if share < 0 {
			return nil, fmt.Errorf("%w: negative traffic share", util.ErrInvalidTestConfig)
		}
		sum += share
	}
	if math.Abs(sum-1) > trafficSplitEpsilon {
		return nil, fmt.Errorf("%w: traffic split must sum to 1, got %.3f", util.ErrInvalidTestConfig, sum)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("%w: end date must be after start date", util.ErrInvalidTestConfig)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tests[name]; exists {
		return nil, util.ErrExperimentExists
	}

	stats := make(map[string]*model.VariantStats, len(variants))
	for _, v := range variants {
		stats[v] = &model.VariantStats{}
	}
	test := &model.ABTest{
		Name:          name,
		Variants:      variants,
		TrafficSplit:  trafficSplit,
		SuccessMetric: successMetric,
		StartDate:     start,
		EndDate:       end,
		Status:        model.TestActive,
		Assignments:   make(map[string]string),
		Stats:         stats,
	}

	if s.Repo != nil {
		if err := s.Repo.Create(test); err != nil {
			return nil, err
		}
	}
	s.tests[name] = &experimentState{test: test}
	return test, nil
}

func (s *ExperimentService) lookup(name string) (*experimentState, error) {
	s.mu.RLock()
	state, ok := s.tests[name]
	s.mu.RUnlock()
	if !ok {
		if s.Repo != nil {
			test, err := s.Repo.GetByName(name)
			if err == nil {
				s.mu.Lock()
				if existing, raced := s.tests[name]; raced {
					s.mu.Unlock()
					return existing, nil
				}
				state = &experimentState{test: test}
				s.tests[name] = state
				s.mu.Unlock()
				return state, nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
		}
		return nil, util.ErrExperimentNotFound
	}
	return state, nil
}

// Assign 确定性分流：同一用户同一实验总是得到同一分支。
// 过期实验标记 completed 并返回 util.ErrExperimentCompleted。
func (s *ExperimentService) Assign(name string, userID uint) (string, error) {
	state, err := s.lookup(name)
	if err != nil {
		return "", err
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	test := state.test

	if test.Status == model.TestCompleted {
		return "", util.ErrExperimentCompleted
	}
	if test.CompletedAt(time.Now()) {
		test.Status = model.TestCompleted
		s.persist(test)
		return "", util.ErrExperimentCompleted
	}

	key := strconv.FormatUint(uint64(userID), 10)
	if variant, ok := test.Assignments[key]; ok {
		return variant, nil
	}

	variant := bucketVariant(userID, name, test.Variants, test.TrafficSplit)
	test.Assignments[key] = variant
	test.Stats[variant].Users++
	s.persist(test)
	return variant, nil
}

// bucketVariant md5(userID+name) 的前 8 字节落进 1000 个桶，
// 按累计分流配比取分支。
func bucketVariant(userID uint, name string, variants []string, split []float64) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%d%s", userID, name)))
	bucket := float64(binary.BigEndian.Uint64(sum[:8])%trafficBuckets) / trafficBuckets

	cumulative := 0.0
	for i, variant := range variants {
		cumulative += split[i]
		if bucket < cumulative {
			return variant
		}
	}
	return variants[len(variants)-1]
}

// RecordConversion 记录转化；未分配的用户静默忽略
func (s *ExperimentService) RecordConversion(name string, userID uint, metricValue float64) error {
	state, err := s.lookup(name)
	if err != nil {
		return err
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	test := state.test

	key := strconv.FormatUint(uint64(userID), 10)
	variant, ok := test.Assignments[key]
	if !ok {
		return nil
	}

	stats := test.Stats[variant]
	stats.Conversions++
	stats.MetricSum += metricValue
	s.persist(test)
	return nil
}

func (s *ExperimentService) persist(test *model.ABTest) {
	if s.Repo == nil {
		return
	}
	// 持久化失败不阻断分流，状态以内存为准
	_ = s.Repo.Save(test)
}

// Results 汇总各分支表现；恰好两个分支且各自用户数达到阈值时
// 附带双比例 z 检验。
func (s *ExperimentService) Results(name string) (*model.TestResults, error) {
	state, err := s.lookup(name)
	if err != nil {
		return nil, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	test := state.test

	results := &model.TestResults{
		Name:   test.Name,
		Status: test.Status,
	}
	for _, variant := range test.Variants {
		stats := test.Stats[variant]
		vr := model.VariantResult{
			Variant:     variant,
			Users:       stats.Users,
			Conversions: stats.Conversions,
		}
		if stats.Users > 0 {
			vr.ConversionRate = float64(stats.Conversions) / float64(stats.Users)
		}
		if stats.Conversions > 0 {
			vr.AvgMetric = stats.MetricSum / float64(stats.Conversions)
		}
		results.Variants = append(results.Variants, vr)
	}

	if len(results.Variants) == 2 &&
		results.Variants[0].Users >= minUsersForZTest &&
		results.Variants[1].Users >= minUsersForZTest {
		sig := twoProportionZTest(results.Variants[0], results.Variants[1])
		results.Significance = &sig
	}
	return results, nil
}

// twoProportionZTest 合并比例的双比例 z 检验，
// p 值用正态 CDF（math.Erf）双侧计算。
func twoProportionZTest(a, b model.VariantResult) model.SignificanceResult {
	n1, n2 := float64(a.Users), float64(b.Users)
	p1, p2 := a.ConversionRate, b.ConversionRate

	pooled := (float64(a.Conversions) + float64(b.Conversions)) / (n1 + n2)
	se := math.Sqrt(pooled * (1 - pooled) * (1/n1 + 1/n2))

	var z float64
	if se > 0 {
		z = (p2 - p1) / se
	}
	pValue := 2 * (1 - normalCDF(math.Abs(z)))

	lift := 0.0
	if p1 > 0 {
		lift = (p2 - p1) / p1
	}

	return model.SignificanceResult{
		ZScore:       z,
		PValue:       pValue,
		Significant:  pValue < significanceLevel,
		RelativeLift: lift,
	}
}

func normalCDF(z float64) float64 {
	return 0.5 * (1 + math.Erf(z/math.Sqrt2))
}

// List 当前已知的全部实验
func (s *ExperimentService) List() []model.ABTest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ABTest, 0, len(s.tests))
	for _, state := range s.tests {
		state.mu.Lock()
		out = append(out, *state.test)
		state.mu.Unlock()
	}
	return out
}
