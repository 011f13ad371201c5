package service

import (
	"math"
	"sync"
	"time"

	"mentora_backend/internal/config"
	"mentora_backend/internal/model"
	"mentora_backend/internal/repository"
	"mentora_backend/internal/util"
)

// 梯度下降超参，训练集规模小，固定值即可
const (
	gdLearningRate = 0.1
	gdEpochs       = 200
	kmeansMaxIter  = 50
)

// linearModel 普通最小二乘的梯度下降拟合
type linearModel struct {
	weights []float64
	bias    float64
}

func (m *linearModel) fit(features [][]float64, targets []float64) {
	dims := len(features[0])
	m.weights = make([]float64, dims)
	m.bias = 0
	n := float64(len(features))

	for epoch := 0; epoch < gdEpochs; epoch++ {
		gradW := make([]float64, dims)
		gradB := 0.0
		for i, row := range features {
			err := m.predict(row) - targets[i]
			for d, x := range row {
				gradW[d] += err * x
			}
			gradB += err
		}
		for d := range m.weights {
			m.weights[d] -= gdLearningRate * gradW[d] / n
		}
		m.bias -= gdLearningRate * gradB / n
	}
}

func (m *linearModel) predict(row []float64) float64 {
	sum := m.bias
	for d, w := range m.weights {
		sum += w * row[d]
	}
	return sum
}

// logisticModel 二分类逻辑回归
type logisticModel struct {
	weights []float64
	bias    float64
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func (m *logisticModel) fit(features [][]float64, labels []float64) {
	dims := len(features[0])
	m.weights = make([]float64, dims)
	m.bias = 0
	n := float64(len(features))

	for epoch := 0; epoch < gdEpochs; epoch++ {
		gradW := make([]float64, dims)
		gradB := 0.0
		for i, row := range features {
			err := m.predict(row) - labels[i]
			for d, x := range row {
				gradW[d] += err * x
			}
			gradB += err
		}
		for d := range m.weights {
			m.weights[d] -= gdLearningRate * gradW[d] / n
		}
		m.bias -= gdLearningRate * gradB / n
	}
}

func (m *logisticModel) predict(row []float64) float64 {
	z := m.bias
	for d, w := range m.weights {
		z += w * row[d]
	}
	return sigmoid(z)
}

// kmeansModel 确定性初始化的 k-means：质心从等距样本取，
// 同样的输入总是得到同样的簇。
type kmeansModel struct {
	centroids [][]float64
}

func (m *kmeansModel) fit(features [][]float64, k int) {
	if k > len(features) {
		k = len(features)
	}
	m.centroids = make([][]float64, k)
	step := len(features) / k
	for i := 0; i < k; i++ {
		src := features[i*step]
		m.centroids[i] = append([]float64(nil), src...)
	}

	assignments := make([]int, len(features))
	for iter := 0; iter < kmeansMaxIter; iter++ {
		changed := false
		for i, row := range features {
			c := m.assign(row)
			if c != assignments[i] {
				assignments[i] = c
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		dims := len(features[0])
		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dims)
		}
		for i, row := range features {
			c := assignments[i]
			counts[c]++
			for d, x := range row {
				sums[c][d] += x
			}
		}
		for c := range m.centroids {
			if counts[c] == 0 {
				continue
			}
			for d := range m.centroids[c] {
				m.centroids[c][d] = sums[c][d] / float64(counts[c])
			}
		}
	}
}

func (m *kmeansModel) assign(row []float64) int {
	best, bestDist := 0, math.MaxFloat64
	for c, centroid := range m.centroids {
		dist := 0.0
		for d, x := range row {
			diff := x - centroid[d]
			dist += diff * diff
		}
		if dist < bestDist {
			best, bestDist = c, dist
		}
	}
	return best
}

type trainedState struct {
	trained   bool
	trainedAt time.Time
	rows      int
}

// MLService 亲和度/难度/聚类三个模型的训练与预测。
// 模型常驻内存，训练后才可预测。
type MLService struct {
	Cfg          *config.PersonalizationConfig
	ProfileRepo  *repository.ProfileRepository
	BehaviorRepo *repository.BehaviorRepository
	Features     *FeatureService

	mu         sync.RWMutex
	affinity   logisticModel
	difficulty linearModel
	clusters   kmeansModel
	state      map[string]*trainedState
}

func NewMLService(cfg *config.PersonalizationConfig, profileRepo *repository.ProfileRepository, behaviorRepo *repository.BehaviorRepository, features *FeatureService) *MLService {
	return &MLService{
		Cfg:          cfg,
		ProfileRepo:  profileRepo,
		BehaviorRepo: behaviorRepo,
		Features:     features,
		state: map[string]*trainedState{
			"affinity":   {},
			"difficulty": {},
			"clusters":   {},
		},
	}
}

func (s *MLService) minTrainingRows() int {
	if s.Cfg != nil && s.Cfg.MinTrainingRows > 0 {
		return s.Cfg.MinTrainingRows
	}
	return 50
}

func (s *MLService) minClusterUsers() int {
	if s.Cfg != nil && s.Cfg.MinClusterUsers > 0 {
		return s.Cfg.MinClusterUsers
	}
	return 10
}

func (s *MLService) clusterCount() int {
	if s.Cfg != nil && s.Cfg.ClusterCount > 1 {
		return s.Cfg.ClusterCount
	}
	return 4
}

// profileFeatures 画像字段转特征行，三个模型共用
func profileFeatures(p *model.UserLearningProfile) []float64 {
	return []float64{
		p.CompletionRate,
		p.EngagementScore,
		p.ConsistencyScore,
		p.ChallengePreference,
		clamp01(p.AttentionSpan / 60),
	}
}

var profileFeatureNames = []string{
	"completion_rate",
	"engagement_score",
	"consistency_score",
	"challenge_preference",
	"attention_span",
}

func (s *MLService) trainingSet() ([][]float64, []*model.UserLearningProfile, error) {
	profiles, err := s.ProfileRepo.ListProfiles()
	if err != nil {
		return nil, nil, err
	}
	features := make([][]float64, 0, len(profiles))
	refs := make([]*model.UserLearningProfile, 0, len(profiles))
	for i := range profiles {
		features = append(features, profileFeatures(&profiles[i]))
		refs = append(refs, &profiles[i])
	}
	return features, refs, nil
}

// TrainAffinity 训练内容亲和度模型。正样本为高参与画像。
func (s *MLService) TrainAffinity() (*model.TrainingReport, error) {
	features, profiles, err := s.trainingSet()
	if err != nil {
		return nil, err
	}
	if len(features) < s.minTrainingRows() {
		return nil, util.ErrInsufficientData
	}

	labels := make([]float64, len(profiles))
	for i, p := range profiles {
		if p.EngagementScore >= 0.6 {
			labels[i] = 1
		}
	}

	s.mu.Lock()
	s.affinity.fit(features, labels)
	correct := 0
	for i, row := range features {
		pred := 0.0
		if s.affinity.predict(row) >= 0.5 {
			pred = 1
		}
		if pred == labels[i] {
			correct++
		}
	}
	importance := normalizedImportance(s.affinity.weights)
	st := s.state["affinity"]
	st.trained, st.trainedAt, st.rows = true, time.Now(), len(features)
	s.mu.Unlock()

	return &model.TrainingReport{
		Model: "affinity",
		Rows:  len(features),
		Metrics: map[string]float64{
			"accuracy": float64(correct) / float64(len(features)),
		},
		FeatureImportance: importance,
		TrainedAt:         time.Now(),
	}, nil
}

// TrainDifficulty 训练难度偏好回归模型。
// 目标值为当前难度水平上浮一档：min(1, level+0.1)。
func (s *MLService) TrainDifficulty() (*model.TrainingReport, error) {
	features, profiles, err := s.trainingSet()
	if err != nil {
		return nil, err
	}
	if len(features) < s.minTrainingRows() {
		return nil, util.ErrInsufficientData
	}

	targets := make([]float64, len(profiles))
	for i, p := range profiles {
		targets[i] = math.Min(1, p.CurrentDifficultyLevel+0.1)
	}

	s.mu.Lock()
	s.difficulty.fit(features, targets)
	mse, mae := 0.0, 0.0
	for i, row := range features {
		err := s.difficulty.predict(row) - targets[i]
		mse += err * err
		mae += math.Abs(err)
	}
	n := float64(len(features))
	importance := normalizedImportance(s.difficulty.weights)
	st := s.state["difficulty"]
	st.trained, st.trainedAt, st.rows = true, time.Now(), len(features)
	s.mu.Unlock()

	return &model.TrainingReport{
		Model: "difficulty",
		Rows:  len(features),
		Metrics: map[string]float64{
			"mse": mse / n,
			"mae": mae / n,
		},
		FeatureImportance: importance,
		TrainedAt:         time.Now(),
	}, nil
}

// TrainClusters 按画像特征做用户分群
func (s *MLService) TrainClusters() (*model.TrainingReport, error) {
	features, _, err := s.trainingSet()
	if err != nil {
		return nil, err
	}
	if len(features) < s.minClusterUsers() {
		return nil, util.ErrInsufficientData
	}

	k := s.clusterCount()
	s.mu.Lock()
	s.clusters.fit(features, k)
	st := s.state["clusters"]
	st.trained, st.trainedAt, st.rows = true, time.Now(), len(features)
	s.mu.Unlock()

	return &model.TrainingReport{
		Model: "clusters",
		Rows:  len(features),
		Metrics: map[string]float64{
			"clusters": float64(k),
		},
		TrainedAt: time.Now(),
	}, nil
}

func normalizedImportance(weights []float64) map[string]float64 {
	total := 0.0
	for _, w := range weights {
		total += math.Abs(w)
	}
	out := make(map[string]float64, len(weights))
	for i, w := range weights {
		name := profileFeatureNames[i]
		if total == 0 {
			out[name] = 0
			continue
		}
		out[name] = math.Abs(w) / total
	}
	return out
}

// PredictAffinity 预测用户对内容的亲和概率
func (s *MLService) PredictAffinity(profile *model.UserLearningProfile) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.state["affinity"].trained {
		return 0, util.ErrModelNotTrained
	}
	return s.affinity.predict(profileFeatures(profile)), nil
}

// PredictDifficulty 预测合适的内容难度
func (s *MLService) PredictDifficulty(profile *model.UserLearningProfile) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.state["difficulty"].trained {
		return 0, util.ErrModelNotTrained
	}
	return clamp01(s.difficulty.predict(profileFeatures(profile))), nil
}

// AssignCluster 返回用户所属的分群编号
func (s *MLService) AssignCluster(profile *model.UserLearningProfile) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.state["clusters"].trained {
		return 0, util.ErrModelNotTrained
	}
	return s.clusters.assign(profileFeatures(profile)), nil
}

// RescoreRecommendations 亲和度模型可用时融合重排：
// 0.6*规则分 + 0.4*亲和概率；模型未训练时原样返回。
func (s *MLService) RescoreRecommendations(profile *model.UserLearningProfile, recs []model.CourseRecommendation) []model.CourseRecommendation {
	affinity, err := s.PredictAffinity(profile)
	if err != nil {
		return recs
	}
	for i := range recs {
		recs[i].CompositeScore = 0.6*recs[i].CompositeScore + 0.4*affinity
	}
	return recs
}

// Status 各模型的训练状态
func (s *MLService) Status() []model.ModelStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := []string{"affinity", "difficulty", "clusters"}
	out := make([]model.ModelStatus, 0, len(names))
	for _, name := range names {
		st := s.state[name]
		status := model.ModelStatus{Name: name, IsTrained: st.trained, Rows: st.rows}
		if st.trained {
			t := st.trainedAt
			status.LastTrained = &t
		}
		out = append(out, status)
	}
	return out
}
