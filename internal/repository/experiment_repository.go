package repository

import (
	"mentora_backend/internal/model"

	"gorm.io/gorm"
)

// ExperimentRepository A/B 实验的持久化
type ExperimentRepository struct {
	DB *gorm.DB
}

func NewExperimentRepository(db *gorm.DB) *ExperimentRepository {
	return &ExperimentRepository{DB: db}
}

func (r *ExperimentRepository) Create(test *model.ABTest) error {
	return r.DB.Create(test).Error
}

func (r *ExperimentRepository) GetByName(name string) (*model.ABTest, error) {
	var test model.ABTest
	if err := r.DB.Where("name = ?", name).First(&test).Error; err != nil {
		return nil, err
	}
	return &test, nil
}

func (r *ExperimentRepository) Save(test *model.ABTest) error {
	return r.DB.Save(test).Error
}

func (r *ExperimentRepository) List() ([]model.ABTest, error) {
	var tests []model.ABTest
	err := r.DB.Order("created_at DESC").Find(&tests).Error
	return tests, err
}
