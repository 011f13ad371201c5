package repository

import (
	"strings"

	"mentora_backend/internal/model"

	"gorm.io/gorm"
)

// CourseRepository 课程目录：核心只做候选查询
type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) FindByID(id uint) (*model.Course, error) {
	var course model.Course
	if err := r.DB.First(&course, id).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

// Search 按主题模糊匹配；topic 为空时返回全量目录。
// 结果按目录顺序（主键升序）返回，排序稳定性依赖这一点。
func (r *CourseRepository) Search(topic string) ([]model.Course, error) {
	if strings.TrimSpace(topic) == "" {
		return r.List()
	}
	var courses []model.Course
	like := "%" + strings.ToLower(strings.TrimSpace(topic)) + "%"
	err := r.DB.
		Where("LOWER(title) LIKE ? OR LOWER(topic) LIKE ? OR LOWER(description) LIKE ?", like, like, like).
		Order("id ASC").
		Find(&courses).Error
	return courses, err
}

func (r *CourseRepository) List() ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.Order("id ASC").Find(&courses).Error
	return courses, err
}
