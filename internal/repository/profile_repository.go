package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mentora_backend/internal/model"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const profileCacheTTL = 10 * time.Minute

// ProfileRepository 画像存储：学习画像与学习模式的读写。
// 画像读路径带 redis 缓存，写路径失效缓存。
type ProfileRepository struct {
	DB  *gorm.DB
	RDB *redis.Client
}

func NewProfileRepository(db *gorm.DB, rdb *redis.Client) *ProfileRepository {
	return &ProfileRepository{DB: db, RDB: rdb}
}

func profileCacheKey(userID uint) string {
	return fmt.Sprintf("personalization:profile:%d", userID)
}

func (r *ProfileRepository) GetProfile(userID uint) (*model.UserLearningProfile, error) {
	ctx := context.Background()

	if r.RDB != nil {
		if raw, err := r.RDB.Get(ctx, profileCacheKey(userID)).Result(); err == nil {
			var cached model.UserLearningProfile
			if json.Unmarshal([]byte(raw), &cached) == nil {
				return &cached, nil
			}
		}
	}

	var profile model.UserLearningProfile
	if err := r.DB.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}

	if r.RDB != nil {
		if raw, err := json.Marshal(&profile); err == nil {
			r.RDB.Set(ctx, profileCacheKey(userID), raw, profileCacheTTL)
		}
	}

	return &profile, nil
}

// UpsertProfile 按 user_id 创建或覆盖更新画像
func (r *ProfileRepository) UpsertProfile(profile *model.UserLearningProfile) error {
	if profile.ID == 0 {
		var existing model.UserLearningProfile
		err := r.DB.Where("user_id = ?", profile.UserID).First(&existing).Error
		if err == nil {
			profile.ID = existing.ID
			profile.CreatedAt = existing.CreatedAt
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}

	if err := r.DB.Save(profile).Error; err != nil {
		return err
	}

	if r.RDB != nil {
		r.RDB.Del(context.Background(), profileCacheKey(profile.UserID))
	}
	return nil
}

func (r *ProfileRepository) GetPattern(userID uint) (*model.LearningPattern, error) {
	var pattern model.LearningPattern
	if err := r.DB.Where("user_id = ?", userID).First(&pattern).Error; err != nil {
		return nil, err
	}
	return &pattern, nil
}

// UpsertPattern 整体替换：模式重算后不做增量合并
func (r *ProfileRepository) UpsertPattern(pattern *model.LearningPattern) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("user_id = ?", pattern.UserID).
			Delete(&model.LearningPattern{}).Error; err != nil {
			return err
		}
		pattern.ID = 0
		return tx.Create(pattern).Error
	})
}

// ListProfiles 训练数据集使用
func (r *ProfileRepository) ListProfiles() ([]model.UserLearningProfile, error) {
	var profiles []model.UserLearningProfile
	err := r.DB.Order("user_id ASC").Find(&profiles).Error
	return profiles, err
}
