package database

import (
	"fmt"
	"log"

	"mentora_backend/internal/config"
	"mentora_backend/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	err = db.AutoMigrate(
		&model.BehaviorEvent{},
		&model.UserLearningProfile{},
		&model.LearningPattern{},
		&model.Course{},
		&model.ABTest{},
		&model.FeedbackRecord{},
	)

	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	// 空目录时插入一批起步课程，保证推荐接口开箱可用
	var count int64
	db.Model(&model.Course{}).Count(&count)
	if count == 0 {
		starterCourses := []model.Course{
			{Title: "Go 语言入门", Description: "从零开始的 Go 基础课程", Topic: "golang", Difficulty: 0.2, DurationMinutes: 240, Popularity: 0.9, ContentTypes: []string{"video", "exercise"}},
			{Title: "数据结构与算法", Description: "常见数据结构与算法实战", Topic: "algorithms", Difficulty: 0.55, DurationMinutes: 480, Popularity: 0.8, ContentTypes: []string{"article", "exercise"}},
			{Title: "Web 开发实战", Description: "REST API 与前后端联调", Topic: "web", Difficulty: 0.45, DurationMinutes: 360, Popularity: 0.75, ContentTypes: []string{"video", "project"}},
			{Title: "数据库原理", Description: "关系模型、索引与事务", Topic: "database", Difficulty: 0.5, DurationMinutes: 300, Popularity: 0.7, ContentTypes: []string{"article", "diagram"}},
			{Title: "机器学习基础", Description: "监督学习与模型评估入门", Topic: "machine learning", Difficulty: 0.7, DurationMinutes: 600, Popularity: 0.85, ContentTypes: []string{"video", "interactive"}},
			{Title: "分布式系统导论", Description: "一致性、复制与容错", Topic: "distributed systems", Difficulty: 0.8, DurationMinutes: 540, Popularity: 0.6, ContentTypes: []string{"article", "discussion"}},
		}
		for _, course := range starterCourses {
			db.Create(&course)
		}
	}

	return db, nil
}
