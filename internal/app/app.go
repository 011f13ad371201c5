package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mentora_backend/internal/config"
	"mentora_backend/internal/controller"
	"mentora_backend/internal/repository"
	"mentora_backend/internal/service"
	"mentora_backend/pkg/database"
	"mentora_backend/pkg/logger"
	"mentora_backend/pkg/monitoring"
	"mentora_backend/pkg/security"
	"mentora_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	configCallbacks []func(*config.Config)
}

type repositories struct {
	behavior   *repository.BehaviorRepository
	profile    *repository.ProfileRepository
	course     *repository.CourseRepository
	feedback   *repository.FeedbackRepository
	experiment *repository.ExperimentRepository
}

type services struct {
	behavior       *service.BehaviorService
	features       *service.FeatureService
	profile        *service.ProfileService
	adaptation     *service.AdaptationService
	feedback       *service.FeedbackService
	recommendation *service.RecommendationService
	ml             *service.MLService
	predictive     *service.PredictiveService
	experiment     *service.ExperimentService
	realtime       *service.RealTimeService
	hub            *service.RealtimeHub
}

type controllers struct {
	personalization *controller.PersonalizationController
	recommendation  *controller.RecommendationController
	feedback        *controller.FeedbackController
	model           *controller.ModelController
	experiment      *controller.ExperimentController
	realtime        *controller.RealtimeController
	health          *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ReloadConfig 配置热更新入口，替换运行中配置并通知各回调。
// 端口等启动期参数的变更需要重启才生效。
func (a *App) ReloadConfig(cfg *config.Config) {
	*a.Config = *cfg
	for _, callback := range a.configCallbacks {
		callback(a.Config)
	}
	logger.Log.Info("Config reloaded")
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	return &repositories{
		behavior:   repository.NewBehaviorRepository(db),
		profile:    repository.NewProfileRepository(db, rdb),
		course:     repository.NewCourseRepository(db),
		feedback:   repository.NewFeedbackRepository(db),
		experiment: repository.NewExperimentRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.behavior = service.NewBehaviorService(repos.behavior)
	s.features = service.NewFeatureService(repos.behavior)
	s.profile = service.NewProfileService(&cfg.Personalization, repos.behavior, repos.profile, s.features)
	s.adaptation = service.NewAdaptationService(repos.behavior, repos.profile)
	s.feedback = service.NewFeedbackService(repos.feedback)
	s.recommendation = service.NewRecommendationService(&cfg.Personalization, repos.course, repos.profile, s.feedback)
	s.ml = service.NewMLService(&cfg.Personalization, repos.profile, repos.behavior, s.features)
	s.predictive = service.NewPredictiveService(&cfg.Personalization, repos.behavior, s.features)
	s.experiment = service.NewExperimentService(repos.experiment)
	s.hub = service.NewRealtimeHub(rdb)
	s.realtime = service.NewRealTimeService(&cfg.Personalization, repos.profile, s.hub)

	if err := s.experiment.Restore(); err != nil {
		logger.Log.Error("Failed to restore experiments", zap.Error(err))
	}

	return s
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		personalization: controller.NewPersonalizationController(s.profile, s.adaptation, s.behavior),
		recommendation:  controller.NewRecommendationController(s.recommendation, s.profile, s.ml),
		feedback:        controller.NewFeedbackController(s.feedback),
		model:           controller.NewModelController(s.ml, s.predictive, s.profile),
		experiment:      controller.NewExperimentController(s.experiment),
		realtime:        controller.NewRealtimeController(s.realtime, s.behavior, s.hub),
		health:          controller.NewHealthController(a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	// 配置注入，供鉴权中间件取 JWT 密钥（热更新后取到新配置）
	router.Use(func(c *gin.Context) {
		c.Set("config", a.Config)
		c.Next()
	})

	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 100000
	}
	windowMinutes := cfg.RateLimit.WindowMinutes
	if windowMinutes <= 0 {
		windowMinutes = 1
	}
	router.Use(security.RateLimiter(maxRequests, time.Duration(windowMinutes)*time.Minute))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks(s *services) {
	// 实时会话清扫
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		for range ticker.C {
			removed := s.realtime.Sweep(a.Config.Personalization.SessionMaxAge())
			monitoring.LiveSessions.Set(float64(s.realtime.ActiveSessions()))
			if removed > 0 {
				logger.Log.Info("Swept stale sessions", zap.Int("removed", removed))
			}
		}
	}()

	// websocket 推送通道
	go s.hub.Run()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db, rdb)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services)

	monitoring.Init()

	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("mentora-personalization", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
			}
		}()
	}

	app.registerRoutes(router, controllers)

	app.startBackgroundTasks(services)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	if a.services != nil && a.services.hub != nil {
		a.services.hub.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
