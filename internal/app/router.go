package app

import (
	"mentora_backend/internal/middleware"
	"mentora_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}

	// 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware())
	{
		personalization := authGroup.Group("/personalization")
		{
			personalization.GET("/profile", c.personalization.GetProfile)
			personalization.POST("/profile/synthesize", c.personalization.SynthesizeProfile)
			personalization.POST("/pattern/recompute", c.personalization.RecomputePattern)
			personalization.POST("/adapt", c.personalization.AdaptContent)
			personalization.POST("/pacing", c.personalization.AdjustPacing)
			personalization.POST("/assessment", c.personalization.ModifyAssessment)
			personalization.POST("/behavior/anonymize", c.personalization.AnonymizeBehavior)
		}

		recommendations := authGroup.Group("/recommendations")
		{
			recommendations.GET("", c.recommendation.RecommendByTopic)
			recommendations.GET("/dashboard", c.recommendation.RecommendForDashboard)
		}

		feedback := authGroup.Group("/feedback")
		{
			feedback.POST("/implicit", c.feedback.CollectImplicit)
			feedback.POST("/explicit", c.feedback.CollectExplicit)
			feedback.GET("/quality/:id", c.feedback.QualityScore)
			feedback.GET("/summary", middleware.RoleMiddleware("admin"), c.feedback.Summary)
		}

		models := authGroup.Group("/models")
		{
			models.GET("/status", c.model.Status)
			models.GET("/predict/outcome", c.model.PredictOutcome)
			models.GET("/cluster", c.model.AssignCluster)
			models.POST("/:model/train", middleware.RoleMiddleware("admin"), c.model.Train)
		}

		experiments := authGroup.Group("/experiments")
		{
			experiments.POST("", middleware.RoleMiddleware("admin"), c.experiment.Create)
			experiments.GET("", middleware.RoleMiddleware("admin"), c.experiment.List)
			experiments.GET("/:name/results", middleware.RoleMiddleware("admin"), c.experiment.Results)
			experiments.GET("/:name/assignment", c.experiment.Assign)
			experiments.POST("/:name/conversion", c.experiment.RecordConversion)
		}

		realtime := authGroup.Group("/realtime")
		{
			realtime.POST("/events", c.realtime.TrackEvent)
			realtime.GET("/sessions/:id/analysis", c.realtime.Analyze)
			realtime.GET("/ws", c.realtime.ServeWs)
		}
	}
}
