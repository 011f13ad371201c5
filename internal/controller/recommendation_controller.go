package controller

import (
	"errors"
	"strconv"

	"mentora_backend/internal/service"
	"mentora_backend/internal/util"
	"mentora_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

type RecommendationController struct {
	RecommendationService *service.RecommendationService
	ProfileService        *service.ProfileService
	MLService             *service.MLService
}

func NewRecommendationController(recommendationService *service.RecommendationService, profileService *service.ProfileService, mlService *service.MLService) *RecommendationController {
	return &RecommendationController{
		RecommendationService: recommendationService,
		ProfileService:        profileService,
		MLService:             mlService,
	}
}

// @Summary 主题课程推荐
// @Description 画像缺失时回退到热门课程
// @Tags 推荐
// @Security BearerAuth
// @Param topic query string false "主题关键词"
// @Param limit query int false "返回条数" default(10)
// @Success 200 {object} util.Response
// @Router /api/recommendations [get]
func (c *RecommendationController) RecommendByTopic(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	topic := ctx.Query("topic")
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))

	recs, err := c.RecommendationService.RecommendByTopic(user.UserID, topic, limit)
	if err != nil {
		if errors.Is(err, util.ErrProfileNotFound) {
			fallback, ferr := c.RecommendationService.PopularCourses(limit)
			if ferr != nil {
				util.ServerError(ctx, ferr)
				return
			}
			monitoring.RecommendationCounter.WithLabelValues("popularity_fallback").Inc()
			util.Success(ctx, gin.H{"recommendations": fallback, "personalized": false})
			return
		}
		util.ServerError(ctx, err)
		return
	}

	// 亲和度模型可用时融合重排
	if profile, perr := c.RecommendationService.ProfileRepo.GetProfile(user.UserID); perr == nil {
		recs = c.MLService.RescoreRecommendations(profile, recs)
	}

	monitoring.RecommendationCounter.WithLabelValues("topic").Inc()
	util.Success(ctx, gin.H{"recommendations": recs, "personalized": true})
}

// @Summary 仪表盘推荐
// @Description 无主题的全量排序，混入反馈质量信号
// @Tags 推荐
// @Security BearerAuth
// @Param limit query int false "返回条数" default(6)
// @Success 200 {object} util.Response
// @Router /api/recommendations/dashboard [get]
func (c *RecommendationController) RecommendForDashboard(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "6"))

	recs, err := c.RecommendationService.RecommendForDashboard(user.UserID, limit)
	if err != nil {
		if errors.Is(err, util.ErrProfileNotFound) {
			fallback, ferr := c.RecommendationService.PopularCourses(limit)
			if ferr != nil {
				util.ServerError(ctx, ferr)
				return
			}
			monitoring.RecommendationCounter.WithLabelValues("popularity_fallback").Inc()
			util.Success(ctx, gin.H{"recommendations": fallback, "personalized": false})
			return
		}
		util.ServerError(ctx, err)
		return
	}

	monitoring.RecommendationCounter.WithLabelValues("dashboard").Inc()
	util.Success(ctx, gin.H{"recommendations": recs, "personalized": true})
}
