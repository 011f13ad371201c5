package controller

import (
	"errors"
	"net/http"

	"mentora_backend/internal/service"
	"mentora_backend/internal/util"
	"mentora_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

type PersonalizationController struct {
	ProfileService    *service.ProfileService
	AdaptationService *service.AdaptationService
	BehaviorService   *service.BehaviorService
}

func NewPersonalizationController(profileService *service.ProfileService, adaptationService *service.AdaptationService, behaviorService *service.BehaviorService) *PersonalizationController {
	return &PersonalizationController{
		ProfileService:    profileService,
		AdaptationService: adaptationService,
		BehaviorService:   behaviorService,
	}
}

// @Summary 获取学习画像
// @Tags 个性化
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/personalization/profile [get]
func (c *PersonalizationController) GetProfile(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	profile, err := c.ProfileService.ProfileRepo.GetProfile(user.UserID)
	if err != nil {
		util.NotFound(ctx, "learning profile not found")
		return
	}

	util.Success(ctx, profile)
}

// @Summary 重新合成学习画像
// @Description 基于行为窗口重新合成画像；数据不足时保留现有画像
// @Tags 个性化
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/personalization/profile/synthesize [post]
func (c *PersonalizationController) SynthesizeProfile(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	profile, err := c.ProfileService.SynthesizeForUser(user.UserID)
	if err != nil {
		if errors.Is(err, util.ErrInsufficientData) {
			util.Success(ctx, gin.H{
				"synthesized": false,
				"reason":      "not enough behavior data yet",
				"profile":     profile,
			})
			return
		}
		util.ServerError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"synthesized": true, "profile": profile})
}

// @Summary 重算学习模式
// @Tags 个性化
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/personalization/pattern/recompute [post]
func (c *PersonalizationController) RecomputePattern(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	pattern, err := c.ProfileService.RecomputePattern(user.UserID)
	if err != nil {
		if errors.Is(err, util.ErrInsufficientData) {
			util.Error(ctx, http.StatusUnprocessableEntity, "not enough behavior data to detect a pattern")
			return
		}
		util.ServerError(ctx, err)
		return
	}

	util.Success(ctx, pattern)
}

// @Summary 匿名化行为数据
// @Description 抹掉元数据与会话关联，保留聚合所需的数值字段
// @Tags 个性化
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/personalization/behavior/anonymize [post]
func (c *PersonalizationController) AnonymizeBehavior(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	affected, err := c.BehaviorService.Anonymize(user.UserID)
	if err != nil {
		util.ServerError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"anonymized": affected})
}

type adaptContentRequest struct {
	ContentID  uint    `json:"contentId" binding:"required"`
	Difficulty float64 `json:"difficulty" binding:"min=0,max=1"`
}

// @Summary 内容适配
// @Description 按画像调整内容难度、呈现方式与节奏
// @Tags 个性化
// @Security BearerAuth
// @Param request body adaptContentRequest true "内容与原始难度"
// @Success 200 {object} util.Response
// @Router /api/personalization/adapt [post]
func (c *PersonalizationController) AdaptContent(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req adaptContentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	adapted, err := c.AdaptationService.AdaptForUser(user.UserID, req.ContentID, req.Difficulty)
	if err != nil {
		if errors.Is(err, util.ErrProfileNotFound) {
			util.NotFound(ctx, "learning profile not found")
			return
		}
		util.ServerError(ctx, err)
		return
	}

	monitoring.AdaptationCounter.WithLabelValues("content").Inc()
	util.Success(ctx, adapted)
}

type pacingRequest struct {
	CourseID uint `json:"courseId" binding:"required"`
}

// @Summary 学习节奏调整
// @Description 置信度不足时维持当前节奏
// @Tags 个性化
// @Security BearerAuth
// @Param request body pacingRequest true "课程"
// @Success 200 {object} util.Response
// @Router /api/personalization/pacing [post]
func (c *PersonalizationController) AdjustPacing(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req pacingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	adjustment, err := c.AdaptationService.AdjustPacing(user.UserID, req.CourseID)
	if err != nil {
		if errors.Is(err, util.ErrInsufficientData) {
			util.Success(ctx, gin.H{"adjusted": false, "reason": "confidence too low, keeping current pacing"})
			return
		}
		if errors.Is(err, util.ErrProfileNotFound) {
			util.NotFound(ctx, "learning profile not found")
			return
		}
		util.ServerError(ctx, err)
		return
	}

	monitoring.AdaptationCounter.WithLabelValues("pacing").Inc()
	util.Success(ctx, gin.H{"adjusted": true, "pacing": adjustment})
}

type assessmentRequest struct {
	AssessmentID uint    `json:"assessmentId" binding:"required"`
	Difficulty   float64 `json:"difficulty" binding:"min=0,max=1"`
}

// @Summary 测评难度调整
// @Description 调整幅度过小时维持原难度
// @Tags 个性化
// @Security BearerAuth
// @Param request body assessmentRequest true "测评与原始难度"
// @Success 200 {object} util.Response
// @Router /api/personalization/assessment [post]
func (c *PersonalizationController) ModifyAssessment(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req assessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	modification, err := c.AdaptationService.ModifyAssessmentDifficulty(user.UserID, req.AssessmentID, req.Difficulty)
	if err != nil {
		if errors.Is(err, util.ErrProfileNotFound) {
			util.NotFound(ctx, "learning profile not found")
			return
		}
		util.ServerError(ctx, err)
		return
	}
	if modification == nil {
		util.Success(ctx, gin.H{"modified": false, "reason": "adjustment below threshold, keeping original difficulty"})
		return
	}

	monitoring.AdaptationCounter.WithLabelValues("assessment").Inc()
	util.Success(ctx, gin.H{"modified": true, "assessment": modification})
}
