package controller

import (
	"errors"

	"mentora_backend/internal/model"
	"mentora_backend/internal/service"
	"mentora_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type FeedbackController struct {
	FeedbackService *service.FeedbackService
}

func NewFeedbackController(feedbackService *service.FeedbackService) *FeedbackController {
	return &FeedbackController{FeedbackService: feedbackService}
}

type implicitFeedbackRequest struct {
	RecommendationID string              `json:"recommendationId" binding:"required"`
	CourseID         *uint               `json:"courseId"`
	Action           string              `json:"action" binding:"required"`
	Context          model.EventMetadata `json:"context"`
}

// @Summary 记录隐式反馈
// @Description 点击、完成、跳过等推荐交互
// @Tags 反馈
// @Security BearerAuth
// @Param request body implicitFeedbackRequest true "反馈内容"
// @Success 201 {object} util.Response
// @Router /api/feedback/implicit [post]
func (c *FeedbackController) CollectImplicit(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req implicitFeedbackRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	record, err := c.FeedbackService.CollectImplicit(user.UserID, req.RecommendationID, req.CourseID, req.Action, req.Context)
	if err != nil {
		util.ServerError(ctx, err)
		return
	}

	util.Created(ctx, record)
}

type explicitFeedbackRequest struct {
	RecommendationID string              `json:"recommendationId" binding:"required"`
	CourseID         *uint               `json:"courseId"`
	Rating           float64             `json:"rating"`
	Context          model.EventMetadata `json:"context"`
}

// @Summary 记录显式评分
// @Description 评分范围 0-5
// @Tags 反馈
// @Security BearerAuth
// @Param request body explicitFeedbackRequest true "评分内容"
// @Success 201 {object} util.Response
// @Router /api/feedback/explicit [post]
func (c *FeedbackController) CollectExplicit(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req explicitFeedbackRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	record, err := c.FeedbackService.CollectExplicit(user.UserID, req.RecommendationID, req.CourseID, req.Rating, req.Context)
	if err != nil {
		if errors.Is(err, util.ErrInvalidRating) {
			util.BadRequest(ctx, err.Error())
			return
		}
		util.ServerError(ctx, err)
		return
	}

	util.Created(ctx, record)
}

// @Summary 单条推荐的质量分
// @Tags 反馈
// @Security BearerAuth
// @Param id path string true "推荐 ID"
// @Success 200 {object} util.Response
// @Router /api/feedback/quality/{id} [get]
func (c *FeedbackController) QualityScore(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	quality, err := c.FeedbackService.QualityScore(ctx.Param("id"))
	if err != nil {
		util.ServerError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"recommendationId": ctx.Param("id"), "quality": quality})
}

// @Summary 推荐质量汇总
// @Tags 反馈
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/feedback/summary [get]
func (c *FeedbackController) Summary(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	summary, err := c.FeedbackService.PerformanceMetrics()
	if err != nil {
		util.ServerError(ctx, err)
		return
	}

	util.Success(ctx, summary)
}
