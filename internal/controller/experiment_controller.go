package controller

import (
	"errors"
	"net/http"
	"time"

	"mentora_backend/internal/service"
	"mentora_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ExperimentController struct {
	ExperimentService *service.ExperimentService
}

func NewExperimentController(experimentService *service.ExperimentService) *ExperimentController {
	return &ExperimentController{ExperimentService: experimentService}
}

type createTestRequest struct {
	Name          string    `json:"name" binding:"required"`
	Variants      []string  `json:"variants" binding:"required"`
	TrafficSplit  []float64 `json:"trafficSplit" binding:"required"`
	SuccessMetric string    `json:"successMetric"`
	StartDate     time.Time `json:"startDate"`
	EndDate       time.Time `json:"endDate" binding:"required"`
}

// @Summary 创建 A/B 实验
// @Tags 实验
// @Security BearerAuth
// @Param request body createTestRequest true "实验配置"
// @Success 201 {object} util.Response
// @Router /api/experiments [post]
func (c *ExperimentController) Create(ctx *gin.Context) {
	var req createTestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if req.StartDate.IsZero() {
		req.StartDate = time.Now()
	}

	test, err := c.ExperimentService.CreateTest(req.Name, req.Variants, req.TrafficSplit, req.SuccessMetric, req.StartDate, req.EndDate)
	if err != nil {
		if errors.Is(err, util.ErrInvalidTestConfig) {
			util.BadRequest(ctx, err.Error())
			return
		}
		if errors.Is(err, util.ErrExperimentExists) {
			util.Error(ctx, http.StatusConflict, err.Error())
			return
		}
		util.ServerError(ctx, err)
		return
	}

	util.Created(ctx, test)
}

// @Summary 实验列表
// @Tags 实验
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/experiments [get]
func (c *ExperimentController) List(ctx *gin.Context) {
	util.Success(ctx, c.ExperimentService.List())
}

// @Summary 获取分支分配
// @Description 同一用户同一实验总是返回同一分支
// @Tags 实验
// @Security BearerAuth
// @Param name path string true "实验名"
// @Success 200 {object} util.Response
// @Router /api/experiments/{name}/assignment [get]
func (c *ExperimentController) Assign(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	variant, err := c.ExperimentService.Assign(ctx.Param("name"), user.UserID)
	if err != nil {
		if errors.Is(err, util.ErrExperimentNotFound) {
			util.NotFound(ctx, err.Error())
			return
		}
		if errors.Is(err, util.ErrExperimentCompleted) {
			util.Error(ctx, http.StatusGone, err.Error())
			return
		}
		util.ServerError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"test": ctx.Param("name"), "variant": variant})
}

type conversionRequest struct {
	MetricValue float64 `json:"metricValue"`
}

// @Summary 记录转化
// @Description 未分配到分支的用户静默忽略
// @Tags 实验
// @Security BearerAuth
// @Param name path string true "实验名"
// @Param request body conversionRequest false "指标值"
// @Success 200 {object} util.Response
// @Router /api/experiments/{name}/conversion [post]
func (c *ExperimentController) RecordConversion(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req conversionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.ExperimentService.RecordConversion(ctx.Param("name"), user.UserID, req.MetricValue); err != nil {
		if errors.Is(err, util.ErrExperimentNotFound) {
			util.NotFound(ctx, err.Error())
			return
		}
		util.ServerError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"recorded": true})
}

// @Summary 实验结果
// @Description 两分支且样本充足时附显著性检验
// @Tags 实验
// @Security BearerAuth
// @Param name path string true "实验名"
// @Success 200 {object} util.Response
// @Router /api/experiments/{name}/results [get]
func (c *ExperimentController) Results(ctx *gin.Context) {
	results, err := c.ExperimentService.Results(ctx.Param("name"))
	if err != nil {
		if errors.Is(err, util.ErrExperimentNotFound) {
			util.NotFound(ctx, err.Error())
			return
		}
		util.ServerError(ctx, err)
		return
	}

	util.Success(ctx, results)
}
