package controller

import (
	"errors"
	"net/http"
	"time"

	"mentora_backend/internal/model"
	"mentora_backend/internal/service"
	"mentora_backend/internal/util"
	"mentora_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

type ModelController struct {
	MLService         *service.MLService
	PredictiveService *service.PredictiveService
	ProfileService    *service.ProfileService
}

func NewModelController(mlService *service.MLService, predictiveService *service.PredictiveService, profileService *service.ProfileService) *ModelController {
	return &ModelController{
		MLService:         mlService,
		PredictiveService: predictiveService,
		ProfileService:    profileService,
	}
}

// @Summary 训练模型
// @Description model 取 affinity / difficulty / clusters / outcome
// @Tags 模型
// @Security BearerAuth
// @Param model path string true "模型名"
// @Success 200 {object} util.Response
// @Router /api/models/{model}/train [post]
func (c *ModelController) Train(ctx *gin.Context) {
	name := ctx.Param("model")

	start := time.Now()
	var report *model.TrainingReport
	var err error

	switch name {
	case "affinity":
		report, err = c.MLService.TrainAffinity()
	case "difficulty":
		report, err = c.MLService.TrainDifficulty()
	case "clusters":
		report, err = c.MLService.TrainClusters()
	case "outcome":
		report, err = c.PredictiveService.Train()
	default:
		util.BadRequest(ctx, "unknown model: "+name)
		return
	}

	if err != nil {
		if errors.Is(err, util.ErrInsufficientData) {
			util.Error(ctx, http.StatusUnprocessableEntity, "not enough training data")
			return
		}
		util.ServerError(ctx, err)
		return
	}

	monitoring.TrainingDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	util.Success(ctx, report)
}

// @Summary 模型状态
// @Tags 模型
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/models/status [get]
func (c *ModelController) Status(ctx *gin.Context) {
	statuses := c.MLService.Status()
	statuses = append(statuses, c.PredictiveService.Status())
	util.Success(ctx, statuses)
}

// @Summary 学习结果预测
// @Description 完成率、成功率与参与度走势的综合预测
// @Tags 模型
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/models/predict/outcome [get]
func (c *ModelController) PredictOutcome(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	outcome, err := c.PredictiveService.PredictOutcome(user.UserID)
	if err != nil {
		if errors.Is(err, util.ErrModelNotTrained) {
			util.Error(ctx, http.StatusConflict, "prediction model has not been trained yet")
			return
		}
		util.ServerError(ctx, err)
		return
	}

	util.Success(ctx, outcome)
}

// @Summary 用户分群
// @Tags 模型
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/models/cluster [get]
func (c *ModelController) AssignCluster(ctx *gin.Context) {
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

	cluster, err := c.MLService.AssignCluster(profile)
	if err != nil {
		if errors.Is(err, util.ErrModelNotTrained) {
			util.Error(ctx, http.StatusConflict, "cluster model has not been trained yet")
			return
		}
		util.ServerError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"userId": user.UserID, "cluster": cluster})
}
