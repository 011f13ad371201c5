package controller

import (
	"mentora_backend/internal/model"
	"mentora_backend/internal/service"
	"mentora_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type RealtimeController struct {
	RealTimeService *service.RealTimeService
	BehaviorService *service.BehaviorService
	Hub             *service.RealtimeHub
}

func NewRealtimeController(realTimeService *service.RealTimeService, behaviorService *service.BehaviorService, hub *service.RealtimeHub) *RealtimeController {
	return &RealtimeController{RealTimeService: realTimeService, BehaviorService: behaviorService, Hub: hub}
}

type trackEventRequest struct {
	SessionID       string              `json:"sessionId" binding:"required"`
	EventType       model.EventType     `json:"eventType" binding:"required"`
	CourseID        *uint               `json:"courseId"`
	ChapterID       *uint               `json:"chapterId"`
	DurationSeconds float64             `json:"durationSeconds"`
	EngagementScore float64             `json:"engagementScore" binding:"min=0,max=1"`
	Metadata        model.EventMetadata `json:"metadata"`
}

// @Summary 上报会话事件
// @Description 事件入库并实时分析，触发规则时同步返回调整指令
// @Tags 实时
// @Security BearerAuth
// @Param request body trackEventRequest true "事件内容"
// @Success 200 {object} util.Response
// @Router /api/realtime/events [post]
func (c *RealtimeController) TrackEvent(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req trackEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	event := model.BehaviorEvent{
		UserID:          user.UserID,
		SessionID:       req.SessionID,
		EventType:       req.EventType,
		CourseID:        req.CourseID,
		ChapterID:       req.ChapterID,
		DurationSeconds: req.DurationSeconds,
		EngagementScore: req.EngagementScore,
		Metadata:        req.Metadata,
	}

	if err := c.BehaviorService.Record(&event); err != nil {
		util.ServerError(ctx, err)
		return
	}

	adjustment, err := c.RealTimeService.TrackEvent(req.SessionID, user.UserID, event)
	if err != nil {
		util.ServerError(ctx, err)
		return
	}

	if adjustment == nil {
		util.Success(ctx, gin.H{"tracked": true})
		return
	}
	util.Success(ctx, gin.H{"tracked": true, "adjustment": adjustment})
}

// @Summary 会话实时分析
// @Description 只读分析，不追加事件
// @Tags 实时
// @Security BearerAuth
// @Param id path string true "会话 ID"
// @Success 200 {object} util.Response
// @Router /api/realtime/sessions/{id}/analysis [get]
func (c *RealtimeController) Analyze(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	adjustment, err := c.RealTimeService.Analyze(ctx.Param("id"))
	if err != nil {
		util.ServerError(ctx, err)
		return
	}

	if adjustment == nil {
		util.Success(ctx, gin.H{"adjustmentNeeded": false})
		return
	}
	util.Success(ctx, gin.H{"adjustmentNeeded": true, "adjustment": adjustment})
}

// @Summary 调整推送通道
// @Description websocket 升级，服务端单向推送实时调整
// @Tags 实时
// @Security BearerAuth
// @Router /api/realtime/ws [get]
func (c *RealtimeController) ServeWs(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	service.ServeWs(c.Hub, ctx.Writer, ctx.Request, user.UserID)
}
