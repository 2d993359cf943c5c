package controller

import (
	"vocata/internal/model"
	"vocata/internal/service"
	"vocata/pkgs/errcode"
	"vocata/pkgs/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type VoiceController struct {
	svc    service.VoiceService
	logger *zap.Logger
}

func NewVoiceController(svc service.VoiceService, logger *zap.Logger) *VoiceController {
	return &VoiceController{svc: svc, logger: named(logger, "controller.voice")}
}

func (c *VoiceController) CreateVoice(ctx *gin.Context) {
	var req model.CreateVoiceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.ParamError(ctx, errcode.ParamBindError, "参数错误: "+err.Error())
		return
	}
	v, err := c.svc.CreateVoice(ctx.Request.Context(), &req)
	if err != nil {
		c.logger.Error("create voice failed", zap.String("provider_voice_id", req.ProviderVoiceID), zap.Error(err))
		response.InternalError(ctx, errcode.InternalServerError, "创建音色失败")
		return
	}
	response.SuccessWithMessage(ctx, "创建音色成功", v)
}

func (c *VoiceController) DeleteVoice(ctx *gin.Context) {
	id := ctx.Query("id")
	if id == "" {
		response.ParamError(ctx, errcode.ParamBindError, "缺少音色ID")
		return
	}
	if err := c.svc.DeleteVoice(ctx.Request.Context(), id); err != nil {
		c.logger.Error("delete voice failed", zap.String("id", id), zap.Error(err))
		response.InternalError(ctx, errcode.InternalServerError, "删除音色失败")
		return
	}
	response.SuccessWithMessage(ctx, "删除成功", nil)
}

// ListVoices 可按 provider 过滤
func (c *VoiceController) ListVoices(ctx *gin.Context) {
	items, err := c.svc.ListVoices(ctx.Request.Context(), ctx.Query("provider"))
	if err != nil {
		c.logger.Error("list voices failed", zap.Error(err))
		response.InternalError(ctx, errcode.InternalServerError, "获取音色列表失败")
		return
	}
	response.Success(ctx, items)
}
