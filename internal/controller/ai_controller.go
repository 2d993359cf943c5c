package controller

import (
	"errors"
	"io"
	"strings"

	"vocata/internal/ai/dto"
	"vocata/internal/ai/stt"
	"vocata/internal/ai/tts"
	"vocata/internal/model"
	"vocata/internal/service"
	"vocata/internal/utils"
	"vocata/pkgs/errcode"
	"vocata/pkgs/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxRecognizeAudio 单次识别的音频上限
const maxRecognizeAudio = 10 << 20

type AIController struct {
	svc    service.AIService
	logger *zap.Logger
}

func NewAIController(svc service.AIService, logger *zap.Logger) *AIController {
	return &AIController{svc: svc, logger: named(logger, "controller.ai")}
}

// Providers 当前选中的 provider 与候选列表
func (c *AIController) Providers(ctx *gin.Context) {
	response.Success(ctx, c.svc.Providers())
}

// Synthesize 文本转语音，音频上传后返回地址
func (c *AIController) Synthesize(ctx *gin.Context) {
	var req model.SynthesizeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.ParamError(ctx, errcode.ParamBindError, "参数错误: "+err.Error())
		return
	}

	resp, err := c.svc.Synthesize(ctx.Request.Context(), &req)
	switch {
	case errors.Is(err, service.ErrProviderUnavailable):
		response.ServiceUnavailable(ctx, errcode.ProviderUnavailable, "语音合成服务不可用")
	case errors.Is(err, dto.ErrInvalidRequest), errors.Is(err, tts.ErrEmptyText):
		response.ParamError(ctx, errcode.ParamBindError, "合成参数错误")
	case err != nil:
		c.logger.Error("synthesize failed", zap.Error(err))
		response.InternalError(ctx, errcode.SynthesizeFailed, tts.MsgSynthesizeFailed)
	default:
		response.Success(ctx, resp)
	}
}

// Recognize 上传整段音频识别，表单字段 audio
func (c *AIController) Recognize(ctx *gin.Context) {
	fileHeader, err := ctx.FormFile("audio")
	if err != nil {
		response.ParamError(ctx, errcode.ParamBindError, "缺少音频文件")
		return
	}
	if fileHeader.Size > maxRecognizeAudio {
		response.ParamError(ctx, errcode.FileUploadFailed, "音频大小不能超过10MB")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.ParamError(ctx, errcode.FileParseFailed, "音频读取失败")
		return
	}
	defer file.Close()
	audio, err := io.ReadAll(io.LimitReader(file, maxRecognizeAudio))
	if err != nil {
		response.ParamError(ctx, errcode.FileParseFailed, "音频读取失败")
		return
	}

	cfg := dto.DefaultSttConfig()
	if format := ctx.PostForm("format"); format != "" {
		cfg.AudioFormat = strings.ToLower(format)
	}
	if rate := utils.StringToInt(ctx.PostForm("sample_rate")); rate > 0 {
		cfg.SampleRate = rate
	}
	if lang := ctx.PostForm("language"); lang != "" {
		cfg.Language = lang
	}

	resp, err := c.svc.Recognize(ctx.Request.Context(), audio, cfg)
	switch {
	case errors.Is(err, service.ErrProviderUnavailable):
		response.ServiceUnavailable(ctx, errcode.ProviderUnavailable, "语音识别服务不可用")
	case errors.Is(err, stt.ErrNoSpeech):
		response.ParamError(ctx, errcode.RecognizeFailed, "未识别到语音")
	case err != nil:
		c.logger.Error("recognize failed", zap.String("format", cfg.AudioFormat), zap.Error(err))
		response.InternalError(ctx, errcode.RecognizeFailed, stt.MsgRecognizeFailed)
	default:
		response.Success(ctx, resp)
	}
}
