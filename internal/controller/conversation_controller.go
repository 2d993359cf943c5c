package controller

import (
	"context"
	"errors"
	"io"

	"vocata/internal/ai/pipeline"
	"vocata/internal/ai/selector"
	"vocata/internal/dao"
	hisdao "vocata/internal/dao/history"
	"vocata/internal/model"
	"vocata/internal/service"
	"vocata/internal/utils"
	"vocata/pkgs/errcode"
	"vocata/pkgs/response"

	"github.com/cloudwego/eino/schema"
	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ConversationController struct {
	history      service.HistoryService
	characterSvc service.CharacterService
	chat         service.ChatService
	logger       *zap.Logger
}

func NewConversationController(history service.HistoryService, characterSvc service.CharacterService, chat service.ChatService, logger *zap.Logger) *ConversationController {
	return &ConversationController{
		history:      history,
		characterSvc: characterSvc,
		chat:         chat,
		logger:       named(logger, "controller.conversation"),
	}
}

// CreateConversation 创建新会话
func (c *ConversationController) CreateConversation(ctx *gin.Context) {
	userID, err := utils.GetUserIDFromContext(ctx)
	if err != nil {
		response.UnauthorizedError(ctx, errcode.UnauthorizedError, "用户验证失败")
		return
	}

	var req model.CreateConversationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.ParamError(ctx, errcode.ParamBindError, "参数错误: "+err.Error())
		return
	}

	character, err := c.characterSvc.GetCharacter(ctx.Request.Context(), userID, req.CharacterID)
	if err != nil {
		if errors.Is(err, dao.ErrCharacterNotFound) {
			response.NotFoundError(ctx, errcode.CharacterNotFound, "角色不存在或无权限")
			return
		}
		c.logger.Error("load character failed", zap.String("character_id", req.CharacterID), zap.Error(err))
		response.InternalError(ctx, errcode.InternalServerError, "创建会话失败")
		return
	}

	conv, err := c.history.CreateConversation(ctx.Request.Context(), userID, character, req.Title)
	if err != nil {
		c.logger.Error("create conversation failed", zap.Uint("user_id", userID), zap.Error(err))
		response.InternalError(ctx, errcode.InternalServerError, "创建会话失败")
		return
	}
	response.SuccessWithMessage(ctx, "创建成功", conv)
}

// StreamMessage 文本对话，以 SSE 推送本轮事件
func (c *ConversationController) StreamMessage(ctx *gin.Context) {
	userID, err := utils.GetUserIDFromContext(ctx)
	if err != nil {
		response.UnauthorizedError(ctx, errcode.UnauthorizedError, "用户验证失败")
		return
	}

	var req model.StreamChatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.ParamError(ctx, errcode.ParamBindError, "参数错误: "+err.Error())
		return
	}

	sr, err := c.chat.StreamText(ctx.Request.Context(), userID, req.ConvID, req.Message)
	if err != nil {
		c.turnError(ctx, req.ConvID, err)
		return
	}
	c.streamEnvelopes(ctx, req.ConvID, sr)
}

// streamEnvelopes 每个事件编码为一条 SSE，事件名即事件类型
func (c *ConversationController) streamEnvelopes(ctx *gin.Context, convID string, sr *schema.StreamReader[*pipeline.Envelope]) {
	ctx.Writer.Header().Set("Content-Type", "text/event-stream")
	ctx.Writer.Header().Set("Cache-Control", "no-cache")
	ctx.Writer.Header().Set("Connection", "keep-alive")
	ctx.Writer.Header().Set("Transfer-Encoding", "chunked")

	log := c.logger.With(zap.String("conv_id", convID))
	done := make(chan struct{})
	defer func() {
		sr.Close()
		close(done)
		log.Debug("finish stream")
	}()

	ctx.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Request.Context().Done():
			log.Info("client gone, stop streaming")
			return false
		case <-done:
			return false
		default:
			env, err := sr.Recv()
			if errors.Is(err, io.EOF) {
				return false
			}
			if err != nil {
				log.Warn("receive envelope failed", zap.Error(err))
				return false
			}

			data, err := env.MarshalJSON()
			if err != nil {
				log.Error("marshal envelope failed", zap.Error(err))
				return false
			}
			if err := sse.Encode(w, sse.Event{Event: string(env.Type()), Data: string(data)}); err != nil {
				log.Warn("write sse event failed", zap.Error(err))
				return false
			}
			ctx.Writer.Flush()
			return true
		}
	})
}

func (c *ConversationController) turnError(ctx *gin.Context, convID string, err error) {
	switch {
	case errors.Is(err, hisdao.ErrConversationNotFound):
		response.NotFoundError(ctx, errcode.ConversationNotFound, "会话不存在")
	case errors.Is(err, selector.ErrNoProvider):
		c.logger.Error("no provider for turn", zap.String("conv_id", convID), zap.Error(err))
		response.ServiceUnavailable(ctx, errcode.ProviderUnavailable, "暂无可用的AI服务")
	default:
		c.logger.Error("start turn failed", zap.String("conv_id", convID), zap.Error(err))
		response.InternalError(ctx, errcode.InternalServerError, "对话失败")
	}
}

// ListConversations 获取用户所有会话，置顶优先
func (c *ConversationController) ListConversations(ctx *gin.Context) {
	userID, err := utils.GetUserIDFromContext(ctx)
	if err != nil {
		response.UnauthorizedError(ctx, errcode.UnauthorizedError, "用户验证失败")
		return
	}
	page, size, err := utils.ParsePaginationParams(ctx)
	if err != nil {
		response.ParamError(ctx, errcode.ParamBindError, "分页参数错误")
		return
	}

	var (
		convs []*model.Conversation
		total int64
	)
	if characterID := ctx.Query("character_id"); characterID != "" {
		convs, total, err = c.history.ListConversationsByCharacter(ctx.Request.Context(), userID, characterID, page, size)
	} else {
		convs, total, err = c.history.ListConversations(ctx.Request.Context(), userID, page, size)
	}
	if err != nil {
		c.logger.Error("list conversations failed", zap.Uint("user_id", userID), zap.Error(err))
		response.InternalError(ctx, errcode.InternalServerError, "获取会话列表失败")
		return
	}
	response.PageSuccess(ctx, convs, total)
}

func (c *ConversationController) GetConversation(ctx *gin.Context) {
	userID, err := utils.GetUserIDFromContext(ctx)
	if err != nil {
		response.UnauthorizedError(ctx, errcode.UnauthorizedError, "用户验证失败")
		return
	}
	convID := ctx.Query("conv_id")
	if convID == "" {
		response.ParamError(ctx, errcode.ParamBindError, "缺少会话ID")
		return
	}
	conv, err := c.history.GetConversation(ctx.Request.Context(), userID, convID)
	if err != nil {
		c.convError(ctx, "获取会话失败", err)
		return
	}
	response.Success(ctx, conv)
}

// ListMessages 会话消息，按时间正序分页
func (c *ConversationController) ListMessages(ctx *gin.Context) {
	userID, err := utils.GetUserIDFromContext(ctx)
	if err != nil {
		response.UnauthorizedError(ctx, errcode.UnauthorizedError, "用户验证失败")
		return
	}
	convID := ctx.Query("conv_id")
	if convID == "" {
		response.ParamError(ctx, errcode.ParamBindError, "缺少会话ID")
		return
	}
	page, size, err := utils.ParsePaginationParams(ctx)
	if err != nil {
		response.ParamError(ctx, errcode.ParamBindError, "分页参数错误")
		return
	}
	msgs, total, err := c.history.ListMessages(ctx.Request.Context(), userID, convID, page, size)
	if err != nil {
		c.convError(ctx, "获取消息失败", err)
		return
	}
	response.PageSuccess(ctx, msgs, total)
}

func (c *ConversationController) RenameConversation(ctx *gin.Context) {
	userID, err := utils.GetUserIDFromContext(ctx)
	if err != nil {
		response.UnauthorizedError(ctx, errcode.UnauthorizedError, "用户验证失败")
		return
	}
	var req model.RenameConversationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.ParamError(ctx, errcode.ParamBindError, "参数错误: "+err.Error())
		return
	}
	if err := c.history.RenameConversation(ctx.Request.Context(), userID, req.ConvID, req.Title); err != nil {
		c.convError(ctx, "重命名失败", err)
		return
	}
	response.SuccessWithMessage(ctx, "重命名成功", nil)
}

func (c *ConversationController) ArchiveConversation(ctx *gin.Context) {
	c.updateFlag(ctx, c.history.ArchiveConversation, "已归档")
}

func (c *ConversationController) UnArchiveConversation(ctx *gin.Context) {
	c.updateFlag(ctx, c.history.UnArchiveConversation, "已取消归档")
}

func (c *ConversationController) PinConversation(ctx *gin.Context) {
	c.updateFlag(ctx, c.history.PinConversation, "已置顶")
}

func (c *ConversationController) UnPinConversation(ctx *gin.Context) {
	c.updateFlag(ctx, c.history.UnPinConversation, "已取消置顶")
}

func (c *ConversationController) DeleteConversation(ctx *gin.Context) {
	c.updateFlag(ctx, c.history.DeleteConversation, "删除成功")
}

func (c *ConversationController) updateFlag(ctx *gin.Context, fn func(ctx context.Context, userID uint, convID string) error, msg string) {
	userID, err := utils.GetUserIDFromContext(ctx)
	if err != nil {
		response.UnauthorizedError(ctx, errcode.UnauthorizedError, "用户验证失败")
		return
	}
	var req model.ConvIDRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.ParamError(ctx, errcode.ParamBindError, "参数错误: "+err.Error())
		return
	}
	if err := fn(ctx.Request.Context(), userID, req.ConvID); err != nil {
		c.convError(ctx, "操作失败", err)
		return
	}
	response.SuccessWithMessage(ctx, msg, nil)
}

func (c *ConversationController) convError(ctx *gin.Context, msg string, err error) {
	if errors.Is(err, hisdao.ErrConversationNotFound) {
		response.NotFoundError(ctx, errcode.ConversationNotFound, "会话不存在")
		return
	}
	c.logger.Error(msg, zap.Error(err))
	response.InternalError(ctx, errcode.InternalServerError, msg)
}
