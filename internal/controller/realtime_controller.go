package controller

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"vocata/internal/ai/dto"
	"vocata/internal/ai/pipeline"
	hisdao "vocata/internal/dao/history"
	"vocata/internal/model"
	"vocata/internal/service"
	"vocata/internal/utils"
	"vocata/pkgs/errcode"
	"vocata/pkgs/response"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/schema"
	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	wsReadLimit     = 1 << 20
	wsWriteTimeout  = 10 * time.Second
	audioPipeFrames = 64

	statusConnected = "connected"
	statusBusy      = "busy"
	statusListening = "listening"
)

type RealtimeController struct {
	history        service.HistoryService
	chat           service.ChatService
	originPatterns []string
	logger         *zap.Logger
}

// NewRealtimeController origins 沿用 CORS 白名单，为空时只允许同源握手
func NewRealtimeController(history service.HistoryService, chat service.ChatService, origins []string, logger *zap.Logger) *RealtimeController {
	return &RealtimeController{
		history:        history,
		chat:           chat,
		originPatterns: originHosts(origins),
		logger:         named(logger, "controller.realtime"),
	}
}

// Chat 实时语音/文本对话，一个连接绑定一个会话
func (c *RealtimeController) Chat(ctx *gin.Context) {
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
	if _, err := c.history.GetConversation(ctx.Request.Context(), userID, convID); err != nil {
		if errors.Is(err, hisdao.ErrConversationNotFound) {
			response.NotFoundError(ctx, errcode.ConversationNotFound, "会话不存在")
			return
		}
		c.logger.Error("load conversation failed", zap.String("conv_id", convID), zap.Error(err))
		response.InternalError(ctx, errcode.InternalServerError, "连接失败")
		return
	}

	conn, err := websocket.Accept(ctx.Writer, ctx.Request, &websocket.AcceptOptions{OriginPatterns: c.originPatterns})
	if err != nil {
		c.logger.Warn("websocket handshake failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(wsReadLimit)

	sess := &wsSession{
		conn:   conn,
		chat:   c.chat,
		userID: userID,
		convID: convID,
		logger: c.logger.With(zap.String("conv_id", convID), zap.Uint("user_id", userID)),
	}
	sess.serve(ctx.Request.Context())
}

// originHosts 握手校验按 host 匹配，去掉 scheme
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if _, host, ok := strings.Cut(o, "://"); ok {
			o = host
		}
		if o = strings.TrimSuffix(strings.TrimSpace(o), "/"); o != "" {
			hosts = append(hosts, o)
		}
	}
	return hosts
}

// wsSession 单个连接的状态，读循环独占 audio 字段
type wsSession struct {
	conn   *websocket.Conn
	chat   service.ChatService
	userID uint
	convID string
	logger *zap.Logger

	busy  atomic.Bool
	audio *schema.StreamWriter[[]byte]
	turns sync.WaitGroup
}

func (s *wsSession) serve(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer func() {
		s.endAudio()
		cancel()
		s.turns.Wait()
		_ = s.conn.Close(websocket.StatusNormalClosure, "")
		s.logger.Info("websocket closed")
	}()

	s.logger.Info("websocket connected")
	s.sendControl(ctx, model.WSStatus, statusConnected, "WebSocket连接已建立")

	for {
		typ, data, err := s.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && ctx.Err() == nil {
				s.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		if typ == websocket.MessageBinary {
			s.pushAudio(data)
			continue
		}

		var msg model.WSInbound
		if err := sonic.Unmarshal(data, &msg); err != nil {
			s.sendError(ctx, pipeline.StageRequest, "消息格式错误")
			continue
		}
		s.handle(ctx, &msg)
	}
}

func (s *wsSession) handle(ctx context.Context, msg *model.WSInbound) {
	switch msg.Type {
	case model.WSAudioStart:
		s.startAudio(ctx, msg)
	case model.WSAudioEnd:
		s.endAudio()
	case model.WSTextMessage:
		s.startText(ctx, msg.Text)
	case model.WSPing:
		s.sendControl(ctx, model.WSPong, "", "")
	default:
		s.logger.Warn("unknown message type", zap.String("type", msg.Type))
		s.sendError(ctx, pipeline.StageRequest, "未知消息类型: "+msg.Type)
	}
}

func (s *wsSession) startAudio(ctx context.Context, msg *model.WSInbound) {
	if !s.busy.CompareAndSwap(false, true) {
		s.sendControl(ctx, model.WSStatus, statusBusy, "上一轮对话尚未结束")
		return
	}
	// 上一轮可能在 audio_end 之前就已结束
	s.endAudio()

	cfg := dto.DefaultSttConfig()
	if msg.Format != "" {
		cfg.AudioFormat = strings.ToLower(msg.Format)
	}
	if msg.SampleRate > 0 {
		cfg.SampleRate = msg.SampleRate
	}
	if msg.Language != "" {
		cfg.Language = msg.Language
	}

	sr, sw := schema.Pipe[[]byte](audioPipeFrames)
	turnCtx, cancel := context.WithCancel(ctx)
	envs, err := s.chat.StreamAudio(turnCtx, s.userID, s.convID, sr, cfg)
	if err != nil {
		cancel()
		sw.Close()
		s.busy.Store(false)
		s.logger.Error("start audio turn failed", zap.Error(err))
		s.sendError(ctx, pipeline.StageRequest, "对话启动失败")
		return
	}
	s.audio = sw
	s.sendControl(ctx, model.WSStatus, statusListening, "开始接收音频")
	s.runTurn(ctx, cancel, envs)
}

func (s *wsSession) pushAudio(data []byte) {
	if s.audio == nil {
		s.logger.Debug("drop audio frame outside of a turn", zap.Int("bytes", len(data)))
		return
	}
	if closed := s.audio.Send(data, nil); closed {
		s.audio = nil
	}
}

func (s *wsSession) endAudio() {
	if s.audio != nil {
		s.audio.Close()
		s.audio = nil
	}
}

func (s *wsSession) startText(ctx context.Context, text string) {
	if strings.TrimSpace(text) == "" {
		s.sendError(ctx, pipeline.StageRequest, pipeline.MsgEmptyMessage)
		return
	}
	if !s.busy.CompareAndSwap(false, true) {
		s.sendControl(ctx, model.WSStatus, statusBusy, "上一轮对话尚未结束")
		return
	}
	turnCtx, cancel := context.WithCancel(ctx)
	envs, err := s.chat.StreamText(turnCtx, s.userID, s.convID, text)
	if err != nil {
		cancel()
		s.busy.Store(false)
		s.logger.Error("start text turn failed", zap.Error(err))
		s.sendError(ctx, pipeline.StageRequest, "对话启动失败")
		return
	}
	s.runTurn(ctx, cancel, envs)
}

// runTurn 转发本轮事件，结束后取消本轮并释放 busy
func (s *wsSession) runTurn(ctx context.Context, cancel context.CancelFunc, envs *schema.StreamReader[*pipeline.Envelope]) {
	s.turns.Add(1)
	go func() {
		defer s.turns.Done()
		defer s.busy.Store(false)
		defer envs.Close()
		defer cancel()

		for {
			env, err := envs.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				s.logger.Warn("receive envelope failed", zap.Error(err))
				return
			}
			data, err := env.MarshalJSON()
			if err != nil {
				s.logger.Error("marshal envelope failed", zap.Error(err))
				return
			}
			if err := s.write(ctx, data); err != nil {
				s.logger.Warn("write envelope failed", zap.Error(err))
				return
			}
		}
	}()
}

func (s *wsSession) sendControl(ctx context.Context, typ, status, message string) {
	data, err := sonic.Marshal(model.WSControl{Type: typ, Status: status, Message: message, Timestamp: time.Now().UnixMilli()})
	if err != nil {
		return
	}
	if err := s.write(ctx, data); err != nil {
		s.logger.Debug("write control frame failed", zap.Error(err))
	}
}

func (s *wsSession) sendError(ctx context.Context, stage, message string) {
	data, err := pipeline.ErrorEnvelope(stage, message, map[string]string{"conv_id": s.convID}).MarshalJSON()
	if err != nil {
		return
	}
	if err := s.write(ctx, data); err != nil {
		s.logger.Debug("write error frame failed", zap.Error(err))
	}
}

func (s *wsSession) write(ctx context.Context, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return s.conn.Write(ctx, websocket.MessageText, data)
}
