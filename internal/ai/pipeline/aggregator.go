package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"vocata/internal/ai/dto"
	"vocata/internal/ai/llm"
	"vocata/internal/ai/selector"
	"vocata/internal/ai/streams"
	"vocata/internal/ai/stt"
	"vocata/internal/ai/tts"
	"vocata/internal/storage"

	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// 面向用户的提示
const (
	MsgEmptyMessage   = "消息内容不能为空"
	MsgNoSpeech       = "未识别到语音，请重试"
	MsgInvalidRequest = "对话请求无效"
	MsgPersistFailed  = "对话保存失败"
	MsgComplete       = "回复完成"
)

var (
	// errConsumerGone 消费方关闭了输出流
	errConsumerGone   = errors.New("event stream closed by consumer")
	errLLMInterrupted = errors.New("llm stream ended without a terminal chunk")
)

// SelectionSource 当前生效的 provider，*selector.Holder 实现了该接口
type SelectionSource interface {
	Load() *selector.Selection
}

// Result 轮次结束时交给持久化的内容
type Result struct {
	UserText    string
	Text        string
	Usage       *dto.TokenUsage
	AudioURL    string
	Failed      bool
	// 本轮实际使用的 provider 名称
	LLMProvider string
	STTProvider string
	TTSProvider string
}

// Hooks 轮次中的持久化回调，均可为空
type Hooks struct {
	// OnTranscript 在调用 LLM 之前保存用户消息
	OnTranscript func(ctx context.Context, userText string) error
	// OnFinalize 保存助手回复，返回消息 ID
	OnFinalize func(ctx context.Context, res Result) (string, error)
}

// Turn 一次对话轮次的输入。Audio 非空时为语音输入，否则使用 Text。
type Turn struct {
	Audio     *schema.StreamReader[[]byte]
	Text      string
	SttConfig dto.SttConfig
	// TtsConfig 为空时不合成语音
	TtsConfig *dto.TtsConfig
	// BuildRequest 传入本轮实际使用的 LLM，模型等参数应据此确定
	BuildRequest func(userText string, provider llm.Provider) (*dto.UnifiedChatRequest, error)
	Hooks        Hooks
	Metadata     map[string]string
}

// Aggregator 无状态，可被多个轮次并发使用
type Aggregator struct {
	providers       SelectionSource
	storage         storage.Storage
	segmentMaxRunes int
	logger          *zap.Logger
}

// NewAggregator store 为空时不上传合成音频
func NewAggregator(providers SelectionSource, store storage.Storage, segmentMaxRunes int, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		providers:       providers,
		storage:         store,
		segmentMaxRunes: segmentMaxRunes,
		logger:          logger.Named("pipeline"),
	}
}

// Run 启动轮次并返回事件流。取消 ctx 后各阶段立即停止并关闭上游流；
// 只关闭返回的 reader 时在下一次推送时取消，放弃读取的调用方应同时取消 ctx。
func (a *Aggregator) Run(ctx context.Context, turn *Turn) *schema.StreamReader[*Envelope] {
	sr, sw := schema.Pipe[*Envelope](16)
	ctx, cancel := context.WithCancel(ctx)
	out := &outbox{sw: sw, cancel: cancel, metadata: turn.Metadata}
	go func() {
		defer cancel()
		defer sw.Close()
		(&turnRun{
			Aggregator: a,
			sel:        a.providers.Load(),
			turn:       turn,
			out:        out,
			sm:         NewTurnMachine(),
			logger:     a.logger.With(zap.Any("metadata", turn.Metadata)),
		}).run(ctx)
	}()
	return sr
}

// outbox 多个阶段并发写同一条输出流
type outbox struct {
	mu       sync.Mutex
	sw       *schema.StreamWriter[*Envelope]
	cancel   context.CancelFunc
	metadata map[string]string
	gone     bool
}

// send 消费方已关闭时返回 false 并取消轮次
func (o *outbox) send(p Payload) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gone {
		return false
	}
	if closed := o.sw.Send(NewEnvelope(p, o.metadata), nil); closed {
		o.gone = true
		o.cancel()
		return false
	}
	return true
}

type turnRun struct {
	*Aggregator
	sel    *selector.Selection
	turn   *Turn
	out    *outbox
	sm     *TurnMachine
	logger *zap.Logger

	failMu sync.Mutex
	failed bool
}

func (t *turnRun) fail(stage, message string) {
	t.failMu.Lock()
	t.failed = true
	t.failMu.Unlock()
	t.out.send(ErrorPayload{Stage: stage, Message: message})
}

func (t *turnRun) hasFailed() bool {
	t.failMu.Lock()
	defer t.failMu.Unlock()
	return t.failed
}

func (t *turnRun) to(next TurnState) {
	if err := t.sm.To(next); err != nil {
		t.logger.Error("turn state", zap.Error(err))
	}
}

func (t *turnRun) run(ctx context.Context) {
	// 降级选择可能选中不可用的 provider，此时不再识别语音
	if !t.sel.LLM.Available() {
		if t.turn.Audio != nil {
			t.turn.Audio.Close()
		}
		t.logger.Error("llm provider unavailable", zap.String("provider", t.sel.LLM.Name()))
		t.fail(StageLLM, llm.MsgUnavailable)
		t.to(StateError)
		return
	}

	userText, ok := t.userText(ctx)
	if !ok {
		t.to(StateError)
		return
	}

	if hook := t.turn.Hooks.OnTranscript; hook != nil {
		if err := hook(ctx, userText); err != nil {
			t.logger.Error("save user message failed", zap.Error(err))
			t.fail(StagePersist, MsgPersistFailed)
			t.to(StateError)
			return
		}
	}

	req, err := t.turn.BuildRequest(userText, t.sel.LLM)
	if err == nil {
		err = t.sel.LLM.ValidateModelConfig(req.ModelConfig)
	}
	if err != nil {
		t.logger.Warn("invalid chat request", zap.Error(err))
		t.fail(StageRequest, MsgInvalidRequest)
		t.to(StateError)
		return
	}

	t.to(StateGenerating)
	text, usage, audio, err := t.generate(ctx, req)
	if err != nil && !errors.Is(err, errConsumerGone) && ctx.Err() == nil {
		t.logger.Warn("generation stage failed", zap.Error(err))
	}
	if ctx.Err() != nil {
		t.logger.Info("turn cancelled", zap.Error(ctx.Err()))
		t.to(StateError)
		return
	}

	res := Result{
		UserText:    userText,
		Text:        text,
		Usage:       usage,
		Failed:      t.hasFailed(),
		LLMProvider: t.sel.LLM.Name(),
	}
	if t.turn.Audio != nil {
		res.STTProvider = t.sel.STT.Name()
	}
	if t.turn.TtsConfig != nil {
		res.TTSProvider = t.sel.TTS.Name()
	}
	if audio != nil && audio.buf.Len() > 0 {
		t.to(StateSynthesizing)
		res.AudioURL = t.upload(ctx, audio)
	}

	messageID := ""
	if hook := t.turn.Hooks.OnFinalize; hook != nil && (!res.Failed || res.Text != "") {
		id, err := hook(ctx, res)
		if err != nil {
			t.logger.Error("save assistant message failed", zap.Error(err))
			t.fail(StagePersist, MsgPersistFailed)
		}
		messageID = id
	}

	if t.hasFailed() {
		t.to(StateError)
		return
	}
	t.to(StateComplete)
	t.out.send(CompletePayload{Message: MsgComplete, Text: text, MessageID: messageID, Usage: usage})
}

// userText 文本输入直接使用，语音输入取第一个有效的最终识别结果，
// 没有最终结果时退回最后一个有效的中间结果
func (t *turnRun) userText(ctx context.Context) (string, bool) {
	if t.turn.Audio == nil {
		text := strings.TrimSpace(t.turn.Text)
		if text == "" {
			t.fail(StageRequest, MsgEmptyMessage)
			return "", false
		}
		t.to(StateTranscribed)
		return text, true
	}

	t.to(StateAudioReceived)
	t.to(StateTranscribing)
	if !t.sel.STT.Available() {
		t.turn.Audio.Close()
		t.logger.Error("stt provider unavailable", zap.String("provider", t.sel.STT.Name()))
		t.fail(StageSTT, stt.MsgUnavailable)
		return "", false
	}
	// 识别流建立成功后音频流由 STT 负责关闭
	results, err := t.sel.STT.StreamRecognize(ctx, t.turn.Audio, t.turn.SttConfig)
	if err != nil {
		t.turn.Audio.Close()
		t.logger.Error("start recognition failed", zap.String("provider", t.sel.STT.Name()), zap.Error(err))
		t.fail(StageSTT, stt.MsgRecognizeFailed)
		return "", false
	}
	defer results.Close()

	var final, interim string
	for final == "" {
		r, err := streams.Recv(ctx, results)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() == nil {
				t.logger.Error("recognition failed", zap.String("provider", t.sel.STT.Name()), zap.Error(err))
				t.fail(StageSTT, stt.MsgRecognizeFailed)
			}
			return "", false
		}
		if !r.Valid() {
			continue
		}
		if !t.out.send(SttPayload{Text: r.Text, Confidence: r.Confidence, IsFinal: r.IsFinal}) {
			return "", false
		}
		if r.IsFinal {
			final = strings.TrimSpace(r.Text)
		} else {
			interim = strings.TrimSpace(r.Text)
		}
	}

	if final == "" {
		final = interim
	}
	if final == "" {
		t.fail(StageSTT, MsgNoSpeech)
		return "", false
	}
	t.to(StateTranscribed)
	return final, true
}

type audioBuffer struct {
	buf        bytes.Buffer
	format     string
	sampleRate int
	text       strings.Builder
}

// generate 并发消费 LLM 输出和 TTS 输出。完整的句子在生成过程中即送入 TTS，
// 且只在其 LLM_CHUNK 发出之后送入，保证文本事件先于对应音频。
// LLM 出错时已送入的段继续合成，因此两个阶段互不取消，返回最先出现的阶段错误。
func (t *turnRun) generate(ctx context.Context, req *dto.UnifiedChatRequest) (string, *dto.TokenUsage, *audioBuffer, error) {
	chunks, err := t.sel.LLM.StreamChat(ctx, req)
	if err != nil {
		t.logger.Warn("llm rejected request", zap.String("provider", t.sel.LLM.Name()), zap.Error(err))
		t.fail(StageRequest, MsgInvalidRequest)
		return "", nil, nil, err
	}

	var (
		segments *schema.StreamWriter[string]
		audio    *schema.StreamReader[*dto.AudioChunk]
	)
	if t.turn.TtsConfig != nil {
		audio, segments = t.startSynthesis(ctx)
	}

	var (
		g     errgroup.Group
		text  string
		usage *dto.TokenUsage
		buf   *audioBuffer
	)
	g.Go(func() error {
		var err error
		text, usage, err = t.consumeLLM(ctx, chunks, segments)
		return err
	})
	if audio != nil {
		buf = &audioBuffer{}
		g.Go(func() error {
			return t.consumeAudio(ctx, audio, buf)
		})
	}
	err = g.Wait()
	return text, usage, buf, err
}

// startSynthesis 建立文本段到音频的流，失败时本轮只输出文本
func (t *turnRun) startSynthesis(ctx context.Context) (*schema.StreamReader[*dto.AudioChunk], *schema.StreamWriter[string]) {
	if !t.sel.TTS.Available() {
		t.logger.Error("tts provider unavailable", zap.String("provider", t.sel.TTS.Name()))
		t.fail(StageTTS, tts.MsgUnavailable)
		return nil, nil
	}
	textR, textW := schema.Pipe[string](8)
	audio, err := t.sel.TTS.StreamSynthesize(ctx, textR, *t.turn.TtsConfig)
	if err != nil {
		textR.Close()
		textW.Close()
		t.logger.Error("start synthesis failed", zap.String("provider", t.sel.TTS.Name()), zap.Error(err))
		t.fail(StageTTS, tts.MsgSynthesizeFailed)
		return nil, nil
	}
	return audio, textW
}

func (t *turnRun) consumeLLM(ctx context.Context, chunks *schema.StreamReader[*dto.UnifiedStreamChunk], segments *schema.StreamWriter[string]) (string, *dto.TokenUsage, error) {
	defer chunks.Close()
	if segments != nil {
		defer segments.Close()
	}
	seg := NewSentenceSegmenter(t.segmentMaxRunes)
	push := func(s string) {
		if segments != nil && s != "" {
			segments.Send(s, nil)
		}
	}

	var accumulated string
	for {
		chunk, err := streams.Recv(ctx, chunks)
		if errors.Is(err, io.EOF) {
			// 没有终止分片的流视为中断
			if ctx.Err() != nil {
				return accumulated, nil, ctx.Err()
			}
			t.fail(StageLLM, llm.MsgInterrupted)
			return accumulated, nil, errLLMInterrupted
		}
		if err != nil {
			if ctx.Err() != nil {
				return accumulated, nil, ctx.Err()
			}
			t.logger.Error("llm stream failed", zap.Error(err))
			t.fail(StageLLM, llm.MsgProviderFailed)
			return accumulated, nil, fmt.Errorf("llm stream: %w", err)
		}

		switch chunk.Type {
		case dto.ChunkContent:
			accumulated = chunk.AccumulatedContent
			if !t.out.send(LlmPayload{
				Text:            chunk.Content,
				AccumulatedText: chunk.AccumulatedContent,
				ChunkIndex:      chunk.ChunkIndex,
			}) {
				return accumulated, nil, errConsumerGone
			}
			for _, s := range seg.Push(chunk.Content) {
				push(s)
			}
		case dto.ChunkDone:
			if chunk.AccumulatedContent != "" {
				accumulated = chunk.AccumulatedContent
			}
			push(seg.Flush())
			return accumulated, chunk.TokenUsage, nil
		case dto.ChunkError:
			// 已送入 TTS 的段继续合成，不再送入新段
			if ctx.Err() != nil {
				return accumulated, chunk.TokenUsage, ctx.Err()
			}
			t.fail(StageLLM, chunk.Content)
			return accumulated, chunk.TokenUsage, &llm.ProviderError{Provider: t.sel.LLM.Name(), Message: chunk.Content}
		}
	}
}

func (t *turnRun) consumeAudio(ctx context.Context, audio *schema.StreamReader[*dto.AudioChunk], buf *audioBuffer) error {
	defer audio.Close()
	for {
		chunk, err := streams.Recv(ctx, audio)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			t.logger.Error("synthesis failed", zap.String("provider", t.sel.TTS.Name()), zap.Error(err))
			t.fail(StageTTS, tts.MsgSynthesizeFailed)
			return fmt.Errorf("tts stream: %w", err)
		}
		if !t.out.send(AudioPayload{
			Data:        chunk.Data,
			Format:      chunk.Format,
			Sequence:    chunk.Sequence,
			SegmentText: chunk.SegmentText,
		}) {
			return errConsumerGone
		}
		buf.buf.Write(chunk.Data)
		buf.format = chunk.Format
		buf.sampleRate = chunk.SampleRate
		buf.text.WriteString(chunk.SegmentText)
	}
}

// upload 上传失败只记录日志，文本回复仍然有效
func (t *turnRun) upload(ctx context.Context, audio *audioBuffer) string {
	if t.storage == nil {
		return ""
	}
	url, err := t.storage.Put(ctx, audio.buf.Bytes(), storage.ContentTypeForFormat(audio.format))
	if err != nil {
		t.logger.Warn("upload synthesized audio failed", zap.Error(err))
		return ""
	}
	voice := ""
	if t.turn.TtsConfig != nil {
		voice = t.turn.TtsConfig.VoiceID
	}
	t.out.send(TtsPayload{
		AudioURL:        url,
		AudioFormat:     audio.format,
		SampleRate:      audio.sampleRate,
		DurationSeconds: t.sel.TTS.EstimateAudioDuration(audio.text.String()),
		VoiceID:         voice,
	})
	return url
}
