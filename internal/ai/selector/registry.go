package selector

import (
	"errors"
	"sync"
	"sync/atomic"

	"vocata/config"
	"vocata/internal/ai/llm"
	"vocata/internal/ai/stt"
	"vocata/internal/ai/tts"

	"go.uber.org/zap"
)

// Registry 按注册顺序保存各能力的候选 provider
type Registry struct {
	mu  sync.RWMutex
	llm []llm.Provider
	stt []stt.Client
	tts []tts.Client
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) RegisterLLM(p ...llm.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm = append(r.llm, p...)
}

func (r *Registry) RegisterSTT(c ...stt.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt = append(r.stt, c...)
}

func (r *Registry) RegisterTTS(c ...tts.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tts = append(r.tts, c...)
}

func (r *Registry) LLMs() []llm.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]llm.Provider(nil), r.llm...)
}

func (r *Registry) STTs() []stt.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]stt.Client(nil), r.stt...)
}

func (r *Registry) TTSs() []tts.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]tts.Client(nil), r.tts...)
}

// Selection 三种能力各自选中的 provider，构造后只读
type Selection struct {
	LLM llm.Provider
	STT stt.Client
	TTS tts.Client

	LLMReason string
	STTReason string
	TTSReason string
}

// Resolve 依据配置为每种能力选择 provider，任一能力失败时返回全部错误
func Resolve(reg *Registry, cfg config.AIConfig, logger *zap.Logger) (*Selection, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("selector")

	sel := &Selection{}
	var errs []error

	l, err := Select(policyFor(CapabilityLLM, cfg.LLM.Provider, cfg.StrictSelection), reg.LLMs(), logger)
	if err != nil {
		errs = append(errs, err)
	} else {
		sel.LLM, sel.LLMReason = l.Provider, l.Reason
	}

	s, err := Select(policyFor(CapabilitySTT, cfg.STT.Provider, cfg.StrictSelection), reg.STTs(), logger)
	if err != nil {
		errs = append(errs, err)
	} else {
		sel.STT, sel.STTReason = s.Provider, s.Reason
	}

	t, err := Select(policyFor(CapabilityTTS, cfg.TTS.Provider, cfg.StrictSelection), reg.TTSs(), logger)
	if err != nil {
		errs = append(errs, err)
	} else {
		sel.TTS, sel.TTSReason = t.Provider, t.Reason
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	logger.Info("providers selected",
		zap.String("llm", sel.LLM.Name()), zap.String("llm_reason", sel.LLMReason),
		zap.String("stt", sel.STT.Name()), zap.String("stt_reason", sel.STTReason),
		zap.String("tts", sel.TTS.Name()), zap.String("tts_reason", sel.TTSReason))
	return sel, nil
}

func policyFor(c Capability, preferred string, strict bool) Policy {
	return Policy{
		Capability: c,
		Preferred:  preferred,
		Fallbacks:  DefaultFallbacks[c],
		Strict:     strict,
	}
}

// Holder 发布当前生效的 Registry 与 Selection，读路径无锁
type Holder struct {
	logger *zap.Logger
	mu     sync.Mutex
	reg    atomic.Pointer[Registry]
	cur    atomic.Pointer[Selection]
}

// NewHolder 完成首次选择，失败时返回错误
func NewHolder(reg *Registry, cfg config.AIConfig, logger *zap.Logger) (*Holder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sel, err := Resolve(reg, cfg, logger)
	if err != nil {
		return nil, err
	}
	h := &Holder{logger: logger}
	h.reg.Store(reg)
	h.cur.Store(sel)
	return h, nil
}

// Load 返回当前 Selection
func (h *Holder) Load() *Selection {
	return h.cur.Load()
}

// Replace 换用新构建的 Registry（如凭证变更）并重新选择，失败时两者都保留旧值
func (h *Holder) Replace(reg *Registry, cfg config.AIConfig) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	sel, err := Resolve(reg, cfg, h.logger)
	if err != nil {
		h.logger.Error("reselect providers failed, keeping previous selection", zap.Error(err))
		return err
	}
	h.reg.Store(reg)
	h.cur.Store(sel)
	return nil
}

// Registry 返回候选 provider 注册表
func (h *Holder) Registry() *Registry {
	return h.reg.Load()
}
