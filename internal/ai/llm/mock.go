package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vocata/internal/ai/dto"

	"github.com/cloudwego/eino/schema"
)

// MockOptions 模拟 provider 参数
type MockOptions struct {
	Reply string
	Delay time.Duration
}

type MockOption func(*MockOptions)

// WithMockReply 固定回复内容
func WithMockReply(reply string) MockOption {
	return func(o *MockOptions) { o.Reply = reply }
}

// WithMockDelay 每个分片之间的延迟
func WithMockDelay(d time.Duration) MockOption {
	return func(o *MockOptions) { o.Delay = d }
}

// Mock 无需凭证的模拟 provider，始终可用，用于开发和兜底
type Mock struct {
	catalog
	opts MockOptions
}

func NewMock(opts ...MockOption) *Mock {
	o := MockOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	return &Mock{
		catalog: catalog{
			defaultModel:   "mock-chat",
			contextLengths: map[string]int{"mock-chat": 4096},
		},
		opts: o,
	}
}

func (p *Mock) Name() string    { return "mock" }
func (p *Mock) Available() bool { return true }

func (p *Mock) StreamChat(ctx context.Context, req *dto.UnifiedChatRequest) (*schema.StreamReader[*dto.UnifiedStreamChunk], error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := p.ValidateModelConfig(req.ModelConfig); err != nil {
		return nil, err
	}

	reply := p.opts.Reply
	if reply == "" {
		reply = fmt.Sprintf("我听到你说：%s。很高兴和你聊天！", req.UserMessage)
	}

	sr, em := newChunkStream()
	go func() {
		defer em.close()
		for _, piece := range splitPieces(reply) {
			if p.opts.Delay > 0 {
				select {
				case <-ctx.Done():
					em.fail(MsgInterrupted)
					return
				case <-time.After(p.opts.Delay):
				}
			}
			if ctx.Err() != nil {
				em.fail(MsgInterrupted)
				return
			}
			if !em.content(piece) {
				return
			}
		}
		usage := dto.NewTokenUsage(estimatePromptTokens(req), dto.EstimateTokens(em.accumulated()))
		em.done(dto.FinishStop, usage)
	}()
	return sr, nil
}

// splitPieces 按空白或每两个字切分，模拟逐词输出
func splitPieces(text string) []string {
	if strings.ContainsRune(text, ' ') {
		words := strings.SplitAfter(text, " ")
		out := words[:0]
		for _, w := range words {
			if w != "" {
				out = append(out, w)
			}
		}
		return out
	}
	runes := []rune(text)
	var out []string
	for i := 0; i < len(runes); i += 2 {
		end := min(i+2, len(runes))
		out = append(out, string(runes[i:end]))
	}
	return out
}
