// Package selector binds one provider per capability from the registered candidates.
//
// Selection order for each capability:
//  1. the preferred name, when a matching provider is available
//  2. the capability's fallback priority list, first available match
//  3. the first registered provider (degraded, logged), unless Strict is set
//
// An empty candidate list is always a configuration error.
package selector

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

type Capability string

const (
	CapabilityLLM Capability = "llm"
	CapabilitySTT Capability = "stt"
	CapabilityTTS Capability = "tts"
)

var ErrNoProvider = errors.New("no provider available")

// ConfigError 能力无法绑定 provider 时的配置错误
type ConfigError struct {
	Capability Capability
	Preferred  string
	Reason     string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s provider selection failed (preferred %q): %s", e.Capability, e.Preferred, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrNoProvider }

// Candidate 参与选择的 provider 只需名称和可用性
type Candidate interface {
	Name() string
	Available() bool
}

// Aliaser 可选接口，提供额外的匹配名
type Aliaser interface {
	Aliases() []string
}

// DefaultFallbacks 各能力的兜底优先级
var DefaultFallbacks = map[Capability][]string{
	CapabilityLLM: {"gemini", "openai", "siliconflow", "qiniu", "ollama", "mock"},
	CapabilitySTT: {"xunfei", "qiniu", "mock"},
	CapabilityTTS: {"volcan", "xunfei", "mock"},
}

// Policy 单个能力的选择参数
type Policy struct {
	Capability Capability
	Preferred  string
	Fallbacks  []string
	Strict     bool
}

// Result 选择结果，Degraded 表示既不是首选也不在优先级列表中
type Result[T Candidate] struct {
	Provider T
	Reason   string
	Degraded bool
}

// Select 按策略从候选中选出一个 provider
func Select[T Candidate](policy Policy, candidates []T, logger *zap.Logger) (Result[T], error) {
	var zero Result[T]
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(candidates) == 0 {
		return zero, &ConfigError{Capability: policy.Capability, Preferred: policy.Preferred, Reason: "no providers registered"}
	}

	if policy.Preferred != "" {
		if p, ok := firstAvailable(candidates, policy.Preferred); ok {
			return Result[T]{Provider: p, Reason: "preferred"}, nil
		}
		logger.Warn("preferred provider not available",
			zap.String("capability", string(policy.Capability)), zap.String("preferred", policy.Preferred))
	}

	for _, token := range policy.Fallbacks {
		if p, ok := firstAvailable(candidates, token); ok {
			logger.Info("using fallback provider",
				zap.String("capability", string(policy.Capability)),
				zap.String("token", token), zap.String("provider", p.Name()))
			return Result[T]{Provider: p, Reason: "fallback:" + token}, nil
		}
	}

	if policy.Strict {
		return zero, &ConfigError{Capability: policy.Capability, Preferred: policy.Preferred, Reason: "no registered provider is available"}
	}
	p := candidates[0]
	logger.Warn("no available provider matched, degrading to first registered",
		zap.String("capability", string(policy.Capability)),
		zap.String("provider", p.Name()), zap.Bool("available", p.Available()))
	return Result[T]{Provider: p, Reason: "first-registered", Degraded: true}, nil
}

func firstAvailable[T Candidate](candidates []T, token string) (T, bool) {
	for _, c := range candidates {
		if Matches(c, token) && c.Available() {
			return c, true
		}
	}
	var zero T
	return zero, false
}

// 英文配置名与厂商中文名的对应关系
var nativeNames = map[string][]string{
	"xunfei":      {"科大讯飞", "讯飞"},
	"iflytek":     {"科大讯飞", "讯飞"},
	"volcan":      {"火山引擎", "火山"},
	"volcengine":  {"火山引擎", "火山"},
	"qiniu":       {"七牛"},
	"siliconflow": {"硅基流动"},
	"aliyun":      {"阿里云", "通义"},
	"baidu":       {"百度", "文心"},
}

// Matches 大小写不敏感地判断 provider 是否匹配配置名，
// 同时检查 provider 名称、别名以及中英文厂商名的对应
func Matches(c Candidate, token string) bool {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return false
	}
	names := []string{c.Name()}
	if a, ok := c.(Aliaser); ok {
		names = append(names, a.Aliases()...)
	}
	for _, name := range names {
		if nameMatches(strings.ToLower(name), token) {
			return true
		}
	}
	return false
}

func nameMatches(name, token string) bool {
	if strings.Contains(name, token) {
		return true
	}
	for _, native := range nativeNames[token] {
		if strings.Contains(name, native) {
			return true
		}
	}
	// 配置值本身是中文名时，反查英文 token
	for key, natives := range nativeNames {
		for _, native := range natives {
			if strings.Contains(token, native) && strings.Contains(name, key) {
				return true
			}
		}
	}
	return false
}
