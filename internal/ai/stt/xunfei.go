package stt

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"vocata/internal/ai/dto"
	"vocata/internal/ai/streams"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/schema"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

const (
	xunfeiFrameSize   = 1280 // 16k 16bit 单声道 40ms
	xunfeiFrameFirst  = 0
	xunfeiFrameMiddle = 1
	xunfeiFrameLast   = 2
	xunfeiConfidence  = 0.95 // 接口不返回置信度
)

// XunfeiConfig 科大讯飞听写接口配置
type XunfeiConfig struct {
	AppID     string
	APIKey    string
	APISecret string
	Host      string
	Path      string
	Scheme    string // 默认 wss
}

// Xunfei 科大讯飞 WebSocket 流式听写
type Xunfei struct {
	cfg    XunfeiConfig
	logger *zap.Logger
	now    func() time.Time
}

func NewXunfei(cfg XunfeiConfig, logger *zap.Logger) *Xunfei {
	if cfg.Host == "" {
		cfg.Host = "iat-api.xfyun.cn"
	}
	if cfg.Path == "" {
		cfg.Path = "/v2/iat"
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "wss"
	}
	return &Xunfei{
		cfg:    cfg,
		logger: logger.Named("stt").With(zap.String("provider", "xunfei")),
		now:    time.Now,
	}
}

func (x *Xunfei) Name() string      { return "科大讯飞WebSocket STT" }
func (x *Xunfei) Aliases() []string { return []string{"iflytek"} }

func (x *Xunfei) Available() bool {
	return x.cfg.AppID != "" && x.cfg.APIKey != "" && x.cfg.APISecret != ""
}

// SignedURL 按 hmac-sha256 签名规则生成鉴权 URL
func (x *Xunfei) SignedURL() string {
	date := x.now().UTC().Format(http.TimeFormat)
	origin := fmt.Sprintf("host: %s\ndate: %s\nGET %s HTTP/1.1", x.cfg.Host, date, x.cfg.Path)

	mac := hmac.New(sha256.New, []byte(x.cfg.APISecret))
	mac.Write([]byte(origin))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	authorization := fmt.Sprintf(`api_key="%s", algorithm="hmac-sha256", headers="host date request-line", signature="%s"`,
		x.cfg.APIKey, signature)

	q := url.Values{}
	q.Set("authorization", base64.StdEncoding.EncodeToString([]byte(authorization)))
	q.Set("date", date)
	q.Set("host", x.cfg.Host)
	return fmt.Sprintf("%s://%s%s?%s", x.cfg.Scheme, x.cfg.Host, x.cfg.Path, q.Encode())
}

type xunfeiFrame struct {
	Common   *xunfeiCommon   `json:"common,omitempty"`
	Business *xunfeiBusiness `json:"business,omitempty"`
	Data     xunfeiData      `json:"data"`
}

type xunfeiCommon struct {
	AppID string `json:"app_id"`
}

type xunfeiBusiness struct {
	Language string `json:"language"`
	Domain   string `json:"domain"`
	Accent   string `json:"accent"`
	VadEos   int    `json:"vad_eos"`
	Ptt      int    `json:"ptt"`
	Dwa      string `json:"dwa"`
}

type xunfeiData struct {
	Status   int    `json:"status"`
	Format   string `json:"format"`
	Encoding string `json:"encoding"`
	Audio    string `json:"audio,omitempty"`
}

type xunfeiResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Sid     string `json:"sid"`
	Data    *struct {
		Status int `json:"status"`
		Result *struct {
			Sn  int    `json:"sn"`
			Pgs string `json:"pgs"`
			Rg  []int  `json:"rg"`
			Ws  []struct {
				Cw []struct {
					W string `json:"w"`
				} `json:"cw"`
			} `json:"ws"`
		} `json:"result"`
	} `json:"data"`
}

func (x *Xunfei) frame(status int, audio []byte, cfg dto.SttConfig) xunfeiFrame {
	f := xunfeiFrame{
		Data: xunfeiData{
			Status:   status,
			Format:   fmt.Sprintf("audio/L16;rate=%d", sampleRate(cfg)),
			Encoding: "raw",
		},
	}
	if len(audio) > 0 {
		f.Data.Audio = base64.StdEncoding.EncodeToString(audio)
	}
	if status == xunfeiFrameFirst {
		f.Common = &xunfeiCommon{AppID: x.cfg.AppID}
		f.Business = &xunfeiBusiness{
			Language: mapLanguage(cfg.Language),
			Domain:   "iat",
			Accent:   "mandarin",
			VadEos:   3000,
			Ptt:      boolInt(cfg.EnablePunctuation),
			Dwa:      "wpgs",
		}
	}
	return f
}

func (x *Xunfei) StreamRecognize(ctx context.Context, audio *schema.StreamReader[[]byte], cfg dto.SttConfig) (*schema.StreamReader[*dto.SttResult], error) {
	if !x.Available() {
		return nil, ErrNotConfigured
	}

	ctx, cancel := context.WithCancel(ctx)
	conn, _, err := websocket.Dial(ctx, x.SignedURL(), nil)
	if err != nil {
		cancel()
		x.logger.Error("dial failed", zap.Error(err))
		return nil, fmt.Errorf("%w: connect", ErrRecognize)
	}
	conn.SetReadLimit(1 << 20)

	sr, sw := schema.Pipe[*dto.SttResult](8)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer audio.Close()
		if err := x.sendAudio(ctx, conn, audio, cfg); err != nil && ctx.Err() == nil {
			x.logger.Warn("send audio failed", zap.Error(err))
			cancel()
		}
	}()
	go func() {
		defer wg.Done()
		defer cancel()
		defer sw.Close()
		x.readResults(ctx, conn, sw, cfg)
	}()
	go func() {
		wg.Wait()
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()
	return sr, nil
}

// sendAudio 将音频切成固定帧发送，首帧带业务参数，结束时发送尾帧
func (x *Xunfei) sendAudio(ctx context.Context, conn *websocket.Conn, audio *schema.StreamReader[[]byte], cfg dto.SttConfig) error {
	status := xunfeiFrameFirst
	write := func(f xunfeiFrame) error {
		b, err := sonic.Marshal(f)
		if err != nil {
			return err
		}
		return conn.Write(ctx, websocket.MessageText, b)
	}

	for {
		chunk, err := streams.Recv(ctx, audio)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read audio: %w", err)
		}
		for len(chunk) > 0 {
			n := min(xunfeiFrameSize, len(chunk))
			if err := write(x.frame(status, chunk[:n], cfg)); err != nil {
				return fmt.Errorf("failed to write frame: %w", err)
			}
			status = xunfeiFrameMiddle
			chunk = chunk[n:]
		}
	}
	if status == xunfeiFrameFirst {
		// 没有任何音频也需要首帧携带业务参数
		if err := write(x.frame(xunfeiFrameFirst, nil, cfg)); err != nil {
			return err
		}
	}
	return write(x.frame(xunfeiFrameLast, nil, cfg))
}

func (x *Xunfei) readResults(ctx context.Context, conn *websocket.Conn, sw *schema.StreamWriter[*dto.SttResult], cfg dto.SttConfig) {
	segments := map[int]string{}
	start := x.now()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				x.logger.Error("read failed", zap.Error(err))
				sw.Send(nil, ErrRecognize)
			}
			return
		}

		var resp xunfeiResponse
		if err := sonic.Unmarshal(data, &resp); err != nil {
			x.logger.Error("decode response failed", zap.Error(err))
			sw.Send(nil, ErrRecognize)
			return
		}
		if resp.Code != 0 {
			x.logger.Error("recognition error",
				zap.Int("code", resp.Code), zap.String("message", resp.Message), zap.String("sid", resp.Sid))
			sw.Send(nil, ErrRecognize)
			return
		}
		if resp.Data == nil {
			continue
		}

		final := resp.Data.Status == xunfeiFrameLast
		if res := resp.Data.Result; res != nil {
			var b strings.Builder
			for _, w := range res.Ws {
				for _, cw := range w.Cw {
					b.WriteString(cw.W)
				}
			}
			// wpgs 动态修正：rpl 表示替换 rg 区间内的已有结果
			if res.Pgs == "rpl" && len(res.Rg) == 2 {
				replaceRange(segments, res.Rg[0], res.Rg[1])
			}
			segments[res.Sn] = b.String()
		}

		text := joinSegments(segments)
		if text != "" || final {
			r := &dto.SttResult{
				Text:       text,
				Confidence: xunfeiConfidence,
				IsFinal:    final,
				EndTimeMs:  x.now().Sub(start).Milliseconds(),
				Metadata:   map[string]any{"provider": "xunfei", "language": cfg.Language, "sid": resp.Sid},
			}
			if closed := sw.Send(r, nil); closed {
				return
			}
		}
		if final {
			return
		}
	}
}

func (x *Xunfei) Recognize(ctx context.Context, audio []byte, cfg dto.SttConfig) (*dto.SttResult, error) {
	return recognizeOnce(ctx, x, audio, cfg)
}

// replaceRange 删除 [from, to] 内已有的分段，只遍历已存在的 key
func replaceRange(segments map[int]string, from, to int) {
	for sn := range segments {
		if sn >= from && sn <= to {
			delete(segments, sn)
		}
	}
}

func joinSegments(segments map[int]string) string {
	keys := make([]int, 0, len(segments))
	for k := range segments {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(segments[k])
	}
	return b.String()
}

func mapLanguage(lang string) string {
	switch strings.ToLower(lang) {
	case "en-us", "en_us", "english":
		return "en_us"
	default:
		return "zh_cn"
	}
}

func sampleRate(cfg dto.SttConfig) int {
	if cfg.SampleRate == 8000 {
		return 8000
	}
	return dto.DefaultSttSampleRate
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
