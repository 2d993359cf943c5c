package config

// ServerConfig 服务器配置
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug/release/test
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // mysql/sqlite
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	Path     string `mapstructure:"path"` // sqlite 文件路径
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret          string `mapstructure:"secret"`
	ExpirationHours int    `mapstructure:"expiration_hours"`
}

// MinioConfig Minio配置
type MinioConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Region          string `mapstructure:"region"`
	PublicURL       string `mapstructure:"public_url"` // 对外访问地址，为空时使用 endpoint
}

// StorageConfig 存储配置
type StorageConfig struct {
	Type  string      `mapstructure:"type"` // local/oss/minio
	Local LocalConfig `mapstructure:"local"`
	OSS   OSSConfig   `mapstructure:"oss"`
	Minio MinioConfig `mapstructure:"minio"`
}

// LocalConfig 本地存储配置
type LocalConfig struct {
	BaseDir   string `mapstructure:"base_dir"`   // 本地存储根目录（如 /data/storage）
	URLPrefix string `mapstructure:"url_prefix"` // 静态访问前缀（如 /static）
}

// OSSConfig OSS配置
type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
}

// CORSConfig CORS配置
type CORSConfig struct {
	AllowOrigins     []string `mapstructure:"allow_origins"`
	AllowMethods     []string `mapstructure:"allow_methods"`
	AllowHeaders     []string `mapstructure:"allow_headers"`
	ExposeHeaders    []string `mapstructure:"expose_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           string   `mapstructure:"max_age"` // 使用字符串表示时间，便于配置
}

// LogConfig 日志配置
type LogConfig struct {
	Debug bool `mapstructure:"debug"`
}

// LLMConfig 语言模型能力配置
type LLMConfig struct {
	Provider       string  `mapstructure:"provider"`
	Model          string  `mapstructure:"model"`
	Temperature    float64 `mapstructure:"temperature"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// STTConfig 语音识别能力配置
type STTConfig struct {
	Provider string `mapstructure:"provider"`
	Language string `mapstructure:"language"`
}

// TTSConfig 语音合成能力配置
type TTSConfig struct {
	Provider        string `mapstructure:"provider"`
	Voice           string `mapstructure:"voice"`
	SegmentMaxRunes int    `mapstructure:"segment_max_runes"`
}

// AIConfig AI 能力选择配置
type AIConfig struct {
	LLM             LLMConfig `mapstructure:"llm"`
	STT             STTConfig `mapstructure:"stt"`
	TTS             TTSConfig `mapstructure:"tts"`
	StrictSelection bool      `mapstructure:"strict_selection"` // 无可用服务时直接报错，而不是退回第一个注册的服务
	HistoryLimit    int       `mapstructure:"history_limit"`
}

// OpenAICompatibleConfig OpenAI 兼容接口的厂商配置
type OpenAICompatibleConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// OllamaConfig Ollama 本地模型配置
type OllamaConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// XunfeiConfig 科大讯飞语音识别配置
type XunfeiConfig struct {
	AppID     string `mapstructure:"app_id"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	Host      string `mapstructure:"host"`
	Path      string `mapstructure:"path"`
}

// VolcanConfig 火山引擎语音合成配置
type VolcanConfig struct {
	AppID   string `mapstructure:"app_id"`
	Token   string `mapstructure:"token"`
	Cluster string `mapstructure:"cluster"`
	Host    string `mapstructure:"host"`
	Voice   string `mapstructure:"voice"`
}

// VendorsConfig 各厂商凭证
type VendorsConfig struct {
	OpenAI      OpenAICompatibleConfig `mapstructure:"openai"`
	Gemini      OpenAICompatibleConfig `mapstructure:"gemini"`
	SiliconFlow OpenAICompatibleConfig `mapstructure:"siliconflow"`
	Qiniu       OpenAICompatibleConfig `mapstructure:"qiniu"`
	Ollama      OllamaConfig           `mapstructure:"ollama"`
	Xunfei      XunfeiConfig           `mapstructure:"xunfei"`
	Volcan      VolcanConfig           `mapstructure:"volcan"`
}

// AppConfig 应用配置
type AppConfig struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Storage  StorageConfig  `mapstructure:"storage"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Log      LogConfig      `mapstructure:"log"`
	AI       AIConfig       `mapstructure:"ai"`
	Vendors  VendorsConfig  `mapstructure:"vendors"`
}
