package config

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var (
	AppConfigInstance *AppConfig

	listenersMu sync.Mutex
	listeners   []func(*AppConfig)
)

// InitConfig 初始化配置
func InitConfig() {
	cfg, err := Load("")
	if err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}
	AppConfigInstance = cfg

	// 监听配置变化
	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		next := &AppConfig{}
		if err := viper.Unmarshal(next); err != nil {
			log.Printf("loadConfig failed, unmarshal config err: %v", err)
			return
		}
		applyDefaults(next)
		AppConfigInstance = next
		notify(next)
	})
}

// Load 读取配置文件，path 为空时从 ./config 目录查找 config.yaml
func Load(path string) (*AppConfig, error) {
	if path == "" {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./config")
	} else {
		viper.SetConfigFile(path)
		viper.SetConfigType(strings.TrimPrefix(filepath.Ext(path), "."))
	}

	// 环境变量覆盖，如 VOCATA_VENDORS_OPENAI_API_KEY
	viper.SetEnvPrefix("VOCATA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &AppConfig{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

// OnChange 注册配置热更新回调
func OnChange(fn func(*AppConfig)) {
	listenersMu.Lock()
	defer listenersMu.Unlock()
	listeners = append(listeners, fn)
}

func notify(cfg *AppConfig) {
	listenersMu.Lock()
	fns := append([]func(*AppConfig){}, listeners...)
	listenersMu.Unlock()
	for _, fn := range fns {
		fn(cfg)
	}
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "mysql"
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.Local.BaseDir == "" {
		cfg.Storage.Local.BaseDir = "./data/storage"
	}
	if cfg.Storage.Local.URLPrefix == "" {
		cfg.Storage.Local.URLPrefix = "/static"
	}
	if cfg.JWT.ExpirationHours == 0 {
		cfg.JWT.ExpirationHours = 24
	}
	if cfg.AI.LLM.Provider == "" {
		cfg.AI.LLM.Provider = "gemini"
	}
	if cfg.AI.LLM.Temperature == 0 {
		cfg.AI.LLM.Temperature = 0.7
	}
	if cfg.AI.LLM.TimeoutSeconds == 0 {
		cfg.AI.LLM.TimeoutSeconds = 60
	}
	if cfg.AI.STT.Provider == "" {
		cfg.AI.STT.Provider = "xunfei"
	}
	if cfg.AI.STT.Language == "" {
		cfg.AI.STT.Language = "zh-CN"
	}
	if cfg.AI.TTS.Provider == "" {
		cfg.AI.TTS.Provider = "volcan"
	}
	if cfg.AI.TTS.SegmentMaxRunes == 0 {
		cfg.AI.TTS.SegmentMaxRunes = 60
	}
	if cfg.AI.HistoryLimit == 0 {
		cfg.AI.HistoryLimit = 20
	}
}

// GetConfig 获取配置
func GetConfig() *AppConfig {
	return AppConfigInstance
}
