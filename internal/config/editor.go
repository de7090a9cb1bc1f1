package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// EditorConfig 是编辑器命令行客户端的配置。
type EditorConfig struct {
	APIBaseURL     string        `mapstructure:"api_base_url"`
	Token          string        `mapstructure:"token"`
	Email          string        `mapstructure:"email"`
	Password       string        `mapstructure:"password"`
	HistoryLimit   int           `mapstructure:"history_limit"`
	DebounceDelay  time.Duration `mapstructure:"debounce_delay"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

var editorEnvMappings = map[string]string{
	"api_base_url":    "EDITOR_API_BASE_URL",
	"token":           "EDITOR_TOKEN",
	"email":           "EDITOR_EMAIL",
	"password":        "EDITOR_PASSWORD",
	"history_limit":   "EDITOR_HISTORY_LIMIT",
	"debounce_delay":  "EDITOR_DEBOUNCE_DELAY",
	"request_timeout": "EDITOR_REQUEST_TIMEOUT",
}

// SetEditorDefaults 写入编辑器配置的默认值并绑定环境变量。
// 命令行可以在此之后把 flag 绑定到同一个 viper 实例。
func SetEditorDefaults(v *viper.Viper) error {
	v.SetDefault("api_base_url", "http://localhost:8080")
	v.SetDefault("history_limit", 50)
	v.SetDefault("debounce_delay", time.Second)
	v.SetDefault("request_timeout", 15*time.Second)
	return bindEnv(v, editorEnvMappings)
}

// LoadEditor 从 v 中解析编辑器配置。v 为 nil 时只读取环境变量。
func LoadEditor(v *viper.Viper) (*EditorConfig, error) {
	if v == nil {
		v = viper.New()
		if err := SetEditorDefaults(v); err != nil {
			return nil, fmt.Errorf("bind env: %w", err)
		}
	}

	var cfg EditorConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal editor config: %w", err)
	}
	if cfg.APIBaseURL == "" {
		return nil, errors.New("editor api base url is required")
	}
	if cfg.HistoryLimit <= 0 {
		return nil, errors.New("editor history limit must be positive")
	}
	if cfg.DebounceDelay <= 0 {
		return nil, errors.New("editor debounce delay must be positive")
	}
	return &cfg, nil
}
