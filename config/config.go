// Package config 负责加载和校验应用配置
// 配置来源：YAML配置文件 + VEER_ 前缀的环境变量
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/veerhq/veer/internal/logger"
)

const (
	defaultConfigName = "config"
	envPrefix         = "VEER"
)

// Config 应用配置根结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      logger.Config  `mapstructure:"log"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Weather  WeatherConfig  `mapstructure:"weather"`
	News     NewsConfig     `mapstructure:"news"`
	Backup   BackupConfig   `mapstructure:"backup"`
}

// ServerConfig API服务配置
type ServerConfig struct {
	Host         string   `mapstructure:"host"`
	Port         int      `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout  int      `mapstructure:"read_timeout" validate:"min=0"`  // 秒
	WriteTimeout int      `mapstructure:"write_timeout" validate:"min=0"` // 秒
	EnableHTTPS  bool     `mapstructure:"enable_https"`
	EnableHTTP2  bool     `mapstructure:"enable_http2"`
	TLSCertFile  string   `mapstructure:"tls_cert_file" validate:"required_if=EnableHTTPS true"`
	TLSKeyFile   string   `mapstructure:"tls_key_file" validate:"required_if=EnableHTTPS true"`
	CORSOrigins  []string `mapstructure:"cors_origins"`
	Token        string   `mapstructure:"token"` // 为空时 /api/v1 不校验令牌
}

// Addr 返回监听地址
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver" validate:"oneof=sqlite"`
	DSN             string `mapstructure:"dsn" validate:"required"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 秒
	LogLevel        string `mapstructure:"log_level" validate:"omitempty,oneof=silent error warn info"`
}

// AgentConfig 本地系统代理配置
type AgentConfig struct {
	Host           string                       `mapstructure:"host"`
	Port           int                          `mapstructure:"port" validate:"min=1,max=65535"`
	Token          string                       `mapstructure:"token"`
	SampleInterval time.Duration                `mapstructure:"sample_interval" validate:"min=1s"`
	HistorySize    int                          `mapstructure:"history_size" validate:"min=1,max=3600"`
	CommandTimeout time.Duration                `mapstructure:"command_timeout" validate:"min=100ms"`
	Apps           map[string]map[string]string `mapstructure:"apps"` // 平台 -> 应用名 -> 命令行
	AllowOrigins   []string                     `mapstructure:"allow_origins"`
}

// Addr 返回代理监听地址
func (a AgentConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// ChatConfig 对话代理配置
type ChatConfig struct {
	Providers    []ProviderConfig `mapstructure:"providers" validate:"dive"`
	DefaultMode  string           `mapstructure:"default_mode"`
	MaxTokens    int              `mapstructure:"max_tokens" validate:"min=1"`
	Temperature  float64          `mapstructure:"temperature" validate:"min=0,max=2"`
	Timeout      time.Duration    `mapstructure:"timeout"`       // 单个提供商
	TotalTimeout time.Duration    `mapstructure:"total_timeout"` // 整轮降级，应小于 server.write_timeout
}

// ProviderConfig 上游LLM提供商配置
type ProviderConfig struct {
	Name     string `mapstructure:"name" validate:"required"`
	Kind     string `mapstructure:"kind" validate:"oneof=openai gemini"`
	BaseURL  string `mapstructure:"base_url" validate:"required,url"`
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model" validate:"required"`
	Priority int    `mapstructure:"priority"`
}

// WeatherConfig 天气代理配置
type WeatherConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	APIKey  string        `mapstructure:"api_key"`
	Units   string        `mapstructure:"units" validate:"oneof=metric imperial standard"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// NewsConfig 新闻代理配置
type NewsConfig struct {
	BaseURL  string        `mapstructure:"base_url" validate:"required,url"`
	APIKey   string        `mapstructure:"api_key"`
	Country  string        `mapstructure:"country"`
	PageSize int           `mapstructure:"page_size" validate:"min=1,max=100"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// BackupConfig 备份配置
type BackupConfig struct {
	Schedule string `mapstructure:"schedule"` // cron表达式，为空则不定时备份
	Prefix   string `mapstructure:"prefix"`
	Format   string `mapstructure:"format" validate:"oneof=yaml json"`
}

var (
	current *viper.Viper
	mu      sync.Mutex
)

// Load 加载配置
// 参数:
//   - path: 配置文件路径，为空时在 . 和 config/ 下查找 config.yaml
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(defaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("config")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// 配置文件可选，仅依赖环境变量也可运行
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	current = v
	mu.Unlock()
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	// 提供商密钥可通过 VEER_KEYS_<NAME> 单独注入
	for i := range cfg.Chat.Providers {
		p := &cfg.Chat.Providers[i]
		if p.APIKey == "" {
			p.APIKey = v.GetString("keys." + strings.ToLower(p.Name))
		}
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验配置字段
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Watch 监听配置文件变化，变化后重新解析并回调
// 只有通过Load成功加载过配置文件时才生效
func Watch(onChange func(*Config)) {
	mu.Lock()
	v := current
	mu.Unlock()
	if v == nil || v.ConfigFileUsed() == "" {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(v)
		if err != nil {
			logger.Warnf("配置文件 %s 重新加载失败: %v", e.Name, err)
			return
		}
		logger.Infof("配置文件已重新加载: %s", e.Name)
		onChange(cfg)
	})
	v.WatchConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 60)
	v.SetDefault("server.enable_https", false)
	v.SetDefault("server.enable_http2", false)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.token", "")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/veer.db")
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.conn_max_lifetime", 3600)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "console")
	v.SetDefault("log.file_path", "logs/veer.log")

	v.SetDefault("agent.host", "127.0.0.1")
	v.SetDefault("agent.port", 5005)
	v.SetDefault("agent.token", "")
	v.SetDefault("agent.sample_interval", "5s")
	v.SetDefault("agent.history_size", 60)
	v.SetDefault("agent.command_timeout", "10s")
	v.SetDefault("agent.allow_origins", []string{"http://localhost:5173", "http://127.0.0.1:5173"})

	v.SetDefault("chat.default_mode", "general")
	v.SetDefault("chat.max_tokens", 1024)
	v.SetDefault("chat.temperature", 0.7)
	v.SetDefault("chat.timeout", "20s")
	v.SetDefault("chat.total_timeout", "55s")
	v.SetDefault("chat.providers", []map[string]interface{}{
		{"name": "groq", "kind": "openai", "base_url": "https://api.groq.com/openai/v1", "model": "llama-3.1-8b-instant", "priority": 1},
		{"name": "gemini", "kind": "gemini", "base_url": "https://generativelanguage.googleapis.com/v1beta", "model": "gemini-1.5-flash", "priority": 2},
		{"name": "openrouter", "kind": "openai", "base_url": "https://openrouter.ai/api/v1", "model": "mistralai/mistral-7b-instruct", "priority": 3},
		{"name": "openai", "kind": "openai", "base_url": "https://api.openai.com/v1", "model": "gpt-4o-mini", "priority": 4},
	})

	v.SetDefault("weather.base_url", "https://api.openweathermap.org/data/2.5")
	v.SetDefault("weather.api_key", "")
	v.SetDefault("weather.units", "metric")
	v.SetDefault("weather.timeout", "10s")

	v.SetDefault("news.base_url", "https://newsapi.org/v2")
	v.SetDefault("news.api_key", "")
	v.SetDefault("news.country", "us")
	v.SetDefault("news.page_size", 10)
	v.SetDefault("news.timeout", "10s")

	v.SetDefault("backup.schedule", "")
	v.SetDefault("backup.prefix", "veer-backups")
	v.SetDefault("backup.format", "yaml")
}
