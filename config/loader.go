// =============================================================================
// 📦 Synapse 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("synapse.yaml").
//	    WithEnvPrefix("SYNAPSE").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是对话引擎的完整配置结构
type Config struct {
	// Server 指标/健康检查 HTTP 服务配置
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Engine 对话引擎默认参数
	Engine EngineConfig `yaml:"engine" env:"ENGINE"`

	// Providers 后端列表（仅支持 YAML，环境变量无法表达结构体切片）
	Providers []ProviderConfig `yaml:"providers" env:"-"`

	// Bindings 参与者到后端的静态绑定（仅支持 YAML）
	Bindings []BindingConfig `yaml:"bindings" env:"-"`

	// Redis 缓存后端配置
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Cache 综合陈词缓存配置
	Cache CacheConfig `yaml:"cache" env:"CACHE"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig 指标/健康检查服务配置
type ServerConfig struct {
	// 监听地址（如 ":9091"）
	MetricsAddr string `yaml:"metrics_addr" env:"METRICS_ADDR"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 空闲超时
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// EngineConfig 对话引擎配置
type EngineConfig struct {
	// 并发会话上限（0 表示不限制）
	MaxConcurrentSessions int64 `yaml:"max_concurrent_sessions" env:"MAX_CONCURRENT_SESSIONS"`
	// 单轮超时（含该轮的自动重试）
	TurnTimeout time.Duration `yaml:"turn_timeout" env:"TURN_TIMEOUT"`
	// 每轮最大自动重试次数（0 表示不重试）
	MaxRetries int `yaml:"max_retries" env:"MAX_RETRIES"`
	// 重试初始延迟
	RetryDelay time.Duration `yaml:"retry_delay" env:"RETRY_DELAY"`
	// 默认采样温度
	DefaultTemperature float64 `yaml:"default_temperature" env:"DEFAULT_TEMPERATURE"`
	// 每轮默认最大 Token 数
	DefaultMaxTokens int `yaml:"default_max_tokens" env:"DEFAULT_MAX_TOKENS"`
	// 综合陈词使用的后端（为空则使用首个参与者的后端）
	SynthesisBackend string `yaml:"synthesis_backend" env:"SYNTHESIS_BACKEND"`
	// 人格档案名称（为空则不应用预置人格）
	PersonaProfile string `yaml:"persona_profile" env:"PERSONA_PROFILE"`
	// 人格档案 YAML 文件，启动时在内置档案之上加载（同名覆盖）
	PersonaFile string `yaml:"persona_file" env:"PERSONA_FILE"`
}

// ProviderConfig 单个 LLM 后端配置
type ProviderConfig struct {
	// 注册名称（参与者通过该名称引用后端）
	Name string `yaml:"name"`
	// 类型: openai, anthropic, deepseek, qwen, doubao, gemini, glm, grok,
	// hunyuan, kimi, llama, minimax, mistral, openai_compatible
	Type string `yaml:"type"`
	// API Key
	APIKey string `yaml:"api_key"`
	// 基础 URL（openai_compatible 必填，其余类型可选覆盖）
	BaseURL string `yaml:"base_url,omitempty"`
	// 默认模型
	Model string `yaml:"model"`
	// OpenAI 组织 ID（仅 openai 类型）
	Organization string `yaml:"organization,omitempty"`
	// Anthropic API 版本（仅 anthropic 类型）
	Version string `yaml:"version,omitempty"`
	// 请求超时
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// BindingConfig 参与者到后端的静态绑定
type BindingConfig struct {
	// 参与者 ID
	Participant string `yaml:"participant"`
	// 后端注册名称
	Provider string `yaml:"provider"`
	// 模型覆盖（为空则使用后端默认模型）
	Model string `yaml:"model,omitempty"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 连接池大小
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// 最小空闲连接
	MinIdleConns int `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
}

// CacheConfig 综合陈词缓存配置
type CacheConfig struct {
	// 是否启用缓存
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 本地 LRU 容量
	LocalMaxSize int `yaml:"local_max_size" env:"LOCAL_MAX_SIZE"`
	// 本地条目 TTL
	LocalTTL time.Duration `yaml:"local_ttl" env:"LOCAL_TTL"`
	// Redis 条目 TTL
	RedisTTL time.Duration `yaml:"redis_ttl" env:"REDIS_TTL"`
	// 是否启用 Redis 二级缓存（需要有效的 Redis 配置）
	UseRedis bool `yaml:"use_redis" env:"USE_REDIS"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "SYNAPSE",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 从环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 4. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		// 获取 env tag
		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		// 如果是结构体，递归处理
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		// 获取环境变量值
		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		// 设置字段值
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// validProviderTypes 支持的后端类型
var validProviderTypes = map[string]bool{
	"openai":            true,
	"anthropic":         true,
	"deepseek":          true,
	"qwen":              true,
	"doubao":            true,
	"gemini":            true,
	"glm":               true,
	"grok":              true,
	"hunyuan":           true,
	"kimi":              true,
	"llama":             true,
	"minimax":           true,
	"mistral":           true,
	"openai_compatible": true,
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	// 验证引擎配置
	if c.Engine.MaxConcurrentSessions < 0 {
		errs = append(errs, "max_concurrent_sessions must not be negative")
	}
	if c.Engine.TurnTimeout <= 0 {
		errs = append(errs, "turn_timeout must be positive")
	}
	if c.Engine.MaxRetries < 0 {
		errs = append(errs, "max_retries must not be negative")
	}
	if c.Engine.DefaultTemperature < 0 || c.Engine.DefaultTemperature > 2 {
		errs = append(errs, "default_temperature must be between 0 and 2")
	}
	if c.Engine.DefaultMaxTokens <= 0 {
		errs = append(errs, "default_max_tokens must be positive")
	}

	// 验证后端配置
	seen := make(map[string]bool, len(c.Providers))
	for i, p := range c.Providers {
		if p.Name == "" {
			errs = append(errs, fmt.Sprintf("providers[%d]: name is required", i))
			continue
		}
		if seen[p.Name] {
			errs = append(errs, fmt.Sprintf("providers[%d]: duplicate name %q", i, p.Name))
		}
		seen[p.Name] = true
		if !validProviderTypes[p.Type] {
			errs = append(errs, fmt.Sprintf("providers[%d]: unknown type %q", i, p.Type))
		}
		if p.Type == "openai_compatible" && p.BaseURL == "" {
			errs = append(errs, fmt.Sprintf("providers[%d]: base_url is required for openai_compatible", i))
		}
	}

	// 验证绑定指向已声明的后端
	for i, b := range c.Bindings {
		if b.Participant == "" {
			errs = append(errs, fmt.Sprintf("bindings[%d]: participant is required", i))
		}
		if b.Provider == "" {
			errs = append(errs, fmt.Sprintf("bindings[%d]: provider is required", i))
		} else if len(c.Providers) > 0 && !seen[b.Provider] {
			errs = append(errs, fmt.Sprintf("bindings[%d]: unknown provider %q", i, b.Provider))
		}
	}

	// 验证缓存配置
	if c.Cache.Enabled && c.Cache.LocalMaxSize <= 0 {
		errs = append(errs, "cache local_max_size must be positive when cache is enabled")
	}
	if c.Cache.UseRedis && c.Redis.Addr == "" {
		errs = append(errs, "redis addr is required when cache use_redis is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
