// Package synapse 是对话引擎的顶层入口。它把 llm、dialogue、persona 等
// 子系统组装成一个可直接运行会话的 Engine，几行代码即可发起一场辩论：
//
//	eng, err := synapse.New(
//		synapse.WithOpenAIBackend("pro", "gpt-4o"),
//		synapse.WithAnthropicBackend("con", "claude-sonnet-4-5"),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer eng.Close()
//
//	result, err := eng.Debate(ctx, "Should tabs beat spaces?", "pro", "con")
//
// 需要完整配置（YAML + 环境变量）时改用 FromConfig。
package synapse

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dlorp/synapse-engine-sub010/config"
	"github.com/dlorp/synapse-engine-sub010/dialogue"
	"github.com/dlorp/synapse-engine-sub010/internal/metrics"
	"github.com/dlorp/synapse-engine-sub010/llm"
	"github.com/dlorp/synapse-engine-sub010/llm/cache"
	"github.com/dlorp/synapse-engine-sub010/llm/observability"
	"github.com/dlorp/synapse-engine-sub010/llm/providers/anthropic"
	"github.com/dlorp/synapse-engine-sub010/llm/providers/deepseek"
	"github.com/dlorp/synapse-engine-sub010/llm/providers/doubao"
	"github.com/dlorp/synapse-engine-sub010/llm/providers/gemini"
	"github.com/dlorp/synapse-engine-sub010/llm/providers/glm"
	"github.com/dlorp/synapse-engine-sub010/llm/providers/grok"
	"github.com/dlorp/synapse-engine-sub010/llm/providers/hunyuan"
	"github.com/dlorp/synapse-engine-sub010/llm/providers/kimi"
	"github.com/dlorp/synapse-engine-sub010/llm/providers/llama"
	"github.com/dlorp/synapse-engine-sub010/llm/providers/minimax"
	"github.com/dlorp/synapse-engine-sub010/llm/providers/mistral"
	"github.com/dlorp/synapse-engine-sub010/llm/providers/openai"
	"github.com/dlorp/synapse-engine-sub010/llm/providers/openaicompat"
	"github.com/dlorp/synapse-engine-sub010/llm/providers/qwen"
	"github.com/dlorp/synapse-engine-sub010/llm/retry"
	"github.com/dlorp/synapse-engine-sub010/llm/tokenizer"
	"github.com/dlorp/synapse-engine-sub010/persona"
	"github.com/dlorp/synapse-engine-sub010/types"
)

// backendSpec 描述一个待构建的厂商后端。API 密钥在 New 阶段解析，
// 优先级：WithBackendAPIKey > 选项入参 > 环境变量。
type backendSpec struct {
	name    string
	vendor  string
	model   string
	baseURL string
	apiKey  string
	envVar  string
}

type namedProvider struct {
	name string
	p    llm.Provider
}

type options struct {
	logger        *zap.Logger
	providers     []namedProvider
	specs         []backendSpec
	bindings      []config.BindingConfig
	apiKeys       map[string]string
	dcfg          dialogue.Config
	dcfgSet       bool
	turnTimeout   time.Duration
	retryPolicy   *retry.Policy
	maxConcurrent int64
	profile       string
	personaFile   string
	personaReg    *persona.Registry
	synthBackend  string
	synthCache    cache.SynthesisCache
	noSynthesis   bool
	collector     *metrics.Collector
	obs           *observability.Metrics
	resilient     bool
}

// Option 配置 Engine 的构建过程。
type Option func(*options)

// WithLogger 设置引擎及其全部子组件使用的日志器。
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithProvider registers a pre-built provider under the given backend name.
// Use it for custom Provider implementations or test doubles.
func WithProvider(name string, p llm.Provider) Option {
	return func(o *options) {
		o.providers = append(o.providers, namedProvider{name: name, p: p})
	}
}

// WithOpenAIBackend 注册一个 OpenAI 后端。密钥默认取 OPENAI_API_KEY。
func WithOpenAIBackend(name, model string) Option {
	return func(o *options) {
		o.specs = append(o.specs, backendSpec{
			name: name, vendor: "openai", model: model, envVar: "OPENAI_API_KEY",
		})
	}
}

// WithAnthropicBackend 注册一个 Anthropic 后端。密钥默认取 ANTHROPIC_API_KEY。
func WithAnthropicBackend(name, model string) Option {
	return func(o *options) {
		o.specs = append(o.specs, backendSpec{
			name: name, vendor: "anthropic", model: model, envVar: "ANTHROPIC_API_KEY",
		})
	}
}

// WithDeepSeekBackend 注册一个 DeepSeek 后端。密钥默认取 DEEPSEEK_API_KEY。
func WithDeepSeekBackend(name, model string) Option {
	return func(o *options) {
		o.specs = append(o.specs, backendSpec{
			name: name, vendor: "deepseek", model: model, envVar: "DEEPSEEK_API_KEY",
		})
	}
}

// WithQwenBackend 注册一个通义千问后端。密钥默认取 DASHSCOPE_API_KEY。
func WithQwenBackend(name, model string) Option {
	return func(o *options) {
		o.specs = append(o.specs, backendSpec{
			name: name, vendor: "qwen", model: model, envVar: "DASHSCOPE_API_KEY",
		})
	}
}

// WithOpenAICompatible registers a backend speaking the OpenAI chat wire
// format at a custom base URL. The API key may be empty for unauthenticated
// local servers.
func WithOpenAICompatible(name, baseURL, apiKey, model string) Option {
	return func(o *options) {
		o.specs = append(o.specs, backendSpec{
			name: name, vendor: "openai_compatible", model: model,
			baseURL: baseURL, apiKey: apiKey,
		})
	}
}

// WithBackendAPIKey 为指定后端显式设置密钥，覆盖环境变量。
func WithBackendAPIKey(name, key string) Option {
	return func(o *options) {
		if o.apiKeys == nil {
			o.apiKeys = make(map[string]string)
		}
		o.apiKeys[name] = key
	}
}

// WithBinding routes a participant ID to a backend, optionally pinning a
// model. Unbound participants resolve to the backend registered under their
// own ID.
func WithBinding(participantID, backend, model string) Option {
	return func(o *options) {
		o.bindings = append(o.bindings, config.BindingConfig{
			Participant: participantID, Provider: backend, Model: model,
		})
	}
}

// WithDialogueConfig 整体替换会话级默认值（超时、温度、token 上限、重试）。
func WithDialogueConfig(cfg dialogue.Config) Option {
	return func(o *options) {
		o.dcfg = cfg
		o.dcfgSet = true
	}
}

// WithTurnTimeout 设置单回合的墙钟预算。
func WithTurnTimeout(d time.Duration) Option {
	return func(o *options) { o.turnTimeout = d }
}

// WithRetryPolicy 设置回合失败后的重试策略。
func WithRetryPolicy(p *retry.Policy) Option {
	return func(o *options) { o.retryPolicy = p }
}

// WithMaxConcurrentSessions caps concurrently running sessions. Zero or
// negative means unbounded.
func WithMaxConcurrentSessions(n int64) Option {
	return func(o *options) { o.maxConcurrent = n }
}

// WithPersonaProfile 设置默认画像方案，请求未指定 ProfileName 时生效。
func WithPersonaProfile(name string) Option {
	return func(o *options) { o.profile = name }
}

// WithPersonaFile 在内置画像档案之上加载一个 YAML 档案文件，同名覆盖。
func WithPersonaFile(path string) Option {
	return func(o *options) { o.personaFile = path }
}

// WithPersonaRegistry replaces the profile registry entirely. Takes
// precedence over WithPersonaFile.
func WithPersonaRegistry(r *persona.Registry) Option {
	return func(o *options) { o.personaReg = r }
}

// WithSynthesisBackend 指定综述阶段使用的后端，零值时复用最后发言者。
func WithSynthesisBackend(participantID string) Option {
	return func(o *options) { o.synthBackend = participantID }
}

// WithSynthesisCache attaches a cache to the synthesis stage so repeated
// transcripts do not pay for a second closing summary.
func WithSynthesisCache(c cache.SynthesisCache) Option {
	return func(o *options) { o.synthCache = c }
}

// WithoutSynthesis 关闭综述阶段，结果将不携带 Synthesis。
func WithoutSynthesis() Option {
	return func(o *options) { o.noSynthesis = true }
}

// WithCollector attaches the Prometheus session collector. The caller owns
// registration; create at most one collector per process.
func WithCollector(c *metrics.Collector) Option {
	return func(o *options) { o.collector = c }
}

// WithObservability 挂载 OpenTelemetry 追踪与指标。
func WithObservability(obs *observability.Metrics) Option {
	return func(o *options) { o.obs = obs }
}

// WithResilience wraps every backend in a circuit breaker so a failing
// vendor is cut off instead of burning the whole turn budget.
func WithResilience() Option {
	return func(o *options) { o.resilient = true }
}

// Engine 是装配完成的对话引擎：后端注册表、补全服务与会话管理器。
// 跨 goroutine 并发使用是安全的。
type Engine struct {
	logger   *zap.Logger
	registry *llm.Registry
	service  *llm.Service
	manager  *dialogue.Manager
	profile  string
	rdb      *redis.Client
}

// New assembles an engine from options. At least one backend is required,
// via WithProvider or a vendor shortcut.
func New(opts ...Option) (*Engine, error) {
	o := &options{maxConcurrent: 8}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if len(o.providers)+len(o.specs) == 0 {
		return nil, fmt.Errorf("at least one backend is required: use WithProvider or a vendor option")
	}

	registry := llm.NewRegistry()
	register := func(name string, p llm.Provider) {
		if o.resilient {
			p = llm.NewResilientProvider(p, nil, o.logger)
		}
		registry.Register(name, p)
	}
	for _, np := range o.providers {
		register(np.name, np.p)
	}
	for _, spec := range o.specs {
		p, err := spec.build(o.apiKeys[spec.name], o.logger)
		if err != nil {
			return nil, err
		}
		register(spec.name, p)
	}

	svc := llm.NewService(registry,
		llm.WithServiceLogger(o.logger),
		llm.WithTokenCounter(tokenizer.NewEstimator()),
		llm.WithObservability(o.obs),
	)
	for _, b := range o.bindings {
		svc.Bind(b.Participant, b.Provider, b.Model)
	}

	dcfg := dialogue.DefaultConfig()
	if o.dcfgSet {
		dcfg = o.dcfg
	}
	if o.turnTimeout > 0 {
		dcfg.TurnTimeout = o.turnTimeout
	}
	if o.retryPolicy != nil {
		dcfg.RetryPolicy = o.retryPolicy
	}

	personaReg := o.personaReg
	if personaReg == nil && o.personaFile != "" {
		reg, err := persona.LoadFile(o.personaFile, o.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to load persona profiles: %w", err)
		}
		personaReg = reg
	}

	orchOpts := []dialogue.Option{
		dialogue.WithConfig(dcfg),
		dialogue.WithLogger(o.logger),
	}
	if personaReg != nil {
		orchOpts = append(orchOpts, dialogue.WithPersonaManager(persona.NewManager(personaReg, o.logger)))
	}
	switch {
	case o.noSynthesis:
		orchOpts = append(orchOpts, dialogue.WithSynthesizer(nil))
	case o.synthCache != nil || o.synthBackend != "" || o.obs != nil:
		synthOpts := []dialogue.SynthesizerOption{dialogue.WithSynthesisLogger(o.logger)}
		if o.synthCache != nil {
			synthOpts = append(synthOpts, dialogue.WithSynthesisCache(o.synthCache))
		}
		if o.synthBackend != "" {
			synthOpts = append(synthOpts, dialogue.WithSynthesisBackend(o.synthBackend))
		}
		if o.obs != nil {
			synthOpts = append(synthOpts, dialogue.WithSynthesisObservability(o.obs))
		}
		orchOpts = append(orchOpts, dialogue.WithSynthesizer(dialogue.NewSynthesizer(svc, synthOpts...)))
	}
	if o.obs != nil {
		orchOpts = append(orchOpts, dialogue.WithObservability(o.obs))
	}
	if o.collector != nil {
		orchOpts = append(orchOpts, dialogue.WithCollector(o.collector))
	}

	orch := dialogue.New(svc, orchOpts...)
	return &Engine{
		logger:   o.logger,
		registry: registry,
		service:  svc,
		manager:  dialogue.NewManager(orch, o.maxConcurrent, o.logger),
		profile:  o.profile,
	}, nil
}

// FromConfig 按配置文件装配引擎：日志器、厂商后端、参与者绑定、综述缓存
// 与会话默认值全部取自 cfg。传入的 opts 在配置之后应用，可覆盖任意一项。
// Redis 不可达时降级为仅本地缓存，不会阻止启动。
func FromConfig(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := NewLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	base := []Option{
		WithLogger(logger),
		WithDialogueConfig(dialogue.Config{
			TurnTimeout: cfg.Engine.TurnTimeout,
			RetryPolicy: &retry.Policy{
				MaxRetries:   cfg.Engine.MaxRetries,
				InitialDelay: cfg.Engine.RetryDelay,
				Jitter:       true,
			},
			DefaultTemperature: cfg.Engine.DefaultTemperature,
			DefaultMaxTokens:   cfg.Engine.DefaultMaxTokens,
		}),
		WithMaxConcurrentSessions(cfg.Engine.MaxConcurrentSessions),
		WithPersonaProfile(cfg.Engine.PersonaProfile),
		WithSynthesisBackend(cfg.Engine.SynthesisBackend),
	}
	if cfg.Engine.PersonaFile != "" {
		base = append(base, WithPersonaFile(cfg.Engine.PersonaFile))
	}

	for _, pc := range cfg.Providers {
		p, err := buildProvider(pc, logger)
		if err != nil {
			return nil, err
		}
		base = append(base, WithProvider(pc.Name, p))
	}
	for _, b := range cfg.Bindings {
		base = append(base, WithBinding(b.Participant, b.Provider, b.Model))
	}

	var rdb *redis.Client
	if cfg.Cache.Enabled {
		if cfg.Cache.UseRedis {
			rdb, err = cache.NewRedisClient(cache.RedisConfig{
				Addr:         cfg.Redis.Addr,
				Password:     cfg.Redis.Password,
				DB:           cfg.Redis.DB,
				PoolSize:     cfg.Redis.PoolSize,
				MinIdleConns: cfg.Redis.MinIdleConns,
			})
			if err != nil {
				logger.Warn("redis 不可达，综述缓存降级为仅本地层",
					zap.String("addr", cfg.Redis.Addr), zap.Error(err))
				rdb = nil
			}
		}
		mlc := cache.NewMultiLevelCache(rdb, &cache.Config{
			LocalMaxSize: cfg.Cache.LocalMaxSize,
			LocalTTL:     cfg.Cache.LocalTTL,
			RedisTTL:     cfg.Cache.RedisTTL,
			EnableLocal:  true,
			EnableRedis:  rdb != nil,
		}, logger)
		base = append(base, WithSynthesisCache(mlc))
	}

	eng, err := New(append(base, opts...)...)
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, err
	}
	eng.rdb = rdb
	return eng, nil
}

// NewLogger 根据日志配置构建 zap 日志器。
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	if len(cfg.OutputPaths) > 0 {
		zcfg.OutputPaths = cfg.OutputPaths
	}
	zcfg.DisableCaller = !cfg.EnableCaller
	zcfg.DisableStacktrace = !cfg.EnableStacktrace
	return zcfg.Build()
}

func (s backendSpec) build(overrideKey string, logger *zap.Logger) (llm.Provider, error) {
	key := overrideKey
	if key == "" {
		key = s.apiKey
	}
	if key == "" && s.envVar != "" {
		key = os.Getenv(s.envVar)
	}
	if key == "" && s.vendor != "openai_compatible" {
		return nil, fmt.Errorf("API key required for backend %q: set %s or use WithBackendAPIKey", s.name, s.envVar)
	}
	return buildProvider(config.ProviderConfig{
		Name:    s.name,
		Type:    s.vendor,
		APIKey:  key,
		BaseURL: s.baseURL,
		Model:   s.model,
	}, logger)
}

// buildProvider 按配置类型实例化厂商客户端。
func buildProvider(pc config.ProviderConfig, logger *zap.Logger) (llm.Provider, error) {
	switch pc.Type {
	case "openai":
		return openai.New(openai.Config{
			APIKey:       pc.APIKey,
			BaseURL:      pc.BaseURL,
			DefaultModel: pc.Model,
			Organization: pc.Organization,
			Timeout:      pc.Timeout,
		}, logger), nil
	case "anthropic":
		return anthropic.New(anthropic.Config{
			APIKey:       pc.APIKey,
			BaseURL:      pc.BaseURL,
			DefaultModel: pc.Model,
			Version:      pc.Version,
			Timeout:      pc.Timeout,
		}, logger), nil
	case "deepseek":
		return deepseek.New(deepseek.Config{
			APIKey:       pc.APIKey,
			BaseURL:      pc.BaseURL,
			DefaultModel: pc.Model,
			Timeout:      pc.Timeout,
		}, logger), nil
	case "qwen":
		return qwen.New(qwen.Config{
			APIKey:       pc.APIKey,
			BaseURL:      pc.BaseURL,
			DefaultModel: pc.Model,
			Timeout:      pc.Timeout,
		}, logger), nil
	case "doubao":
		return doubao.New(doubao.Config{
			APIKey:       pc.APIKey,
			BaseURL:      pc.BaseURL,
			DefaultModel: pc.Model,
			Timeout:      pc.Timeout,
		}, logger), nil
	case "gemini":
		return gemini.New(gemini.Config{
			APIKey:       pc.APIKey,
			BaseURL:      pc.BaseURL,
			DefaultModel: pc.Model,
			Timeout:      pc.Timeout,
		}, logger), nil
	case "glm":
		return glm.New(glm.Config{
			APIKey:       pc.APIKey,
			BaseURL:      pc.BaseURL,
			DefaultModel: pc.Model,
			Timeout:      pc.Timeout,
		}, logger), nil
	case "grok":
		return grok.New(grok.Config{
			APIKey:       pc.APIKey,
			BaseURL:      pc.BaseURL,
			DefaultModel: pc.Model,
			Timeout:      pc.Timeout,
		}, logger), nil
	case "hunyuan":
		return hunyuan.New(hunyuan.Config{
			APIKey:       pc.APIKey,
			BaseURL:      pc.BaseURL,
			DefaultModel: pc.Model,
			Timeout:      pc.Timeout,
		}, logger), nil
	case "kimi":
		return kimi.New(kimi.Config{
			APIKey:       pc.APIKey,
			BaseURL:      pc.BaseURL,
			DefaultModel: pc.Model,
			Timeout:      pc.Timeout,
		}, logger), nil
	case "llama":
		return llama.New(llama.Config{
			APIKey:       pc.APIKey,
			BaseURL:      pc.BaseURL,
			DefaultModel: pc.Model,
			Timeout:      pc.Timeout,
		}, logger), nil
	case "minimax":
		return minimax.New(minimax.Config{
			APIKey:       pc.APIKey,
			BaseURL:      pc.BaseURL,
			DefaultModel: pc.Model,
			Timeout:      pc.Timeout,
		}, logger), nil
	case "mistral":
		return mistral.New(mistral.Config{
			APIKey:       pc.APIKey,
			BaseURL:      pc.BaseURL,
			DefaultModel: pc.Model,
			Timeout:      pc.Timeout,
		}, logger), nil
	case "openai_compatible":
		return openaicompat.New(openaicompat.Config{
			ProviderName: pc.Name,
			APIKey:       pc.APIKey,
			BaseURL:      pc.BaseURL,
			DefaultModel: pc.Model,
			Timeout:      pc.Timeout,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown provider type %q for backend %q", pc.Type, pc.Name)
	}
}

func (e *Engine) applyDefaults(req *types.DialogueRequest) {
	if req.ProfileName == "" && e.profile != "" {
		req.ProfileName = e.profile
	}
}

// Run 同步执行一场会话，直到终态或 ctx 取消。
func (e *Engine) Run(ctx context.Context, req types.DialogueRequest) (*types.DialogueResult, error) {
	e.applyDefaults(&req)
	return e.manager.Run(ctx, req)
}

// RunAsync starts a session in the background. The returned channel delivers
// exactly one Outcome; cancel by ID through Cancel.
func (e *Engine) RunAsync(ctx context.Context, req types.DialogueRequest) (string, <-chan dialogue.Outcome, error) {
	e.applyDefaults(&req)
	return e.manager.RunAsync(ctx, req)
}

// Cancel 中止一场进行中的会话。
func (e *Engine) Cancel(sessionID string) error {
	return e.manager.Cancel(sessionID)
}

// Active 返回进行中的会话 ID。
func (e *Engine) Active() []string {
	return e.manager.Active()
}

// Debate runs a two-party adversarial dialogue: proBackend argues for the
// topic, conBackend against, alternating until the turn budget or a
// termination signal ends the session.
func (e *Engine) Debate(ctx context.Context, topic, proBackend, conBackend string, opts ...RequestOption) (*types.DialogueResult, error) {
	req := types.DialogueRequest{
		Topic: topic,
		Mode:  types.ModeAdversarial,
		Participants: []types.Participant{
			{ID: proBackend, Role: types.RolePro},
			{ID: conBackend, Role: types.RoleCon},
		},
		OrderPolicy: types.OrderAlternating,
		MaxTurns:    6,
	}
	for _, opt := range opts {
		opt(&req)
	}
	return e.Run(ctx, req)
}

// Consensus runs an N-party panel in round-robin order. The default turn
// budget gives every panelist two turns, capped at the budget maximum.
func (e *Engine) Consensus(ctx context.Context, topic string, backends []string, opts ...RequestOption) (*types.DialogueResult, error) {
	participants := make([]types.Participant, 0, len(backends))
	for _, b := range backends {
		participants = append(participants, types.Participant{ID: b})
	}
	maxTurns := 2 * len(backends)
	if maxTurns > types.MaxTurnBudget {
		maxTurns = types.MaxTurnBudget
	}
	req := types.DialogueRequest{
		Topic:        topic,
		Mode:         types.ModeConsensus,
		Participants: participants,
		OrderPolicy:  types.OrderRoundRobin,
		MaxTurns:     maxTurns,
	}
	for _, opt := range opts {
		opt(&req)
	}
	return e.Run(ctx, req)
}

// Health 探测所有已注册后端的可用性。
func (e *Engine) Health(ctx context.Context) map[string]*llm.HealthStatus {
	return e.service.Health(ctx)
}

// Service 暴露底层补全服务，供需要直接补全或自定义绑定的调用方使用。
func (e *Engine) Service() *llm.Service {
	return e.service
}

// Backends 返回已注册的后端名。
func (e *Engine) Backends() []string {
	return e.registry.List()
}

// Close 释放引擎持有的连接。幂等。
func (e *Engine) Close() error {
	if e.rdb != nil {
		rdb := e.rdb
		e.rdb = nil
		return rdb.Close()
	}
	return nil
}

// RequestOption 调整一次会话请求。
type RequestOption func(*types.DialogueRequest)

// WithMaxTurns 设置回合预算。
func WithMaxTurns(n int) RequestOption {
	return func(r *types.DialogueRequest) { r.MaxTurns = n }
}

// WithDynamicTermination 启用收敛检测，会话可在预算耗尽前提前结束。
func WithDynamicTermination() RequestOption {
	return func(r *types.DialogueRequest) { r.DynamicTermination = true }
}

// WithExternalContext 注入背景材料，随每个提示词下发。
func WithExternalContext(text string) RequestOption {
	return func(r *types.DialogueRequest) { r.ExternalContext = text }
}

// WithPersonas 为参与者逐一指定画像，必须覆盖全部参与者。
func WithPersonas(personas map[string]string) RequestOption {
	return func(r *types.DialogueRequest) { r.Personas = personas }
}

// WithProfile 指定本次会话使用的画像方案。
func WithProfile(name string) RequestOption {
	return func(r *types.DialogueRequest) { r.ProfileName = name }
}

// WithTemperature 设置本次会话的采样温度。
func WithTemperature(t float64) RequestOption {
	return func(r *types.DialogueRequest) { r.Temperature = t }
}

// WithMaxTokens 设置单回合回复的 token 上限。
func WithMaxTokens(n int) RequestOption {
	return func(r *types.DialogueRequest) { r.MaxTokensPerTurn = n }
}
