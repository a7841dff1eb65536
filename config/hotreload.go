// 配置热重载。
//
// 监听配置文件变更并在运行期间原子地替换当前配置，
// 保留最近的配置快照用于回滚，回调失败时自动恢复上一个有效配置。
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// --- 热重载类型定义 ---

// Reloader 管理配置的运行时重载
type Reloader struct {
	mu sync.RWMutex

	// 当前配置与来源文件
	config     *Config
	configPath string

	// 回滚支持
	previous   *Config    // 上一个成功应用的配置
	history    []Snapshot // 配置变更历史（环形缓冲）
	maxHistory int        // 最大历史记录数
	validate   ValidateFunc

	// 文件监听
	watcher     *FileWatcher
	watcherOpts []WatcherOption

	// 回调
	changeCallbacks   []ChangeCallback
	reloadCallbacks   []ReloadCallback
	rollbackCallbacks []RollbackCallback

	// 变更日志
	changeLog []Change

	logger *zap.Logger

	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// ChangeCallback 单个字段变更时调用
type ChangeCallback func(change Change)

// ReloadCallback 新配置整体生效后调用，返回 error 会触发自动回滚
type ReloadCallback func(oldConfig, newConfig *Config) error

// RollbackCallback 回滚发生时调用
type RollbackCallback func(event RollbackEvent)

// ValidateFunc 新配置生效前的验证钩子
type ValidateFunc func(newConfig *Config) error

// Change 一次配置字段变更
type Change struct {
	// 变更时间
	Timestamp time.Time `json:"timestamp"`

	// 变更来源: init, file, manual, rollback
	Source string `json:"source"`

	// 字段路径（如 "Engine.TurnTimeout"）
	Path string `json:"path"`

	// 变更前的值（敏感字段会被脱敏）
	OldValue any `json:"old_value,omitempty"`

	// 变更后的值（敏感字段会被脱敏）
	NewValue any `json:"new_value,omitempty"`

	// 该变更是否需要重启才能生效
	RequiresRestart bool `json:"requires_restart"`

	// 变更是否已应用
	Applied bool `json:"applied"`

	// 应用失败时的错误
	Error string `json:"error,omitempty"`
}

// Snapshot 配置快照（用于历史记录和回滚）
type Snapshot struct {
	Config    *Config   `json:"config"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Version   int       `json:"version"`
	Checksum  string    `json:"checksum"`
}

// RollbackEvent 回滚事件
type RollbackEvent struct {
	Timestamp      time.Time `json:"timestamp"`
	Reason         string    `json:"reason"`
	FailedConfig   *Config   `json:"failed_config"`
	RestoredConfig *Config   `json:"restored_config"`
	Version        int       `json:"version"`
	Error          error     `json:"error,omitempty"`
}

// --- 字段属性判定 ---

// restartPrefixes 这些路径下的变更无法在运行期间生效
var restartPrefixes = []string{
	"Server.",
	"Redis.",
	"Telemetry.",
	"Providers",
	"Bindings",
	"Log.OutputPaths",
}

// requiresRestart 判断某字段路径的变更是否需要重启
func requiresRestart(path string) bool {
	for _, prefix := range restartPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// sensitivePath 判断某字段路径是否包含敏感数据
func sensitivePath(path string) bool {
	if path == "Providers" {
		// 后端列表内嵌 API Key，整体脱敏
		return true
	}
	last := path
	if i := strings.LastIndex(path, "."); i >= 0 {
		last = path[i+1:]
	}
	return last == "APIKey" || last == "Password"
}

// --- 热重载选项 ---

// ReloadOption 配置 Reloader
type ReloadOption func(*Reloader)

// WithReloadLogger 设置记录器
func WithReloadLogger(logger *zap.Logger) ReloadOption {
	return func(r *Reloader) {
		r.logger = logger
	}
}

// WithReloadPath 设置被监听的配置文件路径
func WithReloadPath(path string) ReloadOption {
	return func(r *Reloader) {
		r.configPath = path
	}
}

// WithMaxHistory 设置历史快照上限
func WithMaxHistory(size int) ReloadOption {
	return func(r *Reloader) {
		if size > 0 {
			r.maxHistory = size
		}
	}
}

// WithValidateFunc 设置新配置的验证钩子
func WithValidateFunc(fn ValidateFunc) ReloadOption {
	return func(r *Reloader) {
		r.validate = fn
	}
}

// WithReloadWatcherOptions 透传文件监听器选项
func WithReloadWatcherOptions(opts ...WatcherOption) ReloadOption {
	return func(r *Reloader) {
		r.watcherOpts = append(r.watcherOpts, opts...)
	}
}

// --- 热重载实现 ---

// NewReloader 创建配置重载器，初始配置作为第一个历史快照
func NewReloader(config *Config, opts ...ReloadOption) *Reloader {
	r := &Reloader{
		config:            config,
		history:           make([]Snapshot, 0, 10),
		maxHistory:        10,
		changeCallbacks:   make([]ChangeCallback, 0),
		reloadCallbacks:   make([]ReloadCallback, 0),
		rollbackCallbacks: make([]RollbackCallback, 0),
		changeLog:         make([]Change, 0, 64),
		logger:            zap.NewNop(),
	}

	for _, opt := range opts {
		opt(r)
	}

	r.pushHistory(config, "init")

	return r
}

// pushHistory 推入历史快照，调用方必须持有写锁（构造时除外）
func (r *Reloader) pushHistory(config *Config, source string) {
	version := 1
	if len(r.history) > 0 {
		version = r.history[len(r.history)-1].Version + 1
	}
	r.history = append(r.history, Snapshot{
		Config:    deepCopyConfig(config),
		Timestamp: time.Now(),
		Source:    source,
		Version:   version,
		Checksum:  configChecksum(config),
	})
	if len(r.history) > r.maxHistory {
		r.history = r.history[len(r.history)-r.maxHistory:]
	}
}

// deepCopyConfig 深拷贝配置（JSON 往返）
func deepCopyConfig(config *Config) *Config {
	data, err := json.Marshal(config)
	if err != nil {
		return config
	}
	var copied Config
	if err := json.Unmarshal(data, &copied); err != nil {
		return config
	}
	return &copied
}

// configChecksum 计算配置校验和（FNV-1a）
func configChecksum(config *Config) string {
	data, err := json.Marshal(config)
	if err != nil {
		return ""
	}
	hash := uint64(14695981039346656037)
	for _, b := range data {
		hash ^= uint64(b)
		hash *= 1099511628211
	}
	return fmt.Sprintf("%016x", hash)
}

// Start 启动重载器。设置了配置路径时同时启动文件监听。
func (r *Reloader) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("reloader already running")
	}

	r.ctx, r.cancel = context.WithCancel(ctx)

	if r.configPath != "" {
		opts := append([]WatcherOption{
			WithWatcherLogger(r.logger),
			WithDebounceDelay(500 * time.Millisecond),
		}, r.watcherOpts...)

		watcher, err := NewFileWatcher([]string{r.configPath}, opts...)
		if err != nil {
			return fmt.Errorf("failed to create file watcher: %w", err)
		}

		watcher.OnChange(r.handleFileChange)

		if err := watcher.Start(r.ctx); err != nil {
			return fmt.Errorf("failed to start file watcher: %w", err)
		}

		r.watcher = watcher
	}

	r.running = true
	r.logger.Info("config reloader started", zap.String("config_path", r.configPath))

	return nil
}

// Stop 停止重载器
func (r *Reloader) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return nil
	}

	if r.cancel != nil {
		r.cancel()
	}

	if r.watcher != nil {
		if err := r.watcher.Stop(); err != nil {
			r.logger.Error("failed to stop file watcher", zap.Error(err))
		}
	}

	r.running = false
	r.logger.Info("config reloader stopped")

	return nil
}

// handleFileChange 处理文件变更事件
func (r *Reloader) handleFileChange(event FileEvent) {
	r.logger.Info("configuration file changed",
		zap.String("path", event.Path),
		zap.String("op", event.Op.String()))

	if event.Op == FileOpWrite || event.Op == FileOpCreate {
		if err := r.ReloadFromFile(); err != nil {
			r.logger.Error("failed to reload configuration", zap.Error(err))
		}
	}
}

// ReloadFromFile 从文件重新加载配置。
// 文件不合法时保留当前配置并返回错误。
func (r *Reloader) ReloadFromFile() error {
	if r.configPath == "" {
		return fmt.Errorf("no config path set")
	}

	newConfig, err := NewLoader().WithConfigPath(r.configPath).Load()
	if err != nil {
		r.logger.Error("failed to load config from file, keeping current config",
			zap.Error(err), zap.String("path", r.configPath))
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := newConfig.Validate(); err != nil {
		r.logger.Error("invalid config from file, keeping current config",
			zap.Error(err), zap.String("path", r.configPath))
		return fmt.Errorf("invalid config: %w", err)
	}

	return r.Apply(newConfig, "file")
}

// Apply 应用新配置。
// 验证、变更检测、历史与日志更新全部在同一把锁内完成；
// 回调在锁外执行，回调失败时自动回滚到旧配置。
func (r *Reloader) Apply(newConfig *Config, source string) error {
	r.mu.Lock()

	oldConfig := r.config

	if r.validate != nil {
		if err := r.validate(newConfig); err != nil {
			r.logger.Warn("config validation hook rejected new config",
				zap.Error(err), zap.String("source", source))
			r.changeLog = append(r.changeLog, Change{
				Timestamp: time.Now(),
				Source:    source,
				Path:      "(validation_hook)",
				Applied:   false,
				Error:     fmt.Sprintf("validation hook failed: %v", err),
			})
			r.mu.Unlock()
			return fmt.Errorf("config validation failed: %w", err)
		}
	}

	changes := detectChanges(oldConfig, newConfig)
	var needsRestart bool
	applied := make([]Change, 0, len(changes))

	for _, change := range changes {
		change.Source = source
		change.Timestamp = time.Now()
		change.RequiresRestart = requiresRestart(change.Path)
		if sensitivePath(change.Path) {
			change.OldValue = "[REDACTED]"
			change.NewValue = "[REDACTED]"
		}
		if change.RequiresRestart {
			needsRestart = true
		}
		change.Applied = true
		applied = append(applied, change)
		r.logChange(change)
	}

	r.previous = deepCopyConfig(oldConfig)
	r.config = newConfig

	r.pushHistory(newConfig, source)
	r.changeLog = append(r.changeLog, applied...)
	if len(r.changeLog) > 256 {
		r.changeLog = r.changeLog[len(r.changeLog)-256:]
	}

	// 复制回调列表，在锁外安全调用
	changeCallbacks := append([]ChangeCallback(nil), r.changeCallbacks...)
	reloadCallbacks := append([]ReloadCallback(nil), r.reloadCallbacks...)
	r.mu.Unlock()

	if err := r.notifyCallbacks(changeCallbacks, reloadCallbacks, oldConfig, newConfig, applied); err != nil {
		r.mu.Lock()
		if r.config == newConfig {
			r.logger.Error("reload callback failed, rolling back", zap.Error(err))
			r.rollbackLocked(oldConfig, fmt.Sprintf("callback error: %v", err), err)
		} else {
			// 配置已被并发修改，放弃回滚
			r.logger.Warn("reload callback failed but config changed concurrently, skipping rollback",
				zap.Error(err))
		}
		r.mu.Unlock()
		return fmt.Errorf("config applied but callback failed: %w", err)
	}

	if needsRestart {
		r.logger.Warn("some configuration changes require a restart to take effect")
	}
	r.logger.Info("configuration reloaded",
		zap.String("source", source),
		zap.Int("changes", len(applied)),
		zap.Bool("requires_restart", needsRestart))
	return nil
}

// notifyCallbacks 通知回调，吞掉 panic 转为 error
func (r *Reloader) notifyCallbacks(changeCallbacks []ChangeCallback, reloadCallbacks []ReloadCallback, oldConfig, newConfig *Config, changes []Change) (retErr error) {
	defer func() {
		if rec := recover(); rec != nil {
			retErr = fmt.Errorf("callback panicked: %v", rec)
		}
	}()
	for _, cb := range changeCallbacks {
		for _, change := range changes {
			cb(change)
		}
	}
	for _, cb := range reloadCallbacks {
		if err := cb(oldConfig, newConfig); err != nil {
			return err
		}
	}
	return nil
}

// detectChanges 对比新旧配置，返回字段级变更
func detectChanges(oldConfig, newConfig *Config) []Change {
	var changes []Change
	compareStructs("", reflect.ValueOf(oldConfig).Elem(), reflect.ValueOf(newConfig).Elem(), &changes)
	return changes
}

// compareStructs 递归比较结构体字段
func compareStructs(prefix string, oldVal, newVal reflect.Value, changes *[]Change) {
	if oldVal.Kind() != reflect.Struct || newVal.Kind() != reflect.Struct {
		return
	}

	t := oldVal.Type()
	for i := 0; i < oldVal.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		fieldPath := field.Name
		if prefix != "" {
			fieldPath = prefix + "." + field.Name
		}

		oldField := oldVal.Field(i)
		newField := newVal.Field(i)

		if oldField.Kind() == reflect.Struct {
			compareStructs(fieldPath, oldField, newField, changes)
		} else if !reflect.DeepEqual(oldField.Interface(), newField.Interface()) {
			*changes = append(*changes, Change{
				Path:     fieldPath,
				OldValue: oldField.Interface(),
				NewValue: newField.Interface(),
			})
		}
	}
}

// logChange 记录一次字段变更
func (r *Reloader) logChange(change Change) {
	fields := []zap.Field{
		zap.String("path", change.Path),
		zap.String("source", change.Source),
		zap.Bool("requires_restart", change.RequiresRestart),
	}

	// 敏感字段不记录具体值
	if !sensitivePath(change.Path) {
		fields = append(fields,
			zap.Any("old_value", change.OldValue),
			zap.Any("new_value", change.NewValue),
		)
	}

	r.logger.Info("configuration changed", fields...)
}

// OnChange 注册字段变更回调
func (r *Reloader) OnChange(callback ChangeCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changeCallbacks = append(r.changeCallbacks, callback)
}

// OnReload 注册整体重载回调
func (r *Reloader) OnReload(callback ReloadCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reloadCallbacks = append(r.reloadCallbacks, callback)
}

// OnRollback 注册回滚事件回调
func (r *Reloader) OnRollback(callback RollbackCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rollbackCallbacks = append(r.rollbackCallbacks, callback)
}

// Rollback 手动回滚到上一个成功应用的配置
func (r *Reloader) Rollback() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.previous == nil {
		return fmt.Errorf("no previous config available for rollback")
	}
	r.rollbackLocked(r.previous, "manual rollback", nil)
	return nil
}

// rollbackLocked 执行回滚，调用方必须持有写锁
func (r *Reloader) rollbackLocked(target *Config, reason string, cause error) {
	failed := r.config
	restored := deepCopyConfig(target)
	r.config = restored

	restoredVersion := 0
	checksum := configChecksum(target)
	for _, snapshot := range r.history {
		if snapshot.Checksum == checksum {
			restoredVersion = snapshot.Version
			break
		}
	}

	event := RollbackEvent{
		Timestamp:      time.Now(),
		Reason:         reason,
		FailedConfig:   failed,
		RestoredConfig: restored,
		Version:        restoredVersion,
		Error:          cause,
	}

	r.changeLog = append(r.changeLog, Change{
		Timestamp: time.Now(),
		Source:    "rollback",
		Path:      "(rollback)",
		Applied:   true,
		Error:     reason,
	})

	for _, cb := range r.rollbackCallbacks {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.Error("rollback callback panicked", zap.Any("panic", rec))
				}
			}()
			cb(event)
		}()
	}

	r.logger.Warn("configuration rolled back",
		zap.String("reason", reason),
		zap.Int("restored_version", restoredVersion))
}

// Current 返回当前配置的深拷贝
func (r *Reloader) Current() *Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return deepCopyConfig(r.config)
}

// History 返回配置快照历史
func (r *Reloader) History() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Snapshot, len(r.history))
	copy(result, r.history)
	return result
}

// Version 返回当前配置版本号
func (r *Reloader) Version() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.history) == 0 {
		return 0
	}
	return r.history[len(r.history)-1].Version
}

// ChangeLog 返回最近的配置变更，limit 不大于 0 时返回全部
func (r *Reloader) ChangeLog(limit int) []Change {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 || limit > len(r.changeLog) {
		limit = len(r.changeLog)
	}

	start := len(r.changeLog) - limit
	result := make([]Change, limit)
	copy(result, r.changeLog[start:])

	return result
}
