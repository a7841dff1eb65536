// 配置热重载测试。
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileOp_String(t *testing.T) {
	tests := []struct {
		op   FileOp
		want string
	}{
		{FileOpCreate, "CREATE"},
		{FileOpWrite, "WRITE"},
		{FileOpRemove, "REMOVE"},
		{FileOp(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.op.String())
	}
}

// --- 重载器基础测试 ---

func TestReloader_New(t *testing.T) {
	cfg := DefaultConfig()
	r := NewReloader(cfg)

	require.NotNil(t, r)
	assert.Equal(t, cfg, r.Current())
	assert.Equal(t, 1, r.Version())

	history := r.History()
	require.Len(t, history, 1)
	assert.Equal(t, "init", history[0].Source)
	assert.NotEmpty(t, history[0].Checksum)
}

func TestReloader_StartStop(t *testing.T) {
	r := NewReloader(DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, r.Start(ctx))

	// 重复启动应该报错
	err := r.Start(ctx)
	assert.Error(t, err)

	require.NoError(t, r.Stop())
	// 重复停止是空操作
	require.NoError(t, r.Stop())
}

// --- Apply 测试 ---

func TestReloader_Apply(t *testing.T) {
	cfg := DefaultConfig()
	r := NewReloader(cfg)

	var reloadCalled bool
	r.OnReload(func(oldConfig, newConfig *Config) error {
		reloadCalled = true
		assert.Equal(t, 30*time.Second, oldConfig.Engine.TurnTimeout)
		assert.Equal(t, time.Minute, newConfig.Engine.TurnTimeout)
		return nil
	})

	newCfg := DefaultConfig()
	newCfg.Engine.TurnTimeout = time.Minute

	require.NoError(t, r.Apply(newCfg, "manual"))

	assert.True(t, reloadCalled)
	assert.Equal(t, time.Minute, r.Current().Engine.TurnTimeout)
	assert.Equal(t, 2, r.Version())
}

func TestReloader_Apply_DetectsFieldChanges(t *testing.T) {
	r := NewReloader(DefaultConfig())

	var received []Change
	r.OnChange(func(change Change) {
		received = append(received, change)
	})

	newCfg := DefaultConfig()
	newCfg.Engine.TurnTimeout = 45 * time.Second
	newCfg.Log.Level = "debug"

	require.NoError(t, r.Apply(newCfg, "manual"))

	require.Len(t, received, 2)
	paths := []string{received[0].Path, received[1].Path}
	assert.Contains(t, paths, "Engine.TurnTimeout")
	assert.Contains(t, paths, "Log.Level")
	for _, c := range received {
		assert.Equal(t, "manual", c.Source)
		assert.True(t, c.Applied)
		// 非敏感字段保留具体值
		assert.NotEqual(t, "[REDACTED]", c.NewValue)
	}
}

func TestReloader_Apply_RedactsSensitiveFields(t *testing.T) {
	r := NewReloader(DefaultConfig())

	newCfg := DefaultConfig()
	newCfg.Redis.Password = "hunter2"
	newCfg.Providers = []ProviderConfig{
		{Name: "pro", Type: "openai", APIKey: "sk-secret", Model: "gpt-4o"},
	}

	require.NoError(t, r.Apply(newCfg, "manual"))

	changes := r.ChangeLog(0)
	var sawPassword, sawProviders bool
	for _, c := range changes {
		switch c.Path {
		case "Redis.Password":
			sawPassword = true
			assert.Equal(t, "[REDACTED]", c.OldValue)
			assert.Equal(t, "[REDACTED]", c.NewValue)
		case "Providers":
			sawProviders = true
			// 后端列表内嵌 API Key，必须整体脱敏
			assert.Equal(t, "[REDACTED]", c.NewValue)
		}
	}
	assert.True(t, sawPassword, "Redis.Password change should be logged")
	assert.True(t, sawProviders, "Providers change should be logged")
}

func TestReloader_Apply_RequiresRestartFlag(t *testing.T) {
	r := NewReloader(DefaultConfig())

	newCfg := DefaultConfig()
	newCfg.Server.MetricsAddr = ":7070"
	newCfg.Engine.TurnTimeout = 40 * time.Second

	require.NoError(t, r.Apply(newCfg, "manual"))

	byPath := make(map[string]Change)
	for _, c := range r.ChangeLog(0) {
		byPath[c.Path] = c
	}

	require.Contains(t, byPath, "Server.MetricsAddr")
	assert.True(t, byPath["Server.MetricsAddr"].RequiresRestart)

	require.Contains(t, byPath, "Engine.TurnTimeout")
	assert.False(t, byPath["Engine.TurnTimeout"].RequiresRestart)
}

func TestReloader_Apply_ValidationHookRejects(t *testing.T) {
	r := NewReloader(DefaultConfig(),
		WithValidateFunc(func(newConfig *Config) error {
			if newConfig.Engine.MaxRetries > 3 {
				return fmt.Errorf("retry budget too large")
			}
			return nil
		}),
	)

	newCfg := DefaultConfig()
	newCfg.Engine.MaxRetries = 10

	err := r.Apply(newCfg, "manual")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry budget too large")

	// 当前配置保持不变
	assert.Equal(t, 1, r.Current().Engine.MaxRetries)
	assert.Equal(t, 1, r.Version())

	// 变更日志记录被拒绝的尝试
	changes := r.ChangeLog(0)
	require.NotEmpty(t, changes)
	last := changes[len(changes)-1]
	assert.Equal(t, "(validation_hook)", last.Path)
	assert.False(t, last.Applied)
}

// --- 回滚测试 ---

func TestReloader_Apply_CallbackErrorRollsBack(t *testing.T) {
	r := NewReloader(DefaultConfig())

	var rollbackEvent *RollbackEvent
	r.OnRollback(func(event RollbackEvent) {
		rollbackEvent = &event
	})

	r.OnReload(func(oldConfig, newConfig *Config) error {
		return fmt.Errorf("downstream rejected new config")
	})

	newCfg := DefaultConfig()
	newCfg.Engine.TurnTimeout = 2 * time.Minute

	err := r.Apply(newCfg, "manual")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "callback failed")

	// 配置回滚到旧值
	assert.Equal(t, 30*time.Second, r.Current().Engine.TurnTimeout)

	require.NotNil(t, rollbackEvent)
	assert.Contains(t, rollbackEvent.Reason, "callback error")
	assert.Equal(t, 1, rollbackEvent.Version)
	assert.Equal(t, 30*time.Second, rollbackEvent.RestoredConfig.Engine.TurnTimeout)
	assert.Equal(t, 2*time.Minute, rollbackEvent.FailedConfig.Engine.TurnTimeout)
}

func TestReloader_Apply_CallbackPanicRollsBack(t *testing.T) {
	r := NewReloader(DefaultConfig())

	r.OnReload(func(oldConfig, newConfig *Config) error {
		panic("callback exploded")
	})

	newCfg := DefaultConfig()
	newCfg.Log.Level = "debug"

	err := r.Apply(newCfg, "manual")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")

	assert.Equal(t, "info", r.Current().Log.Level)
}

func TestReloader_Rollback_Manual(t *testing.T) {
	r := NewReloader(DefaultConfig())

	// 没有上一个配置时回滚失败
	err := r.Rollback()
	assert.Error(t, err)

	newCfg := DefaultConfig()
	newCfg.Engine.DefaultMaxTokens = 4096
	require.NoError(t, r.Apply(newCfg, "manual"))
	require.Equal(t, 4096, r.Current().Engine.DefaultMaxTokens)

	require.NoError(t, r.Rollback())
	assert.Equal(t, 1024, r.Current().Engine.DefaultMaxTokens)

	// 回滚会记入变更日志
	changes := r.ChangeLog(0)
	last := changes[len(changes)-1]
	assert.Equal(t, "rollback", last.Source)
}

// --- 历史与变更日志 ---

func TestReloader_History_RingBuffer(t *testing.T) {
	r := NewReloader(DefaultConfig(), WithMaxHistory(3))

	for i := 0; i < 5; i++ {
		cfg := DefaultConfig()
		cfg.Engine.TurnTimeout = time.Duration(40+i) * time.Second
		require.NoError(t, r.Apply(cfg, "manual"))
	}

	history := r.History()
	require.Len(t, history, 3)
	// init=1，五次 Apply 到 6；环形缓冲保留最后三个
	assert.Equal(t, 4, history[0].Version)
	assert.Equal(t, 5, history[1].Version)
	assert.Equal(t, 6, history[2].Version)
	assert.Equal(t, 6, r.Version())
}

func TestReloader_ChangeLog_Limit(t *testing.T) {
	r := NewReloader(DefaultConfig())

	newCfg := DefaultConfig()
	newCfg.Engine.TurnTimeout = 40 * time.Second
	newCfg.Engine.MaxRetries = 2
	newCfg.Log.Level = "debug"
	require.NoError(t, r.Apply(newCfg, "manual"))

	all := r.ChangeLog(0)
	require.Len(t, all, 3)

	limited := r.ChangeLog(2)
	require.Len(t, limited, 2)
	// 返回的是最近的两条
	assert.Equal(t, all[1], limited[0])
	assert.Equal(t, all[2], limited[1])
}

// --- 从文件重载 ---

func TestReloader_ReloadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "synapse.yaml")

	content := `
engine:
  turn_timeout: 45s
log:
  level: debug
`
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))

	r := NewReloader(DefaultConfig(), WithReloadPath(tmpFile))

	require.NoError(t, r.ReloadFromFile())

	cfg := r.Current()
	assert.Equal(t, 45*time.Second, cfg.Engine.TurnTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestReloader_ReloadFromFile_InvalidConfigKept(t *testing.T) {
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "synapse.yaml")

	// turn_timeout 为 0 无法通过验证
	content := `
engine:
  turn_timeout: 0s
`
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))

	r := NewReloader(DefaultConfig(), WithReloadPath(tmpFile))

	err := r.ReloadFromFile()
	require.Error(t, err)

	// 当前配置保持默认值
	assert.Equal(t, 30*time.Second, r.Current().Engine.TurnTimeout)
}

func TestReloader_ReloadFromFile_NoPath(t *testing.T) {
	r := NewReloader(DefaultConfig())

	err := r.ReloadFromFile()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no config path")
}

// --- 集成测试 ---

func TestReload_Integration_FileWatch(t *testing.T) {
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "synapse.yaml")

	initial := `
log:
  level: info
`
	require.NoError(t, os.WriteFile(tmpFile, []byte(initial), 0644))

	r := NewReloader(DefaultConfig(),
		WithReloadPath(tmpFile),
		WithReloadWatcherOptions(
			WithPollInterval(20*time.Millisecond),
			WithDebounceDelay(20*time.Millisecond),
		),
	)

	var mu sync.Mutex
	var reloads int
	r.OnReload(func(oldConfig, newConfig *Config) error {
		mu.Lock()
		reloads++
		mu.Unlock()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, r.Start(ctx))
	defer r.Stop()

	// 等待监听器就绪并确保修改时间可区分
	time.Sleep(50 * time.Millisecond)

	updated := `
log:
  level: debug
`
	require.NoError(t, os.WriteFile(tmpFile, []byte(updated), 0644))

	assert.Eventually(t, func() bool {
		return r.Current().Log.Level == "debug"
	}, 3*time.Second, 20*time.Millisecond, "file change should trigger reload")

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, reloads, 1)
}
