// Package observability 提供补全调用与对话会话的 OpenTelemetry 追踪和指标。
// 指标经全局 MeterProvider 导出，由 internal/telemetry 在进程启动时初始化。
package observability
