// Package metrics 提供会话与轮次的 Prometheus 指标采集。
//
// Collector 经 promauto 注册到默认 registry，由 HTTP 服务的 /metrics
// 端点暴露。指标覆盖会话终态、终止原因、活跃会话数、轮次时延与
// token 消耗，标签基数受控（mode、status、speaker 均为有限枚举）。
package metrics
