/*
包 server 为指标与健康检查端点提供 HTTP 服务器生命周期管理，
支持非阻塞启动、优雅关闭与系统信号监听。

Manager 封装 net/http.Server，统一处理监听、服务、关闭与错误
传播。引擎进程通过它暴露 Prometheus 指标和后端健康状态，收到
SIGINT/SIGTERM 后在配置的超时内完成请求排空。
*/
package server
