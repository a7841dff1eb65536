/*
包 llm 提供统一的大语言模型接入层。

# 概述

本包屏蔽不同模型服务商在接口、鉴权和错误语义上的差异，对上层对话
编排暴露一致的补全请求与响应模型。参与者不直接持有服务商客户端，
而是通过 Service 按参与者 ID 路由到已注册的后端。

# 核心组件

  - [Provider]：单个后端的抽象，实现同步补全与健康检查
  - [Registry]：后端注册表，维护名称到 Provider 的映射与默认后端
  - [Service]：参与者到后端的路由层，负责绑定、超时与错误归一化
  - [ResilientProvider]：在任意 Provider 外侧叠加熔断与重试

# 子包

  - providers：OpenAI、Anthropic 及各 OpenAI 兼容厂商的适配实现
  - circuitbreaker：三态熔断器
  - retry：指数退避重试
  - tokenizer：Token 计数与估算
  - cache：综述结果的多级缓存
  - observability：OpenTelemetry 指标与追踪

# 错误处理

所有对外返回的错误均为 *types.Error，携带稳定的错误码、可重试标志
与来源服务商，上层据此决定重试或终止会话。
*/
package llm
