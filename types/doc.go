/*
Package types 提供 Synapse 对话编排引擎的全局共享类型定义。

# 概述

types 是引擎最底层的公共包，不依赖任何内部包，为 dialogue、persona、llm、
config 等上层模块提供统一的类型契约。所有跨包共享的结构体、枚举和
错误码均定义于此，以避免循环依赖。

# 核心类型

  - Participant        — 会话参与者（后端标识 + 立场 + 人设）
  - DialogueTurn       — 单轮发言（轮次、发言者、内容、Token 用量）
  - DialogueSession    — 会话状态机（参与者、转录、轮次预算、终止原因）
  - DialogueResult     — 终态产物（完整转录 + 中立综述）
  - DialogueRequest    — 调用方请求（话题、模式、人设覆盖、采样参数）
  - Message / Role     — 发往补全后端的对话消息
  - Error / ErrorCode  — 结构化错误体系，含 Retryable、Provider 标记

# 主要能力

  - 状态机约束：DialogueSession.TransitionTo 仅允许 ACTIVE → 终态
  - 错误工具链：WrapError / AsError / IsErrorCode / IsRetryable
  - 常用错误构造：NewConfigurationError / NewTimeoutError / NewCancellationError
  - 请求校验：DialogueRequest.Validate（参与者数量、轮次范围、人设完整性）
*/
package types
