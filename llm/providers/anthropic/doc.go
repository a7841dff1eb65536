/*
# 概述

包 anthropic 提供 Anthropic Claude 系列模型的后端适配实现。
Claude API 与 OpenAI 格式有显著差异，本包负责将引擎的统一补全请求
映射到 Anthropic Messages API（/v1/messages），并处理认证、消息格式
与错误码的协议转换。

# 协议差异

  - 认证使用 x-api-key 请求头（非 Bearer Token）
  - system 消息从 messages 数组中提取，单独传递到 system 字段
  - max_tokens 为必填字段，未指定时使用 4096
  - 响应 content 为分块数组，文本块按序拼接

# 错误映射

HTTP 错误统一经 providers.MapHTTPError 转换为 *types.Error；
529（overloaded_error）映射为可重试的 SERVICE_UNAVAILABLE。
*/
package anthropic
