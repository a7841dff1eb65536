/*
Package main 提供 Synapse 对话引擎的命令行入口。

# 概述

cmd/synapse 驱动一场完整的多模型对话：从 YAML 配置与环境变量装配引擎，
在前台执行辩论或共识会话并渲染逐轮文稿，支持 Prometheus 指标边车与
OpenTelemetry 上报。

# 主要能力

  - 子命令：run（执行一场对话）、health（探测后端）、profiles（列出画像档案）、version
  - run 支持对抗与共识两种模式、画像档案、外部背景材料、动态终止
  - --metrics 在会话期间暴露 /metrics、/healthz、/readyz
  - 信号处理：SIGINT/SIGTERM 取消会话，已完成的回合照常输出
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
