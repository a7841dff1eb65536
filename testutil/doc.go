// Copyright 2026 Synapse Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供引擎测试的共享工具和辅助函数。

# 概述

testutil 包为整个项目的单元测试提供统一的辅助能力，
避免各包重复实现相似的测试基础设施。所有测试应优先使用此包
中的工具函数和 Mock 实现。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 异步辅助: WaitFor / WaitForChannel，支持超时轮询与通道等待
  - 数据工具: MustJSON / MustParseJSON，简化测试数据构造
  - Mock 后端: MockCompletion，可编排的补全服务替身，
    支持应答脚本、错误注入、延迟模拟与调用记录

# 使用示例

	ctx := testutil.TestContext(t)
	backend := testutil.NewMockCompletion().WithContent("stub reply")
	res, err := backend.Complete(ctx, "backend-a", prompt, 1024, 0.7)
*/
package testutil
