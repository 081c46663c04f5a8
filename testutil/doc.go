// Copyright 2026 AgentRun Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 agentrun 测试的共享工具。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout，自动注册 Cleanup
  - 数据工具: MustJSON，简化测试数据构造
  - ScriptedModel: 按脚本逐轮回放的 llm.Model 实现，支持同步与流式，
    供运行循环测试注入确定性的模型行为
*/
package testutil
