// Copyright 2026 AgentRun Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package types provides the core data model shared across the agentrun engine.
This package has ZERO dependencies on other agentrun packages to avoid
circular imports. All other packages should import types from here.

Core types:

  - Message / Role / ToolCall — the append-only conversation transcript
  - ToolOutcome — tagged result of a single tool invocation attempt
  - DeferredToolCall / PendingToolCall — calls awaiting external resolution
  - TokenUsage — elementwise-additive usage counters
  - UsageLimits — optional ceilings on tokens, requests and tool calls
  - ToolSchema — a tool definition as presented to the model
*/
package types
