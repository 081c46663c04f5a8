// Copyright 2026 AgentRun Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package tools provides the tool abstraction and the execution engine that
dispatches model-issued tool calls.

A Tool exposes a definition (name, description, JSON Schema) and an Invoke
method returning a types.ToolOutcome. Tools are registered once in a
Registry; registration erases the concrete type behind a uniform value.
Typed builds such a value from a plain Go function, deriving the argument
schema by reflection and decoding arguments before each call.

The Engine executes one call or a batch. Batches run sequentially in call
order and stop at the first deferred outcome. Each call gets its own retry
budget (distinct from the network-level retry policy) and an optional
timeout raced against the invocation.

The engine holds no cross-call state; any statefulness lives in tool
implementations, which are responsible for their own synchronization.
*/
package tools
