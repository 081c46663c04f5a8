// Copyright 2026 AgentRun Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package agent implements the run loop that drives a model and a tool catalog
to a final, optionally structured, result.

# Overview

One loop iteration checks cancellation and usage ceilings, builds a request
from the full transcript, invokes the model through the retrying completer,
appends the assistant message, and resolves the response: return the output,
dispatch the requested tool calls, or fail. Three execution modes share this
single loop through the LoopObserver hooks:

  - Run blocks until an AgentResult or error.
  - RunStream delivers live events, including the model's own content and
    tool-argument deltas.
  - Iterate exposes each loop step for callers that want to drive or inspect
    the run step by step.

# Deferral

A tool may return a deferred outcome to hand control to a human or an
external system. The run then stops with a DeferredError carrying a
PausedAgentRun snapshot; Resume continues it once resolutions are available.
Resume is deliberately not idempotent: resuming the same snapshot twice
re-executes approved tools.
*/
package agent
