// Copyright 2026 AgentRun Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package llm defines the model abstraction consumed by the run loop.

The engine talks to a language model exclusively through the Model interface:
a blocking Completion call and an incremental Stream call. Wire-format
encoding and decoding for a concrete provider is entirely the Model
implementation's responsibility — nothing in this package knows about HTTP
or any provider protocol.

Errors returned by a Model should be *llm.Error values carrying a stable
ErrorCode so the retry layer can classify transient failures.
*/
package llm
