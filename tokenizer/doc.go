// Copyright 2026 AgentRun Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package tokenizer provides token counting for transcripts, used by the run
engine to fill in usage numbers when a provider does not report them.

Two implementations are provided: a tiktoken-backed counter for models with
a known encoding, and a character-based estimator that needs no encoding
data and works for any model.
*/
package tokenizer
