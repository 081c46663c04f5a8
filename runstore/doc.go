// Copyright 2026 AgentRun Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package runstore persists PausedAgentRun snapshots so deferred runs can be
resolved out of process. The run engine itself holds no persisted state; the
caller saves a snapshot when a run pauses and loads it back once resolutions
arrive.

Two implementations are provided: an in-memory store for tests and
single-process setups, and a Redis store for distributed deployments.
*/
package runstore
