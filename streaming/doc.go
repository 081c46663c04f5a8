// Copyright 2026 AgentRun Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

// Package streaming 通过 WebSocket 对外转发运行循环的实时事件。
//
// Server 接受一条连接，读取客户端的运行请求，然后把 RunStream 产生的
// 每个事件编码为 JSON 帧发送给客户端，终止事件发送后正常关闭连接。
package streaming
