package streaming

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/BaSui01/agentrun/agent"
	"github.com/BaSui01/agentrun/config"
)

// Runner 是流式运行入口。*agent.Agent 满足该接口。
type Runner interface {
	RunStream(ctx context.Context, prompt string, opts ...agent.RunOption) <-chan agent.StreamEvent
}

// RunRequest 是客户端在连接建立后发送的首帧。
type RunRequest struct {
	Prompt string `json:"prompt"`
}

// Frame 是一条事件的线上表示。错误事件以字符串形式携带错误文本。
type Frame struct {
	Type          agent.StreamEventType `json:"type"`
	Content       string                `json:"content,omitempty"`
	ToolCallID    string                `json:"tool_call_id,omitempty"`
	ToolName      string                `json:"tool_name,omitempty"`
	ArgumentDelta string                `json:"argument_delta,omitempty"`
	Usage         json.RawMessage       `json:"usage,omitempty"`
	Output        string                `json:"output,omitempty"`
	RunID         string                `json:"run_id,omitempty"`
	ToolOutcome   string                `json:"tool_outcome,omitempty"`
	ToolResult    string                `json:"tool_result,omitempty"`
	Error         string                `json:"error,omitempty"`
}

// frameOf 把内部事件转换为线上帧。
func frameOf(ev agent.StreamEvent) Frame {
	f := Frame{
		Type:          ev.Type,
		Content:       ev.Content,
		ToolCallID:    ev.ToolCallID,
		ToolName:      ev.ToolName,
		ArgumentDelta: ev.ArgumentDelta,
	}
	if ev.Usage != nil {
		if data, err := json.Marshal(ev.Usage); err == nil {
			f.Usage = data
		}
	}
	if ev.Execution != nil {
		f.ToolCallID = ev.Execution.Call.ID
		f.ToolName = ev.Execution.Call.Name
		f.ToolOutcome = string(ev.Execution.Outcome.Kind)
		f.ToolResult = ev.Execution.Message().Content
	}
	if ev.Result != nil {
		f.Output = ev.Result.Output
		f.RunID = ev.Result.RunID
	}
	if ev.Err != nil {
		f.Error = ev.Err.Error()
	}
	return f
}

// Server 把运行循环的事件流挂到一个 WebSocket 端点上。
type Server struct {
	runner       Runner
	logger       *zap.Logger
	addr         string
	eventBuffer  int
	writeTimeout time.Duration
}

// ServerOption 配置 Server。
type ServerOption func(*Server)

// WithLogger 设置日志器。
func WithLogger(logger *zap.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// WithWriteTimeout 设置单帧写超时，默认 10s。
func WithWriteTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.writeTimeout = d }
}

// WithEventBuffer 设置运行循环与连接写之间的事件缓冲，缓冲未满时
// 慢客户端不会反压运行循环。0 表示不缓冲。
func WithEventBuffer(n int) ServerOption {
	return func(s *Server) { s.eventBuffer = n }
}

// WithAddr 设置 [Server.ListenAndServe] 的监听地址。
func WithAddr(addr string) ServerOption {
	return func(s *Server) { s.addr = addr }
}

// NewServer 创建事件转发服务。
func NewServer(runner Runner, opts ...ServerOption) *Server {
	s := &Server{
		runner:       runner,
		logger:       zap.NewNop(),
		writeTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "stream_server"))
	return s
}

// NewServerFromConfig 按配置节创建事件转发服务，后续 Option 仍可覆盖。
func NewServerFromConfig(runner Runner, c config.StreamConfig, opts ...ServerOption) *Server {
	base := []ServerOption{WithAddr(c.Addr), WithEventBuffer(c.EventBuffer)}
	if c.WriteTimeout > 0 {
		base = append(base, WithWriteTimeout(c.WriteTimeout))
	}
	return NewServer(runner, append(base, opts...)...)
}

// ServeHTTP 升级连接，读取运行请求，转发事件直至终止帧。
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "server shutting down")

	ctx := r.Context()

	req, err := s.readRequest(ctx, conn)
	if err != nil {
		s.logger.Warn("bad run request", zap.Error(err))
		conn.Close(websocket.StatusPolicyViolation, "bad run request")
		return
	}

	events := buffered(s.runner.RunStream(ctx, req.Prompt), s.eventBuffer)
	if err := s.forward(ctx, conn, events); err != nil {
		s.logger.Warn("event forwarding aborted", zap.Error(err))
		return
	}

	conn.Close(websocket.StatusNormalClosure, "run finished")
}

// readRequest 读取并解码首帧。
func (s *Server) readRequest(ctx context.Context, conn *websocket.Conn) (*RunRequest, error) {
	_, data, err := conn.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("websocket read: %w", err)
	}
	var req RunRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("unmarshal run request: %w", err)
	}
	if req.Prompt == "" {
		return nil, fmt.Errorf("empty prompt")
	}
	return &req, nil
}

// buffered 在运行循环与连接写之间插入一段缓冲。n <= 0 时原样返回。
func buffered(in <-chan agent.StreamEvent, n int) <-chan agent.StreamEvent {
	if n <= 0 {
		return in
	}
	out := make(chan agent.StreamEvent, n)
	go func() {
		defer close(out)
		for ev := range in {
			out <- ev
		}
	}()
	return out
}

// Serve 在给定监听器上提供事件端点，ctx 取消后优雅关停。
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s}
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	err := srv.Serve(ln)
	<-done
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ListenAndServe 监听配置的地址并提供事件端点。
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// forward 把事件通道排空到连接上。事件通道由 RunStream 负责关闭。
func (s *Server) forward(ctx context.Context, conn *websocket.Conn, events <-chan agent.StreamEvent) error {
	writer := newFrameWriter(conn, s.writeTimeout)
	for ev := range events {
		if err := writer.write(ctx, frameOf(ev)); err != nil {
			return err
		}
	}
	return nil
}

// frameWriter 序列化写帧。WebSocket 不支持并发写，用 mutex 保护。
type frameWriter struct {
	conn    *websocket.Conn
	timeout time.Duration
	mu      sync.Mutex
}

func newFrameWriter(conn *websocket.Conn, timeout time.Duration) *frameWriter {
	return &frameWriter{conn: conn, timeout: timeout}
}

func (w *frameWriter) write(ctx context.Context, frame Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	wctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if err := w.conn.Write(wctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

// Dial 建立到事件端点的客户端连接并发送运行请求，返回解码后的帧通道。
// 连接关闭或 ctx 取消后通道关闭。
func Dial(ctx context.Context, url, prompt string) (<-chan Frame, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	req, err := json.Marshal(RunRequest{Prompt: prompt})
	if err != nil {
		conn.Close(websocket.StatusInternalError, "encode request")
		return nil, fmt.Errorf("marshal run request: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, req); err != nil {
		conn.Close(websocket.StatusInternalError, "send request")
		return nil, fmt.Errorf("send run request: %w", err)
	}

	frames := make(chan Frame)
	go func() {
		defer close(frames)
		defer conn.Close(websocket.StatusNormalClosure, "client done")
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var frame Frame
			if err := json.Unmarshal(data, &frame); err != nil {
				continue
			}
			select {
			case frames <- frame:
			case <-ctx.Done():
				return
			}
		}
	}()
	return frames, nil
}
