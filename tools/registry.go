package tools

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/agentrun/types"
)

// Metadata describes per-tool execution settings.
type Metadata struct {
	// Timeout bounds one invocation attempt. Zero falls back to the
	// engine default; negative disables the timeout for this tool.
	Timeout time.Duration
	// MaxRetries is the tool-level retry budget on a retry outcome.
	// Nil falls back to the engine default.
	MaxRetries *int
	// RateLimit caps invocations of this tool. Nil means unlimited.
	RateLimit *RateLimitConfig
}

// RateLimitConfig defines a per-tool rate limit.
type RateLimitConfig struct {
	MaxCalls int           // maximum calls per window
	Window   time.Duration // time window
}

type registered struct {
	tool    Tool
	meta    Metadata
	limiter *rate.Limiter
}

// Registry holds the erased tool catalog. The catalog is built at
// registration time and treated as read-only while runs are in flight, so
// it is safe to share across concurrent runs.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*registered
	logger *zap.Logger
}

// NewRegistry 创建工具注册中心。
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		tools:  make(map[string]*registered),
		logger: logger,
	}
}

// Register adds a tool under its definition name.
func (r *Registry) Register(tool Tool, meta Metadata) error {
	def := tool.Definition()
	if def.Name == "" {
		return fmt.Errorf("tool definition has empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("tool %s already registered", def.Name)
	}

	entry := &registered{tool: tool, meta: meta}
	if meta.RateLimit != nil && meta.RateLimit.MaxCalls > 0 && meta.RateLimit.Window > 0 {
		// 令牌桶：窗口内均匀补充，突发上限为窗口配额
		limit := rate.Limit(float64(meta.RateLimit.MaxCalls) / meta.RateLimit.Window.Seconds())
		entry.limiter = rate.NewLimiter(limit, meta.RateLimit.MaxCalls)
	}
	r.tools[def.Name] = entry

	r.logger.Info("tool registered",
		zap.String("name", def.Name),
		zap.Duration("timeout", meta.Timeout),
	)
	return nil
}

// MustRegister panics on registration failure. Intended for setup code.
func (r *Registry) MustRegister(tool Tool, meta Metadata) {
	if err := r.Register(tool, meta); err != nil {
		panic(err)
	}
}

// Unregister removes a tool by name.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; !exists {
		return fmt.Errorf("tool %s not found", name)
	}
	delete(r.tools, name)
	return nil
}

// Get returns a tool and its metadata by name.
func (r *Registry) Get(name string) (Tool, Metadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.tools[name]
	if !ok {
		return nil, Metadata{}, &NotFoundError{Name: name}
	}
	return entry.tool, entry.meta, nil
}

// Has reports whether a tool is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// List returns all tool schemas in stable registration-independent order.
func (r *Registry) List() []types.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	schemas := make([]types.ToolSchema, 0, len(r.tools))
	for _, entry := range r.tools {
		schemas = append(schemas, entry.tool.Definition())
	}
	sortSchemas(schemas)
	return schemas
}

// allow consumes one rate-limit token for the named tool.
func (r *Registry) allow(name string) bool {
	r.mu.RLock()
	entry, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok || entry.limiter == nil {
		return true
	}
	return entry.limiter.Allow()
}

func sortSchemas(schemas []types.ToolSchema) {
	sort.Slice(schemas, func(i, j int) bool { return schemas[i].Name < schemas[j].Name })
}
