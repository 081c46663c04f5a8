package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/BaSui01/agentrun/types"
)

// modelEncodings 将模型名称映射到其 tiktoken 编码。
var modelEncodings = map[string]string{
	"gpt-4o":        "o200k_base",
	"gpt-4o-mini":   "o200k_base",
	"gpt-4-turbo":   "cl100k_base",
	"gpt-4":         "cl100k_base",
	"gpt-3.5-turbo": "cl100k_base",
}

// Tiktoken counts tokens with the exact encoding of OpenAI-family models.
// Encoding data is loaded lazily on first use.
type Tiktoken struct {
	model    string
	encoding string
	enc      *tiktoken.Tiktoken
	once     sync.Once
	initErr  error
}

// NewTiktoken 为给定模型创建 tiktoken 计数器。未知模型回退到 cl100k_base。
func NewTiktoken(model string) *Tiktoken {
	encoding, ok := modelEncodings[model]
	if !ok {
		// 取最长命中前缀："gpt-4" 也是 "gpt-4o-..." 的前缀
		best := ""
		for prefix, e := range modelEncodings {
			if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
				best, encoding, ok = prefix, e, true
			}
		}
	}
	if !ok {
		encoding = "cl100k_base"
	}
	return &Tiktoken{model: model, encoding: encoding}
}

func (t *Tiktoken) init() error {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			t.initErr = fmt.Errorf("init tiktoken encoding %s: %w", t.encoding, err)
			return
		}
		t.enc = enc
	})
	return t.initErr
}

// CountTokens implements Counter. On encoding init failure it falls back to
// the estimator rather than reporting zero.
func (t *Tiktoken) CountTokens(text string) int {
	if err := t.init(); err != nil {
		return NewEstimator().CountTokens(text)
	}
	return len(t.enc.Encode(text, nil, nil))
}

// CountMessages implements Counter.
func (t *Tiktoken) CountMessages(msgs []types.Message) int {
	if err := t.init(); err != nil {
		return NewEstimator().CountMessages(msgs)
	}

	total := conversationOverhead
	for _, msg := range msgs {
		// 每条消息的开销: <|start|>role\n content<|end|>\n
		total += messageOverhead
		total += len(t.enc.Encode(msg.Content, nil, nil))
		total += len(t.enc.Encode(string(msg.Role), nil, nil))
		for _, tc := range msg.ToolCalls {
			total += len(t.enc.Encode(tc.Name, nil, nil))
			total += len(tc.Arguments) / 4
		}
	}
	return total
}

// Name implements Counter.
func (t *Tiktoken) Name() string { return fmt.Sprintf("tiktoken[%s]", t.encoding) }
