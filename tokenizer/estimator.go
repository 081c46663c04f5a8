package tokenizer

import "github.com/BaSui01/agentrun/types"

const (
	// 平均 1 个 token ≈ 4 个英文字符，中文约 1.5 个字符
	englishCharsPerToken = 4.0
	chineseCharsPerToken = 1.5

	// 每条消息的固定元数据开销（角色、格式）
	messageOverhead = 4
	// 会话结束开销
	conversationOverhead = 3
)

// Estimator counts tokens by character-class heuristics. It needs no encoding
// data, works for any model, and overshoots slightly rather than undershooting
// so that limit checks stay conservative.
type Estimator struct{}

// NewEstimator 创建基于估算的计数器。
func NewEstimator() *Estimator { return &Estimator{} }

// CountTokens implements Counter.
func (e *Estimator) CountTokens(text string) int {
	if text == "" {
		return 0
	}

	var chinese, other int
	for _, r := range text {
		if r >= 0x4E00 && r <= 0x9FA5 {
			chinese++
		} else {
			other++
		}
	}

	tokens := float64(chinese)/chineseCharsPerToken + float64(other)/englishCharsPerToken
	return int(tokens) + 1
}

// CountMessages implements Counter.
func (e *Estimator) CountMessages(msgs []types.Message) int {
	total := conversationOverhead
	for _, msg := range msgs {
		total += messageOverhead
		total += e.CountTokens(msg.Content)
		if msg.Name != "" {
			total += e.CountTokens(msg.Name)
		}
		if msg.ToolCallID != "" {
			total++
		}
		for _, tc := range msg.ToolCalls {
			total += e.CountTokens(tc.Name)
			total += len(tc.Arguments) / 4
		}
	}
	return total
}

// Name implements Counter.
func (e *Estimator) Name() string { return "estimator" }
