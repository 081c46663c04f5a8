package tokenizer

import "github.com/BaSui01/agentrun/types"

// Counter 定义 token 计数接口。
type Counter interface {
	// CountTokens 计算文本的 token 数量
	CountTokens(text string) int

	// CountMessages 计算消息列表的总 token 数（包含角色、工具调用等元数据开销）
	CountMessages(msgs []types.Message) int

	// Name 返回计数器标识
	Name() string
}
