package llm

import (
	"encoding/json"
	"fmt"

	"debateai/internal/apperrors"
)

// MinCompletionTokens 低於此值的回覆通常會被截斷而沒有意義
const MinCompletionTokens = 50

// Budget 計算可用於回覆的 token 數：min(上下文長度 - prompt token 數, 模型輸出上限)
// 訊息以 JSON 序列化後計數，必須在呼叫模型之前檢查
func Budget(messages []Message, spec ModelSpec, tokenizer Tokenizer) (int, error) {
	payload, err := json.Marshal(messages)
	if err != nil {
		return 0, err
	}

	promptTokens, err := tokenizer.Count(spec.Encoding, string(payload))
	if err != nil {
		return 0, fmt.Errorf("count prompt tokens: %w", err)
	}

	remaining := min(spec.ContextWindow-promptTokens, spec.MaxCompletionTokens)
	if remaining < MinCompletionTokens {
		return 0, fmt.Errorf("prompt uses %d of %d tokens for %s: %w",
			promptTokens, spec.ContextWindow, spec.ID, apperrors.ErrInsufficientBudget)
	}
	return remaining, nil
}
