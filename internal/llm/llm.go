// Package llm 封裝語言模型服務：模型目錄、串流補全、斷詞計數與 token 預算。
package llm

import (
	"context"
)

// Role 為送給模型的訊息角色
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest 描述一次串流補全
type CompletionRequest struct {
	Model     string
	Messages  []Message
	MaxTokens int
	// Metadata 以 HTTP header 形式轉送給模型服務（例如 debate id、user id）
	Metadata map[string]string
}

// Stream 逐段讀取模型輸出，結束時 Recv 回傳 io.EOF
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Provider 是模型服務的抽象
//
// StreamCompletion 必須在回傳前確認模型已開始輸出：
// 內容審查、額度限制等拒絕要以 apperrors.ErrProviderRejected 回報，
// 連線失敗或逾時以 apperrors.ErrProviderUnavailable 回報。
type Provider interface {
	StreamCompletion(ctx context.Context, req CompletionRequest) (Stream, error)
	// ShortTitle 為辯論主題產生簡短標題
	ShortTitle(ctx context.Context, model, topic string) (string, error)
}
