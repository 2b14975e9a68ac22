// Package apperrors 定義回合處理流程中的錯誤分類，以及對應的 HTTP 狀態碼。
//
// 各層以 fmt.Errorf("...: %w", ErrXxx) 包裝哨兵錯誤，呼叫端用 errors.Is 判斷。
package apperrors

import (
	"context"
	"errors"
	"net/http"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidTurnRequest = errors.New("invalid turn request")
	ErrInvalidSequence    = errors.New("invalid turn sequence")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrPlanRequired       = errors.New("pro plan required")
	ErrInsufficientBudget = errors.New("not enough tokens remaining for response")
	ErrConflict           = errors.New("already exists")

	// ErrProviderRejected 模型服務拒絕請求（內容審查、額度等）
	ErrProviderRejected = errors.New("request rejected by model provider")
	// ErrRateLimited 與 ErrProviderRejected 一起包裝，用來回傳 429
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrProviderUnavailable 連線失敗或逾時，可重試
	ErrProviderUnavailable = errors.New("model provider unavailable")
	// ErrShuttingDown 服務關閉中，不再接受新的回合
	ErrShuttingDown = errors.New("server is shutting down")
)

// HTTPStatus 將錯誤對應到 HTTP 狀態碼，未分類的錯誤回傳 500
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidTurnRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidSequence), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrPlanRequired):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrInsufficientBudget):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrProviderRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrProviderUnavailable), errors.Is(err, ErrShuttingDown), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IsRetryable 判斷呼叫端是否可以稍後重送同一個請求
func IsRetryable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable) ||
		errors.Is(err, ErrShuttingDown) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, context.DeadlineExceeded)
}
