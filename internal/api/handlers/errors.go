package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"debateai/internal/apperrors"
)

// retryAfterSeconds 是可重試錯誤建議的等待秒數
const retryAfterSeconds = "5"

// respondError 依錯誤分類回傳狀態碼，500 不會把內部錯誤訊息回給呼叫者
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	status := apperrors.HTTPStatus(err)
	if apperrors.IsRetryable(err) {
		c.Header("Retry-After", retryAfterSeconds)
	}

	c.AbortWithStatusJSON(status, gin.H{"error": errorMessage(status, err)})
}

func errorMessage(status int, err error) string {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return "request body too large"
	case status == http.StatusInternalServerError:
		return "internal server error"
	default:
		return err.Error()
	}
}
