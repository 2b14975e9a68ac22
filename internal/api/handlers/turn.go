package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"debateai/internal/apperrors"
	"debateai/internal/middleware"
	"debateai/internal/service"
)

const (
	// HeaderTurnModel 告訴呼叫者這個回合實際使用的模型
	HeaderTurnModel = "DebateAI-Turn-Model"

	maxTurnBodyBytes = 64 << 10
)

// TurnHandler 以 HTTP 串流回傳模型生成的回合
type TurnHandler struct {
	turnService *service.TurnService
}

func NewTurnHandler(turnService *service.TurnService) *TurnHandler {
	return &TurnHandler{turnService: turnService}
}

// Turn 處理 POST /v1/debate/:id/turn
// 開始串流之後發生的錯誤不會改變狀態碼，只會提早結束回應
func (h *TurnHandler) Turn(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxTurnBodyBytes))
	if err != nil {
		respondError(c, fmt.Errorf("%w: %w", apperrors.ErrInvalidTurnRequest, err))
		return
	}

	ctx := c.Request.Context()
	prepared, err := h.turnService.Prepare(ctx, c.Param("id"), body, middleware.CallerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Type", "application/octet-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header(HeaderTurnModel, prepared.Model)
	c.Status(http.StatusOK)

	result := prepared.Stream(ctx, c.Writer)
	if result.Interrupted {
		c.Abort()
	}
}
