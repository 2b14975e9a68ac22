package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"debateai/internal/middleware"
	"debateai/internal/service"
)

// DebateHandler 處理辯論的建立與查詢
type DebateHandler struct {
	debateService *service.DebateService
}

func NewDebateHandler(debateService *service.DebateService) *DebateHandler {
	return &DebateHandler{debateService: debateService}
}

// CreateDebate 建立新辯論，登入用戶的辯論會綁定到帳號
func (h *DebateHandler) CreateDebate(c *gin.Context) {
	var input service.CreateDebateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	debate, err := h.debateService.CreateDebate(c.Request.Context(), input, middleware.CallerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, debate)
}

func (h *DebateHandler) GetDebate(c *gin.Context) {
	debate, err := h.debateService.GetDebate(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, debate)
}

func (h *DebateHandler) ListTurns(c *gin.Context) {
	turns, err := h.debateService.ListTurns(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"turns": turns})
}

// ListDebates 列出目前登入用戶的辯論
func (h *DebateHandler) ListDebates(c *gin.Context) {
	debates, err := h.debateService.ListDebates(c.Request.Context(), middleware.CallerFrom(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"debates": debates})
}
