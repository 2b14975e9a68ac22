package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"debateai/internal/apperrors"
	"debateai/internal/middleware"
	"debateai/internal/service"
)

const (
	wsReadLimit    = maxTurnBodyBytes
	wsRequestWait  = 60 * time.Second
	wsWriteWait    = 10 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingInterval = 54 * time.Second
)

// 定義 WebSocket 升級器
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // 跨域限制由前端代理處理
	},
}

// wsEvent 是以 JSON 文字訊息送出的控制訊息，模型輸出則以二進位訊息送出
type wsEvent struct {
	Type        string `json:"type"`
	Model       string `json:"model,omitempty"`
	Speaker     string `json:"speaker,omitempty"`
	OrderNumber int    `json:"order_number,omitempty"`
	Interrupted bool   `json:"interrupted,omitempty"`
	Status      int    `json:"status,omitempty"`
	Error       string `json:"error,omitempty"`
}

// WebSocketHandler 以 WebSocket 串流回合
type WebSocketHandler struct {
	turnService *service.TurnService
	logger      *slog.Logger
}

// NewWebSocketHandler 創建一個新的 WebSocketHandler 實例
func NewWebSocketHandler(turnService *service.TurnService, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{turnService: turnService, logger: logger}
}

// HandleTurn 處理 GET /v1/debate/:id/turn/ws
//
// 連線後第一個客戶端訊息是回合請求（與 HTTP 版本相同的 JSON），
// 伺服器依序送出 meta、模型輸出、done；請求失敗時送出 error 後關閉。
func (h *WebSocketHandler) HandleTurn(c *gin.Context) {
	// 升級 HTTP 連接為 WebSocket 連接
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsRequestWait))
	_, body, err := conn.ReadMessage()
	if err != nil {
		h.logger.Info("no turn request received", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	prepared, err := h.turnService.Prepare(ctx, c.Param("id"), body, middleware.CallerFrom(c))
	if err != nil {
		_ = writeEvent(conn, wsEvent{Type: "error", Status: apperrors.HTTPStatus(err), Error: errorMessage(apperrors.HTTPStatus(err), err)})
		closeNormal(conn)
		return
	}

	err = writeEvent(conn, wsEvent{
		Type:        "meta",
		Model:       prepared.Model,
		Speaker:     string(prepared.Speaker),
		OrderNumber: prepared.OrderNumber,
	})
	if err != nil {
		prepared.Abort()
		return
	}

	// 持續讀取以偵測客戶端關閉
	go h.readPump(conn, cancel)
	stopPing := h.pingLoop(conn, cancel)

	result := prepared.Stream(ctx, &wsWriter{conn: conn})
	stopPing()

	if ctx.Err() != nil {
		return
	}
	_ = writeEvent(conn, wsEvent{Type: "done", Interrupted: result.Interrupted})
	closeNormal(conn)
}

// readPump 丟棄客戶端訊息，連線中斷時取消回合
func (h *WebSocketHandler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Info("websocket closed", "error", err)
			}
			return
		}
	}
}

// pingLoop 定期送出心跳包，回傳的函式會停止心跳
func (h *WebSocketHandler) pingLoop(conn *websocket.Conn, cancel context.CancelFunc) func() {
	ticker := time.NewTicker(wsPingInterval)
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
					cancel()
					return
				}
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}

// wsWriter 將每次 Write 轉成一個二進位訊息
type wsWriter struct {
	conn *websocket.Conn
}

func (w *wsWriter) Write(p []byte) (int, error) {
	_ = w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func writeEvent(conn *websocket.Conn, event wsEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func closeNormal(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(wsWriteWait))
}
