package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"debateai/internal/api/handlers"
	"debateai/internal/middleware"
	"debateai/internal/service"
)

func SetupRoutes(r *gin.Engine, services *service.Services, logger *slog.Logger) {
	// 初始化 handlers
	authHandler := handlers.NewAuthHandler(services.User)
	debateHandler := handlers.NewDebateHandler(services.Debate)
	turnHandler := handlers.NewTurnHandler(services.Turn)
	wsHandler := handlers.NewWebSocketHandler(services.Turn, logger.With("component", "websocket"))

	// 處理 404 錯誤
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "route not found",
		})
	})

	// API 路由群組，所有路由都會解析呼叫者身分（可能是匿名）
	v1 := r.Group("/v1")
	v1.Use(middleware.Authenticate(services.Identity))

	// 公開路由
	{
		v1.POST("/register", authHandler.Register)
		v1.POST("/login", authHandler.Login)

		// 可用的模型
		v1.GET("/models", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"models": services.Catalog.IDs()})
		})

		// 基本的健康檢查
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status": "ok",
			})
		})

		// 辯論與回合，匿名呼叫者以 userId 識別
		v1.POST("/debate", debateHandler.CreateDebate)
		v1.GET("/debate/:id", debateHandler.GetDebate)
		v1.GET("/debate/:id/turns", debateHandler.ListTurns)
		v1.POST("/debate/:id/turn", turnHandler.Turn)
		v1.GET("/debate/:id/turn/ws", wsHandler.HandleTurn)
	}

	// 需要驗證的路由
	authorized := v1.Group("/")
	authorized.Use(middleware.RequireAuth())
	{
		authorized.GET("/me", authHandler.Me)
		authorized.GET("/debates", debateHandler.ListDebates)
	}
}

// NewRouter 建立已掛上中間件與路由的 gin.Engine
func NewRouter(services *service.Services, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))
	SetupRoutes(r, services, logger)
	return r
}
