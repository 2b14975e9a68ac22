// Package middleware 提供了 HTTP 請求處理的中間件。
//
// Authenticate 解析 bearer token 並將呼叫者放進 gin.Context，
// RequireAuth 保護需要登入的路由，RequestLogger 以 slog 記錄請求。
package middleware
