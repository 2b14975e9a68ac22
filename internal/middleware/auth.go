package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"debateai/internal/identity"
)

const callerKey = "caller"

// Authenticate 解析 Authorization 標頭並把呼叫者放進上下文
// 沒有或無效的 token 視為匿名呼叫者，不會中斷請求
func Authenticate(resolver *identity.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := resolver.Resolve(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve caller"})
			return
		}
		c.Set(callerKey, caller)
		c.Next()
	}
}

// RequireAuth 拒絕未登入的請求，必須放在 Authenticate 之後
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CallerFrom(c).Authenticated {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}
		c.Next()
	}
}

// CallerFrom 取得 Authenticate 設定的呼叫者
func CallerFrom(c *gin.Context) identity.Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(identity.Caller); ok {
			return caller
		}
	}
	return identity.Anonymous()
}
