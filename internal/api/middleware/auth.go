package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/pairlink/pkg/jwtauth"
	"github.com/d60-Lab/pairlink/pkg/response"
)

const ContextUserID = "userID"

// Auth 解析 Bearer token，把调用者身份放入上下文；
// 下游 handler 必须显式取出并作为参数传给服务层
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			response.Unauthorized(c, "missing bearer token")
			c.Abort()
			return
		}
		userID, err := jwtauth.Parse(secret, token)
		if err != nil {
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}
		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// CallerID 从上下文取出已认证的调用者
func CallerID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
