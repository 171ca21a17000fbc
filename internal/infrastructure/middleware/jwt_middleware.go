package middleware

import (
	"net/http"
	"strings"

	"channel_chat_server/pkg/constants"
	"channel_chat_server/pkg/errorx"
	"channel_chat_server/pkg/util/jwt"

	"github.com/gin-gonic/gin"
)

// JWTAuth 验证 Access Token 并将用户 ID 存入上下文
func JWTAuth(tokens *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "请先登录")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c, "Token 格式错误，请使用 Bearer Token")
			return
		}

		claims, err := tokens.ParseAccessToken(parts[1])
		if err != nil {
			abortUnauthorized(c, "Token 已过期或无效，请重新登录")
			return
		}

		c.Set(constants.CONTEXT_USER_ID, claims.UserID)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code": errorx.CodeUnauthorized,
		"msg":  msg,
		"data": nil,
	})
}
