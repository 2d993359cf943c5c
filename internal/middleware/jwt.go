package middleware

import (
	"strings"

	"vocata/internal/utils"
	"vocata/pkgs/errcode"
	"vocata/pkgs/response"

	"github.com/gin-gonic/gin"
)

// JWTAuth 从 Authorization 头或 token 查询参数读取 token，
// 浏览器的 WebSocket 握手无法设置请求头，只能走查询参数
func JWTAuth(secret string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := bearerToken(ctx.GetHeader("Authorization"))
		if token == "" {
			token = ctx.Query("token")
		}
		if token == "" {
			response.UnauthorizedError(ctx, errcode.UnauthorizedError, "未登录")
			return
		}

		claims, err := utils.ParseToken(token, secret)
		if err != nil {
			response.UnauthorizedError(ctx, errcode.UnauthorizedError, "登录已失效")
			return
		}
		ctx.Set(utils.ContextUserIDKey, claims.UserID)
		ctx.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
