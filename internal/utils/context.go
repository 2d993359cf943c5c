package utils

import (
	"errors"

	"github.com/gin-gonic/gin"
)

// ContextUserIDKey JWT 中间件写入的用户 ID 键
const ContextUserIDKey = "user_id"

var ErrNoUser = errors.New("user id not found in context")

// GetUserIDFromContext 获取当前登录用户ID
func GetUserIDFromContext(ctx *gin.Context) (uint, error) {
	v, ok := ctx.Get(ContextUserIDKey)
	if !ok {
		return 0, ErrNoUser
	}
	id, ok := v.(uint)
	if !ok || id == 0 {
		return 0, ErrNoUser
	}
	return id, nil
}

// ParsePaginationParams 解析分页参数，page 从 1 开始，size 限制在 [1,100]
func ParsePaginationParams(ctx *gin.Context) (page, size int, err error) {
	page = StringToInt(ctx.DefaultQuery("page", "1"))
	size = StringToInt(ctx.DefaultQuery("size", "10"))
	if page < 1 {
		return 0, 0, errors.New("invalid page")
	}
	if size < 1 || size > 100 {
		return 0, 0, errors.New("invalid size")
	}
	return page, size, nil
}
