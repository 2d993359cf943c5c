package response

import (
	"net/http"

	"vocata/pkgs/errcode"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PageData 分页数据
type PageData struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
}

// Success 成功响应
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, Response{Code: errcode.Success, Message: "success", Data: data})
}

// SuccessWithMessage 带消息的成功响应
func SuccessWithMessage(ctx *gin.Context, message string, data interface{}) {
	ctx.JSON(http.StatusOK, Response{Code: errcode.Success, Message: message, Data: data})
}

// PageSuccess 分页成功响应
func PageSuccess(ctx *gin.Context, list interface{}, total int64) {
	ctx.JSON(http.StatusOK, Response{
		Code:    errcode.Success,
		Message: "success",
		Data:    PageData{List: list, Total: total},
	})
}

// ParamError 参数错误
func ParamError(ctx *gin.Context, code int, message string) {
	ctx.JSON(http.StatusBadRequest, Response{Code: code, Message: message})
}

// UnauthorizedError 未授权
func UnauthorizedError(ctx *gin.Context, code int, message string) {
	ctx.AbortWithStatusJSON(http.StatusUnauthorized, Response{Code: code, Message: message})
}

// NotFoundError 资源不存在
func NotFoundError(ctx *gin.Context, code int, message string) {
	ctx.JSON(http.StatusNotFound, Response{Code: code, Message: message})
}

// InternalError 服务器内部错误
func InternalError(ctx *gin.Context, code int, message string) {
	ctx.JSON(http.StatusInternalServerError, Response{Code: code, Message: message})
}

// ServiceUnavailable 服务不可用
func ServiceUnavailable(ctx *gin.Context, code int, message string) {
	ctx.JSON(http.StatusServiceUnavailable, Response{Code: code, Message: message})
}
