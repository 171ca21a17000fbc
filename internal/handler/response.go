// Package handler 提供 HTTP 请求处理器
package handler

import (
	"errors"
	"net/http"

	"channel_chat_server/pkg/errorx"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ResponseData 统一响应结构体
type ResponseData struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}

// HandleSuccess 返回成功响应
func HandleSuccess(c *gin.Context, data any) {
	c.JSON(http.StatusOK, ResponseData{
		Code: errorx.CodeSuccess,
		Msg:  "success",
		Data: data,
	})
}

// HandleCreated 资源创建成功
func HandleCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, ResponseData{
		Code: errorx.CodeSuccess,
		Msg:  "success",
		Data: data,
	})
}

// HandleError 通用错误处理
// HTTP 状态码由业务错误码决定，内部错误只返回通用描述并记录日志
func HandleError(c *gin.Context, err error) {
	code := errorx.GetCode(err)
	status := errorx.HTTPStatus(code)
	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
			zap.Int("code", code),
			zap.Error(err),
		)
	}
	c.JSON(status, ResponseData{
		Code: code,
		Msg:  errorx.PublicMessage(err),
		Data: nil,
	})
}

// HandleParamError 处理参数绑定错误
// 校验器返回的 CodeError 已包含翻译后的原因，JSON 格式错误等返回通用提示
func HandleParamError(c *gin.Context, err error) {
	var codeErr *errorx.CodeError
	if errors.As(err, &codeErr) {
		c.JSON(http.StatusBadRequest, ResponseData{
			Code: codeErr.Code,
			Msg:  codeErr.Msg,
			Data: nil,
		})
		return
	}

	zap.L().Info("param bind error", zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.JSON(http.StatusBadRequest, ResponseData{
		Code: errorx.ErrInvalidParam.Code,
		Msg:  errorx.ErrInvalidParam.Msg,
		Data: nil,
	})
}
