package response

import (
	"fmt"
	"net/http"

	"codejudge/pkg/errors"
	"codejudge/pkg/utils/contextkey"
	"codejudge/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response is the JSON envelope of every API reply.
type Response struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
	Data    interface{}      `json:"data,omitempty"`
	Details interface{}      `json:"details,omitempty"`
	TraceID string           `json:"trace_id,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	SuccessWithMessage(c, "Success", data)
}

func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	write(c, http.StatusOK, Response{Code: errors.Success, Message: message, Data: data})
}

// Error maps err to its code's HTTP status. Server-side failures are logged with their stack,
// client errors at warn level.
func Error(c *gin.Context, err error) {
	appErr := errors.GetError(err)
	status := appErr.Code.HTTPStatus()

	fields := []zap.Field{
		zap.Int("code", int(appErr.Code)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(appErr),
	}
	if status >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), "request failed", append(fields, zap.String("stack", appErr.Stack))...)
	} else {
		logger.Warn(c.Request.Context(), "request rejected", fields...)
	}

	resp := Response{Code: appErr.Code, Message: appErr.Error()}
	if len(appErr.Details) > 0 {
		resp.Details = appErr.Details
	}
	write(c, status, resp)
}

// ErrorWithCode replies with code. An empty message falls back to the code's default text.
func ErrorWithCode(c *gin.Context, code errors.ErrorCode, message string) {
	if message == "" {
		message = code.Message()
	}
	Error(c, errors.New(code).WithMessage(message))
}

func BadRequest(c *gin.Context, message string) {
	ErrorWithCode(c, errors.InvalidParams, message)
}

func Unauthorized(c *gin.Context, message string) {
	ErrorWithCode(c, errors.Unauthorized, message)
}

func AbortWithError(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}

func AbortWithErrorCode(c *gin.Context, code errors.ErrorCode, message string) {
	ErrorWithCode(c, code, message)
	c.Abort()
}

func write(c *gin.Context, status int, resp Response) {
	resp.TraceID = traceID(c)
	c.JSON(status, resp)
}

func traceID(c *gin.Context) string {
	if c.Request == nil {
		return ""
	}
	if v := c.Request.Context().Value(contextkey.TraceID); v != nil {
		return fmt.Sprint(v)
	}
	return ""
}
