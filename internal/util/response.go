package util

import (
	"course_hub_backend/pkg/logger"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code     int         `json:"code"`
	Message  string      `json:"message"`
	Data     interface{} `json:"data,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

// PartialSuccess answers a request whose primary mutation was committed while
// one of its follow-up side effects failed.
func PartialSuccess(c *gin.Context, data interface{}, warnings []string) {
	c.JSON(http.StatusOK, Response{
		Code:     http.StatusOK,
		Message:  "partial success",
		Data:     data,
		Warnings: warnings,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, "Resource not found")
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	InternalServerError(c)
}

// HandleError maps a service error onto the response envelope.
func HandleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrCourseNotFound), errors.Is(err, ErrUserNotFound):
		Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidID),
		errors.Is(err, ErrInvalidContentID),
		errors.Is(err, ErrInvalidQuestionID),
		errors.Is(err, ErrInvalidReviewID),
		errors.Is(err, ErrInvalidThumbnail),
		errors.Is(err, ErrValidation):
		BadRequest(c, err.Error())
	case errors.Is(err, ErrUnauthorized):
		Unauthorized(c)
	case errors.Is(err, ErrPermissionDenied):
		Error(c, http.StatusForbidden, ErrPermissionDenied.Error())
	case errors.Is(err, ErrVersionConflict):
		Error(c, http.StatusConflict, ErrVersionConflict.Error())
	default:
		LogInternalError(c, err)
	}
}

// Respond writes data, downgrading to a partial success when err only
// carries side effect failures.
func Respond(c *gin.Context, data interface{}, err error) {
	if err == nil {
		Success(c, data)
		return
	}
	var sideErr *SideEffectError
	if errors.As(err, &sideErr) && data != nil {
		logger.Log.Warn("side effect failed after commit",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		PartialSuccess(c, data, sideErr.Warnings())
		return
	}
	HandleError(c, err)
}
