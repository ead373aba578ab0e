package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mag7qa/internal/agent"
	"github.com/xxxsen/mag7qa/internal/ai"
	"github.com/xxxsen/mag7qa/internal/middleware"
	"github.com/xxxsen/mag7qa/internal/pkg/errcode"
	appErr "github.com/xxxsen/mag7qa/internal/pkg/errors"
	"github.com/xxxsen/mag7qa/internal/pkg/response"
)

func getUserID(c *gin.Context) string {
	return middleware.UserID(c)
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("user_id", getUserID(c)),
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, errcode.ErrUnauthorized, "unauthorized")
	case errors.Is(err, appErr.ErrForbidden):
		response.Error(c, errcode.ErrForbidden, "forbidden")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, errcode.ErrConflict, "conflict")
	case errors.Is(err, appErr.ErrTooMany):
		response.Error(c, errcode.ErrTooMany, "too many requests")
	case errors.Is(err, agent.ErrRetrieval):
		response.Error(c, errcode.ErrRetrieval, "could not retrieve filing context")
	case errors.Is(err, ai.ErrUnavailable):
		response.Error(c, errcode.ErrAIUnavailable, "language model unavailable")
	case errors.Is(err, agent.ErrGeneration):
		response.Error(c, errcode.ErrGeneration, "could not generate answer")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
