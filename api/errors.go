package api

import (
	"errors"
	"net/http"

	"clipstash/clip-api/clip"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// fail translates a core error into the HTTP response for it. Anything
// outside the known taxonomy is a server fault: logged in full, reported
// vaguely.
func fail(c *gin.Context, err error) {
	requestID := c.MustGet("requestID").(string)

	var vErr *clip.ValidationError
	if errors.As(err, &vErr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"status":    "error",
			"message":   vErr.Reason,
			"requestID": requestID,
		})
		return
	}

	switch {
	case errors.Is(err, clip.ErrConflict):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"status":    "error",
			"message":   "Clip name already exists",
			"requestID": requestID,
		})
	case errors.Is(err, clip.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"status":    "error",
			"message":   "Clip not found",
			"requestID": requestID,
		})
	case errors.Is(err, clip.ErrPasswordRequired):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"status":     "error",
			"message":    "Password required",
			"isPassword": true,
			"requestID":  requestID,
		})
	case errors.Is(err, clip.ErrWrongPassword):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"status":     "error",
			"message":    "Invalid password",
			"isPassword": true,
			"requestID":  requestID,
		})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"status":    "error",
			"message":   "Server error",
			"requestID": requestID,
		})

		zap.L().Error("Request failed", zap.String("requestID", requestID), zap.Error(err))
	}
}
