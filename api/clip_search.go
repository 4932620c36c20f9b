package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type searchBody struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// ClipSearch looks up a clip by name, verifying its password if it has one,
// and returns the text together with presigned download URLs for every
// attachment that could be minted.
func (a *API) ClipSearch(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data searchBody
	if err := c.ShouldBindJSON(&data); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"status":    "error",
			"message":   "Invalid request body",
			"requestID": requestID,
		})

		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	result, err := a.Clips.Search(c.Request.Context(), data.Name, data.Password)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Clip found",
		"data":    result,
	})
}
