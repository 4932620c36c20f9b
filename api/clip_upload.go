package api

import (
	"net/http"

	"clipstash/clip-api/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type uploadBody struct {
	Name  string           `json:"name"`
	Files []model.FileMeta `json:"files"`
}

// ClipUploadGrants issues presigned upload authorizations for a clip's
// attachments. All grants are minted or none are; a partial set would be
// useless to the client.
func (a *API) ClipUploadGrants(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data uploadBody
	if err := c.ShouldBindJSON(&data); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"status":    "error",
			"message":   "Invalid request body",
			"requestID": requestID,
		})

		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	auths, err := a.Clips.IssueUploadGrants(c.Request.Context(), data.Name, data.Files)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Upload authorizations generated successfully",
		"data": gin.H{
			"authorizations": auths,
		},
	})
}
