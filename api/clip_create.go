package api

import (
	"net/http"
	"time"

	"clipstash/clip-api/clip"
	"clipstash/clip-api/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type createBody struct {
	Name     string           `json:"name"`
	Text     string           `json:"text"`
	Files    []model.FileMeta `json:"files"`
	Password string           `json:"password"`
	Expiry   time.Time        `json:"expiry"`
}

// ClipCreate persists a new clip record. Upload grants for its attachments
// are issued separately through ClipUploadGrants so a client can retry
// authorization without re-creating the clip.
func (a *API) ClipCreate(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data createBody
	if err := c.ShouldBindJSON(&data); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"status":    "error",
			"message":   "Invalid request body",
			"requestID": requestID,
		})

		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	err := a.Clips.Create(c.Request.Context(), &clip.CreateRequest{
		Name:     data.Name,
		Text:     data.Text,
		Files:    data.Files,
		Password: data.Password,
		Expiry:   data.Expiry,
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"message": "Clip created successfully",
	})
}
