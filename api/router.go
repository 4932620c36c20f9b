// Package api contains all endpoints available
package api

import (
	"time"

	"clipstash/clip-api/clip"
	"clipstash/clip-api/internal"
	"clipstash/clip-api/pkg/middleware"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

// maxBodySize caps request bodies. Clip text alone can reach 1 MB, so
// leave headroom for the JSON envelope around it.
const maxBodySize = 2 << 20

type API struct {
	Router *gin.Engine
	Clips  *clip.Manager
}

// NewRouter wires the transport layer around already-constructed
// dependencies. Nothing here owns state; everything is injected.
func NewRouter(d *internal.Deps) *API {
	a := &API{
		Clips: d.Clips,
	}

	router := gin.New()
	a.Router = router

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     []string{viper.GetString("host.allowed_origin")},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true

	main := router.Group("/api")
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		main.HEAD("/heartbeat", a.Heartbeat)
	}

	clips := main.Group("/clips", middleware.BodySizeLimiter(maxBodySize))
	{
		// POST /api/clips/create	-> Creates a new clip record
		clips.POST("/create", a.ClipCreate)

		// POST /api/clips/search	-> Looks up a clip and mints download URLs
		clips.POST("/search", a.ClipSearch)

		// POST /api/clips/upload	-> Issues presigned upload grants
		clips.POST("/upload", a.ClipUploadGrants)
	}

	return a
}

// MakeLogger installs the global zap logger used across the application.
func MakeLogger() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	cfg.DisableStacktrace = true

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}
