package internal

import (
	"clipstash/clip-api/clip"
	"clipstash/clip-api/internal/service"

	"gorm.io/gorm"
)

// Deps bundles the dependencies constructed once at process start and
// injected into the transport layer.
type Deps struct {
	DB     *gorm.DB
	Clips  *clip.Manager
	Reaper *service.Reaper
}
