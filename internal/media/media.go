package media

import (
	"fmt"

	"ai-collection/server/internal/config"
	"ai-collection/server/internal/interfaces"
)

// New builds the uploader selected by cfg.Provider
func New(cfg config.MediaConfig) (interfaces.MediaUploader, error) {
	switch cfg.Provider {
	case "cloudinary":
		return NewCloudinary(cfg.Cloudinary)
	case "s3":
		return NewS3(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown media provider %q", cfg.Provider)
	}
}
