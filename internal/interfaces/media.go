package interfaces

import "context"

// MediaUploader stores image bytes on a media host
type MediaUploader interface {
	// Upload returns a publicly retrievable URL for the image
	Upload(ctx context.Context, data []byte) (string, error)
}
