package repository

import "context"

// ObjectStore keeps the bytes of service photos
type ObjectStore interface {
	PresignUpload(ctx context.Context, serviceID, contentType string) (uploadURL, key string, err error)
	RemoveObject(ctx context.Context, key string) error
}
