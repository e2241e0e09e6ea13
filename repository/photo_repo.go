package repository

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"taller-backend/dal"
	"taller-backend/models"
	"taller-backend/utils"
	"taller-backend/utils/logger"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type PhotoRepository struct {
	db         dal.DatabaseClientInterface
	store      ObjectStore
	httpClient *http.Client
	config     *models.Config
	logger     logger.Logger
}

func NewPhotoRepository(db dal.DatabaseClientInterface, store ObjectStore, cfg *models.Config, log logger.Logger) *PhotoRepository {
	timeout := cfg.ImageTransferTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PhotoRepository{
		db:    db,
		store: store,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		config: cfg,
		logger: log,
	}
}

// GetPhotoUploadTarget reserves an object key and a presigned URL to PUT the bytes to
func (r *PhotoRepository) GetPhotoUploadTarget(ctx context.Context, serviceID, contentType string) (*models.UploadTarget, error) {
	url, key, err := r.store.PresignUpload(ctx, serviceID, contentType)
	if err != nil {
		r.logger.Errorf("Failed to presign upload for service %s: %v", serviceID, err)
		return nil, transportError("presign photo upload", err)
	}
	return &models.UploadTarget{UploadURL: url, Key: key}, nil
}

// TransferImage sends the image bytes to a presigned upload URL
func (r *PhotoRepository) TransferImage(ctx context.Context, uploadURL, contentType string, data []byte) (err error) {
	ctx, span := tracer.Start(ctx, "repository.TransferImage")
	defer func() { endSpan(span, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(data))

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return transportError("transfer image", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &models.TransportError{
			Op:  "transfer image",
			Err: fmt.Errorf("upload rejected with status %d: %s", resp.StatusCode, bytes.TrimSpace(body)),
		}
	}
	return nil
}

// DiscardUpload removes transferred bytes that never got registered
func (r *PhotoRepository) DiscardUpload(ctx context.Context, key string) error {
	if err := r.store.RemoveObject(ctx, key); err != nil {
		r.logger.Errorf("Failed to discard object %s: %v", key, err)
		return transportError("discard upload", err)
	}
	return nil
}

// RegisterPhoto records an uploaded object as a photo of the service
func (r *PhotoRepository) RegisterPhoto(ctx context.Context, serviceID, key string) (string, error) {
	photo := &models.Photo{
		ID:        utils.GenerateUUID(),
		ServiceID: serviceID,
		Key:       key,
		CreatedAt: time.Now(),
	}

	if err := r.db.PutItemIfAbsent(ctx, r.config.TableName(photosTable), "id", photo); err != nil {
		r.logger.Errorf("Failed to register photo for service %s: %v", serviceID, err)
		return "", transportError("register photo", err)
	}

	r.logger.Infof("Photo registered: %s", photo.ID)
	return photo.ID, nil
}

// ListPhotos returns the photos of a service, oldest first
func (r *PhotoRepository) ListPhotos(ctx context.Context, serviceID string) ([]*models.Photo, error) {
	var photos []*models.Photo
	err := r.db.QueryByIndex(ctx, r.config.TableName(photosTable), "serviceId-index", "serviceId", serviceID, &photos)
	if err != nil {
		r.logger.Errorf("Failed to list photos of service %s: %v", serviceID, err)
		return nil, transportError("list photos", err)
	}

	sort.SliceStable(photos, func(i, j int) bool {
		return photos[i].CreatedAt.Before(photos[j].CreatedAt)
	})
	return photos, nil
}

// DeletePhoto removes the stored object and then the photo record
func (r *PhotoRepository) DeletePhoto(ctx context.Context, serviceID, photoID string) error {
	photo := &models.Photo{}
	err := r.db.GetItem(ctx, models.QueryConfig{
		TableName: r.config.TableName(photosTable),
		KeyName:   "id",
		KeyValue:  photoID,
		KeyType:   models.StringType,
	}, photo)
	if err != nil {
		return transportError("get photo", err)
	}
	if photo.ServiceID != serviceID {
		return models.ErrNotFound
	}

	if err := r.store.RemoveObject(ctx, photo.Key); err != nil {
		r.logger.Errorf("Failed to remove object %s: %v", photo.Key, err)
		return transportError("remove photo object", err)
	}
	if err := r.db.DeleteItem(ctx, r.config.TableName(photosTable), "id", photoID); err != nil {
		r.logger.Errorf("Failed to delete photo %s: %v", photoID, err)
		return transportError("delete photo", err)
	}

	r.logger.Infof("Photo deleted: %s", photoID)
	return nil
}
