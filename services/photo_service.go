package services

import (
	"context"
	"fmt"

	"taller-backend/models"
	"taller-backend/utils/logger"

	"github.com/go-playground/validator/v10"
)

type PhotoService struct {
	gateway   ResourceGateway
	config    *models.Config
	validator *validator.Validate
	logger    logger.Logger
}

func NewPhotoService(gateway ResourceGateway, cfg *models.Config, log logger.Logger) *PhotoService {
	return &PhotoService{
		gateway:   gateway,
		config:    cfg,
		validator: validator.New(),
		logger:    log,
	}
}

func (s *PhotoService) ListPhotos(ctx context.Context, serviceID string) ([]*models.Photo, error) {
	return s.gateway.ListPhotos(ctx, serviceID)
}

// AddPhoto stores one more photo for an existing service, in any status.
func (s *PhotoService) AddPhoto(ctx context.Context, serviceID string, upload models.PhotoUpload) (*models.Photo, error) {
	valErr := &models.ValidationError{}
	addValidationErrors(valErr, "photo", s.validator.Struct(&upload))
	if err := valErr.OrNil(); err != nil {
		return nil, err
	}

	if _, err := s.gateway.GetService(ctx, serviceID); err != nil {
		return nil, err
	}

	existing, err := s.gateway.ListPhotos(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if limit := s.config.MaxPhotosPerService; limit > 0 && len(existing) >= limit {
		return nil, models.NewValidationError("photos", fmt.Sprintf("at most %d photos can be attached to a service", limit))
	}

	target, err := s.gateway.GetPhotoUploadTarget(ctx, serviceID, upload.ContentType)
	if err != nil {
		return nil, err
	}
	if err := s.gateway.TransferImage(ctx, target.UploadURL, upload.ContentType, upload.Data); err != nil {
		s.logger.Errorf("Failed to transfer photo for service %s: %v", serviceID, err)
		return nil, err
	}

	id, err := s.gateway.RegisterPhoto(ctx, serviceID, target.Key)
	if err != nil {
		s.logger.Errorf("Failed to register photo for service %s: %v", serviceID, err)
		if discardErr := s.gateway.DiscardUpload(context.WithoutCancel(ctx), target.Key); discardErr != nil {
			s.logger.Errorf("Failed to discard uploaded object %s: %v", target.Key, discardErr)
		}
		return nil, err
	}

	s.logger.Infof("Photo %s added to service %s", id, serviceID)
	return &models.Photo{ID: id, ServiceID: serviceID, Key: target.Key}, nil
}

// RemovePhoto deletes a photo. Photos of a delivered service are kept.
func (s *PhotoService) RemovePhoto(ctx context.Context, serviceID, photoID string) error {
	svc, err := s.gateway.GetService(ctx, serviceID)
	if err != nil {
		return err
	}
	if svc.Status == models.StatusDelivered {
		return &models.ForbiddenError{Action: "remove photos from a delivered service"}
	}

	if err := s.gateway.DeletePhoto(ctx, serviceID, photoID); err != nil {
		s.logger.Errorf("Failed to delete photo %s of service %s: %v", photoID, serviceID, err)
		return err
	}

	s.logger.Infof("Photo %s removed from service %s", photoID, serviceID)
	return nil
}
