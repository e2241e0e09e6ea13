package services

import (
	"context"

	"taller-backend/billing"
	"taller-backend/models"
)

// ClientGateway creates and removes clients in the remote store
type ClientGateway interface {
	CreateClient(ctx context.Context, client *models.Client) (string, error)
	DeleteClient(ctx context.Context, id string) error
}

// VehicleGateway creates and removes vehicles in the remote store
type VehicleGateway interface {
	CreateVehicle(ctx context.Context, vehicle *models.Vehicle) (string, error)
	DeleteVehicle(ctx context.Context, id string) error
}

// ServiceGateway persists services. DeleteService also removes the service's photos.
type ServiceGateway interface {
	CreateService(ctx context.Context, service *models.Service) (string, error)
	GetService(ctx context.Context, id string) (*models.Service, error)
	UpdateService(ctx context.Context, id string, edits models.ServiceEdits) error
	ChangeServiceStatus(ctx context.Context, id string, change models.StatusChange) error
	DeleteService(ctx context.Context, id string) error
}

// PhotoGateway stores photo bytes and their references
type PhotoGateway interface {
	GetPhotoUploadTarget(ctx context.Context, serviceID, contentType string) (*models.UploadTarget, error)
	TransferImage(ctx context.Context, uploadURL, contentType string, data []byte) error
	DiscardUpload(ctx context.Context, key string) error
	RegisterPhoto(ctx context.Context, serviceID, key string) (string, error)
	ListPhotos(ctx context.Context, serviceID string) ([]*models.Photo, error)
	DeletePhoto(ctx context.Context, serviceID, photoID string) error
}

// ResourceGateway is everything the intake saga and the lifecycle need from the remote store
type ResourceGateway interface {
	ClientGateway
	VehicleGateway
	ServiceGateway
	PhotoGateway
}

// OrphanRecorder keeps track of records a failed compensation left behind
type OrphanRecorder interface {
	RecordOrphan(ctx context.Context, kind models.ResourceKind, resourceID, reason string) error
}

// IntakeServiceInterface defines the contract for the intake saga
type IntakeServiceInterface interface {
	Commit(ctx context.Context, draft models.IntakeDraft, actor models.Actor) (string, error)
}

// LifecycleServiceInterface defines the contract for status changes, edits and totals
type LifecycleServiceInterface interface {
	GetService(ctx context.Context, id string, actor models.Actor) (*models.Service, error)
	RequestTransition(ctx context.Context, edited *models.Service, target models.ServiceStatus, actor models.Actor) (*models.Service, error)
	SaveEdits(ctx context.Context, edited *models.Service, actor models.Actor) (*models.Service, error)
	ComputeTotals(service *models.Service, actor models.Actor) (*billing.Totals, error)
}

// PhotoServiceInterface defines the contract for photo management after intake
type PhotoServiceInterface interface {
	AddPhoto(ctx context.Context, serviceID string, upload models.PhotoUpload) (*models.Photo, error)
	RemovePhoto(ctx context.Context, serviceID, photoID string) error
	ListPhotos(ctx context.Context, serviceID string) ([]*models.Photo, error)
}
