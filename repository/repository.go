package repository

import (
	"context"
	"errors"

	"taller-backend/dal"
	"taller-backend/models"
	"taller-backend/utils/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Table base names, prefixed with the configured table prefix
const (
	clientsTable   = "clients"
	vehiclesTable  = "vehicles"
	servicesTable  = "services"
	photosTable    = "photos"
	orphansTable   = "orphans"
	locationsTable = "locations"
)

var tracer = otel.Tracer("taller-backend/repository")

// Repository is the DynamoDB and MinIO backed resource gateway
type Repository struct {
	*ClientRepository
	*VehicleRepository
	*ServiceRepository
	*PhotoRepository

	Orphans *OrphanRepository
}

func NewRepository(db dal.DatabaseClientInterface, store ObjectStore, cfg *models.Config, log logger.Logger) *Repository {
	photos := NewPhotoRepository(db, store, cfg, log)
	return &Repository{
		ClientRepository:  NewClientRepository(db, cfg, log),
		VehicleRepository: NewVehicleRepository(db, cfg, log),
		ServiceRepository: NewServiceRepository(db, photos, cfg, log),
		PhotoRepository:   photos,
		Orphans:           NewOrphanRepository(db, cfg, log),
	}
}

// transportError wraps store failures. Errors that already mean something to
// callers pass through unchanged.
func transportError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, models.ErrNotFound) {
		return err
	}
	var (
		dup       *models.DuplicateError
		ref       *models.InvalidReferenceError
		transport *models.TransportError
	)
	if errors.As(err, &dup) || errors.As(err, &ref) || errors.As(err, &transport) {
		return err
	}
	return &models.TransportError{Op: op, Err: err}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// checkUnique fails with a DuplicateError when index already holds value
func checkUnique(ctx context.Context, db dal.DatabaseClientInterface, table, index, field, value, resource string) error {
	var existing struct {
		ID string `dynamodbav:"id"`
	}
	err := db.GetItem(ctx, models.QueryConfig{
		TableName: table,
		IndexName: index,
		KeyName:   field,
		KeyValue:  value,
		KeyType:   models.StringType,
	}, &existing)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return nil
	case err != nil:
		return transportError("check "+resource+" "+field, err)
	default:
		return &models.DuplicateError{Resource: resource, Field: field, Value: value}
	}
}

// exists reports whether table has an item with the given id
func exists(ctx context.Context, db dal.DatabaseClientInterface, table, id string) (bool, error) {
	var item struct {
		ID string `dynamodbav:"id"`
	}
	err := db.GetItem(ctx, models.QueryConfig{TableName: table, KeyName: "id", KeyValue: id, KeyType: models.StringType}, &item)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return false, nil
	case err != nil:
		return false, transportError("read "+table, err)
	default:
		return true, nil
	}
}
