package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"taller-backend/dal"
	"taller-backend/models"
	"taller-backend/utils"
	"taller-backend/utils/logger"

	"go.opentelemetry.io/otel/attribute"
)

type ServiceRepository struct {
	db     dal.DatabaseClientInterface
	photos *PhotoRepository
	config *models.Config
	logger logger.Logger
}

func NewServiceRepository(db dal.DatabaseClientInterface, photos *PhotoRepository, cfg *models.Config, log logger.Logger) *ServiceRepository {
	return &ServiceRepository{
		db:     db,
		photos: photos,
		config: cfg,
		logger: log,
	}
}

// CreateService stores a new service. The client and vehicle must exist and
// the order number must be unique.
func (r *ServiceRepository) CreateService(ctx context.Context, service *models.Service) (id string, err error) {
	ctx, span := tracer.Start(ctx, "repository.CreateService")
	defer func() { endSpan(span, err) }()

	record := service.Clone()
	record.OrderNumber = strings.TrimSpace(record.OrderNumber)

	r.logger.Infof("Creating service: %s", record.OrderNumber)

	if err := r.checkReference(ctx, clientsTable, "clientId", record.ClientID); err != nil {
		return "", err
	}
	if err := r.checkReference(ctx, vehiclesTable, "vehicleId", record.VehicleID); err != nil {
		return "", err
	}

	table := r.config.TableName(servicesTable)
	if err := checkUnique(ctx, r.db, table, "orderNumber-index", "orderNumber", record.OrderNumber, "service"); err != nil {
		return "", err
	}

	now := time.Now()
	record.ID = utils.GenerateUUID()
	record.CreatedAt = now
	record.UpdatedAt = now
	if record.Status == "" {
		record.Status = models.StatusPending
	}
	span.SetAttributes(attribute.String("service.id", record.ID))

	if err := r.db.PutItemIfAbsent(ctx, table, "id", record); err != nil {
		r.logger.Errorf("Failed to create service: %v", err)
		if errors.Is(err, models.ErrConditionFailed) {
			return "", &models.DuplicateError{Resource: "service", Field: "id", Value: record.ID}
		}
		return "", transportError("create service", err)
	}

	r.logger.Infof("Service created successfully: %s", record.ID)
	return record.ID, nil
}

func (r *ServiceRepository) checkReference(ctx context.Context, table, field, id string) error {
	if id == "" {
		return &models.InvalidReferenceError{Resource: "service", Field: field, Value: id}
	}
	found, err := exists(ctx, r.db, r.config.TableName(table), id)
	if err != nil {
		return err
	}
	if !found {
		return &models.InvalidReferenceError{Resource: "service", Field: field, Value: id}
	}
	return nil
}

func (r *ServiceRepository) GetService(ctx context.Context, id string) (*models.Service, error) {
	service := &models.Service{}
	err := r.db.GetItem(ctx, models.QueryConfig{
		TableName: r.config.TableName(servicesTable),
		KeyName:   "id",
		KeyValue:  id,
		KeyType:   models.StringType,
	}, service)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			r.logger.Errorf("Failed to get service %s: %v", id, err)
		}
		return nil, transportError("get service", err)
	}
	return service, nil
}

// UpdateService writes the editable fields. Status is never touched here.
func (r *ServiceRepository) UpdateService(ctx context.Context, id string, edits models.ServiceEdits) (err error) {
	ctx, span := tracer.Start(ctx, "repository.UpdateService")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("service.id", id))

	updates := map[string]interface{}{
		"endDate":         edits.EndDate,
		"assignment":      edits.Assignment,
		"vehicleLocation": edits.VehicleLocation,
		"mechanics":       edits.Mechanics,
		"observations":    edits.Observations,
		"ivaRate":         edits.IVARate,
		"discount":        edits.Discount,
		"parts":           edits.Parts,
		"labors":          edits.Labors,
		"paidLabors":      edits.PaidLabors,
		"invoiceNumber":   edits.InvoiceNumber,
		"paymentMethod":   edits.PaymentMethod,
		"updatedAt":       time.Now(),
	}

	if err := r.db.UpdateItem(ctx, r.config.TableName(servicesTable), "id", id, updates); err != nil {
		r.logger.Errorf("Failed to update service %s: %v", id, err)
		return transportError("update service", err)
	}
	return nil
}

// ChangeServiceStatus moves the stored status from change.From to change.To.
// It fails with a TransitionError when the stored status is no longer change.From.
func (r *ServiceRepository) ChangeServiceStatus(ctx context.Context, id string, change models.StatusChange) (err error) {
	ctx, span := tracer.Start(ctx, "repository.ChangeServiceStatus")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.String("service.id", id),
		attribute.String("service.to", string(change.To)),
	)

	updates := map[string]interface{}{
		"status":    change.To,
		"updatedAt": change.At,
	}
	if change.To == models.StatusDelivered {
		updates["deliveredAt"] = change.At
	}

	err = r.db.UpdateItemIf(ctx, r.config.TableName(servicesTable), "id", id, updates,
		map[string]interface{}{"status": change.From})
	if errors.Is(err, models.ErrConditionFailed) {
		r.logger.Warnf("Status of service %s is no longer %s", id, change.From)
		return &models.TransitionError{From: change.From, To: change.To}
	}
	if err != nil {
		r.logger.Errorf("Failed to change status of service %s: %v", id, err)
		return transportError("change service status", err)
	}
	return nil
}

// DeleteService removes a service together with its photos
func (r *ServiceRepository) DeleteService(ctx context.Context, id string) (err error) {
	ctx, span := tracer.Start(ctx, "repository.DeleteService")
	defer func() { endSpan(span, err) }()

	photos, err := r.photos.ListPhotos(ctx, id)
	if err != nil {
		return err
	}
	for _, photo := range photos {
		if err := r.photos.DeletePhoto(ctx, id, photo.ID); err != nil {
			return err
		}
	}

	if err := r.db.DeleteItem(ctx, r.config.TableName(servicesTable), "id", id); err != nil {
		r.logger.Errorf("Failed to delete service %s: %v", id, err)
		return transportError("delete service", err)
	}
	r.logger.Infof("Service deleted with %d photos: %s", len(photos), id)
	return nil
}
