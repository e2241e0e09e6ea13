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
)

type VehicleRepository struct {
	db     dal.DatabaseClientInterface
	config *models.Config
	logger logger.Logger
}

func NewVehicleRepository(db dal.DatabaseClientInterface, cfg *models.Config, log logger.Logger) *VehicleRepository {
	return &VehicleRepository{
		db:     db,
		config: cfg,
		logger: log,
	}
}

// CreateVehicle stores a new vehicle. Plates are unique and compared upper-cased.
func (r *VehicleRepository) CreateVehicle(ctx context.Context, vehicle *models.Vehicle) (id string, err error) {
	ctx, span := tracer.Start(ctx, "repository.CreateVehicle")
	defer func() { endSpan(span, err) }()

	record := *vehicle
	record.Plate = strings.ToUpper(strings.TrimSpace(record.Plate))

	r.logger.Infof("Creating vehicle: %s", record.Plate)

	table := r.config.TableName(vehiclesTable)
	if err := checkUnique(ctx, r.db, table, "plate-index", "plate", record.Plate, "vehicle"); err != nil {
		return "", err
	}

	now := time.Now()
	record.ID = utils.GenerateUUID()
	record.CreatedAt = now
	record.UpdatedAt = now

	if err := r.db.PutItemIfAbsent(ctx, table, "id", &record); err != nil {
		r.logger.Errorf("Failed to create vehicle: %v", err)
		if errors.Is(err, models.ErrConditionFailed) {
			return "", &models.DuplicateError{Resource: "vehicle", Field: "id", Value: record.ID}
		}
		return "", transportError("create vehicle", err)
	}

	r.logger.Infof("Vehicle created successfully: %s", record.ID)
	return record.ID, nil
}

// DeleteVehicle removes a vehicle. Removing a missing vehicle succeeds.
func (r *VehicleRepository) DeleteVehicle(ctx context.Context, id string) (err error) {
	ctx, span := tracer.Start(ctx, "repository.DeleteVehicle")
	defer func() { endSpan(span, err) }()

	if err := r.db.DeleteItem(ctx, r.config.TableName(vehiclesTable), "id", id); err != nil {
		r.logger.Errorf("Failed to delete vehicle %s: %v", id, err)
		return transportError("delete vehicle", err)
	}
	r.logger.Infof("Vehicle deleted: %s", id)
	return nil
}
