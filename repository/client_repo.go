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

type ClientRepository struct {
	db     dal.DatabaseClientInterface
	config *models.Config
	logger logger.Logger
}

func NewClientRepository(db dal.DatabaseClientInterface, cfg *models.Config, log logger.Logger) *ClientRepository {
	return &ClientRepository{
		db:     db,
		config: cfg,
		logger: log,
	}
}

// CreateClient stores a new client. Identification, email and phone must be
// unique, and the province/canton pair must be a known location.
func (r *ClientRepository) CreateClient(ctx context.Context, client *models.Client) (id string, err error) {
	ctx, span := tracer.Start(ctx, "repository.CreateClient")
	defer func() { endSpan(span, err) }()

	record := *client
	record.Identification = strings.TrimSpace(record.Identification)
	record.Email = strings.ToLower(strings.TrimSpace(record.Email))
	record.Phone = strings.TrimSpace(record.Phone)

	r.logger.Infof("Creating client: %s", record.Identification)

	table := r.config.TableName(clientsTable)
	if err := checkUnique(ctx, r.db, table, "identification-index", "identification", record.Identification, "client"); err != nil {
		return "", err
	}
	if record.Email != "" {
		if err := checkUnique(ctx, r.db, table, "email-index", "email", record.Email, "client"); err != nil {
			return "", err
		}
	}
	if record.Phone != "" {
		if err := checkUnique(ctx, r.db, table, "phone-index", "phone", record.Phone, "client"); err != nil {
			return "", err
		}
	}
	if err := r.checkLocation(ctx, &record); err != nil {
		return "", err
	}

	now := time.Now()
	record.ID = utils.GenerateUUID()
	record.CreatedAt = now
	record.UpdatedAt = now
	span.SetAttributes(attribute.String("client.id", record.ID))

	if err := r.db.PutItemIfAbsent(ctx, table, "id", &record); err != nil {
		r.logger.Errorf("Failed to create client: %v", err)
		if errors.Is(err, models.ErrConditionFailed) {
			return "", &models.DuplicateError{Resource: "client", Field: "id", Value: record.ID}
		}
		return "", transportError("create client", err)
	}

	r.logger.Infof("Client created successfully: %s", record.ID)
	return record.ID, nil
}

func (r *ClientRepository) checkLocation(ctx context.Context, client *models.Client) error {
	if client.Province == "" && client.Canton == "" {
		return nil
	}

	found, err := exists(ctx, r.db, r.config.TableName(locationsTable), models.LocationID(client.Province, client.Canton))
	if err != nil {
		return err
	}
	if !found {
		field, value := "canton", client.Canton
		if client.Canton == "" {
			field, value = "province", client.Province
		}
		return &models.InvalidReferenceError{Resource: "client", Field: field, Value: value}
	}
	return nil
}

// DeleteClient removes a client. Removing a missing client succeeds.
func (r *ClientRepository) DeleteClient(ctx context.Context, id string) (err error) {
	ctx, span := tracer.Start(ctx, "repository.DeleteClient")
	defer func() { endSpan(span, err) }()

	if err := r.db.DeleteItem(ctx, r.config.TableName(clientsTable), "id", id); err != nil {
		r.logger.Errorf("Failed to delete client %s: %v", id, err)
		return transportError("delete client", err)
	}
	r.logger.Infof("Client deleted: %s", id)
	return nil
}
