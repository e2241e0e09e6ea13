package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taller-backend/dal"
	"taller-backend/models"
	"taller-backend/utils/logger"

	"github.com/aws/smithy-go"
)

// TableSetup creates the DynamoDB tables the application needs and seeds reference data
type TableSetup struct {
	db        dal.DatabaseClientInterface
	config    *models.Config
	logger    logger.Logger
	baseDelay time.Duration
}

func NewTableSetup(db dal.DatabaseClientInterface, cfg *models.Config, log logger.Logger) *TableSetup {
	return &TableSetup{
		db:        db,
		config:    cfg,
		logger:    log,
		baseDelay: 5 * time.Second,
	}
}

// tableNames returns the configured tables, or every table in the schema
func (ts *TableSetup) tableNames() []string {
	if len(ts.config.Tables) > 0 {
		return ts.config.Tables
	}
	return SchemaTables()
}

// EnsureTables creates every missing table sequentially to avoid throttling,
// then loads the location catalogue.
func (ts *TableSetup) EnsureTables(ctx context.Context) error {
	ts.logger.Info("Starting infrastructure setup...")

	for _, base := range ts.tableNames() {
		name := ts.config.TableName(base)
		if err := ts.createTableWithRetry(ctx, name, base); err != nil {
			ts.logger.Errorf("Failed to create table %s: %v", name, err)
			return err
		}
	}

	return ts.SeedLocations(ctx)
}

// SeedLocations writes the province/canton catalogue. Writes are idempotent.
func (ts *TableSetup) SeedLocations(ctx context.Context) error {
	table := ts.config.TableName("locations")
	locations := Locations()
	for i := range locations {
		if err := ts.db.PutItem(ctx, table, &locations[i]); err != nil {
			return fmt.Errorf("failed to seed location %s: %w", locations[i].ID, err)
		}
	}
	ts.logger.Infof("Seeded %d locations", len(locations))
	return nil
}

// createTableWithRetry creates a table with retry logic
func (ts *TableSetup) createTableWithRetry(ctx context.Context, name, base string) error {
	maxRetries := 3

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * ts.baseDelay
			ts.logger.Infof("Retrying table creation for %s in %v (attempt %d/%d)", name, delay, attempt+1, maxRetries+1)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if exists, err := ts.tableExists(ctx, name); err != nil {
			ts.logger.Errorf("Failed to check if table exists: %v", err)
			if attempt == maxRetries {
				return fmt.Errorf("failed to check table %s after %d attempts: %w", name, maxRetries+1, err)
			}
			continue
		} else if exists {
			ts.logger.Infof("✅ Table %s already exists, skipping creation", name)
			return nil
		}

		input, err := GetTables(name, base, ts.config.AppEnv == "production")
		if err != nil {
			return err
		}
		if err := ts.db.CreateTable(ctx, input); err != nil {
			ts.logger.Errorf("Attempt %d failed to create table %s: %v", attempt+1, name, err)
			if attempt == maxRetries {
				return fmt.Errorf("failed to create table %s after %d attempts: %w", name, maxRetries+1, err)
			}
			continue
		}

		ts.logger.Infof("✅ Successfully created table: %s", name)
		return nil
	}

	return fmt.Errorf("exhausted all retry attempts for table %s", name)
}

// tableExists checks if a table already exists
func (ts *TableSetup) tableExists(ctx context.Context, name string) (bool, error) {
	_, err := ts.db.DescribeTable(ctx, name)
	if err != nil {
		if isTableNotFoundError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// isTableNotFoundError checks if error indicates table not found
func isTableNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "ResourceNotFoundException"
	}

	return strings.Contains(err.Error(), "ResourceNotFoundException")
}
