package repository

import (
	"context"
	"sort"
	"time"

	"taller-backend/dal"
	"taller-backend/models"
	"taller-backend/utils"
	"taller-backend/utils/logger"
)

// OrphanRepository is the ledger of records a failed compensation left behind
type OrphanRepository struct {
	db     dal.DatabaseClientInterface
	config *models.Config
	logger logger.Logger
}

func NewOrphanRepository(db dal.DatabaseClientInterface, cfg *models.Config, log logger.Logger) *OrphanRepository {
	return &OrphanRepository{
		db:     db,
		config: cfg,
		logger: log,
	}
}

func (r *OrphanRepository) RecordOrphan(ctx context.Context, kind models.ResourceKind, resourceID, reason string) error {
	orphan := &models.Orphan{
		ID:         utils.GenerateUUID(),
		Kind:       kind,
		ResourceID: resourceID,
		Reason:     reason,
		CreatedAt:  time.Now(),
	}

	if err := r.db.PutItem(ctx, r.config.TableName(orphansTable), orphan); err != nil {
		r.logger.Errorf("Failed to record orphan %s %s: %v", kind, resourceID, err)
		return transportError("record orphan", err)
	}

	r.logger.Warnf("Orphan recorded: %s %s (%s)", kind, resourceID, reason)
	return nil
}

// ListOrphans returns every recorded orphan, oldest first
func (r *OrphanRepository) ListOrphans(ctx context.Context) ([]*models.Orphan, error) {
	var orphans []*models.Orphan
	if err := r.db.Scan(ctx, r.config.TableName(orphansTable), &orphans); err != nil {
		return nil, transportError("list orphans", err)
	}
	sort.SliceStable(orphans, func(i, j int) bool {
		return orphans[i].CreatedAt.Before(orphans[j].CreatedAt)
	})
	return orphans, nil
}

func (r *OrphanRepository) DeleteOrphan(ctx context.Context, id string) error {
	if err := r.db.DeleteItem(ctx, r.config.TableName(orphansTable), "id", id); err != nil {
		return transportError("delete orphan", err)
	}
	return nil
}

// MarkAttempt stores the number of cleanup attempts made so far
func (r *OrphanRepository) MarkAttempt(ctx context.Context, id string, attempts int, at time.Time) error {
	err := r.db.UpdateItem(ctx, r.config.TableName(orphansTable), "id", id, map[string]interface{}{
		"attempts":      attempts,
		"lastAttemptAt": at,
	})
	if err != nil {
		return transportError("mark orphan attempt", err)
	}
	return nil
}
