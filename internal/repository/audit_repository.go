package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"taskboard/internal/model"
)

// AuditRepository is append-only: it exposes Create and reads, nothing
// else. No update or delete method exists on purpose.
type AuditRepository struct {
	db *gorm.DB
}

// NewAuditRepository wraps db, which may be a transaction handle.
func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, entry *model.AuditLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// ListByEntity returns entries for one entity, newest first.
func (r *AuditRepository) ListByEntity(ctx context.Context, entityType, entityID string, limit, offset int) ([]model.AuditLog, error) {
	var entries []model.AuditLog
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("timestamp DESC").
		Offset(offset).
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list audit by entity: %w", err)
	}
	return entries, nil
}

// ListByActor returns entries recorded for one actor, newest first.
func (r *AuditRepository) ListByActor(ctx context.Context, userID string, limit, offset int) ([]model.AuditLog, error) {
	var entries []model.AuditLog
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp DESC").
		Offset(offset).
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list audit by actor: %w", err)
	}
	return entries, nil
}

// ListByAction returns entries of one action type, newest first,
// optionally bounded to entries at or after since.
func (r *AuditRepository) ListByAction(ctx context.Context, action model.ActionType, since *time.Time, limit, offset int) ([]model.AuditLog, error) {
	q := r.db.WithContext(ctx).Where("action_type = ?", action)
	if since != nil {
		q = q.Where("timestamp >= ?", *since)
	}
	var entries []model.AuditLog
	err := q.Order("timestamp DESC").
		Offset(offset).
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list audit by action: %w", err)
	}
	return entries, nil
}

// CountByEntity counts entries for one entity.
func (r *AuditRepository) CountByEntity(ctx context.Context, entityType, entityID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.AuditLog{}).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count audit by entity: %w", err)
	}
	return count, nil
}

// CountByActor counts entries recorded for one actor.
func (r *AuditRepository) CountByActor(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.AuditLog{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count audit by actor: %w", err)
	}
	return count, nil
}
