package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskboard/internal/model"
	"taskboard/internal/repository"
)

// AuditService appends audit entries and reads history. It never
// mutates an existing entry; the repository has no path for that.
type AuditService struct {
	repo *repository.AuditRepository
	now  func() time.Time
}

// NewAuditService wraps db, which may be a transaction handle so entries
// commit together with the mutation they describe.
func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{
		repo: repository.NewAuditRepository(db),
		now:  time.Now,
	}
}

// serializeValue renders a field value for the old/new audit columns.
// Nil stays nil (a true null, not the string "null"), timestamps become
// ISO-8601 text, enums their scalar value, everything else best-effort
// JSON with a string fallback.
func serializeValue(v any) *string {
	if v == nil {
		return nil
	}
	switch t := v.(type) {
	case *time.Time:
		if t == nil {
			return nil
		}
		return serializeValue(*t)
	case time.Time:
		return marshal(t.UTC().Format(time.RFC3339))
	case *string:
		if t == nil {
			return nil
		}
		return marshal(*t)
	case model.Priority:
		return marshal(string(t))
	case model.Recurrence:
		return marshal(string(t))
	case model.ActionType:
		return marshal(string(t))
	}
	b, err := json.Marshal(v)
	if err != nil {
		return marshal(fmt.Sprint(v))
	}
	s := string(b)
	return &s
}

func marshal(v any) *string {
	b, _ := json.Marshal(v)
	s := string(b)
	return &s
}

func (s *AuditService) newEntry(entityType, entityID, userID string, action model.ActionType) *model.AuditLog {
	return &model.AuditLog{
		ID:         uuid.NewString(),
		EntityType: entityType,
		EntityID:   entityID,
		UserID:     userID,
		ActionType: action,
		Timestamp:  s.now(),
	}
}

// LogCreate records an entity creation with a snapshot of notable fields.
func (s *AuditService) LogCreate(ctx context.Context, entityType, entityID, userID string, data map[string]any) error {
	entry := s.newEntry(entityType, entityID, userID, model.ActionCreate)
	entry.NewValue = serializeValue(data)
	return s.repo.Create(ctx, entry)
}

// LogUpdate records a single field change.
func (s *AuditService) LogUpdate(ctx context.Context, entityType, entityID, userID, field string, oldValue, newValue any) error {
	entry := s.newEntry(entityType, entityID, userID, model.ActionUpdate)
	entry.FieldChanged = &field
	entry.OldValue = serializeValue(oldValue)
	entry.NewValue = serializeValue(newValue)
	return s.repo.Create(ctx, entry)
}

// FieldChange pairs a field name with its old and new values.
type FieldChange struct {
	Field    string
	OldValue any
	NewValue any
}

// LogUpdates records one entry per changed field.
func (s *AuditService) LogUpdates(ctx context.Context, entityType, entityID, userID string, changes []FieldChange) error {
	for _, c := range changes {
		if err := s.LogUpdate(ctx, entityType, entityID, userID, c.Field, c.OldValue, c.NewValue); err != nil {
			return err
		}
	}
	return nil
}

// LogComplete records a task completion.
func (s *AuditService) LogComplete(ctx context.Context, entityType, entityID, userID string) error {
	entry := s.newEntry(entityType, entityID, userID, model.ActionComplete)
	field := "is_completed"
	entry.FieldChanged = &field
	entry.OldValue = serializeValue(false)
	entry.NewValue = serializeValue(true)
	return s.repo.Create(ctx, entry)
}

// LogUncomplete records a task being reopened.
func (s *AuditService) LogUncomplete(ctx context.Context, entityType, entityID, userID string) error {
	entry := s.newEntry(entityType, entityID, userID, model.ActionUncomplete)
	field := "is_completed"
	entry.FieldChanged = &field
	entry.OldValue = serializeValue(true)
	entry.NewValue = serializeValue(false)
	return s.repo.Create(ctx, entry)
}

// LogDelete records a deletion. Soft deletes carry the is_deleted flip;
// hard deletes carry no field.
func (s *AuditService) LogDelete(ctx context.Context, entityType, entityID, userID string, soft bool) error {
	entry := s.newEntry(entityType, entityID, userID, model.ActionDelete)
	if soft {
		field := "is_deleted"
		entry.FieldChanged = &field
		entry.OldValue = serializeValue(false)
		entry.NewValue = serializeValue(true)
	}
	return s.repo.Create(ctx, entry)
}

// LogRecurringAutoCreate records the system-generated follow-up of a
// recurring task. The source task id lives only in this entry.
func (s *AuditService) LogRecurringAutoCreate(ctx context.Context, entityType, entityID, userID, sourceTaskID string) error {
	entry := s.newEntry(entityType, entityID, userID, model.ActionRecurringAutoCreate)
	entry.NewValue = serializeValue(map[string]any{"source_task_id": sourceTaskID})
	entry.IsSystemAction = true
	return s.repo.Create(ctx, entry)
}

// EntityHistory returns an entity's entries, newest first, with the
// total count for pagination.
func (s *AuditService) EntityHistory(ctx context.Context, entityType, entityID string, limit, offset int) ([]model.AuditLog, int64, error) {
	entries, err := s.repo.ListByEntity(ctx, entityType, entityID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// ActorHistory returns one actor's entries, newest first, with the total
// count for pagination.
func (s *AuditService) ActorHistory(ctx context.Context, userID string, limit, offset int) ([]model.AuditLog, int64, error) {
	entries, err := s.repo.ListByActor(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountByActor(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// ActionHistory returns entries of one action type, newest first,
// optionally bounded to entries at or after since.
func (s *AuditService) ActionHistory(ctx context.Context, action model.ActionType, since *time.Time, limit, offset int) ([]model.AuditLog, error) {
	return s.repo.ListByAction(ctx, action, since, limit, offset)
}
