package model

import "time"

// ActionType is the closed set of auditable actions.
type ActionType string

const (
	ActionCreate              ActionType = "create"
	ActionUpdate              ActionType = "update"
	ActionComplete            ActionType = "complete"
	ActionUncomplete          ActionType = "uncomplete"
	ActionDelete              ActionType = "delete"
	ActionRecurringAutoCreate ActionType = "recurring_auto_create"
)

// Valid reports whether a is one of the known action types.
func (a ActionType) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionComplete, ActionUncomplete,
		ActionDelete, ActionRecurringAutoCreate:
		return true
	}
	return false
}

// AuditLog records a single entity mutation. Rows are append-only:
// once written an entry is never updated or deleted.
type AuditLog struct {
	ID             string     `gorm:"primaryKey;size:36"`
	EntityType     string     `gorm:"index:idx_audit_entity;size:50"`
	EntityID       string     `gorm:"index:idx_audit_entity;size:36"`
	UserID         string     `gorm:"index;size:36"`
	ActionType     ActionType `gorm:"size:30"`
	FieldChanged   *string    `gorm:"size:50"`
	OldValue       *string    `gorm:"size:2000"`
	NewValue       *string    `gorm:"size:2000"`
	Timestamp      time.Time  `gorm:"index"`
	IsSystemAction bool       `gorm:"default:false"`
}

func (AuditLog) TableName() string { return "audit_logs" }
