package model

import "time"

// Priority is the closed set of task priority levels.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priority levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Recurrence is the closed set of task recurrence patterns.
type Recurrence string

const (
	RecurrenceNone    Recurrence = "none"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
)

// Valid reports whether r is one of the known recurrence patterns.
func (r Recurrence) Valid() bool {
	switch r {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	}
	return false
}

// Task represents a single to-do item owned by one user.
// Tasks are never removed physically, only soft-deleted.
type Task struct {
	ID          string     `gorm:"primaryKey;size:36"`
	UserID      string     `gorm:"index;size:36"`
	Title       string     `gorm:"size:200"`
	Description *string    `gorm:"size:2000"`
	Priority    Priority   `gorm:"size:10;default:medium"`
	DueDate     *time.Time `gorm:"index"`
	Recurrence  Recurrence `gorm:"size:10;default:none"`
	IsCompleted bool       `gorm:"index;default:false"`
	CompletedAt *time.Time
	IsDeleted   bool `gorm:"index;default:false"`
	DeletedAt   *time.Time
	DeletedBy   *string `gorm:"size:36"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Tags is filled in by the repository from task_tags rows; it is not
	// a gorm-managed association.
	Tags []Tag `gorm:"-"`
}

// IsOverdue reports whether the task is past its due date and not completed.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.IsCompleted {
		return false
	}
	return now.After(*t.DueDate)
}
