package service

import (
	"time"

	"taskboard/internal/model"
)

// NextDueDate returns the due date for the follow-up of a recurring
// task, or nil when no follow-up should exist. A task without a due
// date never spawns one, whatever its pattern.
//
// The monthly step is a fixed 30-day offset, not calendar-month
// arithmetic. Changing it would silently shift observable due dates.
func NextDueDate(current *time.Time, pattern model.Recurrence) *time.Time {
	if current == nil {
		return nil
	}
	var next time.Time
	switch pattern {
	case model.RecurrenceDaily:
		next = current.AddDate(0, 0, 1)
	case model.RecurrenceWeekly:
		next = current.AddDate(0, 0, 7)
	case model.RecurrenceMonthly:
		next = current.AddDate(0, 0, 30)
	case model.RecurrenceNone:
		return nil
	default:
		return nil
	}
	return &next
}
