package service

import (
	"bytes"
	"encoding/json"
	"time"

	"taskboard/internal/model"
)

// Optional is a tri-state JSON field. A key that is absent from the
// payload leaves Set false; an explicit null sets Set with a nil Value.
// The two must stay distinguishable for partial updates.
type Optional[T any] struct {
	Set   bool
	Value *T
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// TaskPatch is a partial task update. Only fields present in the
// request take part in the diff; a present field whose value equals
// the current one is not a change.
type TaskPatch struct {
	Title       Optional[string]           `json:"title"`
	Description Optional[string]           `json:"description"`
	Priority    Optional[model.Priority]   `json:"priority"`
	DueDate     Optional[time.Time]        `json:"due_date"`
	Recurrence  Optional[model.Recurrence] `json:"recurrence"`
	TagIDs      Optional[[]string]         `json:"tag_ids"`
}
