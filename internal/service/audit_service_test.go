package service

import (
	"context"
	"testing"
	"time"

	"taskboard/internal/model"
)

func TestSerializeValue(t *testing.T) {
	at := time.Date(2026, 5, 1, 12, 30, 0, 0, time.UTC)
	var nilTime *time.Time

	cases := []struct {
		name string
		in   any
		want *string
	}{
		{"nil", nil, nil},
		{"typed nil time", nilTime, nil},
		{"time", at, strptr(`"2026-05-01T12:30:00Z"`)},
		{"time pointer", &at, strptr(`"2026-05-01T12:30:00Z"`)},
		{"string pointer", strptr("hello"), strptr(`"hello"`)},
		{"priority", model.PriorityHigh, strptr(`"high"`)},
		{"recurrence", model.RecurrenceWeekly, strptr(`"weekly"`)},
		{"bool", true, strptr("true")},
		{"map", map[string]any{"a": 1}, strptr(`{"a":1}`)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := serializeValue(tc.in)
			switch {
			case tc.want == nil && got != nil:
				t.Fatalf("got %q, want nil", *got)
			case tc.want != nil && got == nil:
				t.Fatalf("got nil, want %q", *tc.want)
			case tc.want != nil && *got != *tc.want:
				t.Fatalf("got %q, want %q", *got, *tc.want)
			}
		})
	}
}

func TestEntityHistory_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuditService(db)
	ctx := context.Background()

	// An injected clock that advances one minute per call makes the
	// ordering deterministic.
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	calls := 0
	svc.now = func() time.Time {
		at := base.Add(time.Duration(calls) * time.Minute)
		calls++
		return at
	}

	if err := svc.LogCreate(ctx, "task", "t1", "alice", map[string]any{"title": "first"}); err != nil {
		t.Fatalf("log create: %v", err)
	}
	if err := svc.LogUpdate(ctx, "task", "t1", "alice", "title", "first", "second"); err != nil {
		t.Fatalf("log update: %v", err)
	}
	if err := svc.LogComplete(ctx, "task", "t1", "alice"); err != nil {
		t.Fatalf("log complete: %v", err)
	}
	// A different entity must not leak into t1's history.
	if err := svc.LogCreate(ctx, "task", "t2", "alice", nil); err != nil {
		t.Fatalf("log create: %v", err)
	}

	entries, total, err := svc.EntityHistory(ctx, "task", "t1", 50, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if total != 3 || len(entries) != 3 {
		t.Fatalf("items=%d total=%d, want 3/3", len(entries), total)
	}
	wantActions := []model.ActionType{model.ActionComplete, model.ActionUpdate, model.ActionCreate}
	for i, entry := range entries {
		if entry.ActionType != wantActions[i] {
			t.Fatalf("position %d = %s, want %s", i, entry.ActionType, wantActions[i])
		}
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Timestamp.After(entries[i-1].Timestamp) {
			t.Fatalf("entries not in descending timestamp order")
		}
	}

	// Limit and offset page through the same ordering.
	page, total, err := svc.EntityHistory(ctx, "task", "t1", 2, 2)
	if err != nil || total != 3 {
		t.Fatalf("paged history: total=%d err=%v", total, err)
	}
	if len(page) != 1 || page[0].ActionType != model.ActionCreate {
		t.Fatalf("offset page = %+v, want the oldest entry", page)
	}
}

func TestActorHistory_ScopedToActor(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuditService(db)
	ctx := context.Background()

	if err := svc.LogCreate(ctx, "task", "t1", "alice", nil); err != nil {
		t.Fatalf("log: %v", err)
	}
	if err := svc.LogCreate(ctx, "tag", "g1", "alice", nil); err != nil {
		t.Fatalf("log: %v", err)
	}
	if err := svc.LogCreate(ctx, "task", "t2", "bob", nil); err != nil {
		t.Fatalf("log: %v", err)
	}

	entries, total, err := svc.ActorHistory(ctx, "alice", 50, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if total != 2 || len(entries) != 2 {
		t.Fatalf("items=%d total=%d, want 2/2", len(entries), total)
	}
	for _, entry := range entries {
		if entry.UserID != "alice" {
			t.Fatalf("foreign entry in actor history: %+v", entry)
		}
	}
}

func TestActionHistory_SinceBound(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuditService(db)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	calls := 0
	svc.now = func() time.Time {
		at := base.Add(time.Duration(calls) * time.Hour)
		calls++
		return at
	}

	for _, id := range []string{"t1", "t2", "t3"} {
		if err := svc.LogDelete(ctx, "task", id, "alice", true); err != nil {
			t.Fatalf("log: %v", err)
		}
	}

	since := base.Add(30 * time.Minute)
	entries, err := svc.ActionHistory(ctx, model.ActionDelete, &since, 50, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries since bound = %d, want 2", len(entries))
	}
	for _, entry := range entries {
		if entry.Timestamp.Before(since) {
			t.Fatalf("entry %v predates the since bound", entry.Timestamp)
		}
	}
}
