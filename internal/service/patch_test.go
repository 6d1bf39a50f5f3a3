package service

import (
	"encoding/json"
	"testing"
)

func TestTaskPatch_AbsentNullAndValueAreDistinct(t *testing.T) {
	var patch TaskPatch
	payload := `{"title":"new title","description":null}`
	if err := json.Unmarshal([]byte(payload), &patch); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !patch.Title.Set || patch.Title.Value == nil || *patch.Title.Value != "new title" {
		t.Fatalf("title = %+v, want set with value", patch.Title)
	}
	if !patch.Description.Set || patch.Description.Value != nil {
		t.Fatalf("description = %+v, want set with nil value", patch.Description)
	}
	if patch.Priority.Set || patch.DueDate.Set || patch.Recurrence.Set || patch.TagIDs.Set {
		t.Fatalf("absent fields must stay unset: %+v", patch)
	}
}

func TestTaskPatch_TagIDs(t *testing.T) {
	var patch TaskPatch
	if err := json.Unmarshal([]byte(`{"tag_ids":["a","b"]}`), &patch); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !patch.TagIDs.Set || patch.TagIDs.Value == nil || len(*patch.TagIDs.Value) != 2 {
		t.Fatalf("tag_ids = %+v", patch.TagIDs)
	}

	patch = TaskPatch{}
	if err := json.Unmarshal([]byte(`{"tag_ids":null}`), &patch); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !patch.TagIDs.Set || patch.TagIDs.Value != nil {
		t.Fatalf("null tag_ids = %+v, want set with nil value", patch.TagIDs)
	}
}

func TestTaskPatch_RejectsMalformedValue(t *testing.T) {
	var patch TaskPatch
	if err := json.Unmarshal([]byte(`{"due_date":"not a date"}`), &patch); err == nil {
		t.Fatalf("expected an unmarshal error for a malformed timestamp")
	}
}
