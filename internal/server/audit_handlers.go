package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"taskboard/internal/model"
)

type auditEntryResponse struct {
	ID             string    `json:"id"`
	EntityType     string    `json:"entity_type"`
	EntityID       string    `json:"entity_id"`
	UserID         string    `json:"user_id"`
	ActionType     string    `json:"action_type"`
	FieldChanged   *string   `json:"field_changed"`
	OldValue       *string   `json:"old_value"`
	NewValue       *string   `json:"new_value"`
	Timestamp      time.Time `json:"timestamp"`
	IsSystemAction bool      `json:"is_system_action"`
}

type auditListResponse struct {
	Items  []auditEntryResponse `json:"items"`
	Total  int64                `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

func toAuditResponse(entry *model.AuditLog) auditEntryResponse {
	return auditEntryResponse{
		ID:             entry.ID,
		EntityType:     entry.EntityType,
		EntityID:       entry.EntityID,
		UserID:         entry.UserID,
		ActionType:     string(entry.ActionType),
		FieldChanged:   entry.FieldChanged,
		OldValue:       entry.OldValue,
		NewValue:       entry.NewValue,
		Timestamp:      entry.Timestamp,
		IsSystemAction: entry.IsSystemAction,
	}
}

// taskAudit returns the change history of one task, newest first. The
// caller must own the task; the ownership answer mirrors the task routes.
func (s *Server) taskAudit(c *gin.Context) {
	taskID := c.Param("id")
	result, _, err := s.tasks.GetTask(c.Request.Context(), taskID, currentUserID(c))
	if err != nil {
		abortForError(c, err)
		return
	}
	if abortForAccess(c, result, "task") {
		return
	}

	limit := parsePositiveInt(c.Query("limit"), 50)
	if limit > 100 {
		limit = 100
	}
	offset := 0
	if raw := c.Query("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			offset = n
		}
	}

	entries, total, err := s.audit.EntityHistory(c.Request.Context(), "task", taskID, limit, offset)
	if err != nil {
		abortForError(c, err)
		return
	}

	items := make([]auditEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, toAuditResponse(&entries[i]))
	}
	c.JSON(http.StatusOK, auditListResponse{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}
