package server

import (
	"encoding/csv"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"taskboard/internal/model"
)

// exportTasks streams the caller's full task list as CSV or JSON,
// unpaginated up to the export cap.
func (s *Server) exportTasks(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "json" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or json"})
		return
	}

	var isCompleted *bool
	if raw := c.Query("is_completed"); raw != "" {
		if raw != "true" && raw != "false" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid is_completed"})
			return
		}
		completed := raw == "true"
		isCompleted = &completed
	}

	tasks, err := s.tasks.ExportTasks(c.Request.Context(), currentUserID(c), isCompleted)
	if err != nil {
		abortForError(c, err)
		return
	}

	if format == "json" {
		writeJSONExport(c, tasks)
		return
	}
	writeCSVExport(c, tasks)
}

func writeJSONExport(c *gin.Context, tasks []model.Task) {
	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", "attachment; filename=tasks.json")
	c.Status(http.StatusOK)

	w := c.Writer
	w.Write([]byte("[\n"))
	enc := json.NewEncoder(w)
	now := time.Now()
	for i := range tasks {
		if i > 0 {
			w.Write([]byte(",\n"))
		}
		enc.Encode(toTaskResponse(&tasks[i], now))
		w.Flush()
	}
	w.Write([]byte("]\n"))
	w.Flush()
}

func writeCSVExport(c *gin.Context, tasks []model.Task) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=tasks.csv")
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	w.Write([]string{
		"ID", "Title", "Description", "Priority", "Is Completed",
		"Due Date", "Recurrence", "Tags", "Created At", "Updated At", "Completed At",
	})

	for i := range tasks {
		task := &tasks[i]
		description := ""
		if task.Description != nil {
			description = *task.Description
		}
		completed := "No"
		if task.IsCompleted {
			completed = "Yes"
		}
		names := make([]string, 0, len(task.Tags))
		for _, tag := range task.Tags {
			names = append(names, tag.Name)
		}
		w.Write([]string{
			task.ID,
			task.Title,
			description,
			string(task.Priority),
			completed,
			formatTime(task.DueDate),
			string(task.Recurrence),
			strings.Join(names, ", "),
			task.CreatedAt.Format(time.RFC3339),
			task.UpdatedAt.Format(time.RFC3339),
			formatTime(task.CompletedAt),
		})
		w.Flush()
		c.Writer.Flush()
	}
	w.Flush()
	c.Writer.Flush()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
