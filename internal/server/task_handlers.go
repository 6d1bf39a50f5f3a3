package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"taskboard/internal/model"
	"taskboard/internal/repository"
	"taskboard/internal/service"
)

type createTaskRequest struct {
	Title       string     `json:"title" binding:"required,max=200"`
	Description *string    `json:"description" binding:"omitempty,max=2000"`
	Priority    string     `json:"priority" binding:"omitempty,oneof=low medium high"`
	DueDate     *time.Time `json:"due_date"`
	Recurrence  string     `json:"recurrence" binding:"omitempty,oneof=none daily weekly monthly"`
	TagIDs      []string   `json:"tag_ids" binding:"omitempty,max=10"`
}

type tagInTask struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type taskResponse struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	Title       string      `json:"title"`
	Description *string     `json:"description"`
	Priority    string      `json:"priority"`
	DueDate     *time.Time  `json:"due_date"`
	Recurrence  string      `json:"recurrence"`
	IsCompleted bool        `json:"is_completed"`
	CompletedAt *time.Time  `json:"completed_at"`
	IsOverdue   bool        `json:"is_overdue"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Tags        []tagInTask `json:"tags"`
}

type taskListResponse struct {
	Items      []taskResponse `json:"items"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int64          `json:"total_pages"`
}

type completeTaskResponse struct {
	taskResponse
	NextTask *taskResponse `json:"next_task,omitempty"`
}

func toTaskResponse(task *model.Task, now time.Time) taskResponse {
	tags := make([]tagInTask, 0, len(task.Tags))
	for _, tag := range task.Tags {
		tags = append(tags, tagInTask{ID: tag.ID, Name: tag.Name})
	}
	return taskResponse{
		ID:          task.ID,
		UserID:      task.UserID,
		Title:       task.Title,
		Description: task.Description,
		Priority:    string(task.Priority),
		DueDate:     task.DueDate,
		Recurrence:  string(task.Recurrence),
		IsCompleted: task.IsCompleted,
		CompletedAt: task.CompletedAt,
		IsOverdue:   task.IsOverdue(now),
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
		Tags:        tags,
	}
}

func (s *Server) listTasks(c *gin.Context) {
	page, pageSize := pagination(c, 20)
	filter := repository.TaskFilter{
		Search:    c.Query("search"),
		SortBy:    c.DefaultQuery("sort_by", "created_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
		Page:      page,
		PageSize:  pageSize,
	}

	if raw := c.Query("priority"); raw != "" {
		p := model.Priority(raw)
		if !p.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid priority"})
			return
		}
		filter.Priority = &p
	}
	if raw := c.Query("is_completed"); raw != "" {
		completed := raw == "true"
		if raw != "true" && raw != "false" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid is_completed"})
			return
		}
		filter.IsCompleted = &completed
	}
	if raw := c.Query("tag_ids"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				filter.TagIDs = append(filter.TagIDs, id)
			}
		}
	}
	if raw := c.Query("due_from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid due_from"})
			return
		}
		filter.DueFrom = &t
	}
	if raw := c.Query("due_to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid due_to"})
			return
		}
		filter.DueTo = &t
	}

	tasks, total, err := s.tasks.ListTasks(c.Request.Context(), currentUserID(c), filter)
	if err != nil {
		abortForError(c, err)
		return
	}

	now := time.Now()
	items := make([]taskResponse, 0, len(tasks))
	for i := range tasks {
		items = append(items, toTaskResponse(&tasks[i], now))
	}
	c.JSON(http.StatusOK, taskListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	})
}

func (s *Server) createTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	task, err := s.tasks.CreateTask(c.Request.Context(), currentUserID(c), service.TaskCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    model.Priority(req.Priority),
		DueDate:     req.DueDate,
		Recurrence:  model.Recurrence(req.Recurrence),
		TagIDs:      req.TagIDs,
	})
	if err != nil {
		abortForError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTaskResponse(task, time.Now()))
}

func (s *Server) getTask(c *gin.Context) {
	result, task, err := s.tasks.GetTask(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		abortForError(c, err)
		return
	}
	if abortForAccess(c, result, "task") {
		return
	}
	c.JSON(http.StatusOK, toTaskResponse(task, time.Now()))
}

func (s *Server) updateTask(c *gin.Context) {
	var patch service.TaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if patch.Priority.Set && (patch.Priority.Value == nil || !patch.Priority.Value.Valid()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid priority"})
		return
	}
	if patch.Recurrence.Set && (patch.Recurrence.Value == nil || !patch.Recurrence.Value.Valid()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recurrence"})
		return
	}
	if patch.Title.Set && patch.Title.Value == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title cannot be null"})
		return
	}

	result, task, err := s.tasks.UpdateTask(c.Request.Context(), c.Param("id"), currentUserID(c), patch)
	if err != nil {
		abortForError(c, err)
		return
	}
	if abortForAccess(c, result, "task") {
		return
	}
	c.JSON(http.StatusOK, toTaskResponse(task, time.Now()))
}

func (s *Server) deleteTask(c *gin.Context) {
	result, err := s.tasks.DeleteTask(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		abortForError(c, err)
		return
	}
	if abortForAccess(c, result, "task") {
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) completeTask(c *gin.Context) {
	result, task, next, err := s.tasks.CompleteTask(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		abortForError(c, err)
		return
	}
	if abortForAccess(c, result, "task") {
		return
	}

	now := time.Now()
	resp := completeTaskResponse{taskResponse: toTaskResponse(task, now)}
	if next != nil {
		nextResp := toTaskResponse(next, now)
		resp.NextTask = &nextResp
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) uncompleteTask(c *gin.Context) {
	result, task, err := s.tasks.UncompleteTask(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		abortForError(c, err)
		return
	}
	if abortForAccess(c, result, "task") {
		return
	}
	c.JSON(http.StatusOK, toTaskResponse(task, time.Now()))
}
