package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskboard/internal/model"
	"taskboard/internal/repository"
)

const (
	entityTask = "task"
	entityTag  = "tag"
)

// ExportCap bounds how many tasks a bulk export returns.
const ExportCap = 10000

// TaskCreateInput carries the fields accepted when creating a task.
type TaskCreateInput struct {
	Title       string
	Description *string
	Priority    model.Priority
	DueDate     *time.Time
	Recurrence  model.Recurrence
	TagIDs      []string
}

// TaskService wraps task business logic. Every mutating call runs in a
// single transaction together with its audit entries, so neither can
// persist without the other.
type TaskService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{db: db, now: time.Now}
}

func (s *TaskService) audit(tx *gorm.DB) *AuditService {
	a := NewAuditService(tx)
	a.now = s.now
	return a
}

// resolveTask checks existence before ownership on the same transaction,
// so the two reads cannot disagree.
func (s *TaskService) resolveTask(ctx context.Context, tx *gorm.DB, taskID, userID string) (AccessResult, *model.Task, error) {
	repo := repository.NewTaskRepository(tx)
	exists, err := repo.ExistsByID(ctx, taskID)
	if err != nil {
		return AccessNotFound, nil, err
	}
	if !exists {
		return AccessNotFound, nil, nil
	}
	task, err := repo.GetByID(ctx, taskID, userID)
	if err != nil {
		return AccessNotFound, nil, err
	}
	if task == nil {
		return AccessForbidden, nil, nil
	}
	return AccessSuccess, task, nil
}

// CreateTask creates a task for userID with at most MaxTagsPerTask tags
// and writes the create audit entry.
func (s *TaskService) CreateTask(ctx context.Context, userID string, in TaskCreateInput) (*model.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if len(in.TagIDs) > MaxTagsPerTask {
		return nil, ErrTooManyTags
	}
	priority := in.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	recurrence := in.Recurrence
	if recurrence == "" {
		recurrence = model.RecurrenceNone
	}

	task := &model.Task{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       title,
		Description: in.Description,
		Priority:    priority,
		DueDate:     in.DueDate,
		Recurrence:  recurrence,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewTaskRepository(tx)
		if err := repo.Create(ctx, task); err != nil {
			return err
		}
		if len(in.TagIDs) > 0 {
			tags, err := repository.NewTagRepository(tx).GetByIDs(ctx, in.TagIDs, userID)
			if err != nil {
				return err
			}
			if err := repo.ReplaceTags(ctx, task.ID, tags, s.now()); err != nil {
				return err
			}
		}
		if err := s.audit(tx).LogCreate(ctx, entityTask, task.ID, userID, map[string]any{
			"title":      task.Title,
			"priority":   task.Priority,
			"recurrence": task.Recurrence,
		}); err != nil {
			return err
		}
		tags, err := repo.TagsFor(ctx, task.ID)
		if err != nil {
			return err
		}
		task.Tags = tags
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// GetTask resolves ownership and returns the task with its tags.
func (s *TaskService) GetTask(ctx context.Context, taskID, userID string) (AccessResult, *model.Task, error) {
	result := AccessSuccess
	var out *model.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res, task, err := s.resolveTask(ctx, tx, taskID, userID)
		if err != nil {
			return err
		}
		if res != AccessSuccess {
			result = res
			return nil
		}
		tags, err := repository.NewTaskRepository(tx).TagsFor(ctx, task.ID)
		if err != nil {
			return err
		}
		task.Tags = tags
		out = task
		return nil
	})
	if err != nil {
		return AccessNotFound, nil, err
	}
	return result, out, nil
}

// GetTaskIncludingDeleted looks a task up even after a soft delete.
// Soft-deleted tasks are invisible everywhere else.
func (s *TaskService) GetTaskIncludingDeleted(ctx context.Context, taskID, userID string) (*model.Task, error) {
	return repository.NewTaskRepository(s.db).GetByIDIncludingDeleted(ctx, taskID, userID)
}

// ListTasks returns one page of the owner's tasks with tags attached,
// plus the total count before paging.
func (s *TaskService) ListTasks(ctx context.Context, userID string, f repository.TaskFilter) ([]model.Task, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	repo := repository.NewTaskRepository(s.db)
	tasks, total, err := repo.ListForOwner(ctx, userID, f)
	if err != nil {
		return nil, 0, err
	}
	if err := s.attachTags(ctx, repo, tasks); err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// ExportTasks returns the owner's full task list for a bulk export,
// newest first, capped at ExportCap.
func (s *TaskService) ExportTasks(ctx context.Context, userID string, isCompleted *bool) ([]model.Task, error) {
	repo := repository.NewTaskRepository(s.db)
	tasks, _, err := repo.ListForOwner(ctx, userID, repository.TaskFilter{
		IsCompleted: isCompleted,
		SortBy:      "created_at",
		SortOrder:   "desc",
		Page:        1,
		PageSize:    ExportCap,
	})
	if err != nil {
		return nil, err
	}
	if err := s.attachTags(ctx, repo, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *TaskService) attachTags(ctx context.Context, repo *repository.TaskRepository, tasks []model.Task) error {
	ids := make([]string, len(tasks))
	for i := range tasks {
		ids[i] = tasks[i].ID
	}
	byTask, err := repo.TagsForTasks(ctx, ids)
	if err != nil {
		return err
	}
	for i := range tasks {
		tasks[i].Tags = byTask[tasks[i].ID]
	}
	return nil
}

// UpdateTask applies a partial update. Only fields present in the patch
// are diffed; each field that actually changes gets its own update audit
// entry. A present tag list replaces the task's tag set entirely.
func (s *TaskService) UpdateTask(ctx context.Context, taskID, userID string, patch TaskPatch) (AccessResult, *model.Task, error) {
	result := AccessSuccess
	var out *model.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res, task, err := s.resolveTask(ctx, tx, taskID, userID)
		if err != nil {
			return err
		}
		if res != AccessSuccess {
			result = res
			return nil
		}

		var changes []FieldChange
		if patch.Title.Set {
			if patch.Title.Value == nil {
				return ErrTitleRequired
			}
			title := strings.TrimSpace(*patch.Title.Value)
			if title == "" {
				return ErrTitleRequired
			}
			if title != task.Title {
				changes = append(changes, FieldChange{"title", task.Title, title})
				task.Title = title
			}
		}
		if patch.Description.Set {
			if !equalStringPtr(task.Description, patch.Description.Value) {
				changes = append(changes, FieldChange{"description", task.Description, patch.Description.Value})
				task.Description = patch.Description.Value
			}
		}
		if patch.Priority.Set && patch.Priority.Value != nil {
			if p := *patch.Priority.Value; p != task.Priority {
				changes = append(changes, FieldChange{"priority", task.Priority, p})
				task.Priority = p
			}
		}
		if patch.DueDate.Set {
			if !equalTimePtr(task.DueDate, patch.DueDate.Value) {
				changes = append(changes, FieldChange{"due_date", task.DueDate, patch.DueDate.Value})
				task.DueDate = patch.DueDate.Value
			}
		}
		if patch.Recurrence.Set && patch.Recurrence.Value != nil {
			if rec := *patch.Recurrence.Value; rec != task.Recurrence {
				changes = append(changes, FieldChange{"recurrence", task.Recurrence, rec})
				task.Recurrence = rec
			}
		}

		repo := repository.NewTaskRepository(tx)
		if len(changes) > 0 {
			if err := repo.Save(ctx, task); err != nil {
				return err
			}
			if err := s.audit(tx).LogUpdates(ctx, entityTask, task.ID, userID, changes); err != nil {
				return err
			}
		}

		if patch.TagIDs.Set {
			var ids []string
			if patch.TagIDs.Value != nil {
				ids = *patch.TagIDs.Value
			}
			if len(ids) > MaxTagsPerTask {
				return ErrTooManyTags
			}
			tags, err := repository.NewTagRepository(tx).GetByIDs(ctx, ids, userID)
			if err != nil {
				return err
			}
			if err := repo.ReplaceTags(ctx, task.ID, tags, s.now()); err != nil {
				return err
			}
		}

		tags, err := repo.TagsFor(ctx, task.ID)
		if err != nil {
			return err
		}
		task.Tags = tags
		out = task
		return nil
	})
	if err != nil {
		return AccessNotFound, nil, err
	}
	return result, out, nil
}

// CompleteTask marks the task completed. Completing an already completed
// task is a no-op with no audit entry. When the task recurs and has a
// due date, a follow-up task is created in the same transaction and the
// source id is recorded only in the audit entry.
func (s *TaskService) CompleteTask(ctx context.Context, taskID, userID string) (AccessResult, *model.Task, *model.Task, error) {
	result := AccessSuccess
	var completed, next *model.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res, task, err := s.resolveTask(ctx, tx, taskID, userID)
		if err != nil {
			return err
		}
		if res != AccessSuccess {
			result = res
			return nil
		}
		repo := repository.NewTaskRepository(tx)

		if task.IsCompleted {
			tags, err := repo.TagsFor(ctx, task.ID)
			if err != nil {
				return err
			}
			task.Tags = tags
			completed = task
			return nil
		}

		now := s.now()
		task.IsCompleted = true
		task.CompletedAt = &now
		if err := repo.Save(ctx, task); err != nil {
			return err
		}
		audit := s.audit(tx)
		if err := audit.LogComplete(ctx, entityTask, task.ID, userID); err != nil {
			return err
		}

		if task.Recurrence != model.RecurrenceNone && task.DueDate != nil {
			follow := &model.Task{
				ID:          uuid.NewString(),
				UserID:      userID,
				Title:       task.Title,
				Description: task.Description,
				Priority:    task.Priority,
				DueDate:     NextDueDate(task.DueDate, task.Recurrence),
				Recurrence:  task.Recurrence,
			}
			if err := repo.Create(ctx, follow); err != nil {
				return err
			}
			if err := audit.LogRecurringAutoCreate(ctx, entityTask, follow.ID, userID, task.ID); err != nil {
				return err
			}
			next = follow
		}

		tags, err := repo.TagsFor(ctx, task.ID)
		if err != nil {
			return err
		}
		task.Tags = tags
		completed = task
		return nil
	})
	if err != nil {
		return AccessNotFound, nil, nil, err
	}
	return result, completed, next, nil
}

// UncompleteTask reopens a completed task. Reopening an incomplete task
// is a no-op with no audit entry.
func (s *TaskService) UncompleteTask(ctx context.Context, taskID, userID string) (AccessResult, *model.Task, error) {
	result := AccessSuccess
	var out *model.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res, task, err := s.resolveTask(ctx, tx, taskID, userID)
		if err != nil {
			return err
		}
		if res != AccessSuccess {
			result = res
			return nil
		}
		repo := repository.NewTaskRepository(tx)

		if task.IsCompleted {
			task.IsCompleted = false
			task.CompletedAt = nil
			if err := repo.Save(ctx, task); err != nil {
				return err
			}
			if err := s.audit(tx).LogUncomplete(ctx, entityTask, task.ID, userID); err != nil {
				return err
			}
		}

		tags, err := repo.TagsFor(ctx, task.ID)
		if err != nil {
			return err
		}
		task.Tags = tags
		out = task
		return nil
	})
	if err != nil {
		return AccessNotFound, nil, err
	}
	return result, out, nil
}

// DeleteTask soft deletes the task; it disappears from every default
// query but stays retrievable through GetTaskIncludingDeleted.
func (s *TaskService) DeleteTask(ctx context.Context, taskID, userID string) (AccessResult, error) {
	result := AccessSuccess
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res, task, err := s.resolveTask(ctx, tx, taskID, userID)
		if err != nil {
			return err
		}
		if res != AccessSuccess {
			result = res
			return nil
		}
		if err := repository.NewTaskRepository(tx).SoftDelete(ctx, task, userID, s.now()); err != nil {
			return err
		}
		return s.audit(tx).LogDelete(ctx, entityTask, task.ID, userID, true)
	})
	if err != nil {
		return AccessNotFound, err
	}
	return result, nil
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
