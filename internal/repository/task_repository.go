package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"taskboard/internal/model"
)

// Task sort fields accepted by ListForOwner, mapped to column names.
var taskSortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"due_date":   "due_date",
	"priority":   "priority",
	"title":      "title",
}

// TaskFilter narrows and orders a task listing.
type TaskFilter struct {
	Priority    *model.Priority
	IsCompleted *bool
	Search      string
	TagIDs      []string
	DueFrom     *time.Time
	DueTo       *time.Time
	SortBy      string
	SortOrder   string
	Page        int
	PageSize    int
}

// TaskRepository handles task persistence. All reads exclude soft-deleted
// rows unless the method name says otherwise.
type TaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository wraps db, which may be a transaction handle.
func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// GetByID returns the task owned by userID, or nil if absent or deleted.
func (r *TaskRepository) GetByID(ctx context.Context, taskID, userID string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND is_deleted = ?", taskID, userID, false).
		First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	return &task, nil
}

// ExistsByID reports whether a non-deleted task with this id exists,
// regardless of owner. Used to tell not-found apart from forbidden.
func (r *TaskRepository) ExistsByID(ctx context.Context, taskID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND is_deleted = ?", taskID, false).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count task: %w", err)
	}
	return count > 0, nil
}

// GetByIDIncludingDeleted looks a task up even after a soft delete.
func (r *TaskRepository) GetByIDIncludingDeleted(ctx context.Context, taskID, userID string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", taskID, userID).
		First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	return &task, nil
}

// ListForOwner returns one page of the owner's tasks plus the total count
// before paging. Soft-deleted tasks never appear.
func (r *TaskRepository) ListForOwner(ctx context.Context, userID string, f TaskFilter) ([]model.Task, int64, error) {
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&model.Task{}).
			Where("user_id = ? AND is_deleted = ?", userID, false)
		if f.Priority != nil {
			q = q.Where("priority = ?", *f.Priority)
		}
		if f.IsCompleted != nil {
			q = q.Where("is_completed = ?", *f.IsCompleted)
		}
		if f.Search != "" {
			pattern := "%" + f.Search + "%"
			q = q.Where("title LIKE ? OR description LIKE ?", pattern, pattern)
		}
		if len(f.TagIDs) > 0 {
			sub := r.db.Model(&model.TaskTag{}).Select("task_id").Where("tag_id IN ?", f.TagIDs)
			q = q.Where("id IN (?)", sub)
		}
		if f.DueFrom != nil {
			q = q.Where("due_date >= ?", *f.DueFrom)
		}
		if f.DueTo != nil {
			q = q.Where("due_date <= ?", *f.DueTo)
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	column, ok := taskSortColumns[f.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if f.SortOrder == "asc" {
		direction = "ASC"
	}

	var tasks []model.Task
	err := base().
		Order(column + " " + direction).
		Offset((f.Page - 1) * f.PageSize).
		Limit(f.PageSize).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, total, nil
}

// Save persists in-place field changes and bumps updated_at.
func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

// SoftDelete hides the task and records who removed it.
func (r *TaskRepository) SoftDelete(ctx context.Context, task *model.Task, deletedBy string, now time.Time) error {
	task.IsDeleted = true
	task.DeletedAt = &now
	task.DeletedBy = &deletedBy
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("soft delete task: %w", err)
	}
	return nil
}

// ReplaceTags swaps the task's tag set for the given tags.
func (r *TaskRepository) ReplaceTags(ctx context.Context, taskID string, tags []model.Tag, now time.Time) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("task_id = ?", taskID).Delete(&model.TaskTag{}).Error; err != nil {
		return fmt.Errorf("clear task tags: %w", err)
	}
	for _, tag := range tags {
		link := model.TaskTag{TaskID: taskID, TagID: tag.ID, CreatedAt: now}
		if err := db.Create(&link).Error; err != nil {
			return fmt.Errorf("link tag %s: %w", tag.ID, err)
		}
	}
	return nil
}

// TagsFor returns the task's tags ordered by name.
func (r *TaskRepository) TagsFor(ctx context.Context, taskID string) ([]model.Tag, error) {
	var tags []model.Tag
	err := r.db.WithContext(ctx).
		Joins("JOIN task_tags ON task_tags.tag_id = tags.id").
		Where("task_tags.task_id = ?", taskID).
		Order("tags.name ASC").
		Find(&tags).Error
	if err != nil {
		return nil, fmt.Errorf("load task tags: %w", err)
	}
	return tags, nil
}

// TagsForTasks loads tags for many tasks at once, keyed by task id.
func (r *TaskRepository) TagsForTasks(ctx context.Context, taskIDs []string) (map[string][]model.Tag, error) {
	result := make(map[string][]model.Tag, len(taskIDs))
	if len(taskIDs) == 0 {
		return result, nil
	}

	var links []model.TaskTag
	if err := r.db.WithContext(ctx).Where("task_id IN ?", taskIDs).Find(&links).Error; err != nil {
		return nil, fmt.Errorf("load tag links: %w", err)
	}
	if len(links) == 0 {
		return result, nil
	}

	tagIDs := make([]string, 0, len(links))
	for _, link := range links {
		tagIDs = append(tagIDs, link.TagID)
	}
	var tags []model.Tag
	if err := r.db.WithContext(ctx).Where("id IN ?", tagIDs).Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	byID := make(map[string]model.Tag, len(tags))
	for _, tag := range tags {
		byID[tag.ID] = tag
	}
	for _, link := range links {
		if tag, ok := byID[link.TagID]; ok {
			result[link.TaskID] = append(result[link.TaskID], tag)
		}
	}
	return result, nil
}
