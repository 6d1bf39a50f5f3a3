package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"taskboard/internal/model"
)

// TagRepository manages user-owned tags and their task associations.
type TagRepository struct {
	db *gorm.DB
}

// NewTagRepository wraps db, which may be a transaction handle.
func NewTagRepository(db *gorm.DB) *TagRepository {
	return &TagRepository{db: db}
}

func (r *TagRepository) Create(ctx context.Context, tag *model.Tag) error {
	if err := r.db.WithContext(ctx).Create(tag).Error; err != nil {
		return fmt.Errorf("create tag: %w", err)
	}
	return nil
}

// GetByID returns the tag owned by userID, or nil if absent.
func (r *TagRepository) GetByID(ctx context.Context, tagID, userID string) (*model.Tag, error) {
	var tag model.Tag
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", tagID, userID).
		First(&tag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find tag: %w", err)
	}
	return &tag, nil
}

// ExistsByID reports whether any user owns a tag with this id.
func (r *TagRepository) ExistsByID(ctx context.Context, tagID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Tag{}).
		Where("id = ?", tagID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count tag: %w", err)
	}
	return count > 0, nil
}

// GetByName finds the owner's tag by name, compared case-insensitively.
func (r *TagRepository) GetByName(ctx context.Context, userID, name string) (*model.Tag, error) {
	var tag model.Tag
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND LOWER(name) = LOWER(?)", userID, name).
		First(&tag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find tag by name: %w", err)
	}
	return &tag, nil
}

// GetByIDs returns the subset of ids that exist and belong to userID.
func (r *TagRepository) GetByIDs(ctx context.Context, tagIDs []string, userID string) ([]model.Tag, error) {
	if len(tagIDs) == 0 {
		return nil, nil
	}
	var tags []model.Tag
	err := r.db.WithContext(ctx).
		Where("id IN ? AND user_id = ?", tagIDs, userID).
		Find(&tags).Error
	if err != nil {
		return nil, fmt.Errorf("find tags: %w", err)
	}
	return tags, nil
}

// ListForOwner returns one alphabetical page of the owner's tags plus the
// total count before paging. Search matches a name substring.
func (r *TagRepository) ListForOwner(ctx context.Context, userID, search string, page, pageSize int) ([]model.Tag, int64, error) {
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&model.Tag{}).Where("user_id = ?", userID)
		if search != "" {
			q = q.Where("name LIKE ?", "%"+search+"%")
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count tags: %w", err)
	}

	var tags []model.Tag
	err := base().
		Order("name ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&tags).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list tags: %w", err)
	}
	return tags, total, nil
}

func (r *TagRepository) Save(ctx context.Context, tag *model.Tag) error {
	if err := r.db.WithContext(ctx).Save(tag).Error; err != nil {
		return fmt.Errorf("save tag: %w", err)
	}
	return nil
}

// Delete removes the tag and every task association pointing at it.
func (r *TagRepository) Delete(ctx context.Context, tag *model.Tag) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("tag_id = ?", tag.ID).Delete(&model.TaskTag{}).Error; err != nil {
		return fmt.Errorf("clear tag links: %w", err)
	}
	if err := db.Delete(tag).Error; err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	return nil
}
