package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskboard/internal/model"
	"taskboard/internal/repository"
)

// TagService wraps tag business logic. Like tasks, every mutation and
// its audit entry commit in one transaction.
type TagService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewTagService(db *gorm.DB) *TagService {
	return &TagService{db: db, now: time.Now}
}

func (s *TagService) audit(tx *gorm.DB) *AuditService {
	a := NewAuditService(tx)
	a.now = s.now
	return a
}

// resolveTag checks existence before ownership on the same transaction.
func (s *TagService) resolveTag(ctx context.Context, tx *gorm.DB, tagID, userID string) (AccessResult, *model.Tag, error) {
	repo := repository.NewTagRepository(tx)
	exists, err := repo.ExistsByID(ctx, tagID)
	if err != nil {
		return AccessNotFound, nil, err
	}
	if !exists {
		return AccessNotFound, nil, nil
	}
	tag, err := repo.GetByID(ctx, tagID, userID)
	if err != nil {
		return AccessNotFound, nil, err
	}
	if tag == nil {
		return AccessForbidden, nil, nil
	}
	return AccessSuccess, tag, nil
}

// CreateTag creates a tag with a trimmed, per-owner unique name. A
// case-insensitive collision fails with ErrDuplicateTagName, never a
// silent dedup.
func (s *TagService) CreateTag(ctx context.Context, userID, name string) (*model.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyTagName
	}

	tag := &model.Tag{ID: uuid.NewString(), UserID: userID, Name: name}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewTagRepository(tx)
		existing, err := repo.GetByName(ctx, userID, name)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("tag %q: %w", name, ErrDuplicateTagName)
		}
		if err := repo.Create(ctx, tag); err != nil {
			return err
		}
		return s.audit(tx).LogCreate(ctx, entityTag, tag.ID, userID, map[string]any{
			"name": tag.Name,
		})
	})
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// GetTag resolves ownership and returns the tag.
func (s *TagService) GetTag(ctx context.Context, tagID, userID string) (AccessResult, *model.Tag, error) {
	result := AccessSuccess
	var out *model.Tag
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res, tag, err := s.resolveTag(ctx, tx, tagID, userID)
		if err != nil {
			return err
		}
		result = res
		out = tag
		return nil
	})
	if err != nil {
		return AccessNotFound, nil, err
	}
	return result, out, nil
}

// ListTags returns one alphabetical page of the owner's tags plus the
// total count. Search matches a case-insensitive name substring.
func (s *TagService) ListTags(ctx context.Context, userID, search string, page, pageSize int) ([]model.Tag, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	return repository.NewTagRepository(s.db).ListForOwner(ctx, userID, search, page, pageSize)
}

// UpdateTag renames a tag under the same uniqueness rule, excluding the
// tag's own id from the collision check. The rename is audited only when
// the name actually changes.
func (s *TagService) UpdateTag(ctx context.Context, tagID, userID, newName string) (AccessResult, *model.Tag, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return AccessSuccess, nil, ErrEmptyTagName
	}

	result := AccessSuccess
	var out *model.Tag
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res, tag, err := s.resolveTag(ctx, tx, tagID, userID)
		if err != nil {
			return err
		}
		if res != AccessSuccess {
			result = res
			return nil
		}
		repo := repository.NewTagRepository(tx)
		existing, err := repo.GetByName(ctx, userID, newName)
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != tag.ID {
			return fmt.Errorf("tag %q: %w", newName, ErrDuplicateTagName)
		}
		if newName != tag.Name {
			oldName := tag.Name
			tag.Name = newName
			if err := repo.Save(ctx, tag); err != nil {
				return err
			}
			if err := s.audit(tx).LogUpdate(ctx, entityTag, tag.ID, userID, "name", oldName, newName); err != nil {
				return err
			}
		}
		out = tag
		return nil
	})
	if err != nil {
		return AccessNotFound, nil, err
	}
	return result, out, nil
}

// DeleteTag hard deletes a tag. Every association referencing it is
// removed in the same transaction.
func (s *TagService) DeleteTag(ctx context.Context, tagID, userID string) (AccessResult, error) {
	result := AccessSuccess
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res, tag, err := s.resolveTag(ctx, tx, tagID, userID)
		if err != nil {
			return err
		}
		if res != AccessSuccess {
			result = res
			return nil
		}
		if err := repository.NewTagRepository(tx).Delete(ctx, tag); err != nil {
			return err
		}
		return s.audit(tx).LogDelete(ctx, entityTag, tag.ID, userID, false)
	})
	if err != nil {
		return AccessNotFound, err
	}
	return result, nil
}
