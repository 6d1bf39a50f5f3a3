package model

import "time"

// Tag is a user-owned label for grouping tasks. Names are unique per
// owner, compared case-insensitively.
type Tag struct {
	ID        string `gorm:"primaryKey;size:36"`
	UserID    string `gorm:"index;size:36"`
	Name      string `gorm:"size:50;index:idx_user_tag_name"`
	CreatedAt time.Time
}

// TaskTag joins tasks and tags many-to-many. The pair is the identity.
type TaskTag struct {
	TaskID    string `gorm:"primaryKey;size:36"`
	TagID     string `gorm:"primaryKey;size:36"`
	CreatedAt time.Time
}

func (TaskTag) TableName() string { return "task_tags" }
