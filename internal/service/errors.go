package service

import "errors"

var (
	// ErrDuplicateTagName signals a per-owner, case-insensitive tag name
	// collision. The boundary maps it to a conflict response.
	ErrDuplicateTagName = errors.New("tag name already exists")

	// ErrEmptyTagName signals a tag name that is empty after trimming.
	ErrEmptyTagName = errors.New("tag name is empty")

	// ErrTitleRequired signals an attempt to clear a task title.
	ErrTitleRequired = errors.New("title is required")

	// ErrTooManyTags signals more tag associations than a task may carry.
	ErrTooManyTags = errors.New("too many tags")
)

// MaxTagsPerTask bounds how many tags a single task may carry.
const MaxTagsPerTask = 10
