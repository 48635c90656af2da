package database

import (
	"errors"
	"time"
)

// ErrNotFound is returned when no screenshot exists for the requested id.
var ErrNotFound = errors.New("screenshot not found")

const DefaultMimeType = "application/octet-stream"

type Screenshot struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Position    int       `db:"position"` // primary sort key, no uniqueness constraint
	ImageData   []byte    `db:"image_data"`
	MimeType    string    `db:"mime_type"`
	FileName    string    `db:"file_name"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// NewScreenshot holds the caller supplied fields of a screenshot that is about to be created.
type NewScreenshot struct {
	Title       string
	Description string
	Position    int
	ImageData   []byte
	MimeType    string
	FileName    string
}

// ScreenshotUpdate is a partial update. Nil fields keep their stored value.
type ScreenshotUpdate struct {
	Title       *string
	Description *string
	Position    *int
	ImageData   []byte
	MimeType    *string
	FileName    *string
}

// IsEmpty reports whether the update carries no field changes.
func (u ScreenshotUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Position == nil &&
		u.ImageData == nil && u.MimeType == nil && u.FileName == nil
}

// apply merges the update into s and refreshes UpdatedAt.
func (u ScreenshotUpdate) apply(s *Screenshot, now time.Time) {
	if u.Title != nil {
		s.Title = *u.Title
	}
	if u.Description != nil {
		s.Description = *u.Description
	}
	if u.Position != nil {
		s.Position = *u.Position
	}
	if u.ImageData != nil {
		s.ImageData = u.ImageData
	}
	if u.MimeType != nil {
		s.MimeType = *u.MimeType
	}
	if u.FileName != nil {
		s.FileName = *u.FileName
	}
	s.UpdatedAt = now
}

func newScreenshot(fields *NewScreenshot, now time.Time) (*Screenshot, error) {
	if len(fields.ImageData) == 0 {
		return nil, errors.New("screenshot image data must not be empty")
	}
	mimeType := fields.MimeType
	if mimeType == "" {
		mimeType = DefaultMimeType
	}
	return &Screenshot{
		ID:          generateID(),
		Title:       fields.Title,
		Description: fields.Description,
		Position:    fields.Position,
		ImageData:   fields.ImageData,
		MimeType:    mimeType,
		FileName:    fields.FileName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// nullable unwraps p so drivers receive either the value or an untyped nil (SQL NULL).
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullableBytes(b []byte) any {
	if b == nil {
		return nil
	}
	return b
}
