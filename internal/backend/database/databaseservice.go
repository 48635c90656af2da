package database

import "context"

type DatabaseService interface {
	// CreateDatabase ensures the backing schema exists. It is idempotent.
	CreateDatabase(ctx context.Context) error
	DoesDatabaseExist(ctx context.Context) bool
	Close() error

	// ListScreenshots returns all screenshots ordered by position, then creation time.
	ListScreenshots(ctx context.Context) ([]*Screenshot, error)
	GetScreenshotByID(ctx context.Context, id string) (*Screenshot, error)
	CreateScreenshot(ctx context.Context, fields *NewScreenshot) (*Screenshot, error)
	// UpdateScreenshot applies only the non-nil fields of update and refreshes UpdatedAt.
	UpdateScreenshot(ctx context.Context, id string, update ScreenshotUpdate) (*Screenshot, error)
	DeleteScreenshot(ctx context.Context, id string) error
}
