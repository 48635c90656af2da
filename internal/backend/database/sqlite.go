package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteColumns = "id, title, description, position, image_data, mime_type, file_name, created_at, updated_at"

type SQLiteDatabase struct {
	db               *sql.DB
	connectionString string
	now              func() time.Time
}

func NewSQLiteDatabase(connectionString string) (*SQLiteDatabase, error) {
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	return &SQLiteDatabase{
		db:               db,
		connectionString: connectionString,
		now:              time.Now,
	}, nil
}

func (s *SQLiteDatabase) CreateDatabase(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS screenshots (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		image_data BLOB NOT NULL,
		mime_type TEXT NOT NULL,
		file_name TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_screenshots_order ON screenshots (position, created_at)`)
	return err
}

func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteDatabase) DoesDatabaseExist(ctx context.Context) bool {
	// In SQLite, the database file is created when you connect to it.
	// So we can assume it exists if we can successfully ping the database.
	err := s.db.PingContext(ctx)
	return err == nil
}

func (s *SQLiteDatabase) ListScreenshots(ctx context.Context) ([]*Screenshot, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+sqliteColumns+" FROM screenshots ORDER BY position ASC, created_at ASC")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close() // Explicitly ignore error as we're already returning an error from the function
	}()

	screenshots := make([]*Screenshot, 0)
	for rows.Next() {
		screenshot, err := scanSQLiteScreenshot(rows)
		if err != nil {
			return nil, err
		}
		screenshots = append(screenshots, screenshot)
	}
	return screenshots, rows.Err()
}

func (s *SQLiteDatabase) GetScreenshotByID(ctx context.Context, id string) (*Screenshot, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+sqliteColumns+" FROM screenshots WHERE id = ?", id)
	screenshot, err := scanSQLiteScreenshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return screenshot, nil
}

func (s *SQLiteDatabase) CreateScreenshot(ctx context.Context, fields *NewScreenshot) (*Screenshot, error) {
	screenshot, err := newScreenshot(fields, s.now())
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO screenshots ("+sqliteColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		screenshot.ID,
		screenshot.Title,
		screenshot.Description,
		screenshot.Position,
		screenshot.ImageData,
		screenshot.MimeType,
		screenshot.FileName,
		screenshot.CreatedAt.UnixNano(),
		screenshot.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert screenshot: %w", err)
	}
	return screenshot, nil
}

func (s *SQLiteDatabase) UpdateScreenshot(ctx context.Context, id string, update ScreenshotUpdate) (*Screenshot, error) {
	row := s.db.QueryRowContext(ctx, `UPDATE screenshots SET
		title = COALESCE(?, title),
		description = COALESCE(?, description),
		position = COALESCE(?, position),
		image_data = COALESCE(?, image_data),
		mime_type = COALESCE(?, mime_type),
		file_name = COALESCE(?, file_name),
		updated_at = ?
		WHERE id = ?
		RETURNING `+sqliteColumns,
		nullable(update.Title),
		nullable(update.Description),
		nullable(update.Position),
		nullableBytes(update.ImageData),
		nullable(update.MimeType),
		nullable(update.FileName),
		s.now().UnixNano(),
		id,
	)
	screenshot, err := scanSQLiteScreenshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update screenshot %s: %w", id, err)
	}
	return screenshot, nil
}

func (s *SQLiteDatabase) DeleteScreenshot(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM screenshots WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete screenshot %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteScreenshot(row rowScanner) (*Screenshot, error) {
	var screenshot Screenshot
	var createdAt, updatedAt int64
	if err := row.Scan(
		&screenshot.ID,
		&screenshot.Title,
		&screenshot.Description,
		&screenshot.Position,
		&screenshot.ImageData,
		&screenshot.MimeType,
		&screenshot.FileName,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	screenshot.CreatedAt = time.Unix(0, createdAt)
	screenshot.UpdatedAt = time.Unix(0, updatedAt)
	return &screenshot, nil
}
