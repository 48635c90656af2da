package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresColumns = "id, title, description, position, image_data, mime_type, file_name, created_at, updated_at"

var postgresMigrations = []string{
	`CREATE TABLE IF NOT EXISTS screenshots (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		image_data BYTEA NOT NULL,
		mime_type TEXT NOT NULL,
		file_name TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_screenshots_order ON screenshots (position, created_at)`,
}

// pgxPool is the subset of *pgxpool.Pool used here; pgxmock pools satisfy it as well.
type pgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

type PostgresDatabase struct {
	pool pgxPool
	now  func() time.Time
}

func NewPostgresDatabase(ctx context.Context, connectionString string) (*PostgresDatabase, error) {
	pool, err := pgxpool.New(ctx, connectionString)
	if err != nil {
		return nil, err
	}
	return newPostgresDatabase(pool), nil
}

func newPostgresDatabase(pool pgxPool) *PostgresDatabase {
	return &PostgresDatabase{
		pool: pool,
		now:  time.Now,
	}
}

func (p *PostgresDatabase) CreateDatabase(ctx context.Context) error {
	for i, migration := range postgresMigrations {
		if _, err := p.pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}

func (p *PostgresDatabase) DoesDatabaseExist(ctx context.Context) bool {
	return p.pool.Ping(ctx) == nil
}

func (p *PostgresDatabase) Close() error {
	p.pool.Close()
	return nil
}

func (p *PostgresDatabase) ListScreenshots(ctx context.Context) ([]*Screenshot, error) {
	rows, err := p.pool.Query(ctx, "SELECT "+postgresColumns+" FROM screenshots ORDER BY position ASC, created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("query screenshots: %w", err)
	}
	defer rows.Close()

	screenshots := make([]*Screenshot, 0)
	for rows.Next() {
		screenshot, err := scanPostgresScreenshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan screenshot: %w", err)
		}
		screenshots = append(screenshots, screenshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate screenshots: %w", err)
	}
	return screenshots, nil
}

func (p *PostgresDatabase) GetScreenshotByID(ctx context.Context, id string) (*Screenshot, error) {
	screenshot, err := scanPostgresScreenshot(p.pool.QueryRow(ctx,
		"SELECT "+postgresColumns+" FROM screenshots WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get screenshot %s: %w", id, err)
	}
	return screenshot, nil
}

func (p *PostgresDatabase) CreateScreenshot(ctx context.Context, fields *NewScreenshot) (*Screenshot, error) {
	screenshot, err := newScreenshot(fields, p.now())
	if err != nil {
		return nil, err
	}

	_, err = p.pool.Exec(ctx,
		"INSERT INTO screenshots ("+postgresColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
		screenshot.ID,
		screenshot.Title,
		screenshot.Description,
		screenshot.Position,
		screenshot.ImageData,
		screenshot.MimeType,
		screenshot.FileName,
		screenshot.CreatedAt,
		screenshot.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert screenshot: %w", err)
	}
	return screenshot, nil
}

func (p *PostgresDatabase) UpdateScreenshot(ctx context.Context, id string, update ScreenshotUpdate) (*Screenshot, error) {
	screenshot, err := scanPostgresScreenshot(p.pool.QueryRow(ctx, `UPDATE screenshots SET
		title = COALESCE($2, title),
		description = COALESCE($3, description),
		position = COALESCE($4, position),
		image_data = COALESCE($5, image_data),
		mime_type = COALESCE($6, mime_type),
		file_name = COALESCE($7, file_name),
		updated_at = $8
		WHERE id = $1
		RETURNING `+postgresColumns,
		id,
		nullable(update.Title),
		nullable(update.Description),
		nullable(update.Position),
		nullableBytes(update.ImageData),
		nullable(update.MimeType),
		nullable(update.FileName),
		p.now(),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update screenshot %s: %w", id, err)
	}
	return screenshot, nil
}

func (p *PostgresDatabase) DeleteScreenshot(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, "DELETE FROM screenshots WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete screenshot %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPostgresScreenshot(row rowScanner) (*Screenshot, error) {
	var screenshot Screenshot
	if err := row.Scan(
		&screenshot.ID,
		&screenshot.Title,
		&screenshot.Description,
		&screenshot.Position,
		&screenshot.ImageData,
		&screenshot.MimeType,
		&screenshot.FileName,
		&screenshot.CreatedAt,
		&screenshot.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &screenshot, nil
}
