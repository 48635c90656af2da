package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
	TypeRedis    = "redis"
)

// ResolveType maps a database url onto one of the supported backend types.
// Bare file paths and "file:" urls are SQLite, matching the default "file:./dev.db".
func ResolveType(databaseURL string) (string, string, error) {
	url := strings.TrimSpace(databaseURL)
	lower := strings.ToLower(url)

	switch {
	case url == "":
		return "", "", fmt.Errorf("database url must not be empty")
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return TypePostgres, url, nil
	case strings.HasPrefix(lower, "redis://"), strings.HasPrefix(lower, "rediss://"):
		return TypeRedis, url, nil
	case strings.HasPrefix(lower, "sqlite://"):
		return TypeSQLite, url[len("sqlite://"):], nil
	case strings.HasPrefix(lower, "file:"), url == ":memory:":
		return TypeSQLite, url, nil
	case strings.Contains(url, "://"):
		return "", "", fmt.Errorf("unsupported database url scheme: %s", url[:strings.Index(url, "://")])
	default:
		return TypeSQLite, url, nil
	}
}

func NewDatabase(ctx context.Context, databaseURL string) (database DatabaseService, err error) {
	databaseType, connectionString, err := ResolveType(databaseURL)
	if err != nil {
		return nil, err
	}

	switch databaseType {
	case TypeSQLite:
		database, err = NewSQLiteDatabase(connectionString)
	case TypePostgres:
		database, err = NewPostgresDatabase(ctx, connectionString)
	case TypeRedis:
		database, err = NewRedisDatabase(connectionString)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", databaseType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", databaseType, err)
	}

	// Ensure database schema exists (idempotent), important for in-memory SQLite
	slog.Info("initializing database schema (ensuring tables exist)", "type", databaseType)
	if err = database.CreateDatabase(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	return database, nil
}
