package database

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

// steppingClock returns a clock that advances one millisecond per call so
// creation order is strictly increasing even for back-to-back inserts.
func steppingClock() func() time.Time {
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		current = current.Add(time.Millisecond)
		return current
	}
}

func stringPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

// runContract exercises the behaviour every DatabaseService backend must share.
func runContract(t *testing.T, newDB func(t *testing.T) DatabaseService) {
	t.Run("create and get", func(t *testing.T) {
		ds := newDB(t)
		ctx := context.Background()

		created, err := ds.CreateScreenshot(ctx, &NewScreenshot{
			Title:       "Login",
			Description: "The login page",
			Position:    2,
			ImageData:   []byte{0x89, 'P', 'N', 'G'},
			MimeType:    "image/png",
			FileName:    "login.png",
		})
		if err != nil {
			t.Fatalf("CreateScreenshot error: %v", err)
		}
		if created.ID == "" {
			t.Fatal("expected generated id")
		}
		if created.CreatedAt.IsZero() || !created.CreatedAt.Equal(created.UpdatedAt) {
			t.Fatalf("expected equal non-zero timestamps, got %v / %v", created.CreatedAt, created.UpdatedAt)
		}

		got, err := ds.GetScreenshotByID(ctx, created.ID)
		if err != nil {
			t.Fatalf("GetScreenshotByID error: %v", err)
		}
		if got.Title != "Login" || got.Description != "The login page" || got.Position != 2 {
			t.Errorf("unexpected fields: %+v", got)
		}
		if !bytes.Equal(got.ImageData, []byte{0x89, 'P', 'N', 'G'}) {
			t.Errorf("ImageData mismatch: %v", got.ImageData)
		}
		if got.MimeType != "image/png" || got.FileName != "login.png" {
			t.Errorf("unexpected mime/file name: %q %q", got.MimeType, got.FileName)
		}
		if !got.CreatedAt.Equal(created.CreatedAt) {
			t.Errorf("CreatedAt mismatch: %v != %v", got.CreatedAt, created.CreatedAt)
		}
	})

	t.Run("default mime type", func(t *testing.T) {
		ds := newDB(t)
		created, err := ds.CreateScreenshot(context.Background(), &NewScreenshot{
			Title: "t", Description: "d", ImageData: []byte("x"),
		})
		if err != nil {
			t.Fatalf("CreateScreenshot error: %v", err)
		}
		if created.MimeType != DefaultMimeType {
			t.Errorf("expected %q, got %q", DefaultMimeType, created.MimeType)
		}
	})

	t.Run("empty image rejected", func(t *testing.T) {
		ds := newDB(t)
		_, err := ds.CreateScreenshot(context.Background(), &NewScreenshot{Title: "t", Description: "d"})
		if err == nil {
			t.Fatal("expected error for empty image data")
		}
	})

	t.Run("list ordering", func(t *testing.T) {
		ds := newDB(t)
		ctx := context.Background()

		for _, tc := range []struct {
			title    string
			position int
		}{
			{"five", 5}, {"one", 1}, {"three", 3}, {"one-later", 1},
		} {
			if _, err := ds.CreateScreenshot(ctx, &NewScreenshot{
				Title: tc.title, Description: "d", Position: tc.position, ImageData: []byte("img"),
			}); err != nil {
				t.Fatalf("CreateScreenshot(%s) error: %v", tc.title, err)
			}
		}

		list, err := ds.ListScreenshots(ctx)
		if err != nil {
			t.Fatalf("ListScreenshots error: %v", err)
		}
		want := []string{"one", "one-later", "three", "five"}
		if len(list) != len(want) {
			t.Fatalf("expected %d screenshots, got %d", len(want), len(list))
		}
		for i, title := range want {
			if list[i].Title != title {
				t.Errorf("list[%d] = %q, want %q", i, list[i].Title, title)
			}
		}
	})

	t.Run("list empty", func(t *testing.T) {
		ds := newDB(t)
		list, err := ds.ListScreenshots(context.Background())
		if err != nil {
			t.Fatalf("ListScreenshots error: %v", err)
		}
		if list == nil || len(list) != 0 {
			t.Fatalf("expected empty non-nil list, got %v", list)
		}
	})

	t.Run("partial update", func(t *testing.T) {
		ds := newDB(t)
		ctx := context.Background()

		created, err := ds.CreateScreenshot(ctx, &NewScreenshot{
			Title: "t", Description: "d", Position: 0, ImageData: []byte("img"), MimeType: "image/png", FileName: "a.png",
		})
		if err != nil {
			t.Fatalf("CreateScreenshot error: %v", err)
		}

		updated, err := ds.UpdateScreenshot(ctx, created.ID, ScreenshotUpdate{Position: intPtr(2)})
		if err != nil {
			t.Fatalf("UpdateScreenshot error: %v", err)
		}
		if updated.Position != 2 {
			t.Errorf("expected position 2, got %d", updated.Position)
		}
		if updated.Title != "t" || updated.Description != "d" || string(updated.ImageData) != "img" {
			t.Errorf("unrelated fields changed: %+v", updated)
		}
		if updated.MimeType != "image/png" || updated.FileName != "a.png" {
			t.Errorf("mime/file name changed: %q %q", updated.MimeType, updated.FileName)
		}
		if !updated.UpdatedAt.After(created.UpdatedAt) {
			t.Errorf("expected UpdatedAt to advance: %v -> %v", created.UpdatedAt, updated.UpdatedAt)
		}
		if !updated.CreatedAt.Equal(created.CreatedAt) {
			t.Errorf("CreatedAt changed: %v -> %v", created.CreatedAt, updated.CreatedAt)
		}

		replaced, err := ds.UpdateScreenshot(ctx, created.ID, ScreenshotUpdate{
			Title:     stringPtr("new"),
			ImageData: []byte("other"),
			MimeType:  stringPtr("image/jpeg"),
			FileName:  stringPtr("b.jpg"),
		})
		if err != nil {
			t.Fatalf("UpdateScreenshot error: %v", err)
		}
		if replaced.Title != "new" || string(replaced.ImageData) != "other" || replaced.MimeType != "image/jpeg" || replaced.FileName != "b.jpg" {
			t.Errorf("unexpected replaced record: %+v", replaced)
		}
		if replaced.Position != 2 || replaced.Description != "d" {
			t.Errorf("retained fields changed: %+v", replaced)
		}
	})

	t.Run("update unknown", func(t *testing.T) {
		ds := newDB(t)
		_, err := ds.UpdateScreenshot(context.Background(), "missing", ScreenshotUpdate{Title: stringPtr("x")})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("delete twice", func(t *testing.T) {
		ds := newDB(t)
		ctx := context.Background()

		created, err := ds.CreateScreenshot(ctx, &NewScreenshot{Title: "t", Description: "d", ImageData: []byte("img")})
		if err != nil {
			t.Fatalf("CreateScreenshot error: %v", err)
		}
		if err := ds.DeleteScreenshot(ctx, created.ID); err != nil {
			t.Fatalf("first DeleteScreenshot error: %v", err)
		}
		if err := ds.DeleteScreenshot(ctx, created.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound on second delete, got %v", err)
		}
		if _, err := ds.GetScreenshotByID(ctx, created.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
		list, err := ds.ListScreenshots(ctx)
		if err != nil {
			t.Fatalf("ListScreenshots error: %v", err)
		}
		if len(list) != 0 {
			t.Fatalf("expected no screenshots after delete, got %d", len(list))
		}
	})

	t.Run("exists", func(t *testing.T) {
		ds := newDB(t)
		if !ds.DoesDatabaseExist(context.Background()) {
			t.Fatal("expected DoesDatabaseExist to return true")
		}
	})
}
