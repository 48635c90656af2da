package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jo-hoe/goscreenshots/internal/backend/database"
)

// CoreService owns the database for the lifetime of the process and logs every mutation.
type CoreService struct {
	databaseService database.DatabaseService
}

func NewCoreService(ctx context.Context, config *ServiceConfig) (*CoreService, error) {
	databaseService, err := database.NewDatabase(ctx, config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("database initialized successfully")

	return newCoreService(databaseService), nil
}

func newCoreService(databaseService database.DatabaseService) *CoreService {
	return &CoreService{
		databaseService: databaseService,
	}
}

func (service *CoreService) ListScreenshots(ctx context.Context) ([]*database.Screenshot, error) {
	return service.databaseService.ListScreenshots(ctx)
}

func (service *CoreService) GetScreenshotByID(ctx context.Context, id string) (*database.Screenshot, error) {
	return service.databaseService.GetScreenshotByID(ctx, id)
}

func (service *CoreService) CreateScreenshot(ctx context.Context, fields *database.NewScreenshot) (*database.Screenshot, error) {
	screenshot, err := service.databaseService.CreateScreenshot(ctx, fields)
	if err != nil {
		return nil, err
	}
	slog.Info("screenshot created",
		"screenshot_id", screenshot.ID,
		"position", screenshot.Position,
		"mime_type", screenshot.MimeType,
		"size_bytes", len(screenshot.ImageData))
	return screenshot, nil
}

func (service *CoreService) UpdateScreenshot(ctx context.Context, id string, update database.ScreenshotUpdate) (*database.Screenshot, error) {
	screenshot, err := service.databaseService.UpdateScreenshot(ctx, id, update)
	if err != nil {
		return nil, err
	}
	if update.IsEmpty() {
		slog.Debug("screenshot touched without field changes", "screenshot_id", id)
	} else {
		slog.Info("screenshot updated", "screenshot_id", id, "image_replaced", update.ImageData != nil)
	}
	return screenshot, nil
}

func (service *CoreService) DeleteScreenshot(ctx context.Context, id string) error {
	if err := service.databaseService.DeleteScreenshot(ctx, id); err != nil {
		return err
	}
	slog.Info("screenshot deleted", "screenshot_id", id)
	return nil
}

func (service *CoreService) Close() error {
	return service.databaseService.Close()
}
