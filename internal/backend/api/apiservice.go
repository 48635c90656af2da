package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jo-hoe/goscreenshots/internal/backend/database"
	"github.com/jo-hoe/goscreenshots/internal/core"
	"github.com/labstack/echo/v4"
)

const (
	exportFileName     = "screenshots-export.pdf"
	formOverheadBytes  = 1 << 20
	mimePDF            = "application/pdf"
	msgNotFound        = "Screenshot not found."
	msgFieldsRequired  = "title and description are required."
	msgImageRequired   = "image file is required."
	msgInvalidBody     = "Request body could not be parsed."
	msgInternalError   = "Internal server error"
	screenshotsBaseURL = "/api/screenshots"
)

// Store is the persistence surface the routes depend on.
type Store interface {
	ListScreenshots(ctx context.Context) ([]*database.Screenshot, error)
	GetScreenshotByID(ctx context.Context, id string) (*database.Screenshot, error)
	CreateScreenshot(ctx context.Context, fields *database.NewScreenshot) (*database.Screenshot, error)
	UpdateScreenshot(ctx context.Context, id string, update database.ScreenshotUpdate) (*database.Screenshot, error)
	DeleteScreenshot(ctx context.Context, id string) error
}

// Renderer turns an ordered screenshot listing into a PDF document.
type Renderer interface {
	Render(screenshots []*database.Screenshot) ([]byte, error)
}

type APIService struct {
	store         Store
	renderer      Renderer
	maxFileSize   int64
	maxFileSizeMB float64
}

// PublicScreenshot is the JSON shape of a screenshot. Image bytes are served separately.
type PublicScreenshot struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	MimeType    string    `json:"mimeType"`
	FileName    string    `json:"fileName"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	ImageURL    string    `json:"imageUrl"`
}

type createScreenshotRequest struct {
	Title       string `form:"title" validate:"required"`
	Description string `form:"description" validate:"required"`
}

func NewAPIService(config *core.ServiceConfig, store Store, renderer Renderer) *APIService {
	return &APIService{
		store:         store,
		renderer:      renderer,
		maxFileSize:   config.MaxFileSizeBytes(),
		maxFileSizeMB: config.MaxFileSizeMB,
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	// Probe route
	e.GET("/health", s.healthHandler)

	s.setDocsRoutes(e)

	limit := bodyLimit(s.maxFileSize + formOverheadBytes)
	group := e.Group(screenshotsBaseURL)
	group.GET("", s.listScreenshotsHandler)
	group.POST("", s.createScreenshotHandler, limit)
	group.GET("/export/pdf", s.exportPDFHandler)
	group.GET("/:id/image", s.getScreenshotImageHandler)
	group.PATCH("/:id", s.updateScreenshotHandler, limit)
	group.DELETE("/:id", s.deleteScreenshotHandler)
}

func toPublicScreenshot(screenshot *database.Screenshot) PublicScreenshot {
	return PublicScreenshot{
		ID:          screenshot.ID,
		Title:       screenshot.Title,
		Description: screenshot.Description,
		MimeType:    screenshot.MimeType,
		FileName:    screenshot.FileName,
		Position:    screenshot.Position,
		CreatedAt:   screenshot.CreatedAt,
		UpdatedAt:   screenshot.UpdatedAt,
		ImageURL:    imageURL(screenshot.ID),
	}
}

func imageURL(id string) string {
	return screenshotsBaseURL + "/" + id + "/image"
}

func (s *APIService) healthHandler(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *APIService) listScreenshotsHandler(ctx echo.Context) error {
	screenshots, err := s.store.ListScreenshots(ctx.Request().Context())
	if err != nil {
		return err
	}

	result := make([]PublicScreenshot, 0, len(screenshots))
	for _, screenshot := range screenshots {
		result = append(result, toPublicScreenshot(screenshot))
	}
	return ctx.JSON(http.StatusOK, result)
}

func (s *APIService) getScreenshotImageHandler(ctx echo.Context) error {
	screenshot, err := s.store.GetScreenshotByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.Blob(http.StatusOK, screenshot.MimeType, screenshot.ImageData)
}

func (s *APIService) createScreenshotHandler(ctx echo.Context) error {
	if !isMultipart(ctx.Request()) {
		return echo.NewHTTPError(http.StatusBadRequest, msgImageRequired)
	}

	form, err := parseUploadForm(ctx.Request(), s.maxFileSize)
	if err != nil {
		return requestBodyError(err)
	}

	request := createScreenshotRequest{
		Title:       form.Fields["title"],
		Description: form.Fields["description"],
	}
	if err := ctx.Validate(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, msgFieldsRequired).SetInternal(err)
	}
	if !form.hasImage() {
		return echo.NewHTTPError(http.StatusBadRequest, msgImageRequired)
	}

	// an unparsable position falls back to 0
	position, _ := parsePosition(form.Fields["position"])

	screenshot, err := s.store.CreateScreenshot(ctx.Request().Context(), &database.NewScreenshot{
		Title:       request.Title,
		Description: request.Description,
		Position:    position,
		ImageData:   form.Image.Data,
		MimeType:    form.Image.MimeType,
		FileName:    form.Image.FileName,
	})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, toPublicScreenshot(screenshot))
}

func (s *APIService) updateScreenshotHandler(ctx echo.Context) error {
	id := ctx.Param("id")
	existing, err := s.store.GetScreenshotByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}

	var fields map[string]string
	var image *FilePart
	if isMultipart(ctx.Request()) {
		form, err := parseUploadForm(ctx.Request(), s.maxFileSize)
		if err != nil {
			return requestBodyError(err)
		}
		fields, image = form.Fields, form.Image
	} else {
		fields, err = readPlainFields(ctx.Request())
		if err != nil {
			return requestBodyError(err)
		}
	}

	updated, err := s.store.UpdateScreenshot(ctx.Request().Context(), id, newScreenshotUpdate(fields, image, existing))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, toPublicScreenshot(updated))
}

func (s *APIService) deleteScreenshotHandler(ctx echo.Context) error {
	if err := s.store.DeleteScreenshot(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *APIService) exportPDFHandler(ctx echo.Context) error {
	screenshots, err := s.store.ListScreenshots(ctx.Request().Context())
	if err != nil {
		return err
	}

	document, err := s.renderer.Render(screenshots)
	if err != nil {
		return err
	}
	slog.Info("exportPDFHandler: rendered export", "screenshots", len(screenshots), "size_bytes", len(document))

	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+exportFileName+`"`)
	return ctx.Blob(http.StatusOK, mimePDF, document)
}

// requestBodyError keeps size violations intact and turns any other decoding
// failure into a 400.
func requestBodyError(err error) error {
	if isTooLarge(err) {
		return err
	}
	return echo.NewHTTPError(http.StatusBadRequest, msgInvalidBody).SetInternal(err)
}

func isTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.Is(err, ErrFileTooLarge) || errors.As(err, &maxBytesErr)
}

func formatMegabytes(mb float64) string {
	return strconv.FormatFloat(mb, 'f', -1, 64)
}
