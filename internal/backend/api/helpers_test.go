package api

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jo-hoe/goscreenshots/internal/backend/database"
	"github.com/jo-hoe/goscreenshots/internal/common"
	"github.com/jo-hoe/goscreenshots/internal/core"
	"github.com/labstack/echo/v4"
)

// memoryStore is an in-process Store double.
type memoryStore struct {
	mu          sync.Mutex
	screenshots map[string]*database.Screenshot
	clock       time.Time
	listErr     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		screenshots: make(map[string]*database.Screenshot),
		clock:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memoryStore) tick() time.Time {
	m.clock = m.clock.Add(time.Millisecond)
	return m.clock
}

func (m *memoryStore) ListScreenshots(ctx context.Context) ([]*database.Screenshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	result := make([]*database.Screenshot, 0, len(m.screenshots))
	for _, s := range m.screenshots {
		copied := *s
		result = append(result, &copied)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Position != result[j].Position {
			return result[i].Position < result[j].Position
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *memoryStore) GetScreenshotByID(ctx context.Context, id string) (*database.Screenshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.screenshots[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (m *memoryStore) CreateScreenshot(ctx context.Context, fields *database.NewScreenshot) (*database.Screenshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	mimeType := fields.MimeType
	if mimeType == "" {
		mimeType = database.DefaultMimeType
	}
	s := &database.Screenshot{
		ID:          uuid.NewString(),
		Title:       fields.Title,
		Description: fields.Description,
		Position:    fields.Position,
		ImageData:   fields.ImageData,
		MimeType:    mimeType,
		FileName:    fields.FileName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.screenshots[s.ID] = s
	copied := *s
	return &copied, nil
}

func (m *memoryStore) UpdateScreenshot(ctx context.Context, id string, update database.ScreenshotUpdate) (*database.Screenshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.screenshots[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	if update.Title != nil {
		s.Title = *update.Title
	}
	if update.Description != nil {
		s.Description = *update.Description
	}
	if update.Position != nil {
		s.Position = *update.Position
	}
	if update.ImageData != nil {
		s.ImageData = update.ImageData
	}
	if update.MimeType != nil {
		s.MimeType = *update.MimeType
	}
	if update.FileName != nil {
		s.FileName = *update.FileName
	}
	s.UpdatedAt = m.tick()
	copied := *s
	return &copied, nil
}

func (m *memoryStore) DeleteScreenshot(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.screenshots[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.screenshots, id)
	return nil
}

// fakeRenderer records what it was asked to render.
type fakeRenderer struct {
	rendered []*database.Screenshot
	err      error
}

func (f *fakeRenderer) Render(screenshots []*database.Screenshot) ([]byte, error) {
	f.rendered = screenshots
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-fake"), nil
}

func newTestServer(t *testing.T, store Store, renderer Renderer, maxFileSizeMB float64) *echo.Echo {
	t.Helper()
	config := core.DefaultConfig()
	config.MaxFileSizeMB = maxFileSizeMB

	e := echo.New()
	e.Validator = common.NewGenericEchoValidator()
	service := NewAPIService(config, store, renderer)
	e.HTTPErrorHandler = service.HandleError
	service.SetRoutes(e)
	return e
}

type formFile struct {
	field    string
	fileName string
	mimeType string
	data     []byte
}

// multipartBody encodes fields and files; the returned string is the content type.
func multipartBody(t *testing.T, fields map[string]string, files ...formFile) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := writer.WriteField(key, fields[key]); err != nil {
			t.Fatalf("WriteField(%s) error: %v", key, err)
		}
	}

	for _, file := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="`+file.field+`"; filename="`+file.fileName+`"`)
		if file.mimeType != "" {
			header.Set("Content-Type", file.mimeType)
		}
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("CreatePart(%s) error: %v", file.field, err)
		}
		if _, err := part.Write(file.data); err != nil {
			t.Fatalf("write file %s error: %v", file.field, err)
		}
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("multipart close error: %v", err)
	}
	return body, writer.FormDataContentType()
}

func doRequest(e *echo.Echo, method, target string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, body)
	}
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func pngImage() formFile {
	return formFile{field: "image", fileName: "shot.png", mimeType: "image/png", data: []byte("\x89PNG fake bytes")}
}
