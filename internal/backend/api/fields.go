package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/jo-hoe/goscreenshots/internal/backend/database"
)

// parsePosition accepts any finite integral number; blank input counts as 0.
func parsePosition(raw string) (int, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, true
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsInf(value, 0) || math.IsNaN(value) || value != math.Trunc(value) {
		return 0, false
	}
	if value > math.MaxInt32 || value < math.MinInt32 {
		return 0, false
	}
	return int(value), true
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.HasPrefix(mediaType, "multipart/")
}

// readPlainFields decodes a JSON object or a url-encoded form. JSON nulls are
// treated as absent fields.
func readPlainFields(r *http.Request) (map[string]string, error) {
	fields := make(map[string]string)
	if r.Body == nil || r.Body == http.NoBody {
		return fields, nil
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("failed to parse form body: %w", err)
		}
		for key := range r.PostForm {
			fields[key] = r.PostForm.Get(key)
		}
		return fields, nil
	case "application/json", "":
		decoder := json.NewDecoder(r.Body)
		decoder.UseNumber()
		raw := make(map[string]any)
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return fields, nil
			}
			return nil, fmt.Errorf("failed to decode JSON body: %w", err)
		}
		for key, value := range raw {
			if value == nil {
				continue
			}
			fields[key] = fmt.Sprint(value)
		}
		return fields, nil
	default:
		return nil, fmt.Errorf("unsupported content type %q", mediaType)
	}
}

// newScreenshotUpdate keeps only the fields that were sent. An unparsable
// position is dropped rather than rejected.
func newScreenshotUpdate(fields map[string]string, image *FilePart, existing *database.Screenshot) database.ScreenshotUpdate {
	var update database.ScreenshotUpdate
	if title, ok := fields["title"]; ok {
		update.Title = &title
	}
	if description, ok := fields["description"]; ok {
		update.Description = &description
	}
	if raw, ok := fields["position"]; ok {
		if position, valid := parsePosition(raw); valid {
			update.Position = &position
		}
	}

	if image != nil && len(image.Data) > 0 {
		update.ImageData = image.Data
		mimeType := image.MimeType
		if mimeType == "" {
			mimeType = existing.MimeType
		}
		fileName := image.FileName
		if fileName == "" {
			fileName = existing.FileName
		}
		update.MimeType = &mimeType
		update.FileName = &fileName
	}
	return update
}
