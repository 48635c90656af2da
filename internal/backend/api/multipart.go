package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

const imageFieldName = "image"

// ErrFileTooLarge is returned when the uploaded image exceeds the configured ceiling.
var ErrFileTooLarge = errors.New("uploaded file is too large")

// Part is one decoded multipart part, either a *FilePart or a *ValuePart.
type Part interface {
	FieldName() string
	isPart()
}

// FilePart is a part sent with a file name. Data is only buffered for the image field.
type FilePart struct {
	Field    string
	FileName string
	MimeType string
	Data     []byte
}

func (p *FilePart) FieldName() string { return p.Field }
func (*FilePart) isPart()             {}

type ValuePart struct {
	Field string
	Value string
}

func (p *ValuePart) FieldName() string { return p.Field }
func (*ValuePart) isPart()             {}

// uploadForm is the result of collecting the parts of one request.
type uploadForm struct {
	Fields map[string]string
	Image  *FilePart
}

// hasImage reports whether a non-empty image file was uploaded.
func (f *uploadForm) hasImage() bool {
	return f.Image != nil && len(f.Image.Data) > 0
}

// readParts decodes every part of a multipart request. The image file is held in
// memory up to maxFileSize bytes, other files are discarded.
func readParts(r *http.Request, maxFileSize int64) ([]Part, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("failed to read multipart body: %w", err)
	}

	parts := make([]Part, 0)
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return parts, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read multipart part: %w", err)
		}

		decoded, err := decodePart(part, maxFileSize)
		_ = part.Close()
		if err != nil {
			return nil, err
		}
		parts = append(parts, decoded)
	}
}

func decodePart(part *multipart.Part, maxFileSize int64) (Part, error) {
	field := part.FormName()
	if part.FileName() == "" {
		value, err := io.ReadAll(part)
		if err != nil {
			return nil, fmt.Errorf("failed to read field %q: %w", field, err)
		}
		return &ValuePart{Field: field, Value: string(value)}, nil
	}

	file := &FilePart{
		Field:    field,
		FileName: part.FileName(),
		MimeType: part.Header.Get("Content-Type"),
	}
	if field != imageFieldName {
		if _, err := io.Copy(io.Discard, part); err != nil {
			return nil, fmt.Errorf("failed to skip file %q: %w", field, err)
		}
		return file, nil
	}

	data, err := io.ReadAll(io.LimitReader(part, maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}
	if int64(len(data)) > maxFileSize {
		return nil, ErrFileTooLarge
	}
	file.Data = data
	return file, nil
}

// collectForm folds decoded parts into a field map plus the image file. For
// repeated names the last part wins.
func collectForm(parts []Part) *uploadForm {
	form := &uploadForm{Fields: make(map[string]string)}
	for _, part := range parts {
		switch p := part.(type) {
		case *ValuePart:
			form.Fields[p.Field] = p.Value
		case *FilePart:
			if p.Field == imageFieldName {
				form.Image = p
			}
		}
	}
	return form
}

func parseUploadForm(r *http.Request, maxFileSize int64) (*uploadForm, error) {
	parts, err := readParts(r, maxFileSize)
	if err != nil {
		return nil, err
	}
	return collectForm(parts), nil
}
