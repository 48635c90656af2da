// Package pdfexport renders the screenshot collection as a PDF document,
// one page per screenshot.
package pdfexport

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/go-pdf/fpdf"
	"github.com/jo-hoe/goscreenshots/internal/backend/database"
)

const (
	DocumentTitle     = "Screenshots Export"
	EmptyExportText   = "No screenshots found."
	NoDescriptionText = "No description provided."
	ImageFailedText   = "Could not render screenshot image in PDF."

	// Size of the box every screenshot image is fitted into, in points.
	ImageBoxWidth  = 500.0
	ImageBoxHeight = 620.0
)

const (
	pageMargin       = 50.0
	headingFontSize  = 18.0
	bodyFontSize     = 12.0
	lineHeightFactor = 1.2
	fontFamily       = "Helvetica"
	documentCreator  = "goscreenshots"
)

type Option func(*Exporter)

// WithCompression toggles deflate compression of page content streams.
func WithCompression(compress bool) Option {
	return func(e *Exporter) {
		e.compress = compress
	}
}

type Exporter struct {
	compress bool
}

func NewExporter(options ...Option) *Exporter {
	exporter := &Exporter{compress: true}
	for _, option := range options {
		option(exporter)
	}
	return exporter
}

// Render produces one page per screenshot in the given order. A screenshot whose
// image cannot be drawn gets a visible note on its page instead; only failures
// while building or finalizing the document itself are returned.
func (e *Exporter) Render(screenshots []*database.Screenshot) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetCompression(e.compress)
	pdf.SetTitle(DocumentTitle, true)
	pdf.SetCreator(documentCreator, true)
	translate := pdf.UnicodeTranslatorFromDescriptor("")

	for i, screenshot := range screenshots {
		pdf.AddPage()

		writeLine(pdf, "U", headingFontSize, translate(fmt.Sprintf("%d. %s", i+1, screenshot.Title)))
		pdf.Ln(0.75 * lineHeight(headingFontSize))

		description := screenshot.Description
		if description == "" {
			description = NoDescriptionText
		}
		writeLine(pdf, "", bodyFontSize, translate(description))
		pdf.Ln(lineHeight(bodyFontSize))

		if err := drawImage(pdf, fmt.Sprintf("screenshot-%d", i), screenshot.ImageData); err != nil {
			slog.Warn("Render: could not draw screenshot image",
				"screenshot_id", screenshot.ID, "page", i+1, "error", err)
			pdf.SetTextColor(220, 38, 38)
			writeLine(pdf, "", bodyFontSize, ImageFailedText)
			pdf.SetTextColor(0, 0, 0)
		}
	}

	if len(screenshots) == 0 {
		pdf.AddPage()
		writeLine(pdf, "", headingFontSize, DocumentTitle)
		pdf.Ln(lineHeight(headingFontSize))
		writeLine(pdf, "", bodyFontSize, EmptyExportText)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to finalize pdf document: %w", err)
	}
	return buf.Bytes(), nil
}

func writeLine(pdf *fpdf.Fpdf, style string, size float64, text string) {
	pdf.SetFont(fontFamily, style, size)
	pdf.MultiCell(0, lineHeight(size), text, "", "L", false)
}

func lineHeight(size float64) float64 {
	return size * lineHeightFactor
}

// drawImage places the image inside the image box at the left margin and the
// current vertical position, centered horizontally and aligned to the top.
func drawImage(pdf *fpdf.Fpdf, name string, data []byte) error {
	source, err := normalizeImage(data, int(ImageBoxWidth), int(ImageBoxHeight))
	if err != nil {
		return err
	}

	options := fpdf.ImageOptions{ImageType: source.imageType}
	info, err := registerImage(pdf, name, options, source.data)
	if err != nil {
		return err
	}
	if info == nil || info.Width() <= 0 || info.Height() <= 0 {
		return fmt.Errorf("image %s has no drawable size", name)
	}

	width, height := fitDimensions(info.Width(), info.Height(), ImageBoxWidth, ImageBoxHeight)
	left, _, _, _ := pdf.GetMargins()
	x := left + (ImageBoxWidth-width)/2

	pdf.ImageOptions(name, x, pdf.GetY(), width, height, false, options, 0, "")
	if pdf.Err() {
		err := pdf.Error()
		pdf.ClearError()
		return fmt.Errorf("failed to draw image: %w", err)
	}
	return nil
}

// registerImage hands the image to the PDF writer. The writer panics on some
// malformed streams instead of recording an error, so a panic is turned into
// an error for this image only.
func registerImage(pdf *fpdf.Fpdf, name string, options fpdf.ImageOptions, data []byte) (info *fpdf.ImageInfoType, err error) {
	defer func() {
		if r := recover(); r != nil {
			pdf.ClearError()
			info, err = nil, fmt.Errorf("failed to register image: %v", r)
		}
	}()

	info = pdf.RegisterImageOptionsReader(name, options, bytes.NewReader(data))
	if pdf.Err() {
		err := pdf.Error()
		pdf.ClearError()
		return nil, fmt.Errorf("failed to register image: %w", err)
	}
	return info, nil
}

// fitDimensions scales width x height to the largest size that fits the box
// while keeping the aspect ratio.
func fitDimensions(width, height, boxWidth, boxHeight float64) (float64, float64) {
	if width/height > boxWidth/boxHeight {
		return boxWidth, height * boxWidth / width
	}
	return width * boxHeight / height, boxHeight
}
