package pdfexport

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log/slog"
	"strings"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Image types understood natively by the PDF writer.
const (
	imageTypePNG = "PNG"
	imageTypeJPG = "JPG"
	imageTypeGIF = "GIF"
)

var errEmptyImage = errors.New("image data is empty")

// imageSource is image data in a form the PDF writer can embed.
type imageSource struct {
	data      []byte
	imageType string
}

// normalizeImage prepares stored screenshot bytes for embedding. PNG, JPEG and GIF
// that decode cleanly pass through untouched, other raster formats are re-encoded as PNG and SVG is
// rasterized at its explicit size or, lacking one, at the fallback size.
func normalizeImage(data []byte, svgFallbackWidth, svgFallbackHeight int) (imageSource, error) {
	if len(data) == 0 {
		return imageSource{}, errEmptyImage
	}

	if isSVGData(data) {
		width, height, ok := parseSvgExplicitSize(data)
		if !ok {
			width, height = svgFallbackWidth, svgFallbackHeight
		}
		out, err := renderSVGToPNG(data, width, height)
		if err != nil {
			return imageSource{}, err
		}
		return imageSource{data: out, imageType: imageTypePNG}, nil
	}

	// Full decode so truncated or corrupt data fails here and never reaches the PDF writer.
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return imageSource{}, fmt.Errorf("failed to decode image: %w", err)
	}

	switch format {
	case "png":
		return imageSource{data: data, imageType: imageTypePNG}, nil
	case "jpeg":
		return imageSource{data: data, imageType: imageTypeJPG}, nil
	case "gif":
		return imageSource{data: data, imageType: imageTypeGIF}, nil
	}

	slog.Debug("normalizeImage: re-encoding raster image as PNG",
		"current_format", format,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy())

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return imageSource{}, fmt.Errorf("failed to encode image to PNG: %w", err)
	}
	return imageSource{data: buf.Bytes(), imageType: imageTypePNG}, nil
}

// isSVGData performs a lightweight detection of SVG content from raw bytes.
func isSVGData(data []byte) bool {
	// Only inspect the first ~4KB for detection
	n := len(data)
	if n > 4096 {
		n = 4096
	}
	header := bytes.ToLower(bytes.TrimSpace(data[:n]))
	return bytes.Contains(header, []byte("<svg")) ||
		bytes.Contains(header, []byte("xmlns=\"http://www.w3.org/2000/svg\"")) ||
		bytes.Contains(header, []byte("xmlns='http://www.w3.org/2000/svg'"))
}

// parseSvgExplicitSize extracts width and height attributes from the root svg tag.
// viewBox is not treated as a pixel size.
func parseSvgExplicitSize(data []byte) (int, int, bool) {
	n := len(data)
	if n > 8192 {
		n = 8192
	}
	s := strings.ToLower(string(data[:n]))

	i := strings.Index(s, "<svg")
	if i < 0 {
		return 0, 0, false
	}
	j := strings.Index(s[i:], ">")
	if j < 0 {
		j = len(s)
	} else {
		j = i + j
	}
	tag := s[i:j]

	w, wOk := parseNumericAttr(tag, "width")
	h, hOk := parseNumericAttr(tag, "height")
	if wOk && hOk {
		return w, h, true
	}
	return 0, 0, false
}

// parseNumericAttr extracts the leading integer of a quoted attribute value, e.g. width="123px".
func parseNumericAttr(tag, attr string) (int, bool) {
	pos := -1
	for _, candidate := range []string{" " + attr + "=", "\t" + attr + "=", "\n" + attr + "="} {
		if p := strings.Index(tag, candidate); p >= 0 {
			pos = p + len(candidate)
			break
		}
	}
	if pos < 0 || pos >= len(tag) {
		return 0, false
	}

	quote := tag[pos]
	if quote != '"' && quote != '\'' {
		return 0, false
	}
	val := tag[pos+1:]
	if end := strings.IndexByte(val, quote); end >= 0 {
		val = val[:end]
	}

	num := 0
	found := false
	for i := 0; i < len(val); i++ {
		ch := val[i]
		if ch >= '0' && ch <= '9' {
			found = true
			num = num*10 + int(ch-'0')
		} else if found {
			break
		}
	}
	if !found || num <= 0 {
		return 0, false
	}
	return num, true
}

// renderSVGToPNG renders an SVG onto a white canvas of the given size and encodes it as PNG.
func renderSVGToPNG(svgData []byte, targetW, targetH int) ([]byte, error) {
	if targetW <= 0 || targetH <= 0 {
		return nil, fmt.Errorf("invalid target dimensions for SVG rendering: %dx%d", targetW, targetH)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svgData))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SVG: %w", err)
	}
	icon.SetTarget(0, 0, float64(targetW), float64(targetH))

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(targetW, targetH, dst, dst.Bounds())
	dasher := rasterx.NewDasher(targetW, targetH, scanner)
	icon.Draw(dasher, 1.0)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode rendered SVG as PNG: %w", err)
	}
	return buf.Bytes(), nil
}
