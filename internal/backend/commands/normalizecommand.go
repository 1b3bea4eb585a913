package commands

import (
	"fmt"
	"log/slog"

	"github.com/jo-hoe/agerestore/internal/backend/commandstructure"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// NormalizeCommand decodes any supported upload format and re-encodes it as PNG
// so later steps work on a single lossless representation.
type NormalizeCommand struct {
	name              string
	svgFallbackWidth  int
	svgFallbackHeight int
	maxPixels         int64
}

// NewNormalizeCommand creates a normalize command; the SVG fallback size is only
// used for SVGs without explicit width and height. maxPixels bounds every
// decoded or rendered image.
func NewNormalizeCommand(params map[string]any) (commandstructure.Command, error) {
	w := commandstructure.GetIntParam(params, "svgFallbackWidth", 800)
	h := commandstructure.GetIntParam(params, "svgFallbackHeight", 800)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("svg fallback size must be positive, got %dx%d", w, h)
	}
	maxPixels := commandstructure.GetIntParam(params, "maxPixels", DefaultMaxPixels)
	if maxPixels <= 0 || maxPixels > DefaultMaxPixels {
		return nil, fmt.Errorf("maxPixels must be between 1 and %d, got %d", DefaultMaxPixels, maxPixels)
	}

	return &NormalizeCommand{
		name:              "NormalizeCommand",
		svgFallbackWidth:  w,
		svgFallbackHeight: h,
		maxPixels:         int64(maxPixels),
	}, nil
}

func (c *NormalizeCommand) Name() string {
	return c.name
}

func (c *NormalizeCommand) Execute(imageData []byte) ([]byte, error) {
	slog.Debug("NormalizeCommand: start", "input_size_bytes", len(imageData))

	if hasCorrectPngSignature(imageData) {
		if _, err := checkImageHeader(imageData, c.maxPixels); err != nil {
			slog.Warn("NormalizeCommand: rejected PNG", "error", err)
			return nil, fmt.Errorf("failed to read PNG header: %w", err)
		}
		return imageData, nil
	}

	if isSVGData(imageData) {
		w, h, ok := parseSvgExplicitSize(imageData)
		if !ok {
			w, h = c.svgFallbackWidth, c.svgFallbackHeight
		}
		if cw, ch := clampToPixels(w, h, c.maxPixels); cw != w || ch != h {
			slog.Debug("NormalizeCommand: clamped SVG size",
				"width", w, "height", h, "clamped_width", cw, "clamped_height", ch)
			w, h = cw, ch
		}
		img, err := renderSVG(imageData, w, h)
		if err != nil {
			slog.Error("NormalizeCommand: failed to render SVG", "error", err)
			return nil, err
		}
		return encodePNG(img)
	}

	img, format, err := decodeImage(imageData, c.maxPixels)
	if err != nil {
		slog.Error("NormalizeCommand: failed to decode image", "error", err)
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	slog.Debug("NormalizeCommand: decoded raster image",
		"format", format,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy())

	out, err := encodePNG(img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image to PNG: %w", err)
	}
	return out, nil
}

func init() {
	if err := commandstructure.DefaultRegistry.Register("NormalizeCommand", NewNormalizeCommand); err != nil {
		panic(fmt.Sprintf("failed to register NormalizeCommand: %v", err))
	}
}
