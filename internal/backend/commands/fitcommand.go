package commands

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/jo-hoe/agerestore/internal/backend/commandstructure"
	"golang.org/x/image/draw"
)

// FitParams bounds the output size; the aspect ratio is always kept
type FitParams struct {
	MaxWidth  int
	MaxHeight int
}

func NewFitParamsFromMap(params map[string]any) (*FitParams, error) {
	p := &FitParams{
		MaxWidth:  commandstructure.GetIntParam(params, "maxWidth", 800),
		MaxHeight: commandstructure.GetIntParam(params, "maxHeight", 800),
	}
	if p.MaxWidth <= 0 || p.MaxHeight <= 0 {
		return nil, fmt.Errorf("maxWidth and maxHeight must be positive, got %dx%d", p.MaxWidth, p.MaxHeight)
	}
	return p, nil
}

// FitCommand downscales an image to fit inside a bounding box. It never upscales.
type FitCommand struct {
	name   string
	params *FitParams
}

func NewFitCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewFitParamsFromMap(params)
	if err != nil {
		return nil, err
	}
	return &FitCommand{name: "FitCommand", params: typedParams}, nil
}

func (c *FitCommand) Name() string {
	return c.name
}

func (c *FitCommand) GetParams() *FitParams {
	return c.params
}

func (c *FitCommand) Execute(imageData []byte) ([]byte, error) {
	img, _, err := decodeImage(imageData, DefaultMaxPixels)
	if err != nil {
		slog.Error("FitCommand: failed to decode image", "error", err)
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	b := img.Bounds()
	w, h := fitWithin(b.Dx(), b.Dy(), c.params.MaxWidth, c.params.MaxHeight)
	if w == b.Dx() && h == b.Dy() {
		slog.Debug("FitCommand: image already within bounds", "width", w, "height", h)
		return imageData, nil
	}

	slog.Debug("FitCommand: resizing",
		"original_width", b.Dx(),
		"original_height", b.Dy(),
		"target_width", w,
		"target_height", h)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)

	out, err := encodePNG(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to encode resized image: %w", err)
	}
	return out, nil
}

func init() {
	if err := commandstructure.DefaultRegistry.Register("FitCommand", NewFitCommand); err != nil {
		panic(fmt.Sprintf("failed to register FitCommand: %v", err))
	}
}
