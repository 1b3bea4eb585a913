package commands

import (
	"fmt"
	"log/slog"

	"github.com/jo-hoe/agerestore/internal/backend/commandstructure"
)

const minJpegQuality = 10

// JpegCompressParams controls the quality search
type JpegCompressParams struct {
	Quality  int
	MaxBytes int
}

func NewJpegCompressParamsFromMap(params map[string]any) (*JpegCompressParams, error) {
	p := &JpegCompressParams{
		Quality:  commandstructure.GetIntParam(params, "quality", 80),
		MaxBytes: commandstructure.GetIntParam(params, "maxBytes", 512*1024),
	}
	if p.Quality < minJpegQuality || p.Quality > 100 {
		return nil, fmt.Errorf("quality must be between %d and 100, got %d", minJpegQuality, p.Quality)
	}
	if p.MaxBytes <= 0 {
		return nil, fmt.Errorf("maxBytes must be positive, got %d", p.MaxBytes)
	}
	return p, nil
}

// JpegCompressCommand encodes to JPEG, lowering the quality until the result
// fits MaxBytes or the quality floor is reached.
type JpegCompressCommand struct {
	name   string
	params *JpegCompressParams
}

func NewJpegCompressCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewJpegCompressParamsFromMap(params)
	if err != nil {
		return nil, err
	}
	return &JpegCompressCommand{name: "JpegCompressCommand", params: typedParams}, nil
}

func (c *JpegCompressCommand) Name() string {
	return c.name
}

func (c *JpegCompressCommand) GetParams() *JpegCompressParams {
	return c.params
}

func (c *JpegCompressCommand) Execute(imageData []byte) ([]byte, error) {
	img, _, err := decodeImage(imageData, DefaultMaxPixels)
	if err != nil {
		slog.Error("JpegCompressCommand: failed to decode image", "error", err)
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	flat := flatten(img)

	quality := c.params.Quality
	for {
		out, err := encodeJPEG(flat, quality)
		if err != nil {
			return nil, fmt.Errorf("failed to encode JPEG at quality %d: %w", quality, err)
		}
		if len(out) <= c.params.MaxBytes || quality == minJpegQuality {
			slog.Debug("JpegCompressCommand: encoded",
				"quality", quality,
				"output_size_bytes", len(out),
				"max_bytes", c.params.MaxBytes)
			return out, nil
		}
		quality = max(minJpegQuality, int(float64(quality)*0.7))
	}
}

func init() {
	if err := commandstructure.DefaultRegistry.Register("JpegCompressCommand", NewJpegCompressCommand); err != nil {
		panic(fmt.Sprintf("failed to register JpegCompressCommand: %v", err))
	}
}
