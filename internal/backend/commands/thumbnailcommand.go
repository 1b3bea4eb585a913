package commands

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/jo-hoe/agerestore/internal/backend/commandstructure"
)

// ThumbnailCommand renders a small JPEG preview of a fixed width
type ThumbnailCommand struct {
	name    string
	width   int
	quality int
}

func NewThumbnailCommand(params map[string]any) (commandstructure.Command, error) {
	width := commandstructure.GetIntParam(params, "width", 240)
	if width <= 0 {
		return nil, fmt.Errorf("width must be positive, got %d", width)
	}
	quality := commandstructure.GetIntParam(params, "quality", 75)
	if quality < minJpegQuality || quality > 100 {
		return nil, fmt.Errorf("quality must be between %d and 100, got %d", minJpegQuality, quality)
	}
	return &ThumbnailCommand{name: "ThumbnailCommand", width: width, quality: quality}, nil
}

func (c *ThumbnailCommand) Name() string {
	return c.name
}

func (c *ThumbnailCommand) GetWidth() int {
	return c.width
}

func (c *ThumbnailCommand) Execute(imageData []byte) ([]byte, error) {
	img, _, err := decodeImage(imageData, DefaultMaxPixels)
	if err != nil {
		slog.Error("ThumbnailCommand: failed to decode image", "error", err)
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	b := img.Bounds()
	targetW := min(c.width, b.Dx())
	targetH := max(1, int(float64(b.Dy())*float64(targetW)/float64(b.Dx())))

	src := flatten(img)
	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	xMap, yMap := buildIndexMaps(b.Dx(), b.Dy(), targetW, targetH)
	parallelFor(targetH, func(y int) {
		srcRow := yMap[y] * src.Stride
		dstRow := y * dst.Stride
		for x := 0; x < targetW; x++ {
			si := srcRow + xMap[x]*4
			di := dstRow + x*4
			copy(dst.Pix[di:di+4], src.Pix[si:si+4])
		}
	})

	slog.Debug("ThumbnailCommand: scaled",
		"original_width", b.Dx(),
		"original_height", b.Dy(),
		"target_width", targetW,
		"target_height", targetH)

	return encodeJPEG(dst, c.quality)
}

// buildIndexMaps precomputes the nearest source column and row per target pixel
func buildIndexMaps(originalWidth, originalHeight, scaledWidth, scaledHeight int) ([]int, []int) {
	xMap := make([]int, scaledWidth)
	yMap := make([]int, scaledHeight)
	for x := 0; x < scaledWidth; x++ {
		xMap[x] = min(originalWidth-1, x*originalWidth/scaledWidth)
	}
	for y := 0; y < scaledHeight; y++ {
		yMap[y] = min(originalHeight-1, y*originalHeight/scaledHeight)
	}
	return xMap, yMap
}

func init() {
	if err := commandstructure.DefaultRegistry.Register("ThumbnailCommand", NewThumbnailCommand); err != nil {
		panic(fmt.Sprintf("failed to register ThumbnailCommand: %v", err))
	}
}
