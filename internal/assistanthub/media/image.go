package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	xwebp "golang.org/x/image/webp"
)

var ErrNotImage = errors.New("unsupported image")

const OCRInstruction = "Extract all readable text from this image. Return only the text, preserving line breaks. If there is no text, reply with an empty line."

type ImageInfo struct {
	Format string
	Width  int
	Height int
}

func (i ImageInfo) MIME() string {
	if i.Format == "jpeg" {
		return "image/jpeg"
	}
	return "image/" + i.Format
}

// InspectImage reads the image header. PNG, JPEG, GIF and WebP are accepted.
func InspectImage(data []byte) (ImageInfo, error) {
	if len(data) == 0 {
		return ImageInfo{}, fmt.Errorf("%w: empty upload", ErrNotImage)
	}
	if cfg, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil && cfg.Width > 0 && cfg.Height > 0 {
		return ImageInfo{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
	}
	if isWebP(data) {
		cfg, err := xwebp.DecodeConfig(bytes.NewReader(data))
		if err == nil && cfg.Width > 0 && cfg.Height > 0 {
			return ImageInfo{Format: "webp", Width: cfg.Width, Height: cfg.Height}, nil
		}
	}
	return ImageInfo{}, ErrNotImage
}

func isWebP(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP"
}

// Describer is the vision model call.
type Describer interface {
	DescribeImage(ctx context.Context, mime string, data []byte, instruction string) (string, error)
}

// ImageText turns an uploaded image into text the user can submit as a query.
type ImageText struct {
	Model    Describer
	MaxBytes int64
	MaxSide  int
}

func (it ImageText) Extract(ctx context.Context, data []byte) (string, error) {
	if it.MaxBytes > 0 && int64(len(data)) > it.MaxBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrNotImage, len(data), it.MaxBytes)
	}
	info, err := InspectImage(data)
	if err != nil {
		return "", err
	}
	if it.MaxSide > 0 && (info.Width > it.MaxSide || info.Height > it.MaxSide) {
		return "", fmt.Errorf("%w: %dx%d exceeds %d", ErrNotImage, info.Width, info.Height, it.MaxSide)
	}
	text, err := it.Model.DescribeImage(ctx, info.MIME(), data, OCRInstruction)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
