package imgutil

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"
)

// SlideFormatOriginal disables postprocessing: the image is returned as
// generated.
const SlideFormatOriginal = "original"

// SlideFormat describes a slide canvas preset.
type SlideFormat struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// slideFormats is the closed set of presets offered to callers.
var slideFormats = []SlideFormat{
	{ID: SlideFormatOriginal, Label: "Original (no resizing)"},
	{ID: "widescreen_16_9", Label: "Widescreen 16:9 (1920x1080)", Width: 1920, Height: 1080},
	{ID: "standard_4_3", Label: "Standard 4:3 (1440x1080)", Width: 1440, Height: 1080},
}

// SlideFormats returns the available presets in a stable order.
func SlideFormats() []SlideFormat {
	out := make([]SlideFormat, len(slideFormats))
	copy(out, slideFormats)
	return out
}

// ValidSlideFormat reports whether id names a known preset.
func ValidSlideFormat(id string) bool {
	for _, f := range slideFormats {
		if f.ID == id {
			return true
		}
	}
	return false
}

// AdaptForSlides letterboxes a PNG image onto a white canvas of the target
// preset's dimensions, preserving aspect ratio. The "original" preset is a
// no-op.
func AdaptForSlides(imageBytes []byte, formatID string) ([]byte, error) {
	if formatID == SlideFormatOriginal {
		return imageBytes, nil
	}
	var target *SlideFormat
	for i := range slideFormats {
		if slideFormats[i].ID == formatID {
			target = &slideFormats[i]
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("unknown slide format %q", formatID)
	}

	img, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := img.Bounds()
	ratio := min(
		float64(target.Width)/float64(b.Dx()),
		float64(target.Height)/float64(b.Dy()),
	)
	w := int(float64(b.Dx()) * ratio)
	h := int(float64(b.Dy()) * ratio)

	canvas := image.NewRGBA(image.Rect(0, 0, target.Width, target.Height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	offset := image.Rect(
		(target.Width-w)/2,
		(target.Height-h)/2,
		(target.Width-w)/2+w,
		(target.Height-h)/2+h,
	)
	draw.CatmullRom.Scale(canvas, offset, img, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
