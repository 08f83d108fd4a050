package synth

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strconv"
)

// StubSynthesizer produces small placeholder PNGs without calling any
// external service (for development/testing).
type StubSynthesizer struct{}

func (s *StubSynthesizer) Synthesize(_ context.Context, req Request) ([]byte, error) {
	// Derive a deterministic fill color from the prompt so consecutive
	// rounds produce visibly different placeholders.
	var sum int
	for _, r := range req.Prompt {
		sum += int(r)
	}
	fill := color.RGBA{
		R: uint8(80 + sum%120),
		G: uint8(120 + sum%90),
		B: uint8(160 + sum%60),
		A: 255,
	}

	w, h := stubDimensions(req.Size)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, fill)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// stubDimensions parses a generic WxH size, scaled down 8x to keep stub
// artifacts small.
func stubDimensions(size Size) (int, int) {
	w, h := 128, 128
	s := string(size)
	for i := 0; i < len(s); i++ {
		if s[i] == 'x' {
			if pw, err := strconv.Atoi(s[:i]); err == nil {
				w = pw / 8
			}
			if ph, err := strconv.Atoi(s[i+1:]); err == nil {
				h = ph / 8
			}
			break
		}
	}
	return w, h
}
