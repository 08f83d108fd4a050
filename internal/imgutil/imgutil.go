// Package imgutil provides image encoding, resizing, and normalization
// helpers for the diagram pipeline. Every image leaving this package is PNG.
package imgutil

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// NormalizeToPNG converts any supported image encoding (PNG, JPEG, WEBP)
// to PNG bytes. Synthesis backends return their native encodings; the rest
// of the pipeline only ever sees PNG.
func NormalizeToPNG(imageBytes []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeReferenceBase64 reads an image file, downscales it so the largest
// dimension is at most maxDim pixels, and returns a base64-encoded PNG
// string for embedding into multimodal prompts.
func EncodeReferenceBase64(path string, maxDim int) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if longest := max(w, h); longest > maxDim {
		ratio := float64(maxDim) / float64(longest)
		img = scale(img, int(float64(w)*ratio), int(float64(h)*ratio))
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// SaveImage writes image bytes to disk and returns the path.
func SaveImage(imageBytes []byte, path string) (string, error) {
	if err := os.WriteFile(path, imageBytes, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func scale(img image.Image, w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}
