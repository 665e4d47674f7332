package service

import (
	"bytes"
	"image"
	_ "image/gif" // GIF decoder
	"image/jpeg"
	"image/png"
	"path"
	"strings"
)

// processedImage re-encoded variants of an upload; nil variants fall back to the original
type processedImage struct {
	large       []byte
	thumb       []byte
	contentType string // of large/thumb
	ext         string
	width       int
	height      int
}

// processImage decodes the upload, records its dimensions and re-encodes
// a large and a thumbnail variant. Undecodable formats (webp) keep only the original.
func processImage(data []byte, largeWidth, thumbWidth int) (*processedImage, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	out := &processedImage{width: bounds.Dx(), height: bounds.Dy()}

	// GIF는 애니메이션 보존을 위해 원본 유지
	if format == "gif" {
		return out, nil
	}

	encode := func(src image.Image) ([]byte, error) {
		var buf bytes.Buffer
		if format == "png" {
			if err := png.Encode(&buf, src); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		}
		if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: 85}); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	if format == "png" {
		out.contentType, out.ext = "image/png", ".png"
	} else {
		out.contentType, out.ext = "image/jpeg", ".jpg"
	}

	if largeWidth > 0 && out.width > largeWidth {
		if out.large, err = encode(resizeImage(img, largeWidth)); err != nil {
			return nil, err
		}
	}
	if thumbWidth > 0 && out.width > thumbWidth {
		if out.thumb, err = encode(resizeImage(img, thumbWidth)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// sanitizeFilename keeps alphanumerics, dash, underscore and Hangul
func sanitizeFilename(original, ext string) string {
	base := strings.TrimSuffix(path.Base(original), path.Ext(original))
	var result strings.Builder
	for _, r := range base {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '-' || r == '_' || (r >= 0xAC00 && r <= 0xD7A3) {
			result.WriteRune(r)
		}
	}
	s := result.String()
	if s == "" {
		s = "image"
	}
	return s + ext
}

// titleFromFilename default title: file name without extension, separators as spaces
func titleFromFilename(filename string) string {
	base := strings.TrimSuffix(path.Base(filename), path.Ext(filename))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	return strings.TrimSpace(base)
}

// extForType canonical extension of an allowed image MIME type
func extForType(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}

// resizeImage resizes an image to the given max width, preserving aspect ratio
func resizeImage(img image.Image, maxWidth int) image.Image {
	bounds := img.Bounds()
	origWidth := bounds.Dx()
	origHeight := bounds.Dy()

	if origWidth <= maxWidth {
		return img
	}

	newWidth := maxWidth
	newHeight := origHeight * newWidth / origWidth
	if newHeight < 1 {
		newHeight = 1
	}

	// nearest-neighbor
	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	for y := 0; y < newHeight; y++ {
		for x := 0; x < newWidth; x++ {
			srcX := x * origWidth / newWidth
			srcY := y * origHeight / newHeight
			dst.Set(x, y, img.At(bounds.Min.X+srcX, bounds.Min.Y+srcY))
		}
	}

	return dst
}
