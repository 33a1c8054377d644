package fallback

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log"
	"strconv"
	"strings"
)

const transparentPixelBase64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mP8/x8AAwMB/6X+ZQAAAABJRU5ErkJggg=="

// PlaceholderBase64 returns a 1x1 transparent PNG in base64 for slots that have no source image.
func PlaceholderBase64() string {
	return transparentPixelBase64
}

// ErrorOverlayBase64 - 실패한 slot에 표시할 에러 오버레이 이미지 생성.
// pixelated preview가 있으면 그 위에 어두운 veil을 덮고, 없으면 회색 박스로 대체.
func ErrorOverlayBase64(previewBase64 string) string {
	src := decodePreview(previewBase64)
	if src == nil {
		src = genericErrorTile(256, 256)
	}

	bounds := src.Bounds()
	overlaid := image.NewRGBA(bounds)
	draw.Draw(overlaid, bounds, src, bounds.Min, draw.Src)

	// 55% 검정 veil
	veil := image.NewUniform(color.RGBA{0, 0, 0, 140})
	draw.Draw(overlaid, bounds, veil, image.Point{}, draw.Over)

	var buf bytes.Buffer
	if err := png.Encode(&buf, overlaid); err != nil {
		log.Printf("⚠️ Failed to encode error overlay: %v", err)
		return transparentPixelBase64
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func decodePreview(previewBase64 string) image.Image {
	if previewBase64 == "" {
		return nil
	}

	raw := previewBase64
	if idx := strings.Index(raw, ";base64,"); idx >= 0 {
		raw = raw[idx+len(";base64,"):]
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	return img
}

func genericErrorTile(width, height int) image.Image {
	tile := image.NewRGBA(image.Rect(0, 0, width, height))
	gray := image.NewUniform(color.RGBA{48, 48, 52, 255})
	draw.Draw(tile, tile.Bounds(), gray, image.Point{}, draw.Src)
	return tile
}

// SafeString returns a trimmed string or the provided fallback.
func SafeString(value interface{}, fallback string) string {
	if s, ok := value.(string); ok {
		s = strings.TrimSpace(s)
		if s != "" {
			return s
		}
	}
	return fallback
}

// SafeInt converts common number shapes into int with a fallback.
func SafeInt(value interface{}, fallback int) int {
	switch v := value.(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case float32:
		if v > 0 {
			return int(v)
		}
	case int:
		if v > 0 {
			return v
		}
	case int64:
		if v > 0 {
			return int(v)
		}
	case json.Number:
		if n, err := strconv.Atoi(v.String()); err == nil && n > 0 {
			return n
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
