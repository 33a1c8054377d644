package utils

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg" // JPEG 디코더 등록
	"image/png"
	"log"
	"math"

	_ "github.com/kolesa-team/go-webp/decoder" // WebP 디코더 등록
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
)

// ConvertImageToBase64 - 이미지 바이너리를 base64로 변환
func ConvertImageToBase64(imageData []byte) string {
	return base64.StdEncoding.EncodeToString(imageData)
}

// ConvertPNGToWebP - PNG 바이너리를 WebP로 변환
func ConvertPNGToWebP(pngData []byte, quality float32) ([]byte, error) {
	// PNG 디코딩
	pngReader := bytes.NewReader(pngData)
	img, err := png.Decode(pngReader)
	if err != nil {
		return nil, fmt.Errorf("failed to decode PNG: %w", err)
	}

	// WebP 인코딩
	options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, quality)
	if err != nil {
		return nil, fmt.Errorf("failed to create WebP encoder options: %w", err)
	}

	var webpBuffer bytes.Buffer
	err = webp.Encode(&webpBuffer, img, options)
	if err != nil {
		return nil, fmt.Errorf("failed to encode WebP: %w", err)
	}

	webpData := webpBuffer.Bytes()

	log.Printf("✅ PNG converted to WebP: %d bytes → %d bytes (%.1f%% reduction)",
		len(pngData), len(webpData),
		float64(len(pngData)-len(webpData))/float64(len(pngData))*100)

	return webpData, nil
}

// ResizeImage - 이미지를 지정된 크기로 resize (Nearest Neighbor)
func ResizeImage(src image.Image, targetWidth, targetHeight int) image.Image {
	srcBounds := src.Bounds()
	srcWidth := srcBounds.Dx()
	srcHeight := srcBounds.Dy()

	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))

	scaleX := float64(srcWidth) / float64(targetWidth)
	scaleY := float64(srcHeight) / float64(targetHeight)

	for y := 0; y < targetHeight; y++ {
		for x := 0; x < targetWidth; x++ {
			srcX := srcBounds.Min.X + int(float64(x)*scaleX)
			srcY := srcBounds.Min.Y + int(float64(y)*scaleY)
			dst.Set(x, y, src.At(srcX, srcY))
		}
	}

	return dst
}

// PixelatePreview - 원본을 저해상도로 줄였다가 다시 키워서 모자이크 프리뷰 생성.
// slot placeholder가 로딩 중일 때 보여주는 이미지. base64 PNG 반환.
func PixelatePreview(imageData []byte, pixelSize int) (string, error) {
	if pixelSize <= 0 {
		pixelSize = 32
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return "", fmt.Errorf("failed to decode source image: %w", err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width == 0 || height == 0 {
		return "", fmt.Errorf("source image has zero dimension")
	}

	// 긴 변 기준으로 pixelSize 블록까지 축소
	smallW, smallH := fitWithin(width, height, pixelSize)
	small := ResizeImage(img, smallW, smallH)

	// 256px 기준으로 다시 확대 (블록이 그대로 커져서 모자이크 효과)
	outW, outH := fitWithin(width, height, 256)
	pixelated := ResizeImage(small, outW, outH)

	var buf bytes.Buffer
	if err := png.Encode(&buf, pixelated); err != nil {
		return "", fmt.Errorf("failed to encode preview: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// OptimalRenderSize - 원본 비율을 유지하면서 긴 변을 maxLongEdge로 제한한 생성 해상도 계산
func OptimalRenderSize(srcWidth, srcHeight, maxLongEdge int) (int, int) {
	if srcWidth <= 0 || srcHeight <= 0 {
		return maxLongEdge, maxLongEdge
	}

	longEdge := srcWidth
	if srcHeight > longEdge {
		longEdge = srcHeight
	}

	if longEdge <= maxLongEdge {
		return srcWidth, srcHeight
	}

	scale := float64(maxLongEdge) / float64(longEdge)
	w := int(math.Round(float64(srcWidth) * scale))
	h := int(math.Round(float64(srcHeight) * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

func fitWithin(width, height, maxEdge int) (int, int) {
	longEdge := width
	if height > longEdge {
		longEdge = height
	}
	if longEdge <= maxEdge {
		return width, height
	}
	scale := float64(maxEdge) / float64(longEdge)
	w := int(math.Max(1, math.Round(float64(width)*scale)))
	h := int(math.Max(1, math.Round(float64(height)*scale)))
	return w, h
}
