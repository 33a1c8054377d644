package utils

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func makePNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test PNG: %v", err)
	}
	return buf.Bytes()
}

func TestOptimalRenderSize(t *testing.T) {
	cases := []struct {
		srcW, srcH  int
		maxLongEdge int
		wantW       int
		wantH       int
	}{
		{800, 600, 1536, 800, 600},    // 한도 안이면 그대로
		{3000, 1500, 1536, 1536, 768}, // 긴 변 기준 축소, 비율 유지
		{1500, 3000, 1536, 768, 1536},
		{1536, 1536, 1536, 1536, 1536},
		{0, 600, 1536, 1536, 1536}, // 잘못된 입력은 정사각 fallback
	}

	for _, c := range cases {
		w, h := OptimalRenderSize(c.srcW, c.srcH, c.maxLongEdge)
		if w != c.wantW || h != c.wantH {
			t.Errorf("OptimalRenderSize(%d, %d, %d) = (%d, %d), want (%d, %d)",
				c.srcW, c.srcH, c.maxLongEdge, w, h, c.wantW, c.wantH)
		}
	}
}

func TestResizeImageDimensions(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 50))
	dst := ResizeImage(src, 20, 10)

	bounds := dst.Bounds()
	if bounds.Dx() != 20 || bounds.Dy() != 10 {
		t.Errorf("resized to %dx%d, want 20x10", bounds.Dx(), bounds.Dy())
	}
}

func TestPixelatePreviewReturnsDecodablePNG(t *testing.T) {
	data := makePNG(t, 512, 256)

	preview, err := PixelatePreview(data, 32)
	if err != nil {
		t.Fatalf("PixelatePreview error: %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(preview)
	if err != nil {
		t.Fatalf("preview is not valid base64: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("preview is not a PNG: %v", err)
	}

	// 긴 변 256 기준으로 비율 유지
	bounds := img.Bounds()
	if bounds.Dx() != 256 || bounds.Dy() != 128 {
		t.Errorf("preview size = %dx%d, want 256x128", bounds.Dx(), bounds.Dy())
	}
}

func TestPixelatePreviewSmallSource(t *testing.T) {
	// 이미 256보다 작은 원본은 키우지 않는다
	data := makePNG(t, 64, 64)

	preview, err := PixelatePreview(data, 32)
	if err != nil {
		t.Fatalf("PixelatePreview error: %v", err)
	}

	raw, _ := base64.StdEncoding.DecodeString(preview)
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("preview is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 64 {
		t.Errorf("preview size = %dx%d, want 64x64", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestPixelatePreviewRejectsGarbage(t *testing.T) {
	if _, err := PixelatePreview([]byte("not an image"), 32); err == nil {
		t.Error("garbage input should fail")
	}
}

func TestFitWithin(t *testing.T) {
	cases := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{100, 50, 200, 100, 50},
		{400, 200, 100, 100, 50},
		{200, 400, 100, 50, 100},
		{1, 1000, 10, 1, 10}, // 극단적 비율에서도 최소 1px
	}

	for _, c := range cases {
		w, h := fitWithin(c.w, c.h, c.max)
		if w != c.wantW || h != c.wantH {
			t.Errorf("fitWithin(%d, %d, %d) = (%d, %d), want (%d, %d)",
				c.w, c.h, c.max, w, h, c.wantW, c.wantH)
		}
	}
}

func TestConvertImageToBase64RoundTrip(t *testing.T) {
	data := []byte{0x89, 0x50, 0x4e, 0x47}
	encoded := ConvertImageToBase64(data)

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	if !bytes.Equal(decoded, data) {
		t.Error("round trip mismatch")
	}
}
