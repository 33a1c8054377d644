package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"variation-canvas-server/modules/common/config"
	geminiretry "variation-canvas-server/modules/common/gemini"
	"variation-canvas-server/modules/common/utils"
	"variation-canvas-server/modules/registry"
)

// Renderer - registry task 하나를 최종 이미지/영상 URL로 바꾸는 계약
type Renderer interface {
	Render(ctx context.Context, task *registry.Task) (string, error)
}

// ResultStore - 렌더 결과물 저장 계약 (assetstore.Supabase가 구현)
type ResultStore interface {
	StoreRendered(ctx context.Context, slotID string, imageData []byte) (string, error)
}

// GeminiRenderer - Gemini 이미지 모델로 slot 렌더링
type GeminiRenderer struct {
	genaiClient *genai.Client
	store       ResultStore
	client      *http.Client
}

func NewGeminiRenderer(store ResultStore) *GeminiRenderer {
	cfg := config.GetConfig()

	ctx := context.Background()
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Printf("❌ [Render] Failed to create Genai client: %v", err)
		return nil
	}

	return &GeminiRenderer{
		genaiClient: genaiClient,
		store:       store,
		client:      &http.Client{Timeout: 60 * time.Second},
	}
}

func (r *GeminiRenderer) Render(ctx context.Context, task *registry.Task) (string, error) {
	sourceData, mimeType, err := r.fetchSource(ctx, task.ImageURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch source image: %w", err)
	}

	parts := []*genai.Part{
		{
			InlineData: &genai.Blob{
				MIMEType: mimeType,
				Data:     sourceData,
			},
		},
		genai.NewPartFromText(task.Prompt),
	}

	content := &genai.Content{Parts: parts}

	result, err := geminiretry.GenerateContentWithRetry(
		ctx,
		r.genaiClient,
		task.Model,
		[]*genai.Content{content},
		&genai.GenerateContentConfig{
			Temperature: floatPtr(0.5),
		},
	)
	if err != nil {
		return "", fmt.Errorf("image generation failed: %w", err)
	}

	imageData := extractImage(result)
	if imageData == nil {
		return "", fmt.Errorf("model returned no image data")
	}
	log.Printf("✅ [Render] Image generated for %s: %d bytes", task.SlotID, len(imageData))

	finalSrc, err := r.persistResult(ctx, task.SlotID, imageData)
	if err != nil {
		return "", fmt.Errorf("failed to store rendered image: %w", err)
	}
	return finalSrc, nil
}

// persistResult - 결과 이미지를 storage에 올리고 공개 URL 반환.
// store가 없으면 data URL로 인라인 반환 (storage 미설정 환경).
func (r *GeminiRenderer) persistResult(ctx context.Context, slotID string, imageData []byte) (string, error) {
	if r.store == nil {
		return "data:image/png;base64," + utils.ConvertImageToBase64(imageData), nil
	}
	return r.store.StoreRendered(ctx, slotID, imageData)
}

func (r *GeminiRenderer) fetchSource(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", imageURL, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("source fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" || !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, nil
}

func extractImage(result *genai.GenerateContentResponse) []byte {
	if result == nil {
		return nil
	}
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data
			}
		}
	}
	return nil
}

// VideoRenderer - 외부 video API 호출 (sora-video slot 전용)
type VideoRenderer struct {
	client *http.Client
}

func NewVideoRenderer() *VideoRenderer {
	return &VideoRenderer{
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

func (r *VideoRenderer) Render(ctx context.Context, task *registry.Task) (string, error) {
	cfg := config.GetConfig()

	if cfg.VideoAPIEndpoint == "" {
		return "", fmt.Errorf("video API endpoint is not configured")
	}

	payload := map[string]interface{}{
		"prompt":    task.Prompt,
		"image_url": task.ImageURL,
		"model":     task.Model,
		"width":     task.TargetWidth,
		"height":    task.TargetHeight,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", cfg.VideoAPIEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.VideoAPIKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call video API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("video API error: %s", string(respBody))
	}

	var videoResp struct {
		VideoURL string `json:"video_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&videoResp); err != nil {
		return "", fmt.Errorf("failed to decode video response: %w", err)
	}
	if videoResp.VideoURL == "" {
		return "", fmt.Errorf("video API returned no video_url")
	}

	log.Printf("✅ [Render] Video generated for %s", task.SlotID)
	return videoResp.VideoURL, nil
}

func floatPtr(f float64) *float32 {
	f32 := float32(f)
	return &f32
}
