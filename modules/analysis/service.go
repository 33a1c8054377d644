package analysis

import (
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
)

const analysisPrompt = `Analyze the visual style of this image and respond with JSON only:
{
  "style": "one short phrase describing the rendering style",
  "mood": "one short phrase describing the emotional tone",
  "lighting": "one short phrase describing the lighting",
  "subject": "one sentence describing the main subject",
  "palette": ["up to 5 dominant colors as short names or hex"]
}
No markdown, no commentary.`

type Service struct {
	genaiClient *genai.Client
	client      *http.Client
}

func NewService() *Service {
	cfg := config.GetConfig()

	ctx := context.Background()
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Printf("❌ [Analysis] Failed to create Genai client: %v", err)
		return nil
	}

	log.Println("✅ [Analysis] Service initialized")
	return &Service{
		genaiClient: genaiClient,
		client:      &http.Client{Timeout: 60 * time.Second},
	}
}

// Analyze - signed URL의 이미지를 내려받아 Gemini vision으로 StyleDescriptor 추출
func (s *Service) Analyze(ctx context.Context, signedURL string) (*StyleDescriptor, error) {
	cfg := config.GetConfig()

	imageData, mimeType, err := s.fetchImage(ctx, signedURL)
	if err != nil {
		return nil, err
	}

	parts := []*genai.Part{
		{
			InlineData: &genai.Blob{
				MIMEType: mimeType,
				Data:     imageData,
			},
		},
		genai.NewPartFromText(analysisPrompt),
	}

	content := &genai.Content{Parts: parts}

	result, err := geminiretry.GenerateContentWithRetry(
		ctx,
		s.genaiClient,
		cfg.GeminiVisionModel,
		[]*genai.Content{content},
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			Temperature:      floatPtr(0.2),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("vision analysis failed: %w", err)
	}

	text := extractText(result)
	if text == "" {
		return nil, fmt.Errorf("vision analysis returned no text")
	}

	var descriptor StyleDescriptor
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &descriptor); err != nil {
		return nil, fmt.Errorf("failed to parse style descriptor: %w", err)
	}

	log.Printf("✅ [Analysis] Style: %s / Mood: %s", descriptor.Style, descriptor.Mood)
	return &descriptor, nil
}

// fetchImage - signed URL에서 이미지 다운로드
func (s *Service) fetchImage(ctx context.Context, signedURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", signedURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create fetch request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, "", fmt.Errorf("failed to fetch image: status %d, body: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image data: %w", err)
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" || !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}

	return data, mimeType, nil
}

func extractText(result *genai.GenerateContentResponse) string {
	if result == nil {
		return ""
	}
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				return part.Text
			}
		}
	}
	return ""
}

// stripCodeFence - 모델이 가끔 붙이는 ```json fence 제거
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	}
	return strings.TrimSpace(trimmed)
}

func floatPtr(f float64) *float32 {
	f32 := float32(f)
	return &f32
}
