package concepts

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"google.golang.org/genai"

	"variation-canvas-server/modules/common/config"
	geminiretry "variation-canvas-server/modules/common/gemini"
	"variation-canvas-server/modules/placeholder"
)

// StorylineGenerator - Gemini로 시간 흐름이 있는 내러티브 concept 생성.
// 카탈로그 방식과 달리 생성형 호출이지만 외부 계약은 동일하다:
// count개를 순서대로, 정확히 count개만.
type StorylineGenerator struct {
	genaiClient *genai.Client
}

func NewStorylineGenerator() *StorylineGenerator {
	cfg := config.GetConfig()

	ctx := context.Background()
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Printf("❌ [Storyline] Failed to create Genai client: %v", err)
		return nil
	}

	return &StorylineGenerator{genaiClient: genaiClient}
}

type storylineBeat struct {
	TimeLabel     string `json:"timeLabel"`
	NarrativeNote string `json:"narrativeNote"`
	Prompt        string `json:"prompt"`
}

func (g *StorylineGenerator) Generate(ctx context.Context, req Request) ([]Concept, error) {
	cfg := config.GetConfig()

	if req.Count <= 0 {
		return nil, fmt.Errorf("concept count must be positive, got %d", req.Count)
	}

	prompt := g.buildStorylinePrompt(req)

	content := &genai.Content{
		Parts: []*genai.Part{genai.NewPartFromText(prompt)},
	}

	result, err := geminiretry.GenerateContentWithRetry(
		ctx,
		g.genaiClient,
		cfg.GeminiPromptModel,
		[]*genai.Content{content},
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			Temperature:      floatPtr(0.8),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("storyline generation failed: %w", err)
	}

	text := extractText(result)
	if text == "" {
		return nil, fmt.Errorf("storyline generation returned no text")
	}

	var beats []storylineBeat
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &beats); err != nil {
		return nil, fmt.Errorf("failed to parse storyline beats: %w", err)
	}

	if len(beats) < req.Count {
		return nil, fmt.Errorf("storyline returned %d beats, need %d", len(beats), req.Count)
	}
	// 모델이 더 많이 돌려주면 앞에서 자른다 - 계약은 정확히 count개
	beats = beats[:req.Count]

	out := make([]Concept, req.Count)
	for i, beat := range beats {
		if strings.TrimSpace(beat.Prompt) == "" {
			return nil, fmt.Errorf("storyline beat %d has empty prompt", i)
		}
		out[i] = Concept{
			Prompt: beat.Prompt,
			Metadata: placeholder.Metadata{
				Kind: placeholder.KindStoryline,
				Storyline: &placeholder.StorylineMeta{
					TimeLabel:     beat.TimeLabel,
					NarrativeNote: beat.NarrativeNote,
				},
			},
		}
	}

	log.Printf("✅ [Storyline] Generated %d narrative beats", len(out))
	return out, nil
}

func (g *StorylineGenerator) buildStorylinePrompt(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Create a visual storyline of exactly %d sequential moments derived from one reference image.\n", req.Count)

	if req.Style != nil {
		fmt.Fprintf(&b, "The reference image style: %s, mood: %s, lighting: %s, subject: %s.\n",
			req.Style.Style, req.Style.Mood, req.Style.Lighting, req.Style.Subject)
	}
	if req.UserContext != "" {
		fmt.Fprintf(&b, "Additional direction from the user: %s\n", req.UserContext)
	}

	fmt.Fprintf(&b, `Respond with a JSON array of exactly %d objects, in chronological order:
[{"timeLabel": "short time-of-day or beat label", "narrativeNote": "one-line note of what happens", "prompt": "full image generation prompt for this moment, preserving the subject identity"}]
No markdown, no commentary.`, req.Count)

	return b.String()
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
