package gemini

import (
	"context"
	"log"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GenerateContentWithRetry - 429 rate limit에 한해 최대 3번 재시도하는 헬퍼.
// 429 외의 에러는 바로 반환한다. 이 재시도는 Gemini collaborator 호출 자체의 것이고
// 배치 파이프라인은 여기서 에러가 나오면 그대로 stage 실패로 처리한다.
func GenerateContentWithRetry(
	ctx context.Context,
	client *genai.Client,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {

	const maxRetries = 3
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		result, err := client.Models.GenerateContent(ctx, model, contents, config)
		if err == nil {
			return result, nil
		}

		lastErr = err

		// 429가 아닌 다른 에러면 바로 반환 (재시도 안 함)
		if !is429Error(err) {
			return nil, err
		}

		log.Printf("⚠️  [Gemini] Rate limit (429) on attempt %d/%d", attempt, maxRetries)
		if attempt < maxRetries {
			time.Sleep(2 * time.Second)
		}
	}

	return nil, lastErr
}

// is429Error - 429 Rate Limit 에러인지 확인
func is429Error(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()
	return strings.Contains(errStr, "429") ||
		strings.Contains(strings.ToLower(errStr), "rate limit") ||
		strings.Contains(strings.ToLower(errStr), "quota")
}
