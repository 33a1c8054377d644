package concepts

import (
	"context"

	"variation-canvas-server/modules/analysis"
	"variation-canvas-server/modules/placeholder"
)

// Concept - slot 하나가 렌더링해야 할 프롬프트 + 메타데이터 쌍
type Concept struct {
	Prompt   string
	Metadata placeholder.Metadata
}

// Request - Concept Stage 입력
type Request struct {
	Count       int
	Style       *analysis.StyleDescriptor
	UserContext string // 사용자가 붙인 추가 디렉션 (선택)
}

// Generator - variation 종류별 concept 생성기 공통 계약.
// 반환 slice 길이는 반드시 Count와 같고, 순서가 slot index와 1:1 대응한다.
type Generator interface {
	Generate(ctx context.Context, req Request) ([]Concept, error)
}
