package analysis

// StyleDescriptor - 원본 이미지의 무드/미학 분석 결과.
// Concept Stage만 소비한다.
type StyleDescriptor struct {
	Style    string   `json:"style"`    // "cinematic photo", "flat illustration" 등
	Mood     string   `json:"mood"`     // "warm nostalgic", "moody noir" 등
	Lighting string   `json:"lighting"` // "soft window light" 등
	Subject  string   `json:"subject"`  // 화면의 주 피사체 요약
	Palette  []string `json:"palette"`  // 주요 색상 (hex 또는 이름)
}

// DefaultDescriptor - 분석 기능 꺼졌을 때 쓰는 고정 기본값.
// 네트워크 호출 없이 파이프라인이 그대로 흘러가야 한다.
func DefaultDescriptor() *StyleDescriptor {
	return &StyleDescriptor{
		Style:    "natural photograph",
		Mood:     "neutral",
		Lighting: "balanced daylight",
		Subject:  "the main subject of the reference image",
		Palette:  []string{"neutral tones"},
	}
}
