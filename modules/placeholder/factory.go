package placeholder

import (
	"fmt"

	"variation-canvas-server/modules/layout"
)

// BatchSpec - 배치 공통 사전 계산 데이터.
// Factory는 네트워크 호출 전에 동기적으로 실행되어야 한다 (optimistic UI 계약).
type BatchSpec struct {
	IDPrefix         string          // ImageSlotPrefix 또는 VideoSlotPrefix
	Timestamp        int64           // 배치 key (단조 증가 clock에서 발급)
	Offsets          []layout.Offset // slot 순서대로의 캔버스 좌표
	Width            float64         // 원본과 동일한 slot 크기
	Height           float64
	PixelatedPreview string     // 전 slot이 공유하는 모자이크 프리뷰 (base64)
	Metadata         []Metadata // slot별 메타데이터. nil이면 전부 None
}

// Build - slot index마다 placeholder 한 개씩 생성.
// 생성 시점에 개수는 항상 len(Offsets)와 같고 이후 줄어들지 않는다
// (실패한 slot은 삭제가 아니라 에러 표시).
func Build(spec BatchSpec) ([]Placeholder, error) {
	if spec.Timestamp <= 0 {
		return nil, fmt.Errorf("batch timestamp must be positive, got %d", spec.Timestamp)
	}
	if len(spec.Offsets) == 0 {
		return nil, fmt.Errorf("batch has no slot offsets")
	}
	if spec.Metadata != nil && len(spec.Metadata) != len(spec.Offsets) {
		return nil, fmt.Errorf("metadata count %d does not match slot count %d",
			len(spec.Metadata), len(spec.Offsets))
	}

	prefix := spec.IDPrefix
	if prefix == "" {
		prefix = ImageSlotPrefix
	}

	placeholders := make([]Placeholder, len(spec.Offsets))
	for i, offset := range spec.Offsets {
		meta := NoMetadata()
		if spec.Metadata != nil {
			meta = spec.Metadata[i]
		}

		placeholders[i] = Placeholder{
			ID:               SlotID(prefix, spec.Timestamp, i),
			X:                offset.X,
			Y:                offset.Y,
			Width:            spec.Width,
			Height:           spec.Height,
			IsLoading:        true,
			PixelatedPreview: spec.PixelatedPreview,
			Metadata:         meta,
		}
	}

	return placeholders, nil
}
