package layout

import "fmt"

// Offset - variation slot의 캔버스 좌표
type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Slot 배치 테이블.
// 0-7: inner ring - 원본의 변/모서리에 딱 붙는 8방향
// 8-11: outer ring - 상하좌우로 두 칸 더 바깥, 원본 기준 중앙 정렬
//
//	 8
//	701
//	6 2   (가운데가 원본)
//	543
//	 4 ... index 9=오른쪽 두 칸, 10=아래 두 칸, 11=왼쪽 두 칸
const MaxSlots = 12

// SupportedCounts - 한 배치에서 허용되는 variation 개수
var SupportedCounts = []int{4, 8, 12}

// slotIndexesByCount - count별로 사용하는 slot index 테이블.
// 4장이면 상하좌우만 써서 균형 잡힌 십자 배치가 된다.
var slotIndexesByCount = map[int][]int{
	4:  {0, 2, 4, 6},
	8:  {0, 1, 2, 3, 4, 5, 6, 7},
	12: {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
}

// SlotOffset - slot index를 원본 주변 좌표로 변환.
// variation은 원본과 같은 크기라는 전제. 범위 밖 index는 원본 위치 그대로 반환 (에러 아님).
func SlotOffset(srcX, srcY, srcWidth, srcHeight float64, slotIndex int) Offset {
	switch slotIndex {
	// inner ring
	case 0: // 바로 위, 왼쪽 변 정렬
		return Offset{X: srcX, Y: srcY - srcHeight}
	case 1: // 오른쪽 위 모서리
		return Offset{X: srcX + srcWidth, Y: srcY - srcHeight}
	case 2: // 바로 오른쪽, 위쪽 변 정렬
		return Offset{X: srcX + srcWidth, Y: srcY}
	case 3: // 오른쪽 아래 모서리
		return Offset{X: srcX + srcWidth, Y: srcY + srcHeight}
	case 4: // 바로 아래
		return Offset{X: srcX, Y: srcY + srcHeight}
	case 5: // 왼쪽 아래 모서리
		return Offset{X: srcX - srcWidth, Y: srcY + srcHeight}
	case 6: // 바로 왼쪽
		return Offset{X: srcX - srcWidth, Y: srcY}
	case 7: // 왼쪽 위 모서리
		return Offset{X: srcX - srcWidth, Y: srcY - srcHeight}

	// outer ring (두 칸 바깥, 중앙 정렬)
	case 8:
		return Offset{X: srcX, Y: srcY - 2*srcHeight}
	case 9:
		return Offset{X: srcX + 2*srcWidth, Y: srcY}
	case 10:
		return Offset{X: srcX, Y: srcY + 2*srcHeight}
	case 11:
		return Offset{X: srcX - 2*srcWidth, Y: srcY}
	}

	// 정의된 fallback: 원본 위치
	return Offset{X: srcX, Y: srcY}
}

// SlotIndexes - count별 slot index 할당
func SlotIndexes(count int) ([]int, error) {
	indexes, ok := slotIndexesByCount[count]
	if !ok {
		return nil, fmt.Errorf("unsupported variation count: %d (must be 4, 8 or 12)", count)
	}

	out := make([]int, len(indexes))
	copy(out, indexes)
	return out, nil
}

// Offsets - 배치 전체의 slot 좌표를 순서대로 계산
func Offsets(srcX, srcY, srcWidth, srcHeight float64, count int) ([]Offset, error) {
	indexes, err := SlotIndexes(count)
	if err != nil {
		return nil, err
	}

	offsets := make([]Offset, len(indexes))
	for i, slotIndex := range indexes {
		offsets[i] = SlotOffset(srcX, srcY, srcWidth, srcHeight, slotIndex)
	}
	return offsets, nil
}

// IsSupportedCount - 허용된 variation 개수인지 확인
func IsSupportedCount(count int) bool {
	_, ok := slotIndexesByCount[count]
	return ok
}
