package placeholder

import (
	"fmt"
	"strconv"
	"strings"
)

// Slot ID prefix - 클라이언트 캔버스와 공유하는 wire format이라 바꾸면 안 됨.
// 이미지 variation: "variation-<timestamp>-<index>"
// 비디오 variation: "sora-video-<timestamp>-<index>"
const (
	ImageSlotPrefix = "variation"
	VideoSlotPrefix = "sora-video"
)

// MetadataKind - variation 종류별 메타데이터 태그
type MetadataKind string

const (
	KindNone        MetadataKind = "none"
	KindCameraAngle MetadataKind = "camera-angle"
	KindDirector    MetadataKind = "director"
	KindStoryline   MetadataKind = "storyline"
	KindBRoll       MetadataKind = "b-roll"
)

// Metadata - placeholder에 붙는 tagged union.
// Kind에 해당하는 필드 하나만 채워진다. 소비자는 Kind로 분기.
type Metadata struct {
	Kind        MetadataKind     `json:"kind"`
	CameraAngle *CameraAngleMeta `json:"cameraAngle,omitempty"`
	Director    *DirectorMeta    `json:"director,omitempty"`
	Storyline   *StorylineMeta   `json:"storyline,omitempty"`
	BRoll       *BRollMeta       `json:"bRoll,omitempty"`
}

type CameraAngleMeta struct {
	Label string `json:"label"` // "Front", "Back-Left" 등
}

type DirectorMeta struct {
	DirectorName string `json:"directorName"`
}

type StorylineMeta struct {
	TimeLabel     string `json:"timeLabel"`     // "Dawn", "Golden Hour" 등
	NarrativeNote string `json:"narrativeNote"` // 한 줄 내러티브
}

type BRollMeta struct {
	Tag string `json:"tag"` // "insert", "cutaway", "establishing" 등
}

// NoMetadata - 메타데이터 없는 slot용
func NoMetadata() Metadata {
	return Metadata{Kind: KindNone}
}

// Placeholder - 캔버스에 즉시 표시되는 variation slot 요소.
// Factory가 생성하고 Completion/Error Handler만 변경한다.
type Placeholder struct {
	ID               string   `json:"id"`
	X                float64  `json:"x"`
	Y                float64  `json:"y"`
	Width            float64  `json:"width"`
	Height           float64  `json:"height"`
	IsLoading        bool     `json:"isLoading"`
	PixelatedPreview string   `json:"pixelatedPreview,omitempty"`
	FinalSrc         string   `json:"finalSrc,omitempty"`
	ErrorInfo        string   `json:"errorInfo,omitempty"`
	Metadata         Metadata `json:"metadata"`
}

// SlotID - slot placeholder ID 생성. (timestamp, index)가 같으면 항상 같은 ID.
func SlotID(prefix string, timestamp int64, index int) string {
	return fmt.Sprintf("%s-%d-%d", prefix, timestamp, index)
}

// BatchTimestampFromID - ID에 박힌 배치 타임스탬프 추출.
// stale-update 필터의 기준이라서 파싱 실패는 (0, false)로 명시적으로 돌려준다.
func BatchTimestampFromID(id string) (int64, bool) {
	parts := strings.Split(id, "-")
	if len(parts) < 3 {
		return 0, false
	}

	// prefix가 "sora-video"처럼 하이픈을 포함할 수 있어서 뒤에서 두 번째가 timestamp
	ts, err := strconv.ParseInt(parts[len(parts)-2], 10, 64)
	if err != nil || ts <= 0 {
		return 0, false
	}
	return ts, true
}

// IDMatchesBatch - ID가 해당 배치 소속인지 확인
func IDMatchesBatch(id string, timestamp int64) bool {
	ts, ok := BatchTimestampFromID(id)
	return ok && ts == timestamp
}
