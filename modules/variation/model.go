package variation

import (
	"fmt"
	"strconv"
	"strings"

	"variation-canvas-server/modules/placeholder"
)

// Mode - 배치 출력 형태
type Mode string

const (
	ModeImage Mode = "image"
	ModeVideo Mode = "video"
)

// Kind - variation 종류 (concept 생성기 선택 기준)
type Kind string

const (
	KindCamera    Kind = "camera"
	KindDirector  Kind = "director"
	KindStoryline Kind = "storyline"
	KindBRoll     Kind = "broll"
)

// Stage name - 배치 공용 진행 task의 접미사.
// wire format: "variation-<timestamp>-<stageName>"
const (
	StageUpload    = "upload"
	StageAnalyze   = "analyze"
	StageStoryline = "storyline"
	StageProcess   = "process"
)

// SourceImage - 배치의 기준이 되는 캔버스 요소. 이 엔진에서는 read-only.
type SourceImage struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	SrcRef string  `json:"srcRef"`
}

// StartRequest - 배치 시작 요청
type StartRequest struct {
	Source      SourceImage `json:"source"`
	Count       int         `json:"count"` // 4, 8, 12
	Mode        Mode        `json:"mode"`
	Kind        Kind        `json:"kind"`
	UserContext string      `json:"userContext,omitempty"`
}

// Batch - 시작된 배치. placeholder 생성 후에는 불변.
// 새 요청은 항상 새 배치를 만들고 진행 중인 배치를 건드리지 않는다.
type Batch struct {
	Timestamp    int64    `json:"timestamp"` // 배치 key
	Count        int      `json:"count"`
	Mode         Mode     `json:"mode"`
	Kind         Kind     `json:"kind"`
	SlotIDs      []string `json:"slotIds"`
	TargetWidth  int      `json:"targetWidth"`
	TargetHeight int      `json:"targetHeight"`
}

// SlotPrefix - 모드별 slot ID prefix
func SlotPrefix(mode Mode) string {
	if mode == ModeVideo {
		return placeholder.VideoSlotPrefix
	}
	return placeholder.ImageSlotPrefix
}

// StageTaskID - 배치 공용 stage task ID.
// slot ID와 달리 모드와 무관하게 "variation-" prefix 고정.
func StageTaskID(timestamp int64, stage string) string {
	return fmt.Sprintf("variation-%d-%s", timestamp, stage)
}

// ConceptStageName - concept 단계의 stage 이름은 종류에 따라 갈린다
func ConceptStageName(kind Kind) string {
	if kind == KindStoryline {
		return StageStoryline
	}
	return StageProcess
}

// SlotIndexFromID - slot ID 끝의 index 추출
func SlotIndexFromID(slotID string) (int, bool) {
	parts := strings.Split(slotID, "-")
	if len(parts) < 3 {
		return 0, false
	}
	idx, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}

// Outcome - 렌더러가 slot 하나에 대해 보고하는 결과
type Outcome struct {
	Success      bool   `json:"success"`
	FinalSrc     string `json:"finalSrc,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// Event - 캔버스 클라이언트에 브로드캐스트되는 진행 이벤트
type Event struct {
	Type         string                    `json:"type"`
	Timestamp    int64                     `json:"timestamp"`
	Stage        string                    `json:"stage,omitempty"`
	SlotID       string                    `json:"slotId,omitempty"`
	Placeholders []placeholder.Placeholder `json:"placeholders,omitempty"`
	ErrorMessage string                    `json:"errorMessage,omitempty"`
}

const (
	EventPlaceholdersCreated = "placeholders_created"
	EventStageUpdate         = "stage_update"
	EventSlotCompleted       = "slot_completed"
	EventSlotFailed          = "slot_failed"
	EventBatchFailed         = "batch_failed"
)
