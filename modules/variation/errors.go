package variation

import (
	"errors"
	"fmt"
)

// Stage 에러 분류.
// Preparation/Upload/Analysis/ConceptGeneration은 배치 전체를 실패시키고 (batch-fatal),
// RenderError는 해당 slot 하나만 실패시킨다 (slot-scoped).
// 배치가 조용히 loading 상태로 남는 일은 없어야 한다.

// PreparationError - layout/preview 등 사전 계산 실패
type PreparationError struct {
	Timestamp int64
	Err       error
}

func (e *PreparationError) Error() string {
	return fmt.Sprintf("batch %d preparation failed: %v", e.Timestamp, e.Err)
}

func (e *PreparationError) Unwrap() error { return e.Err }

// UploadError - durable store 업로드/resolve 실패
type UploadError struct {
	Timestamp int64
	Err       error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("batch %d upload failed: %v", e.Timestamp, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// AnalysisError - style 분석 실패
type AnalysisError struct {
	Timestamp int64
	Err       error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("batch %d style analysis failed: %v", e.Timestamp, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// ConceptGenerationError - concept 생성 실패
type ConceptGenerationError struct {
	Timestamp int64
	Err       error
}

func (e *ConceptGenerationError) Error() string {
	return fmt.Sprintf("batch %d concept generation failed: %v", e.Timestamp, e.Err)
}

func (e *ConceptGenerationError) Unwrap() error { return e.Err }

// RenderError - 렌더러가 보고한 slot 단위 실패.
// 형제 slot들은 건드리지 않는다.
type RenderError struct {
	SlotID  string
	Message string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render failed for slot %s: %s", e.SlotID, e.Message)
}

// IsBatchFatal - 배치 전체 rollback이 필요한 에러인지 판별
func IsBatchFatal(err error) bool {
	var prep *PreparationError
	var upload *UploadError
	var analysisErr *AnalysisError
	var concept *ConceptGenerationError
	return errors.As(err, &prep) ||
		errors.As(err, &upload) ||
		errors.As(err, &analysisErr) ||
		errors.As(err, &concept)
}

// UserMessage - placeholder의 errorInfo에 넣을 사람이 읽는 메시지
func UserMessage(err error) string {
	var prep *PreparationError
	if errors.As(err, &prep) {
		return "Failed to prepare the variation batch"
	}
	var upload *UploadError
	if errors.As(err, &upload) {
		return "Failed to upload the source image"
	}
	var analysisErr *AnalysisError
	if errors.As(err, &analysisErr) {
		return "Failed to analyze the source image"
	}
	var concept *ConceptGenerationError
	if errors.As(err, &concept) {
		return "Failed to create variation concepts"
	}
	return "Variation generation failed"
}
