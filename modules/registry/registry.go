package registry

import (
	"context"
	"errors"
)

// Task status - 단계 전환은 단조 증가만 허용:
// uploading → analyzing → creating-concepts → generating → (삭제)
const (
	StatusUploading        = "uploading"
	StatusAnalyzing        = "analyzing"
	StatusCreatingConcepts = "creating-concepts"
	StatusGenerating       = "generating"
)

// Task - 렌더러가 소비하는 generation task 설명.
// Registry 안에서만 존재하고 완료/에러/단계 전환 시 제거된다.
type Task struct {
	SlotID       string `json:"slotId"`
	ImageURL     string `json:"imageUrl"`
	Prompt       string `json:"prompt"`
	TargetWidth  int    `json:"targetWidth"`
	TargetHeight int    `json:"targetHeight"`
	Model        string `json:"model"`
	Status       string `json:"status"`
	CreatedAt    int64  `json:"createdAt"`
}

// ErrDuplicateSlot - 같은 slot ID로 두 번 insert하려는 경우
var ErrDuplicateSlot = errors.New("registry: slot id already present")

// Registry - 배치 단위 all-or-nothing 계약을 타입으로 강제한 KV store.
// InsertMany는 원자적이고, 배치 rollback은 타임스탬프 prefix로 한 번에 지운다.
type Registry interface {
	// InsertMany - 배치의 entry들을 원자적으로 삽입. 부분 삽입은 없다.
	InsertMany(ctx context.Context, tasks []Task) error

	// Get - slot ID로 단일 조회. 없으면 (nil, nil).
	Get(ctx context.Context, slotID string) (*Task, error)

	// List - 전체 snapshot
	List(ctx context.Context) ([]Task, error)

	// ListBatch - 해당 배치 타임스탬프의 entry만
	ListBatch(ctx context.Context, timestamp int64) ([]Task, error)

	// Delete - 단일 entry 제거 (render 완료 시)
	Delete(ctx context.Context, slotID string) error

	// DeleteBatch - 배치 타임스탬프가 key에 박힌 entry 전부 제거 (abort/rollback).
	// 지운 개수 반환.
	DeleteBatch(ctx context.Context, timestamp int64) (int, error)
}
