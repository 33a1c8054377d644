package assetstore

import (
	"context"
	"fmt"
)

// Store - durable asset store 계약.
// EnsureStored는 멱등: 이미 저장된 ref는 그대로 돌려준다
// (concept/variation 플로우가 이전 배치에서 이미 올라간 이미지로 재진입하는 경우가 흔함).
type Store interface {
	// EnsureStored - sourceRef를 durable storage로 올리고 stored ref 반환
	EnsureStored(ctx context.Context, sourceRef string) (string, error)

	// Resolve - stored ref를 다운스트림 서비스가 바로 fetch할 수 있는 signed URL로 변환.
	// data URL이나 형식이 깨진 ref는 *RefError로 거부한다.
	Resolve(ctx context.Context, storedRef string) (string, error)
}

// RefError - 사용할 수 없는 ref에 대한 typed error
type RefError struct {
	Ref    string
	Reason string
}

func (e *RefError) Error() string {
	ref := e.Ref
	if len(ref) > 80 {
		ref = ref[:80] + "..."
	}
	return fmt.Sprintf("unusable asset ref %q: %s", ref, e.Reason)
}
