package variation

import (
	"context"
	"log"

	"variation-canvas-server/modules/common/fallback"
	"variation-canvas-server/modules/placeholder"
)

// ReportResult - 렌더러의 slot 단위 결과 보고를 placeholder에 반영한다.
// placeholder 변이는 전부 이 경로와 failBatch를 통해서만 일어난다.
// 알 수 없는/이미 제거된 slot의 보고는 무시한다 (늦게 도착한 결과가
// 다른 배치를 건드리면 안 된다).
func (s *Service) ReportResult(ctx context.Context, slotID string, outcome Outcome) error {
	timestamp, ok := placeholder.BatchTimestampFromID(slotID)
	if !ok {
		log.Printf("⚠️ [Variation] Ignoring result for unrecognized slot id: %s", slotID)
		return nil
	}

	if _, exists := s.placeholders.Get(slotID); !exists {
		// 배치가 이미 실패/정리됨 - registry 잔여 entry만 치운다
		log.Printf("⚠️ [Variation] Ignoring stale result for %s (batch %d gone)", slotID, timestamp)
		if err := s.registry.Delete(ctx, slotID); err != nil {
			log.Printf("⚠️ [Variation] Failed to clean stale registry entry %s: %v", slotID, err)
		}
		return nil
	}

	if outcome.Success {
		s.completeSlot(slotID, timestamp, outcome)
	} else {
		s.failSlot(slotID, timestamp, outcome)
	}

	if err := s.registry.Delete(ctx, slotID); err != nil {
		log.Printf("⚠️ [Variation] Failed to delete registry entry %s: %v", slotID, err)
	}

	s.finishSlot(timestamp)
	return nil
}

func (s *Service) completeSlot(slotID string, timestamp int64, outcome Outcome) {
	meta, hasMeta := s.metadataFor(slotID, timestamp)

	s.placeholders.Update(slotID, func(p placeholder.Placeholder) placeholder.Placeholder {
		p.FinalSrc = outcome.FinalSrc
		p.IsLoading = false
		p.ErrorInfo = ""
		if hasMeta {
			p.Metadata = meta
		}
		return p
	})

	log.Printf("✅ [Variation] Slot %s completed", slotID)
	s.emit(Event{Type: EventSlotCompleted, Timestamp: timestamp, SlotID: slotID})
}

func (s *Service) failSlot(slotID string, timestamp int64, outcome Outcome) {
	message := outcome.ErrorMessage
	if message == "" {
		message = "Generation failed"
	}

	s.placeholders.Update(slotID, func(p placeholder.Placeholder) placeholder.Placeholder {
		p.ErrorInfo = message
		p.IsLoading = false
		p.FinalSrc = fallback.ErrorOverlayBase64(p.PixelatedPreview)
		return p
	})

	log.Printf("❌ [Variation] Slot %s failed: %s", slotID, message)
	s.emit(Event{Type: EventSlotFailed, Timestamp: timestamp, SlotID: slotID, ErrorMessage: message})
}

// metadataFor - registry 채울 때 저장해둔 concept metadata를 slot index로 조회
func (s *Service) metadataFor(slotID string, timestamp int64) (placeholder.Metadata, bool) {
	idx, ok := SlotIndexFromID(slotID)
	if !ok {
		return placeholder.Metadata{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.batches[timestamp]
	if !ok || idx >= len(state.meta) {
		return placeholder.Metadata{}, false
	}
	return state.meta[idx], true
}

// finishSlot - 남은 slot 수를 줄이고, 배치가 끝났으면 내부 상태 정리
func (s *Service) finishSlot(timestamp int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.batches[timestamp]
	if !ok {
		return
	}
	state.remaining--
	if state.remaining <= 0 {
		delete(s.batches, timestamp)
		log.Printf("🏁 [Variation] Batch %d fully reconciled", timestamp)
	}
}

// failBatch - batch-fatal 에러의 단일 rollback 경로.
// 배치의 모든 placeholder를 에러 상태로 전환하고 registry entry를 비운다.
// 부분 실패 상태로 남는 배치는 없다.
func (s *Service) failBatch(ctx context.Context, timestamp int64, stageErr error) error {
	message := UserMessage(stageErr)
	log.Printf("❌ [Variation] Batch %d failed: %v", timestamp, stageErr)

	updated := s.placeholders.UpdateBatch(timestamp, func(p placeholder.Placeholder) placeholder.Placeholder {
		p.ErrorInfo = message
		p.IsLoading = false
		p.FinalSrc = fallback.ErrorOverlayBase64(p.PixelatedPreview)
		return p
	})

	if deleted, err := s.registry.DeleteBatch(ctx, timestamp); err != nil {
		log.Printf("⚠️ [Variation] Failed to clear registry for batch %d: %v", timestamp, err)
	} else if deleted > 0 {
		log.Printf("🧹 [Variation] Cleared %d registry entries for batch %d", deleted, timestamp)
	}

	s.mu.Lock()
	state, ok := s.batches[timestamp]
	if ok {
		delete(s.batches, timestamp)
	}
	s.mu.Unlock()

	// 분석 중이던 원본 placeholder의 veil도 복구
	if ok && state.sourceVeiled {
		s.placeholders.Update(state.req.Source.ID, func(p placeholder.Placeholder) placeholder.Placeholder {
			p.PixelatedPreview = ""
			return p
		})
	}

	log.Printf("🔄 [Variation] Batch %d rolled back: %d placeholders marked failed", timestamp, updated)
	s.emit(Event{Type: EventBatchFailed, Timestamp: timestamp, ErrorMessage: message})
	return stageErr
}
