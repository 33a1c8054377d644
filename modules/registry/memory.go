package registry

import (
	"context"
	"fmt"
	"sync"

	"variation-canvas-server/modules/placeholder"
)

// Memory - 프로세스 내 Registry 구현.
// Redis가 없는 로컬 개발/테스트에서 동일한 계약으로 동작한다.
type Memory struct {
	mu    sync.RWMutex
	tasks map[string]Task
	order []string
}

func NewMemory() *Memory {
	return &Memory{
		tasks: make(map[string]Task),
	}
}

func (m *Memory) InsertMany(ctx context.Context, tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// 충돌 검사 먼저 - 하나라도 겹치면 아무것도 넣지 않는다
	for _, t := range tasks {
		if _, exists := m.tasks[t.SlotID]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateSlot, t.SlotID)
		}
	}

	for _, t := range tasks {
		m.tasks[t.SlotID] = t
		m.order = append(m.order, t.SlotID)
	}
	return nil
}

func (m *Memory) Get(ctx context.Context, slotID string) (*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tasks[slotID]
	if !ok {
		return nil, nil
	}
	copied := t
	return &copied, nil
}

func (m *Memory) List(ctx context.Context) ([]Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Task, 0, len(m.order))
	for _, id := range m.order {
		if t, ok := m.tasks[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *Memory) ListBatch(ctx context.Context, timestamp int64) ([]Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []Task{}
	for _, id := range m.order {
		if !placeholder.IDMatchesBatch(id, timestamp) {
			continue
		}
		if t, ok := m.tasks[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *Memory) Delete(ctx context.Context, slotID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.tasks, slotID)
	m.removeFromOrder(slotID)
	return nil
}

func (m *Memory) DeleteBatch(ctx context.Context, timestamp int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for id := range m.tasks {
		if placeholder.IDMatchesBatch(id, timestamp) {
			delete(m.tasks, id)
			m.removeFromOrder(id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *Memory) removeFromOrder(slotID string) {
	for i, id := range m.order {
		if id == slotID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}
