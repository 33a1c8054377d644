package placeholder

import (
	"fmt"
	"sync"
)

// Store - 캔버스 placeholder 상태 저장소.
// 모든 읽기는 복사본 반환, 모든 변경은 read-copy-update.
// 배치 두 개가 연달아 완료돼도 서로의 업데이트를 덮어쓰지 못한다.
type Store struct {
	mu    sync.RWMutex
	items map[string]Placeholder
	order []string // 생성 순서 유지 (캔버스 렌더 순서)
}

func NewStore() *Store {
	return &Store{
		items: make(map[string]Placeholder),
	}
}

// AddBatch - 배치의 placeholder를 all-or-nothing으로 추가.
// ID 충돌이 하나라도 있으면 아무것도 넣지 않는다.
func (s *Store) AddBatch(placeholders []Placeholder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range placeholders {
		if _, exists := s.items[p.ID]; exists {
			return fmt.Errorf("placeholder id collision: %s", p.ID)
		}
	}

	for _, p := range placeholders {
		s.items[p.ID] = p
		s.order = append(s.order, p.ID)
	}
	return nil
}

// Get - 복사본 반환
func (s *Store) Get(id string) (Placeholder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.items[id]
	return p, ok
}

// List - 생성 순서대로 전체 snapshot
func (s *Store) List() []Placeholder {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Placeholder, 0, len(s.order))
	for _, id := range s.order {
		if p, ok := s.items[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// ListBatch - 해당 배치 타임스탬프의 placeholder만 snapshot
func (s *Store) ListBatch(timestamp int64) []Placeholder {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Placeholder{}
	for _, id := range s.order {
		if !IDMatchesBatch(id, timestamp) {
			continue
		}
		if p, ok := s.items[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Update - 단일 placeholder를 함수형 업데이트. 없으면 false.
func (s *Store) Update(id string, fn func(Placeholder) Placeholder) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.items[id]
	if !ok {
		return false
	}

	next := fn(current)
	next.ID = current.ID // key는 불변
	s.items[id] = next
	return true
}

// UpdateBatch - 배치 전체 placeholder에 같은 업데이트 적용. 적용된 개수 반환.
func (s *Store) UpdateBatch(timestamp int64, fn func(Placeholder) Placeholder) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	for id, current := range s.items {
		if !IDMatchesBatch(id, timestamp) {
			continue
		}
		next := fn(current)
		next.ID = current.ID
		s.items[id] = next
		updated++
	}
	return updated
}

// Delete - 사용자가 캔버스 요소를 지울 때만 호출된다
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)

	for i, orderedID := range s.order {
		if orderedID == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Len - 현재 placeholder 개수
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
