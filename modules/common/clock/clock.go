package clock

import (
	"sync"
	"time"
)

// Clock - 배치 타임스탬프 발급기.
// 타임스탬프가 배치 key이자 stale-update 필터로 쓰이기 때문에
// 같은 프로세스 안에서는 절대 중복되면 안 된다.
type Clock interface {
	// NowMillis returns a strictly increasing unix-millisecond timestamp.
	NowMillis() int64
}

// System - 실제 시계. 같은 ms에 두 번 호출되면 1ms씩 밀어서 단조 증가 보장.
type System struct {
	mu   sync.Mutex
	last int64
}

func NewSystem() *System {
	return &System{}
}

func (s *System) NowMillis() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixNano() / int64(time.Millisecond)
	if now <= s.last {
		now = s.last + 1
	}
	s.last = now
	return now
}

// Fake - 테스트용 수동 시계
type Fake struct {
	mu      sync.Mutex
	current int64
}

func NewFake(start int64) *Fake {
	return &Fake{current: start}
}

func (f *Fake) NowMillis() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current++
	return f.current
}
