package main

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestSession(id string) *Session {
	return &Session{
		id:           id,
		clients:      make(map[string]*Client),
		createdAt:    time.Now(),
		lastActivity: time.Now(),
	}
}

// send 버퍼가 0이라 첫 전송부터 가득 찬 느린 클라이언트
func newSlowClient(userId string) *Client {
	return &Client{userId: userId, send: make(chan []byte)}
}

func TestBroadcastRawDropsSlowClientsUnderConcurrency(t *testing.T) {
	session := newTestSession("sess-concurrent")
	for i := 0; i < 8; i++ {
		userId := fmt.Sprintf("user-%d", i)
		session.clients[userId] = newSlowClient(userId)
	}

	// 파이프라인 goroutine들이 emit하듯 broadcast를 동시에 쏜다.
	// close가 두 번 일어나거나 맵을 동시에 고치면 여기서 panic/race로 터진다.
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session.broadcastRaw([]byte(`{"type":"variation_event"}`))
		}()
	}
	wg.Wait()

	session.mutex.RLock()
	remaining := len(session.clients)
	session.mutex.RUnlock()
	if remaining != 0 {
		t.Errorf("%d slow clients still registered after concurrent broadcasts", remaining)
	}
}

func TestRemoveClientAfterBroadcastDrop(t *testing.T) {
	session := newTestSession("sess-remove")
	session.clients["user-a"] = newSlowClient("user-a")

	session.broadcastRaw([]byte("x"))

	// broadcast가 이미 드랍했으면 removeClient는 close를 다시 하면 안 된다
	session.removeClient("user-a")

	session.mutex.RLock()
	defer session.mutex.RUnlock()
	if len(session.clients) != 0 {
		t.Errorf("session still has %d clients", len(session.clients))
	}
}

func TestBroadcastRawKeepsHealthyClients(t *testing.T) {
	session := newTestSession("sess-healthy")
	healthy := &Client{userId: "user-ok", send: make(chan []byte, 4)}
	session.clients["user-ok"] = healthy
	session.clients["user-slow"] = newSlowClient("user-slow")

	session.broadcastRaw([]byte("hello"))

	session.mutex.RLock()
	_, healthyKept := session.clients["user-ok"]
	_, slowKept := session.clients["user-slow"]
	session.mutex.RUnlock()

	if !healthyKept {
		t.Error("healthy client was dropped")
	}
	if slowKept {
		t.Error("slow client was not dropped")
	}
	if got := <-healthy.send; string(got) != "hello" {
		t.Errorf("healthy client received %q", got)
	}
}
