package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"variation-canvas-server/modules/assetstore"
	"variation-canvas-server/modules/common/config"
	redisutil "variation-canvas-server/modules/common/redis"
	"variation-canvas-server/modules/render"
	"variation-canvas-server/modules/variation"
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// 개발용 - 모든 origin 허용
		return true
	},
}

// 연결된 클라이언트 정보
type Client struct {
	conn      *websocket.Conn
	sessionId string
	userId    string
	send      chan []byte
}

// 세션 관리 - 같은 캔버스를 보는 클라이언트 묶음
type Session struct {
	id           string
	clients      map[string]*Client
	mutex        sync.RWMutex
	createdAt    time.Time
	lastActivity time.Time
}

// 세션 매니저
type SessionManager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
	metrics  *ServerMetrics
}

// 서버 메트릭
type ServerMetrics struct {
	TotalSessions    int       `json:"totalSessions"`
	ActiveSessions   int       `json:"activeSessions"`
	TotalConnections int       `json:"totalConnections"`
	EventsBroadcast  int       `json:"eventsBroadcast"`
	StartTime        time.Time `json:"startTime"`
	mutex            sync.RWMutex
}

var sessionManager = &SessionManager{
	sessions: make(map[string]*Session),
	metrics: &ServerMetrics{
		StartTime: time.Now(),
	},
}

// 세션 가져오기 또는 생성
func (sm *SessionManager) getOrCreateSession(sessionId string) *Session {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	session, exists := sm.sessions[sessionId]
	if !exists {
		now := time.Now()
		session = &Session{
			id:           sessionId,
			clients:      make(map[string]*Client),
			createdAt:    now,
			lastActivity: now,
		}
		sm.sessions[sessionId] = session

		sm.metrics.mutex.Lock()
		sm.metrics.TotalSessions++
		sm.metrics.ActiveSessions++
		sm.metrics.mutex.Unlock()

		log.Printf("✅ Created new session: %s (Total: %d, Active: %d)",
			sessionId, sm.metrics.TotalSessions, sm.metrics.ActiveSessions)
	}

	session.lastActivity = time.Now()
	return session
}

// 클라이언트를 세션에 추가
func (s *Session) addClient(client *Client) {
	s.mutex.Lock()
	s.clients[client.userId] = client
	s.lastActivity = time.Now()
	clientCount := len(s.clients)
	s.mutex.Unlock()

	sessionManager.metrics.mutex.Lock()
	sessionManager.metrics.TotalConnections++
	sessionManager.metrics.mutex.Unlock()

	log.Printf("👤 Client %s joined session %s (Clients: %d)", client.userId, s.id, clientCount)
}

// 클라이언트를 세션에서 제거
func (s *Session) removeClient(userId string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if client, exists := s.clients[userId]; exists {
		close(client.send)
		delete(s.clients, userId)
		s.lastActivity = time.Now()
		log.Printf("👋 Client %s left session %s (Remaining: %d)", userId, s.id, len(s.clients))
	}
}

// 세션의 모든 클라이언트에게 raw 메시지 전송.
// 배치 파이프라인 goroutine들이 동시에 호출하므로 clients 맵 변경은
// write lock 아래에서만 한다. RLock 구간에서는 느린 클라이언트를
// 수집만 하고, 정리 단계에서 같은 *Client인지 다시 확인한다
// (그 사이 removeClient나 다른 broadcast가 먼저 정리했을 수 있다).
func (s *Session) broadcastRaw(messageBytes []byte) {
	var slow []*Client

	s.mutex.RLock()
	for _, client := range s.clients {
		select {
		case client.send <- messageBytes:
		default:
			slow = append(slow, client)
		}
	}
	s.mutex.RUnlock()

	if len(slow) == 0 {
		return
	}

	s.mutex.Lock()
	for _, client := range slow {
		if current, exists := s.clients[client.userId]; exists && current == client {
			close(client.send)
			delete(s.clients, client.userId)
			log.Printf("⚠️ Dropped slow client %s from session %s", client.userId, s.id)
		}
	}
	s.mutex.Unlock()
}

// broadcastEvent - variation 파이프라인 이벤트를 모든 세션에 전파.
// placeholder 생성/stage 전환/slot 완료가 전부 이 경로로 흐른다.
func (sm *SessionManager) broadcastEvent(event variation.Event) {
	messageBytes, err := json.Marshal(map[string]interface{}{
		"type":  "variation_event",
		"event": event,
	})
	if err != nil {
		log.Printf("❌ Failed to marshal variation event: %v", err)
		return
	}

	sm.mutex.RLock()
	sessions := make([]*Session, 0, len(sm.sessions))
	for _, session := range sm.sessions {
		sessions = append(sessions, session)
	}
	sm.mutex.RUnlock()

	for _, session := range sessions {
		session.broadcastRaw(messageBytes)
	}

	sm.metrics.mutex.Lock()
	sm.metrics.EventsBroadcast++
	sm.metrics.mutex.Unlock()
}

// 빈 세션 정리
func (sm *SessionManager) cleanupEmptySessions() {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	cleaned := 0
	for sessionId, session := range sm.sessions {
		session.mutex.RLock()
		isEmpty := len(session.clients) == 0
		session.mutex.RUnlock()

		if isEmpty {
			delete(sm.sessions, sessionId)
			cleaned++

			sm.metrics.mutex.Lock()
			sm.metrics.ActiveSessions--
			sm.metrics.mutex.Unlock()
		}
	}

	if cleaned > 0 {
		log.Printf("🧹 Cleaned up %d empty sessions (Active: %d)", cleaned, sm.metrics.ActiveSessions)
	}
}

// 만료/비활성 세션 정리
func (sm *SessionManager) cleanupExpiredSessions() {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	now := time.Now()
	expiredThreshold := 24 * time.Hour
	inactiveThreshold := 2 * time.Hour

	cleaned := 0
	for sessionId, session := range sm.sessions {
		session.mutex.RLock()
		isExpired := now.Sub(session.createdAt) > expiredThreshold
		isInactive := now.Sub(session.lastActivity) > inactiveThreshold && len(session.clients) == 0
		session.mutex.RUnlock()

		if isExpired || isInactive {
			session.mutex.Lock()
			for userId, client := range session.clients {
				close(client.send)
				log.Printf("🔌 Disconnecting client %s from expired session %s", userId, sessionId)
			}
			session.mutex.Unlock()

			delete(sm.sessions, sessionId)
			cleaned++

			sm.metrics.mutex.Lock()
			sm.metrics.ActiveSessions--
			sm.metrics.mutex.Unlock()
		}
	}

	if cleaned > 0 {
		log.Printf("🧼 Cleaned up %d expired/inactive sessions (Active: %d)", cleaned, sm.metrics.ActiveSessions)
	}
}

// 정기적 정리 작업 시작
func (sm *SessionManager) startCleanupRoutine() {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			sm.cleanupEmptySessions()
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			sm.cleanupExpiredSessions()
		}
	}()

	log.Printf("🔄 Started session cleanup routines (Empty: 5min, Expired: 30min)")
}

// WebSocket 핸들러
func handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	sessionId := r.URL.Query().Get("session")
	userId := r.URL.Query().Get("user")

	if sessionId == "" || userId == "" {
		log.Printf("Missing session or user parameter")
		conn.Close()
		return
	}

	client := &Client{
		conn:      conn,
		sessionId: sessionId,
		userId:    userId,
		send:      make(chan []byte, 256),
	}

	log.Printf("🔍 New WebSocket connection - Session: %s, User: %s", sessionId, userId)

	session := sessionManager.getOrCreateSession(sessionId)
	session.addClient(client)

	go client.writePump()
	go client.readPump(session)
}

// 클라이언트로부터 메시지 읽기.
// 이 서버에서 클라이언트는 이벤트 수신이 주 목적이라 ping 성격의
// 메시지만 받고 버린다. 연결 종료 감지가 핵심.
func (c *Client) readPump(session *Session) {
	defer func() {
		session.removeClient(c.userId)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}
}

// 클라이언트로 메시지 쓰기
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("WebSocket write error: %v", err)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// CORS 헤더 추가
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// 헬스 체크 엔드포인트
func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "variation-canvas-server",
	})
}

// 세션 정보 조회 엔드포인트
func getSessionInfo(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionId := vars["sessionId"]

	sessionManager.mutex.RLock()
	session, exists := sessionManager.sessions[sessionId]
	sessionManager.mutex.RUnlock()

	if !exists {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "Session not found"})
		return
	}

	session.mutex.RLock()
	clientCount := len(session.clients)
	clientIds := make([]string, 0, len(session.clients))
	for userId := range session.clients {
		clientIds = append(clientIds, userId)
	}
	session.mutex.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"sessionId":    sessionId,
		"clientCount":  clientCount,
		"clients":      clientIds,
		"createdAt":    session.createdAt,
		"lastActivity": session.lastActivity,
		"age":          time.Since(session.createdAt).String(),
		"inactive":     time.Since(session.lastActivity).String(),
	})
}

// 서버 메트릭 조회 엔드포인트
func getMetrics(w http.ResponseWriter, r *http.Request) {
	sessionManager.metrics.mutex.RLock()
	metrics := *sessionManager.metrics
	sessionManager.metrics.mutex.RUnlock()

	uptime := time.Since(metrics.StartTime)

	sessionManager.mutex.RLock()
	totalClients := 0
	for _, session := range sessionManager.sessions {
		session.mutex.RLock()
		totalClients += len(session.clients)
		session.mutex.RUnlock()
	}
	sessionManager.mutex.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"server": map[string]interface{}{
			"uptime":           uptime.String(),
			"startTime":        metrics.StartTime,
			"totalSessions":    metrics.TotalSessions,
			"activeSessions":   metrics.ActiveSessions,
			"totalConnections": metrics.TotalConnections,
			"eventsBroadcast":  metrics.EventsBroadcast,
			"currentClients":   totalClients,
		},
	})
}

// 모든 세션 강제 정리 (관리자용)
func forceCleanupSessions(w http.ResponseWriter, r *http.Request) {
	sessionManager.cleanupEmptySessions()
	sessionManager.cleanupExpiredSessions()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "Cleanup completed"})
}

func main() {
	// 환경변수 로드
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	// 정리 루틴 시작
	sessionManager.startCleanupRoutine()

	// Redis 연결 (registry + render queue)
	rdb := redisutil.Connect(cfg)
	if rdb == nil {
		log.Println("⚠️ Redis unavailable - running with in-memory registry, no render worker")
	}

	// Variation 엔진 초기화
	service := variation.NewDefaultService(rdb, sessionManager.broadcastEvent)
	if service == nil {
		log.Fatal("❌ Failed to initialize variation service")
	}

	// Render Worker 시작 (백그라운드)
	if rdb != nil {
		store := assetstore.NewSupabase()
		if worker := render.NewWorker(service, rdb, store); worker != nil {
			go worker.Start(context.Background())
		}
	}

	// 라우터 설정
	r := mux.NewRouter()
	r.Use(enableCORS)

	r.HandleFunc("/", healthCheck).Methods("GET")
	r.HandleFunc("/health", healthCheck).Methods("GET")
	r.HandleFunc("/ws", handleWebSocket)
	r.HandleFunc("/session/{sessionId}", getSessionInfo).Methods("GET")
	r.HandleFunc("/metrics", getMetrics).Methods("GET")
	r.HandleFunc("/admin/cleanup", forceCleanupSessions).Methods("POST")

	variation.NewHandler(service).RegisterRoutes(r)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("🚀 Variation Canvas Server starting on port %s", port)
	log.Printf("📡 WebSocket endpoint: ws://localhost:%s/ws", port)
	log.Printf("❤️  Health check: http://localhost:%s/health", port)
	log.Printf("📊 Metrics: http://localhost:%s/metrics", port)

	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
