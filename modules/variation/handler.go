package variation

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"variation-canvas-server/modules/placeholder"
	"variation-canvas-server/modules/registry"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/variations", h.HandleStart).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/variations/result", h.HandleResult).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/variations/{timestamp}", h.HandleBatchStatus).Methods("GET", "OPTIONS")
	log.Println("✅ Variation routes registered")
}

// StartResponse - POST /api/variations 응답.
// placeholder들은 즉시 내려가고 파이프라인은 백그라운드에서 진행된다.
type StartResponse struct {
	Success      bool                      `json:"success"`
	Timestamp    int64                     `json:"timestamp,omitempty"`
	Placeholders []placeholder.Placeholder `json:"placeholders,omitempty"`
	ErrorMessage string                    `json:"errorMessage,omitempty"`
}

// BatchStatusResponse - GET /api/variations/{timestamp} 응답
type BatchStatusResponse struct {
	Success      bool                      `json:"success"`
	Timestamp    int64                     `json:"timestamp"`
	Placeholders []placeholder.Placeholder `json:"placeholders"`
	Tasks        []registry.Task           `json:"tasks"`
	ErrorMessage string                    `json:"errorMessage,omitempty"`
}

// ResultRequest - 렌더러의 slot 결과 보고
type ResultRequest struct {
	SlotID       string `json:"slotId"`
	Success      bool   `json:"success"`
	FinalSrc     string `json:"finalSrc,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// HandleStart - POST /api/variations
// 배치 시작: placeholder 생성까지 동기, 나머지 stage는 goroutine
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w, "POST, OPTIONS")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	if h.service == nil {
		log.Println("❌ [Variation] Service not initialized")
		json.NewEncoder(w).Encode(StartResponse{Success: false, ErrorMessage: "Service unavailable"})
		return
	}

	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ [Variation] Invalid request: %v", err)
		json.NewEncoder(w).Encode(StartResponse{Success: false, ErrorMessage: "Invalid request format"})
		return
	}

	if strings.TrimSpace(req.Source.SrcRef) == "" {
		json.NewEncoder(w).Encode(StartResponse{Success: false, ErrorMessage: "Source image is required"})
		return
	}

	batch, err := h.service.PrepareBatch(req)
	if err != nil {
		log.Printf("❌ [Variation] Prepare failed: %v", err)
		json.NewEncoder(w).Encode(StartResponse{Success: false, ErrorMessage: UserMessage(err)})
		return
	}

	// 파이프라인은 요청과 분리해서 진행 - 실패해도 failBatch가 정리한다
	go func() {
		if err := h.service.RunPipeline(context.Background(), batch); err != nil {
			log.Printf("❌ [Variation] Pipeline for batch %d ended with error: %v", batch.Timestamp, err)
		}
	}()

	json.NewEncoder(w).Encode(StartResponse{
		Success:      true,
		Timestamp:    batch.Timestamp,
		Placeholders: h.service.BatchPlaceholders(batch.Timestamp),
	})
}

// HandleBatchStatus - GET /api/variations/{timestamp}
func (h *Handler) HandleBatchStatus(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w, "GET, OPTIONS")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	vars := mux.Vars(r)
	timestamp, err := strconv.ParseInt(vars["timestamp"], 10, 64)
	if err != nil || timestamp <= 0 {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(BatchStatusResponse{Success: false, ErrorMessage: "Invalid batch timestamp"})
		return
	}

	tasks, err := h.service.BatchTasks(r.Context(), timestamp)
	if err != nil {
		log.Printf("⚠️ [Variation] Failed to read tasks for batch %d: %v", timestamp, err)
		tasks = nil
	}

	json.NewEncoder(w).Encode(BatchStatusResponse{
		Success:      true,
		Timestamp:    timestamp,
		Placeholders: h.service.BatchPlaceholders(timestamp),
		Tasks:        tasks,
	})
}

// HandleResult - POST /api/variations/result
// 외부 렌더러의 완료/실패 콜백
func (h *Handler) HandleResult(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w, "POST, OPTIONS")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req ResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ [Variation] Invalid result payload: %v", err)
		json.NewEncoder(w).Encode(map[string]any{"success": false, "errorMessage": "Invalid request format"})
		return
	}

	if strings.TrimSpace(req.SlotID) == "" {
		json.NewEncoder(w).Encode(map[string]any{"success": false, "errorMessage": "slotId is required"})
		return
	}

	outcome := Outcome{
		Success:      req.Success,
		FinalSrc:     req.FinalSrc,
		ErrorMessage: req.ErrorMessage,
	}
	if err := h.service.ReportResult(r.Context(), req.SlotID, outcome); err != nil {
		log.Printf("❌ [Variation] Failed to apply result for %s: %v", req.SlotID, err)
		json.NewEncoder(w).Encode(map[string]any{"success": false, "errorMessage": "Failed to apply result"})
		return
	}

	json.NewEncoder(w).Encode(map[string]any{"success": true})
}

func setCORSHeaders(w http.ResponseWriter, methods string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
}
