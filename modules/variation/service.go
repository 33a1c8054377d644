package variation

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"variation-canvas-server/modules/analysis"
	"variation-canvas-server/modules/assetstore"
	"variation-canvas-server/modules/common/clock"
	"variation-canvas-server/modules/common/config"
	"variation-canvas-server/modules/common/utils"
	"variation-canvas-server/modules/concepts"
	"variation-canvas-server/modules/layout"
	"variation-canvas-server/modules/placeholder"
	"variation-canvas-server/modules/registry"
)

// Analyzer - Analysis Stage collaborator 계약
type Analyzer interface {
	Analyze(ctx context.Context, signedURL string) (*analysis.StyleDescriptor, error)
}

// Enqueuer - registry 채운 뒤 렌더러에게 task를 알리는 hand-off 지점
type Enqueuer interface {
	EnqueueRender(ctx context.Context, slotID string) error
}

// Options - Service 의존성 주입
type Options struct {
	Assets          assetstore.Store
	Analyzer        Analyzer
	AnalysisEnabled bool
	Generators      map[Kind]concepts.Generator
	Registry        registry.Registry
	Placeholders    *placeholder.Store
	Clock           clock.Clock
	Queue           Enqueuer    // nil이면 enqueue 생략 (렌더러가 registry를 직접 폴링)
	Notify          func(Event) // nil이면 이벤트 생략

	// http(s) 원본 프리뷰용 다운로드. nil이면 기본 HTTP fetcher.
	FetchSource func(ctx context.Context, url string) ([]byte, error)

	ImageModel       string
	VideoModel       string
	MaxLongEdge      int
	PreviewPixelSize int
}

// batchState - 진행 중인 배치의 엔진 내부 상태.
// placeholder/registry와 달리 외부에 노출되지 않는다.
type batchState struct {
	req          StartRequest
	preview      string
	meta         []placeholder.Metadata
	remaining    int
	sourceVeiled bool
}

type Service struct {
	assets          assetstore.Store
	analyzer        Analyzer
	analysisEnabled bool
	generators      map[Kind]concepts.Generator
	registry        registry.Registry
	placeholders    *placeholder.Store
	clock           clock.Clock
	queue           Enqueuer
	notify          func(Event)
	fetchSource     func(ctx context.Context, url string) ([]byte, error)

	imageModel       string
	videoModel       string
	maxLongEdge      int
	previewPixelSize int

	mu      sync.Mutex
	batches map[int64]*batchState
}

func NewService(opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = clock.NewSystem()
	}
	if opts.Placeholders == nil {
		opts.Placeholders = placeholder.NewStore()
	}
	if opts.Registry == nil {
		opts.Registry = registry.NewMemory()
	}
	if opts.MaxLongEdge <= 0 {
		opts.MaxLongEdge = 1536
	}
	if opts.PreviewPixelSize <= 0 {
		opts.PreviewPixelSize = 32
	}
	if opts.FetchSource == nil {
		opts.FetchSource = defaultFetchSource
	}

	return &Service{
		assets:           opts.Assets,
		analyzer:         opts.Analyzer,
		analysisEnabled:  opts.AnalysisEnabled,
		generators:       opts.Generators,
		registry:         opts.Registry,
		placeholders:     opts.Placeholders,
		clock:            opts.Clock,
		queue:            opts.Queue,
		notify:           opts.Notify,
		fetchSource:      opts.FetchSource,
		imageModel:       opts.ImageModel,
		videoModel:       opts.VideoModel,
		maxLongEdge:      opts.MaxLongEdge,
		previewPixelSize: opts.PreviewPixelSize,
		batches:          make(map[int64]*batchState),
	}
}

// NewDefaultService - config 기반으로 실제 collaborator들을 연결
func NewDefaultService(rdb *redislib.Client, notify func(Event)) *Service {
	cfg := config.GetConfig()

	assets := assetstore.NewSupabase()
	if assets == nil {
		log.Println("❌ [Variation] Failed to initialize asset store")
		return nil
	}

	var analyzer Analyzer
	if cfg.EnableStyleAnalysis {
		if svc := analysis.NewService(); svc != nil {
			analyzer = svc
		} else {
			log.Println("⚠️ [Variation] Analysis service unavailable, falling back to default descriptor")
		}
	}

	generators := map[Kind]concepts.Generator{
		KindCamera:   &concepts.CameraAngleGenerator{},
		KindDirector: &concepts.DirectorGenerator{},
		KindBRoll:    &concepts.BRollGenerator{},
	}
	if storyline := concepts.NewStorylineGenerator(); storyline != nil {
		generators[KindStoryline] = storyline
	}

	var reg registry.Registry
	var queue Enqueuer
	if rdb != nil {
		reg = registry.NewRedis(rdb)
		queue = &redisQueue{rdb: rdb}
	} else {
		log.Println("⚠️ [Variation] Redis unavailable, using in-memory registry")
		reg = registry.NewMemory()
	}

	return NewService(Options{
		Assets:           assets,
		Analyzer:         analyzer,
		AnalysisEnabled:  cfg.EnableStyleAnalysis && analyzer != nil,
		Generators:       generators,
		Registry:         reg,
		Queue:            queue,
		Notify:           notify,
		ImageModel:       cfg.GeminiImageModel,
		VideoModel:       cfg.VideoModel,
		MaxLongEdge:      cfg.MaxRenderLongEdge,
		PreviewPixelSize: cfg.PreviewPixelSize,
	})
}

// PrepareBatch - 배치 생성의 동기 구간.
// 네트워크 호출 전에 layout/preview/placeholder를 전부 만들어서
// 사용자가 N개 slot을 즉시 보게 한다 (optimistic UI 계약).
func (s *Service) PrepareBatch(req StartRequest) (*Batch, error) {
	timestamp := s.clock.NowMillis()

	if req.Mode == "" {
		req.Mode = ModeImage
	}
	if req.Kind == "" {
		req.Kind = KindCamera
	}

	if !layout.IsSupportedCount(req.Count) {
		return nil, &PreparationError{Timestamp: timestamp,
			Err: fmt.Errorf("unsupported count %d", req.Count)}
	}
	if _, ok := s.generators[req.Kind]; !ok {
		return nil, &PreparationError{Timestamp: timestamp,
			Err: fmt.Errorf("unknown variation kind %q", req.Kind)}
	}
	if req.Source.SrcRef == "" {
		return nil, &PreparationError{Timestamp: timestamp,
			Err: fmt.Errorf("source image ref is required")}
	}

	offsets, err := layout.Offsets(req.Source.X, req.Source.Y, req.Source.Width, req.Source.Height, req.Count)
	if err != nil {
		return nil, &PreparationError{Timestamp: timestamp, Err: err}
	}

	preview, err := s.buildPreview(req.Source.SrcRef)
	if err != nil {
		return nil, &PreparationError{Timestamp: timestamp, Err: err}
	}

	targetWidth, targetHeight := utils.OptimalRenderSize(
		int(req.Source.Width), int(req.Source.Height), s.maxLongEdge)

	placeholders, err := placeholder.Build(placeholder.BatchSpec{
		IDPrefix:         SlotPrefix(req.Mode),
		Timestamp:        timestamp,
		Offsets:          offsets,
		Width:            req.Source.Width,
		Height:           req.Source.Height,
		PixelatedPreview: preview,
	})
	if err != nil {
		return nil, &PreparationError{Timestamp: timestamp, Err: err}
	}

	if err := s.placeholders.AddBatch(placeholders); err != nil {
		return nil, &PreparationError{Timestamp: timestamp, Err: err}
	}

	slotIDs := make([]string, len(placeholders))
	for i, p := range placeholders {
		slotIDs[i] = p.ID
	}

	batch := &Batch{
		Timestamp:    timestamp,
		Count:        req.Count,
		Mode:         req.Mode,
		Kind:         req.Kind,
		SlotIDs:      slotIDs,
		TargetWidth:  targetWidth,
		TargetHeight: targetHeight,
	}

	s.mu.Lock()
	s.batches[timestamp] = &batchState{req: req, preview: preview}
	s.mu.Unlock()

	log.Printf("🎬 [Variation] Batch %d prepared: count=%d, kind=%s, mode=%s",
		timestamp, req.Count, req.Kind, req.Mode)

	s.emit(Event{Type: EventPlaceholdersCreated, Timestamp: timestamp, Placeholders: placeholders})
	return batch, nil
}

// RunPipeline - upload → (analysis) → concepts → registry 채우기.
// 한 배치의 stage들은 이 goroutine 안에서 엄격히 순차 실행된다.
// 어떤 stage가 실패해도 배치는 항상 보이는 에러 상태로 끝난다.
func (s *Service) RunPipeline(ctx context.Context, batch *Batch) error {
	s.mu.Lock()
	state, ok := s.batches[batch.Timestamp]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("batch %d is not prepared", batch.Timestamp)
	}

	ts := batch.Timestamp
	req := state.req
	model := s.modelFor(batch.Mode)

	// --- Upload Stage ---
	uploadTask := registry.Task{
		SlotID:    StageTaskID(ts, StageUpload),
		ImageURL:  req.Source.SrcRef,
		Model:     model,
		Status:    registry.StatusUploading,
		CreatedAt: ts,
	}
	if err := s.registry.InsertMany(ctx, []registry.Task{uploadTask}); err != nil {
		return s.failBatch(ctx, ts, &UploadError{Timestamp: ts, Err: err})
	}
	s.emit(Event{Type: EventStageUpdate, Timestamp: ts, Stage: StageUpload})

	storedRef, err := s.assets.EnsureStored(ctx, req.Source.SrcRef)
	if err != nil {
		return s.failBatch(ctx, ts, &UploadError{Timestamp: ts, Err: err})
	}

	signedURL, err := s.assets.Resolve(ctx, storedRef)
	if err != nil {
		return s.failBatch(ctx, ts, &UploadError{Timestamp: ts, Err: err})
	}
	log.Printf("📤 [Variation] Batch %d source stored and resolved", ts)

	// --- Analysis Stage (feature flag) ---
	var descriptor *analysis.StyleDescriptor
	if s.analysisEnabled && s.analyzer != nil {
		if err := s.advanceStageTask(ctx, ts, StageUpload, StageAnalyze,
			registry.StatusAnalyzing, signedURL, model); err != nil {
			return s.failBatch(ctx, ts, &AnalysisError{Timestamp: ts, Err: err})
		}
		s.veilSource(&req, state)
		s.emit(Event{Type: EventStageUpdate, Timestamp: ts, Stage: StageAnalyze})

		descriptor, err = s.analyzer.Analyze(ctx, signedURL)
		if err != nil {
			return s.failBatch(ctx, ts, &AnalysisError{Timestamp: ts, Err: err})
		}
		s.unveilSource(&req, state)
	} else {
		// 분석 끔: 고정 기본 descriptor, task entry도 네트워크 호출도 없음
		descriptor = analysis.DefaultDescriptor()
	}

	// --- Concept Stage ---
	conceptStage := ConceptStageName(batch.Kind)
	prevStage := StageUpload
	if s.analysisEnabled && s.analyzer != nil {
		prevStage = StageAnalyze
	}
	if err := s.advanceStageTask(ctx, ts, prevStage, conceptStage,
		registry.StatusCreatingConcepts, signedURL, model); err != nil {
		return s.failBatch(ctx, ts, &ConceptGenerationError{Timestamp: ts, Err: err})
	}
	s.emit(Event{Type: EventStageUpdate, Timestamp: ts, Stage: conceptStage})

	generator := s.generators[batch.Kind]
	conceptList, err := generator.Generate(ctx, concepts.Request{
		Count:       batch.Count,
		Style:       descriptor,
		UserContext: req.UserContext,
	})
	if err != nil {
		return s.failBatch(ctx, ts, &ConceptGenerationError{Timestamp: ts, Err: err})
	}
	if len(conceptList) != batch.Count {
		return s.failBatch(ctx, ts, &ConceptGenerationError{Timestamp: ts,
			Err: fmt.Errorf("generator returned %d concepts, need %d", len(conceptList), batch.Count)})
	}

	// --- Registry population (hand-off boundary) ---
	if err := s.registry.Delete(ctx, StageTaskID(ts, conceptStage)); err != nil {
		return s.failBatch(ctx, ts, &ConceptGenerationError{Timestamp: ts, Err: err})
	}

	tasks := make([]registry.Task, batch.Count)
	meta := make([]placeholder.Metadata, batch.Count)
	for i, concept := range conceptList {
		tasks[i] = registry.Task{
			SlotID:       batch.SlotIDs[i],
			ImageURL:     signedURL,
			Prompt:       concept.Prompt,
			TargetWidth:  batch.TargetWidth,
			TargetHeight: batch.TargetHeight,
			Model:        model,
			Status:       registry.StatusGenerating,
			CreatedAt:    ts,
		}
		meta[i] = concept.Metadata
	}

	if err := s.registry.InsertMany(ctx, tasks); err != nil {
		return s.failBatch(ctx, ts, &ConceptGenerationError{Timestamp: ts, Err: err})
	}

	s.mu.Lock()
	state.meta = meta
	state.remaining = batch.Count
	s.mu.Unlock()

	log.Printf("🚀 [Variation] Batch %d handed off: %d generation tasks registered", ts, batch.Count)
	s.emit(Event{Type: EventStageUpdate, Timestamp: ts, Stage: "generating"})

	// 렌더러 hand-off. 여기서부터 생성 시작 책임은 엔진 밖.
	if s.queue != nil {
		for _, slotID := range batch.SlotIDs {
			if err := s.queue.EnqueueRender(ctx, slotID); err != nil {
				log.Printf("⚠️ [Variation] Failed to enqueue render for %s: %v", slotID, err)
			}
		}
	}

	return nil
}

// StartBatch - Prepare + RunPipeline을 한 번에 (동기)
func (s *Service) StartBatch(ctx context.Context, req StartRequest) (*Batch, error) {
	batch, err := s.PrepareBatch(req)
	if err != nil {
		return nil, err
	}
	if err := s.RunPipeline(ctx, batch); err != nil {
		return batch, err
	}
	return batch, nil
}

// Snapshot - 전체 placeholder snapshot
func (s *Service) Snapshot() []placeholder.Placeholder {
	return s.placeholders.List()
}

// BatchPlaceholders - 배치 단위 snapshot
func (s *Service) BatchPlaceholders(timestamp int64) []placeholder.Placeholder {
	return s.placeholders.ListBatch(timestamp)
}

// BatchTasks - 배치의 registry entry snapshot
func (s *Service) BatchTasks(ctx context.Context, timestamp int64) ([]registry.Task, error) {
	return s.registry.ListBatch(ctx, timestamp)
}

// Registry - 렌더러(worker)가 task를 읽을 때 사용
func (s *Service) Registry() registry.Registry {
	return s.registry
}

// advanceStageTask - stage 경계에서 공용 task를 원자적으로 교체.
// 단계는 단조 증가만: 이전 stage task 제거 후 다음 stage task 삽입.
func (s *Service) advanceStageTask(ctx context.Context, ts int64, oldStage, newStage, status, imageURL, model string) error {
	if err := s.registry.Delete(ctx, StageTaskID(ts, oldStage)); err != nil {
		return err
	}
	return s.registry.InsertMany(ctx, []registry.Task{{
		SlotID:    StageTaskID(ts, newStage),
		ImageURL:  imageURL,
		Model:     model,
		Status:    status,
		CreatedAt: ts,
	}})
}

// buildPreview - 공유 모자이크 프리뷰 생성.
// data URL은 그 자리에서 디코딩하고 http(s) 원본은 내려받는다.
// 원본이 깨진 data URL이면 배치 거부, 다운로드 실패는 프리뷰 없이 진행
// (프리뷰는 표시용이라 네트워크 문제로 배치를 막지 않는다).
func (s *Service) buildPreview(srcRef string) (string, error) {
	switch {
	case strings.HasPrefix(srcRef, "data:"):
		idx := strings.Index(srcRef, ";base64,")
		if idx < 0 {
			return "", fmt.Errorf("source data URL is not base64 encoded")
		}
		raw, err := base64.StdEncoding.DecodeString(srcRef[idx+len(";base64,"):])
		if err != nil {
			return "", fmt.Errorf("failed to decode source data URL: %w", err)
		}
		preview, err := utils.PixelatePreview(raw, s.previewPixelSize)
		if err != nil {
			return "", fmt.Errorf("failed to build pixelated preview: %w", err)
		}
		return preview, nil

	case strings.HasPrefix(srcRef, "http://"), strings.HasPrefix(srcRef, "https://"):
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		raw, err := s.fetchSource(ctx, srcRef)
		if err != nil {
			log.Printf("⚠️ [Variation] Preview fetch failed, continuing without preview: %v", err)
			return "", nil
		}
		preview, err := utils.PixelatePreview(raw, s.previewPixelSize)
		if err != nil {
			log.Printf("⚠️ [Variation] Preview build failed, continuing without preview: %v", err)
			return "", nil
		}
		return preview, nil

	default:
		return "", nil
	}
}

var previewFetchClient = &http.Client{Timeout: 15 * time.Second}

func defaultFetchSource(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := previewFetchClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source fetch returned status %d", resp.StatusCode)
	}

	// 원본 이미지 상한 20MB
	return io.ReadAll(io.LimitReader(resp.Body, 20<<20))
}

// veilSource - 분석 중 표시: 원본 placeholder가 store에 있으면 프리뷰 veil 적용
func (s *Service) veilSource(req *StartRequest, state *batchState) {
	if state.preview == "" || req.Source.ID == "" {
		return
	}
	veiled := s.placeholders.Update(req.Source.ID, func(p placeholder.Placeholder) placeholder.Placeholder {
		p.PixelatedPreview = state.preview
		return p
	})
	if veiled {
		s.mu.Lock()
		state.sourceVeiled = true
		s.mu.Unlock()
	}
}

func (s *Service) unveilSource(req *StartRequest, state *batchState) {
	s.mu.Lock()
	veiled := state.sourceVeiled
	state.sourceVeiled = false
	s.mu.Unlock()

	if !veiled {
		return
	}
	s.placeholders.Update(req.Source.ID, func(p placeholder.Placeholder) placeholder.Placeholder {
		p.PixelatedPreview = ""
		return p
	})
}

func (s *Service) modelFor(mode Mode) string {
	if mode == ModeVideo {
		return s.videoModel
	}
	return s.imageModel
}

func (s *Service) emit(event Event) {
	if s.notify != nil {
		s.notify(event)
	}
}

// redisQueue - 렌더 hand-off용 Redis 큐
type redisQueue struct {
	rdb *redislib.Client
}

const RenderQueueKey = "render:queue"

func (q *redisQueue) EnqueueRender(ctx context.Context, slotID string) error {
	return q.rdb.LPush(ctx, RenderQueueKey, slotID).Err()
}
