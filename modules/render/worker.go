package render

import (
	"context"
	"log"
	"strings"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"variation-canvas-server/modules/common/config"
	"variation-canvas-server/modules/placeholder"
	"variation-canvas-server/modules/variation"
)

// Worker - render:queue를 감시하면서 generating task를 처리하고
// 결과를 variation 엔진에 보고한다. slot 하나의 실패는 형제 slot에
// 전파되지 않는다.
type Worker struct {
	service *variation.Service
	rdb     *redislib.Client
	image   Renderer
	video   Renderer
	sem     chan struct{}
}

func NewWorker(service *variation.Service, rdb *redislib.Client, store ResultStore) *Worker {
	cfg := config.GetConfig()

	image := NewGeminiRenderer(store)
	if image == nil {
		log.Println("❌ [Render] Failed to initialize Gemini renderer")
		return nil
	}

	maxConcurrent := cfg.MaxConcurrentRenders
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}

	return &Worker{
		service: service,
		rdb:     rdb,
		image:   image,
		video:   NewVideoRenderer(),
		sem:     make(chan struct{}, maxConcurrent),
	}
}

// Start - Queue 감시 루프 (blocking)
func (w *Worker) Start(ctx context.Context) {
	log.Printf("🔄 Render worker starting (queue: %s, concurrency: %d)",
		variation.RenderQueueKey, cap(w.sem))

	for {
		select {
		case <-ctx.Done():
			log.Println("🛑 [Render] Worker stopped")
			return
		default:
		}

		result, err := w.rdb.BRPop(ctx, 5*time.Second, variation.RenderQueueKey).Result()
		if err != nil {
			if err == redislib.Nil {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			log.Printf("❌ [Render] Redis BRPOP error: %v", err)
			time.Sleep(5 * time.Second)
			continue
		}

		// result[0]은 queue key, result[1]이 slot id
		slotID := result[1]
		log.Printf("🎯 [Render] Received slot: %s", slotID)

		w.sem <- struct{}{}
		go func(slotID string) {
			defer func() { <-w.sem }()
			w.processSlot(ctx, slotID)
		}(slotID)
	}
}

func (w *Worker) processSlot(ctx context.Context, slotID string) {
	task, err := w.service.Registry().Get(ctx, slotID)
	if err != nil {
		log.Printf("❌ [Render] Failed to read task %s: %v", slotID, err)
		return
	}
	if task == nil {
		// 배치가 이미 실패/정리된 slot - 조용히 버린다
		log.Printf("⚠️ [Render] Task %s no longer registered, skipping", slotID)
		return
	}

	renderer := w.image
	if strings.HasPrefix(slotID, placeholder.VideoSlotPrefix+"-") {
		renderer = w.video
	}

	finalSrc, err := renderer.Render(ctx, task)

	var outcome variation.Outcome
	if err != nil {
		log.Printf("❌ [Render] Slot %s failed: %v", slotID, err)
		outcome = variation.Outcome{Success: false, ErrorMessage: err.Error()}
	} else {
		outcome = variation.Outcome{Success: true, FinalSrc: finalSrc}
	}

	if err := w.service.ReportResult(ctx, slotID, outcome); err != nil {
		log.Printf("❌ [Render] Failed to report result for %s: %v", slotID, err)
	}
}
