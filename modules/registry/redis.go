package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"variation-canvas-server/modules/placeholder"
)

const (
	taskKeyPrefix  = "generation:task:"
	batchKeyPrefix = "generation:batch:"

	// 배치가 비정상 종료돼도 Redis에 entry가 영원히 남지 않도록
	taskTTL = 24 * time.Hour
)

// Redis - go-redis 기반 Registry 구현.
// entry당 JSON 하나 + 배치별 index set으로 prefix delete를 O(배치 크기)로 처리.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func taskKey(slotID string) string {
	return taskKeyPrefix + slotID
}

func batchKey(timestamp int64) string {
	return fmt.Sprintf("%s%d", batchKeyPrefix, timestamp)
}

func (r *Redis) InsertMany(ctx context.Context, tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}

	ts, ok := placeholder.BatchTimestampFromID(tasks[0].SlotID)
	if !ok {
		return fmt.Errorf("registry: cannot derive batch timestamp from slot id %q", tasks[0].SlotID)
	}

	// MULTI/EXEC로 배치 전체를 한 번에 - 부분 삽입 없음
	pipe := r.rdb.TxPipeline()
	for _, t := range tasks {
		payload, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("registry: failed to marshal task %s: %w", t.SlotID, err)
		}
		pipe.Set(ctx, taskKey(t.SlotID), payload, taskTTL)
		pipe.SAdd(ctx, batchKey(ts), t.SlotID)
	}
	pipe.Expire(ctx, batchKey(ts), taskTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("registry: insert-many failed: %w", err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, slotID string) (*Task, error) {
	payload, err := r.rdb.Get(ctx, taskKey(slotID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("registry: get %s failed: %w", slotID, err)
	}

	var t Task
	if err := json.Unmarshal(payload, &t); err != nil {
		return nil, fmt.Errorf("registry: failed to unmarshal task %s: %w", slotID, err)
	}
	return &t, nil
}

func (r *Redis) List(ctx context.Context) ([]Task, error) {
	var out []Task
	iter := r.rdb.Scan(ctx, 0, taskKeyPrefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		slotID := iter.Val()[len(taskKeyPrefix):]
		t, err := r.Get(ctx, slotID)
		if err != nil {
			return nil, err
		}
		if t != nil {
			out = append(out, *t)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("registry: scan failed: %w", err)
	}
	return out, nil
}

func (r *Redis) ListBatch(ctx context.Context, timestamp int64) ([]Task, error) {
	slotIDs, err := r.rdb.SMembers(ctx, batchKey(timestamp)).Result()
	if err != nil {
		return nil, fmt.Errorf("registry: list batch %d failed: %w", timestamp, err)
	}

	out := []Task{}
	for _, slotID := range slotIDs {
		t, err := r.Get(ctx, slotID)
		if err != nil {
			return nil, err
		}
		if t != nil {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *Redis) Delete(ctx context.Context, slotID string) error {
	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, taskKey(slotID))
	if ts, ok := placeholder.BatchTimestampFromID(slotID); ok {
		pipe.SRem(ctx, batchKey(ts), slotID)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("registry: delete %s failed: %w", slotID, err)
	}
	return nil
}

func (r *Redis) DeleteBatch(ctx context.Context, timestamp int64) (int, error) {
	slotIDs, err := r.rdb.SMembers(ctx, batchKey(timestamp)).Result()
	if err != nil {
		return 0, fmt.Errorf("registry: delete batch %d failed: %w", timestamp, err)
	}

	if len(slotIDs) == 0 {
		return 0, nil
	}

	pipe := r.rdb.TxPipeline()
	for _, slotID := range slotIDs {
		pipe.Del(ctx, taskKey(slotID))
	}
	pipe.Del(ctx, batchKey(timestamp))

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("registry: delete batch %d failed: %w", timestamp, err)
	}

	log.Printf("🧹 [Registry] Deleted %d tasks for batch %d", len(slotIDs), timestamp)
	return len(slotIDs), nil
}
