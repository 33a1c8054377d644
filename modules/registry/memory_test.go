package registry

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func testTasks(timestamp int64, count int) []Task {
	out := make([]Task, count)
	for i := range out {
		out[i] = Task{
			SlotID:    fmt.Sprintf("variation-%d-%d", timestamp, i),
			ImageURL:  "https://example.com/source.webp",
			Prompt:    fmt.Sprintf("prompt %d", i),
			Model:     "gemini-2.5-flash-image",
			Status:    StatusGenerating,
			CreatedAt: timestamp,
		}
	}
	return out
}

func TestInsertManyAndGet(t *testing.T) {
	ctx := context.Background()
	reg := NewMemory()

	if err := reg.InsertMany(ctx, testTasks(100, 4)); err != nil {
		t.Fatalf("InsertMany error: %v", err)
	}

	task, err := reg.Get(ctx, "variation-100-2")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if task == nil {
		t.Fatal("Get returned nil for existing task")
	}
	if task.Prompt != "prompt 2" || task.Status != StatusGenerating {
		t.Errorf("unexpected task: %+v", task)
	}
}

func TestGetMissingReturnsNilNil(t *testing.T) {
	ctx := context.Background()
	reg := NewMemory()

	task, err := reg.Get(ctx, "variation-1-0")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if task != nil {
		t.Errorf("Get on missing slot should return nil, got %+v", task)
	}
}

func TestInsertManyAtomicOnCollision(t *testing.T) {
	ctx := context.Background()
	reg := NewMemory()

	if err := reg.InsertMany(ctx, testTasks(100, 2)); err != nil {
		t.Fatalf("first InsertMany error: %v", err)
	}

	// 두 번째 배치가 기존 slot 하나와 겹침 - 전부 거부돼야 한다
	conflicting := testTasks(100, 4)
	err := reg.InsertMany(ctx, conflicting)
	if err == nil {
		t.Fatal("colliding InsertMany should fail")
	}
	if !errors.Is(err, ErrDuplicateSlot) {
		t.Errorf("error should wrap ErrDuplicateSlot, got %v", err)
	}

	// 충돌하지 않는 entry도 들어가면 안 됨
	if task, _ := reg.Get(ctx, "variation-100-3"); task != nil {
		t.Error("partial insert happened despite collision")
	}

	all, _ := reg.List(ctx)
	if len(all) != 2 {
		t.Errorf("registry has %d tasks after failed insert, want 2", len(all))
	}
}

func TestListPreservesInsertOrder(t *testing.T) {
	ctx := context.Background()
	reg := NewMemory()
	reg.InsertMany(ctx, testTasks(100, 4))

	all, err := reg.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	for i, task := range all {
		want := fmt.Sprintf("variation-100-%d", i)
		if task.SlotID != want {
			t.Errorf("List[%d] = %q, want %q", i, task.SlotID, want)
		}
	}
}

func TestListBatchFiltersByTimestamp(t *testing.T) {
	ctx := context.Background()
	reg := NewMemory()
	reg.InsertMany(ctx, testTasks(100, 4))
	reg.InsertMany(ctx, testTasks(200, 8))

	batch, err := reg.ListBatch(ctx, 200)
	if err != nil {
		t.Fatalf("ListBatch error: %v", err)
	}
	if len(batch) != 8 {
		t.Errorf("ListBatch(200) = %d tasks, want 8", len(batch))
	}
	for _, task := range batch {
		if task.CreatedAt != 200 {
			t.Errorf("ListBatch(200) returned task from batch %d", task.CreatedAt)
		}
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	reg := NewMemory()
	reg.InsertMany(ctx, testTasks(100, 4))

	if err := reg.Delete(ctx, "variation-100-1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if task, _ := reg.Get(ctx, "variation-100-1"); task != nil {
		t.Error("task still present after Delete")
	}

	// 없는 slot 삭제는 no-op
	if err := reg.Delete(ctx, "variation-100-1"); err != nil {
		t.Errorf("deleting missing slot should be a no-op, got %v", err)
	}
}

func TestDeleteBatchOnlyRemovesOwnBatch(t *testing.T) {
	ctx := context.Background()
	reg := NewMemory()
	reg.InsertMany(ctx, testTasks(100, 4))
	reg.InsertMany(ctx, testTasks(200, 4))

	// 배치 공용 stage task도 같은 타임스탬프 소속이라 함께 지워져야 한다
	reg.InsertMany(ctx, []Task{{
		SlotID:    "variation-100-upload",
		Status:    StatusUploading,
		CreatedAt: 100,
	}})

	deleted, err := reg.DeleteBatch(ctx, 100)
	if err != nil {
		t.Fatalf("DeleteBatch error: %v", err)
	}
	if deleted != 5 {
		t.Errorf("DeleteBatch removed %d entries, want 5", deleted)
	}

	remaining, _ := reg.List(ctx)
	if len(remaining) != 4 {
		t.Errorf("registry has %d tasks, want 4 from batch 200", len(remaining))
	}
	for _, task := range remaining {
		if task.CreatedAt != 200 {
			t.Errorf("batch 200 task removed by DeleteBatch(100): %+v", task)
		}
	}
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	reg := NewMemory()
	reg.InsertMany(ctx, testTasks(100, 1))

	task, _ := reg.Get(ctx, "variation-100-0")
	task.Prompt = "mutated"

	again, _ := reg.Get(ctx, "variation-100-0")
	if again.Prompt != "prompt 0" {
		t.Error("Get must return a copy, internal state was mutated")
	}
}
