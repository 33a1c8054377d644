package layout

import "testing"

func TestSlotOffsetInnerRing(t *testing.T) {
	// 원본: (100, 200), 300x400
	cases := []struct {
		index int
		wantX float64
		wantY float64
	}{
		{0, 100, -200}, // 위
		{1, 400, -200}, // 오른쪽 위
		{2, 400, 200},  // 오른쪽
		{3, 400, 600},  // 오른쪽 아래
		{4, 100, 600},  // 아래
		{5, -200, 600}, // 왼쪽 아래
		{6, -200, 200}, // 왼쪽
		{7, -200, -200},
	}

	for _, c := range cases {
		got := SlotOffset(100, 200, 300, 400, c.index)
		if got.X != c.wantX || got.Y != c.wantY {
			t.Errorf("SlotOffset index %d = (%v, %v), want (%v, %v)",
				c.index, got.X, got.Y, c.wantX, c.wantY)
		}
	}
}

func TestSlotOffsetOuterRing(t *testing.T) {
	cases := []struct {
		index int
		wantX float64
		wantY float64
	}{
		{8, 100, -600},  // 두 칸 위
		{9, 700, 200},   // 두 칸 오른쪽
		{10, 100, 1000}, // 두 칸 아래
		{11, -500, 200}, // 두 칸 왼쪽
	}

	for _, c := range cases {
		got := SlotOffset(100, 200, 300, 400, c.index)
		if got.X != c.wantX || got.Y != c.wantY {
			t.Errorf("SlotOffset index %d = (%v, %v), want (%v, %v)",
				c.index, got.X, got.Y, c.wantX, c.wantY)
		}
	}
}

func TestSlotOffsetOutOfRangeFallsBackToSource(t *testing.T) {
	got := SlotOffset(10, 20, 30, 40, 99)
	if got.X != 10 || got.Y != 20 {
		t.Errorf("out-of-range index should return source position, got (%v, %v)", got.X, got.Y)
	}
}

func TestSlotIndexesFourUsesCardinalSlots(t *testing.T) {
	indexes, err := SlotIndexes(4)
	if err != nil {
		t.Fatalf("SlotIndexes(4) error: %v", err)
	}

	want := []int{0, 2, 4, 6}
	if len(indexes) != len(want) {
		t.Fatalf("SlotIndexes(4) returned %d indexes, want %d", len(indexes), len(want))
	}
	for i, idx := range indexes {
		if idx != want[i] {
			t.Errorf("SlotIndexes(4)[%d] = %d, want %d", i, idx, want[i])
		}
	}
}

func TestSlotIndexesUnsupportedCount(t *testing.T) {
	for _, count := range []int{0, 1, 3, 5, 7, 9, 13, -4} {
		if _, err := SlotIndexes(count); err == nil {
			t.Errorf("SlotIndexes(%d) should fail", count)
		}
		if IsSupportedCount(count) {
			t.Errorf("IsSupportedCount(%d) should be false", count)
		}
	}
}

func TestOffsetsAreDistinct(t *testing.T) {
	for _, count := range SupportedCounts {
		offsets, err := Offsets(0, 0, 100, 100, count)
		if err != nil {
			t.Fatalf("Offsets(count=%d) error: %v", count, err)
		}
		if len(offsets) != count {
			t.Fatalf("Offsets(count=%d) returned %d offsets", count, len(offsets))
		}

		// 겹치는 slot이 없어야 하고, 원본 (0,0)과도 겹치면 안 된다
		seen := map[Offset]bool{}
		for _, o := range offsets {
			if o.X == 0 && o.Y == 0 {
				t.Errorf("count=%d: slot overlaps the source position", count)
			}
			if seen[o] {
				t.Errorf("count=%d: duplicate offset (%v, %v)", count, o.X, o.Y)
			}
			seen[o] = true
		}
	}
}

func TestSlotIndexesReturnsCopy(t *testing.T) {
	indexes, _ := SlotIndexes(4)
	indexes[0] = 99

	again, _ := SlotIndexes(4)
	if again[0] != 0 {
		t.Error("SlotIndexes must not expose the internal table")
	}
}
