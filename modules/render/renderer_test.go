package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

type fakeResultStore struct {
	lastSlot string
	url      string
	err      error
}

func (f *fakeResultStore) StoreRendered(ctx context.Context, slotID string, imageData []byte) (string, error) {
	f.lastSlot = slotID
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

func TestPersistResultUsesStore(t *testing.T) {
	store := &fakeResultStore{url: "https://store.example.com/variation-results/variation-1-0.webp"}
	r := &GeminiRenderer{store: store}

	got, err := r.persistResult(context.Background(), "variation-1-0", []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("persistResult error: %v", err)
	}
	if got != store.url {
		t.Errorf("finalSrc = %q, want store URL", got)
	}
	if store.lastSlot != "variation-1-0" {
		t.Errorf("store received slot %q", store.lastSlot)
	}
}

func TestPersistResultPropagatesStoreError(t *testing.T) {
	store := &fakeResultStore{err: errors.New("bucket unavailable")}
	r := &GeminiRenderer{store: store}

	if _, err := r.persistResult(context.Background(), "variation-1-0", []byte{1}); err == nil {
		t.Fatal("store error should propagate")
	}
}

func TestPersistResultInlinesWithoutStore(t *testing.T) {
	r := &GeminiRenderer{}
	data := []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a}

	got, err := r.persistResult(context.Background(), "variation-1-0", data)
	if err != nil {
		t.Fatalf("persistResult error: %v", err)
	}

	const prefix = "data:image/png;base64,"
	if !strings.HasPrefix(got, prefix) {
		t.Fatalf("inline result = %q, want data URL", got)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(got, prefix))
	if err != nil {
		t.Fatalf("inline payload not base64: %v", err)
	}
	if !bytes.Equal(decoded, data) {
		t.Error("inline payload does not round-trip")
	}
}
