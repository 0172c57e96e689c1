package embedding

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type memoryStore struct {
	mu      sync.Mutex
	data    map[string][]float32
	gets    int
	puts    int
	failGet bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string][]float32)}
}

func (m *memoryStore) GetEmbedding(_ context.Context, modelID, hash string) ([]float32, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.failGet {
		return nil, false, errors.New("disk on fire")
	}
	v, ok := m.data[modelID+"/"+hash]
	return v, ok, nil
}

func (m *memoryStore) PutEmbedding(_ context.Context, modelID, hash string, vec []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	m.data[modelID+"/"+hash] = vec
	return nil
}

func (m *memoryStore) CountEmbeddings(_ context.Context, _ string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.data)), nil
}

func (m *memoryStore) Close() error { return nil }

type countingEmbedder struct {
	MockEmbedder
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return c.MockEmbedder.Embed(ctx, text)
}

func TestPersistentEmbedder_ReusesStoredVectors(t *testing.T) {
	store := newMemoryStore()
	inner := &countingEmbedder{MockEmbedder: *NewMockEmbedder(8)}
	e := NewPersistentEmbedder(inner, store, "finsmart", nil)
	ctx := context.Background()

	first, err := e.Embed(ctx, "key answer")
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.Embed(ctx, "key answer")
	if err != nil {
		t.Fatal(err)
	}
	if inner.calls != 1 {
		t.Errorf("inner embedder calls = %d, want 1", inner.calls)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatal("stored vector differs from computed vector")
		}
	}
	if store.puts != 1 {
		t.Errorf("store puts = %d, want 1", store.puts)
	}
}

func TestPersistentEmbedder_StoreFailureFallsThrough(t *testing.T) {
	store := newMemoryStore()
	store.failGet = true
	inner := &countingEmbedder{MockEmbedder: *NewMockEmbedder(8)}
	e := NewPersistentEmbedder(inner, store, "finsmart", nil)

	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("store read failure should not fail embedding: %v", err)
	}
	if len(vecs) != 2 || inner.calls != 2 {
		t.Errorf("got %d vectors, %d inner calls", len(vecs), inner.calls)
	}
}

func TestPersistentEmbedder_IgnoresWrongDimensions(t *testing.T) {
	store := newMemoryStore()
	store.data["finsmart/"+textKey("a")] = []float32{1, 2}
	inner := &countingEmbedder{MockEmbedder: *NewMockEmbedder(8)}
	e := NewPersistentEmbedder(inner, store, "finsmart", nil)

	vec, err := e.Embed(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 8 || inner.calls != 1 {
		t.Errorf("stale vector should be recomputed: len=%d calls=%d", len(vec), inner.calls)
	}
}
