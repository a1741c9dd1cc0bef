package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSqliteVectorCachePutAndGet(t *testing.T) {
	storage, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer storage.Close()

	ctx := context.Background()
	vec := []float32{0.25, -1.5, 3}

	if err := storage.Put(ctx, "gemini-embedding-001", HashText("java"), vec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok, err := storage.Get(ctx, "gemini-embedding-001", HashText("java"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(got) != 3 || got[0] != 0.25 || got[1] != -1.5 || got[2] != 3 {
		t.Errorf("unexpected vector: %v", got)
	}
}

func TestSqliteVectorCacheMiss(t *testing.T) {
	storage, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer storage.Close()

	_, ok, err := storage.Get(context.Background(), "m", "missing")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("expected miss")
	}
}

func TestSqliteVectorCacheReplace(t *testing.T) {
	storage, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer storage.Close()

	ctx := context.Background()
	_ = storage.Put(ctx, "m", "h", []float32{1})
	_ = storage.Put(ctx, "m", "h", []float32{2, 3})

	got, _, _ := storage.Get(ctx, "m", "h")
	if len(got) != 2 || got[0] != 2 {
		t.Errorf("expected replaced vector, got %v", got)
	}

	count, err := storage.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}
}

func TestOpenSqlitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "askbase.db")
	ctx := context.Background()

	storage, err := OpenSqlite(path)
	if err != nil {
		t.Fatalf("OpenSqlite failed: %v", err)
	}
	if err := storage.Put(ctx, "m", "h", []float32{4, 5}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	storage.Close()

	reopened, err := OpenSqlite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	got, ok, err := reopened.Get(ctx, "m", "h")
	if err != nil || !ok {
		t.Fatalf("expected hit after reopen, ok=%v err=%v", ok, err)
	}
	if got[1] != 5 {
		t.Errorf("unexpected vector: %v", got)
	}
}

func TestDecodeVectorRejectsCorruptBlob(t *testing.T) {
	if _, err := decodeVector([]byte{1, 2, 3}, 1); err == nil {
		t.Error("expected error for short blob")
	}
}
