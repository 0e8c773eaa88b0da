package sqlite_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/msomdec/decision-log/internal/domain"
	"github.com/msomdec/decision-log/internal/repository/sqlite"
)

// Verify that *sqlite.KVRepository implements the port at compile time.
var _ domain.KeyValueStore = (*sqlite.KVRepository)(nil)

func TestKVRepository_SaveAndLoad(t *testing.T) {
	db := newTestDB(t)
	kv := db.KV()
	ctx := context.Background()

	if err := kv.Save(ctx, "all_decisions", []byte(`[{"id":1}]`)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := kv.Load(ctx, "all_decisions")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(got, []byte(`[{"id":1}]`)) {
		t.Fatalf("unexpected value: %s", got)
	}
}

func TestKVRepository_SaveOverwrites(t *testing.T) {
	db := newTestDB(t)
	kv := db.KV()
	ctx := context.Background()

	if err := kv.Save(ctx, "users", []byte(`[]`)); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	if err := kv.Save(ctx, "users", []byte(`[{"id":2}]`)); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	got, err := kv.Load(ctx, "users")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(got, []byte(`[{"id":2}]`)) {
		t.Fatalf("save must rewrite the value wholesale, got %s", got)
	}
}

func TestKVRepository_LoadMissingKey(t *testing.T) {
	db := newTestDB(t)

	_, err := db.KV().Load(context.Background(), "currentUser")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestKVRepository_Delete(t *testing.T) {
	db := newTestDB(t)
	kv := db.KV()
	ctx := context.Background()

	if err := kv.Save(ctx, "currentUser", []byte(`{"id":1}`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := kv.Delete(ctx, "currentUser"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := kv.Load(ctx, "currentUser"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	// Deleting an absent key is not an error.
	if err := kv.Delete(ctx, "currentUser"); err != nil {
		t.Fatalf("Delete absent key: %v", err)
	}
}
