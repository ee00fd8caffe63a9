package nakama

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cadaver/internal/domain"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// memoryStorage is an in-memory StorageAPI backed by a collection/key map.
type memoryStorage struct {
	objects map[string]string
	readErr error
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: make(map[string]string)}
}

func storageMapKey(collection, key string) string {
	return collection + "/" + key
}

func (m *memoryStorage) StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	var out []*api.StorageObject
	for _, r := range reads {
		if value, ok := m.objects[storageMapKey(r.Collection, r.Key)]; ok {
			out = append(out, &api.StorageObject{
				Collection: r.Collection,
				Key:        r.Key,
				Value:      value,
			})
		}
	}
	return out, nil
}

func (m *memoryStorage) StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error) {
	var acks []*api.StorageObjectAck
	for _, w := range writes {
		m.objects[storageMapKey(w.Collection, w.Key)] = w.Value
		acks = append(acks, &api.StorageObjectAck{Collection: w.Collection, Key: w.Key})
	}
	return acks, nil
}

func (m *memoryStorage) StorageDelete(ctx context.Context, deletes []*runtime.StorageDelete) error {
	for _, d := range deletes {
		delete(m.objects, storageMapKey(d.Collection, d.Key))
	}
	return nil
}

func TestSessionStoreRoundTrip(t *testing.T) {
	storage := newMemoryStorage()
	store := NewNakamaSessionStore(storage)
	ctx := context.Background()

	session := domain.Start("Valen")
	session.Rounds[0].Verses = append(session.Rounds[0].Verses, "primer verso")

	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, found, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !found {
		t.Fatal("Load: saved session not found")
	}
	if loaded.Phase != domain.PhaseOpen || loaded.CreatedBy != "Valen" {
		t.Fatalf("loaded = %+v", loaded)
	}
	if got := loaded.Rounds[0].Verses; len(got) != 1 || got[0] != "primer verso" {
		t.Fatalf("verses = %v", got)
	}
}

func TestSessionStoreLoadMissing(t *testing.T) {
	store := NewNakamaSessionStore(newMemoryStorage())

	_, found, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if found {
		t.Fatal("Load: found a session in empty storage")
	}
}

func TestSessionStoreLoadError(t *testing.T) {
	storage := newMemoryStorage()
	storage.readErr = errors.New("storage down")
	store := NewNakamaSessionStore(storage)

	_, found, err := store.Load(context.Background())
	if err == nil {
		t.Fatal("Load: expected error")
	}
	if found {
		t.Fatal("Load: found must be false on error")
	}
}

func TestSessionStoreSaveReplacesPrior(t *testing.T) {
	storage := newMemoryStorage()
	store := NewNakamaSessionStore(storage)
	ctx := context.Background()

	first := domain.Start("Valen")
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("Save first: %v", err)
	}

	second := domain.Close(first)
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("Save second: %v", err)
	}

	loaded, _, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Phase != domain.PhaseClosed {
		t.Fatalf("phase = %s, want the later write to win", loaded.Phase)
	}
}

func TestSessionStoreDelete(t *testing.T) {
	storage := newMemoryStorage()
	store := NewNakamaSessionStore(storage)
	ctx := context.Background()

	if err := store.Save(ctx, domain.Start("Valen")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete(ctx); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	_, found, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if found {
		t.Fatal("Load: session survived delete")
	}
}

func TestPoemPublisherStoresPoem(t *testing.T) {
	storage := newMemoryStorage()
	publisher := NewNakamaPoemPublisher(storage)
	fixed := time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
	publisher.now = func() time.Time { return fixed }

	key, err := publisher.Publish(context.Background(), "a\nb\n\nc")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !strings.HasPrefix(key, "poem_") {
		t.Fatalf("key = %q, want poem_ prefix", key)
	}

	value, ok := storage.objects[storageMapKey("poems", key)]
	if !ok {
		t.Fatalf("poem not stored under %q", key)
	}
	if !strings.Contains(value, `"text":"a\nb\n\nc"`) {
		t.Fatalf("stored value = %s", value)
	}
	if !strings.Contains(value, "2025-03-14T15:09:26Z") {
		t.Fatalf("stored value missing publish timestamp: %s", value)
	}
}

func TestPoemPublisherKeysAreDistinct(t *testing.T) {
	storage := newMemoryStorage()
	publisher := NewNakamaPoemPublisher(storage)

	tick := time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
	publisher.now = func() time.Time {
		tick = tick.Add(time.Millisecond)
		return tick
	}

	first, err := publisher.Publish(context.Background(), "uno")
	if err != nil {
		t.Fatalf("Publish first: %v", err)
	}
	second, err := publisher.Publish(context.Background(), "dos")
	if err != nil {
		t.Fatalf("Publish second: %v", err)
	}
	if first == second {
		t.Fatalf("keys collide: %q", first)
	}
	if len(storage.objects) != 2 {
		t.Fatalf("stored poems = %d, want 2", len(storage.objects))
	}
}
