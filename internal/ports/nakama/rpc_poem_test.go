package nakama

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cadaver/internal/app"

	"github.com/heroiclabs/nakama-common/runtime"
)

func TestRpcPoemShareToken_RoundTrip(t *testing.T) {
	t.Cleanup(func() { shareService = nil })
	shareService = app.NewShareService("test-secret", "cadaver", time.Hour)

	ctx := context.WithValue(context.Background(), runtime.RUNTIME_CTX_USER_ID, "user123")

	raw, err := rpcPoemShareToken(ctx, noopLogger{}, nil, nil, `{"poem_key":"poem_42"}`)
	if err != nil {
		t.Fatalf("rpcPoemShareToken error: %v", err)
	}

	var resp shareTokenResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected token in response")
	}

	poemKey, err := shareService.ParseToken(resp.Token)
	if err != nil {
		t.Fatalf("ParseToken error: %v", err)
	}
	if poemKey != "poem_42" {
		t.Errorf("poem key = %s, want poem_42", poemKey)
	}
}

func TestRpcPoemShareToken_RequiresPoemKey(t *testing.T) {
	t.Cleanup(func() { shareService = nil })
	shareService = app.NewShareService("test-secret", "cadaver", time.Hour)

	if _, err := rpcPoemShareToken(context.Background(), noopLogger{}, nil, nil, `{}`); err == nil {
		t.Fatal("expected error for missing poem key")
	}
}

func TestRpcPoemShareToken_Unconfigured(t *testing.T) {
	shareService = nil

	if _, err := rpcPoemShareToken(context.Background(), noopLogger{}, nil, nil, `{"poem_key":"poem_42"}`); err == nil {
		t.Fatal("expected error when sharing is not configured")
	}
}

func TestReadPoem(t *testing.T) {
	storage := newMemoryStorage()
	publisher := NewNakamaPoemPublisher(storage)
	publisher.now = func() time.Time {
		return time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
	}

	key, err := publisher.Publish(context.Background(), "a\nb\n\nc")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	resp, err := readPoem(context.Background(), storage, key)
	if err != nil {
		t.Fatalf("readPoem: %v", err)
	}
	if resp.Poem != "a\nb\n\nc" {
		t.Errorf("poem = %q, want the published text", resp.Poem)
	}
	if resp.PublishedAt != "2025-03-14T15:09:26Z" {
		t.Errorf("published_at = %q", resp.PublishedAt)
	}
}

func TestReadPoem_Missing(t *testing.T) {
	if _, err := readPoem(context.Background(), newMemoryStorage(), "poem_nope"); err == nil {
		t.Fatal("expected error for missing poem")
	}
}
