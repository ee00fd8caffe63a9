package nakama

import (
	"context"
	"database/sql"
	"encoding/json"

	"cadaver/internal/app"

	"github.com/heroiclabs/nakama-common/runtime"
)

// shareService issues and validates poem share tokens. Set during
// InitModule from runtime env credentials; nil means sharing is disabled.
var shareService *app.ShareService

type shareTokenRequest struct {
	PoemKey string `json:"poem_key"`
}

type shareTokenResponse struct {
	Token string `json:"token"`
}

type getPoemRequest struct {
	Token string `json:"token"`
}

type getPoemResponse struct {
	Poem        string `json:"poem"`
	PublishedAt string `json:"published_at"`
}

// rpcPoemShareToken issues a share token for a published poem.
// Payload: {"poem_key": "..."}
func rpcPoemShareToken(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	if shareService == nil {
		return "", runtime.NewError("Poem sharing is not configured", 13) // INTERNAL
	}

	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	var req shareTokenRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", runtime.NewError("Invalid payload", 3) // INVALID_ARGUMENT
	}
	if req.PoemKey == "" {
		return "", runtime.NewError("Poem key required", 3)
	}

	token, err := shareService.GenerateToken(userID, app.ShareTokenActionRead, req.PoemKey)
	if err != nil {
		logger.Error("Failed to generate share token: %v", err)
		return "", runtime.NewError("Internal error", 13)
	}

	b, _ := json.Marshal(shareTokenResponse{Token: token})
	return string(b), nil
}

// rpcGetPoem returns a published poem for a valid share token.
// Payload: {"token": "..."}
func rpcGetPoem(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	if shareService == nil {
		return "", runtime.NewError("Poem sharing is not configured", 13)
	}

	var req getPoemRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", runtime.NewError("Invalid payload", 3)
	}

	poemKey, err := shareService.ParseToken(req.Token)
	if err != nil {
		logger.Warn("Rejected share token: %v", err)
		return "", runtime.NewError("Invalid share token", 16) // UNAUTHENTICATED
	}

	poem, err := readPoem(ctx, nk, poemKey)
	if err != nil {
		logger.Error("Failed to read poem %s: %v", poemKey, err)
		return "", runtime.NewError("Poem not found", 5) // NOT_FOUND
	}

	b, _ := json.Marshal(poem)
	return string(b), nil
}

// readPoem loads a stored poem from the poems collection.
func readPoem(ctx context.Context, storage StorageAPI, key string) (getPoemResponse, error) {
	objects, err := storage.StorageRead(ctx, []*runtime.StorageRead{
		{
			Collection: poemCollection,
			Key:        key,
		},
	})
	if err != nil {
		return getPoemResponse{}, err
	}
	if len(objects) == 0 || objects[0].Value == "" {
		return getPoemResponse{}, runtime.NewError("poem not found", 5)
	}

	var stored storedPoem
	if err := json.Unmarshal([]byte(objects[0].Value), &stored); err != nil {
		return getPoemResponse{}, err
	}

	return getPoemResponse{Poem: stored.Text, PublishedAt: stored.PublishedAt}, nil
}
