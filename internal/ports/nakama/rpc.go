package nakama

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/heroiclabs/nakama-common/runtime"
)

// JoinSessionResponse is the payload returned to clients joining the shared
// poem match.
type JoinSessionResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcJoinSession, rpcJoinSession); err != nil {
		return err
	}
	if err := initializer.RegisterRpc(RpcPoemShareToken, rpcPoemShareToken); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcGetPoem, rpcGetPoem)
}

// rpcJoinSession finds the running poem match or creates it. There is one
// live session at a time, so at most one match should ever be listed.
func rpcJoinSession(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	query := "+label.game:cadaver"

	limit := 1
	authoritative := true
	minSize := 0
	maxSize := 16

	matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, &maxSize, query)
	if err != nil {
		logger.Error("MatchList error: %v", err)
		return "", err
	}

	if len(matches) > 0 {
		resp := JoinSessionResponse{MatchID: matches[0].MatchId, IsNew: false}
		b, _ := json.Marshal(resp)
		return string(b), nil
	}

	matchID, err := nk.MatchCreate(ctx, MatchNameCadaver, map[string]interface{}{})
	if err != nil {
		logger.Error("MatchCreate error: %v", err)
		return "", err
	}

	resp := JoinSessionResponse{MatchID: matchID, IsNew: true}
	b, _ := json.Marshal(resp)
	return string(b), nil
}
