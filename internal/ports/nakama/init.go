package nakama

import (
	"context"
	"database/sql"
	"time"

	"cadaver/internal/app"
	"cadaver/internal/config"
	"cadaver/internal/domain"

	"github.com/heroiclabs/nakama-common/runtime"
)

// InitModule wires RPCs, hooks and the match handler for the Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	if env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string); ok {
		secret := env["cadaver_share_secret"]
		issuer := env["cadaver_share_issuer"]
		if secret != "" && issuer != "" {
			ttl := time.Duration(config.GetShareTokenTTLSeconds()) * time.Second
			shareService = app.NewShareService(secret, issuer, ttl)
		} else {
			logger.Warn("InitModule: Share credentials missing from env, poem sharing disabled.")
		}
	}

	if err := RegisterRPCs(initializer); err != nil {
		return err
	}

	if err := initializer.RegisterAfterAuthenticateDevice(AfterAuthenticateDevice); err != nil {
		return err
	}

	if err := initializer.RegisterMatch(MatchNameCadaver, NewMatch); err != nil {
		return err
	}

	logger.Info("Cadaver exquisito Go module loaded.")
	return nil
}

// rosterFromConfig converts configured roster members into the domain
// roster, applying the configured auto-close policy.
func rosterFromConfig(members []config.RosterMember) domain.Roster {
	out := make([]domain.Member, len(members))
	for i, m := range members {
		out[i] = domain.Member{Name: m.Name, Aliases: m.Aliases}
	}
	roster := domain.NewRoster(out)
	if !config.GetAutoCloseEnabled() {
		roster = roster.WithoutAutoClose()
	}
	return roster
}
