package ports

import (
	"context"

	"cadaver/internal/domain"
)

// SessionStore persists the single live session as a whole snapshot.
// Saves replace the prior snapshot; there is no incremental patching.
type SessionStore interface {
	// Load fetches the persisted session. found is false when no active
	// session has been persisted.
	Load(ctx context.Context) (session domain.Session, found bool, err error)

	// Save durably stores the full session snapshot, replacing any prior one.
	Save(ctx context.Context, session domain.Session) error

	// Delete removes any persisted snapshot. Called on reset.
	Delete(ctx context.Context) error
}
