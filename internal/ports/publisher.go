package ports

import "context"

// Publisher receives the finalized poem text and performs its own storage
// and display. Its failure modes are opaque to the session core.
type Publisher interface {
	// Publish hands off the finished poem and returns the key it was
	// stored under, usable for share tokens.
	Publish(ctx context.Context, poem string) (key string, err error)
}
