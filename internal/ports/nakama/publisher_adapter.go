package nakama

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cadaver/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

const poemCollection = "poems"

// storedPoem is the storage representation of a published poem.
type storedPoem struct {
	Text        string `json:"text"`
	PublishedAt string `json:"published_at"`
}

// NakamaPoemPublisher implements ports.Publisher by storing finished poems
// as system-owned objects in the poems collection. What happens to a poem
// after the hand-off is this adapter's business, not the session core's.
type NakamaPoemPublisher struct {
	storage StorageAPI
	now     func() time.Time
}

// NewNakamaPoemPublisher creates a new poem publisher adapter.
func NewNakamaPoemPublisher(storage StorageAPI) *NakamaPoemPublisher {
	return &NakamaPoemPublisher{
		storage: storage,
		now:     time.Now,
	}
}

// Publish stores the poem under a timestamped key and returns that key.
func (p *NakamaPoemPublisher) Publish(ctx context.Context, poem string) (string, error) {
	publishedAt := p.now().UTC()
	key := fmt.Sprintf("poem_%d", publishedAt.UnixNano())

	value, err := json.Marshal(storedPoem{
		Text:        poem,
		PublishedAt: publishedAt.Format(time.RFC3339),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal poem: %w", err)
	}

	_, err = p.storage.StorageWrite(ctx, []*runtime.StorageWrite{
		{
			Collection:      poemCollection,
			Key:             key,
			Value:           string(value),
			PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to store poem: %w", err)
	}

	return key, nil
}

var _ ports.Publisher = (*NakamaPoemPublisher)(nil)
