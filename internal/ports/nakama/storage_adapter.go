package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"cadaver/internal/domain"
	"cadaver/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	sessionCollection = "cadaver"
	sessionKey        = "session"
)

// StorageAPI is the subset of runtime.NakamaModule the storage adapters need.
type StorageAPI interface {
	StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error)
	StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error)
	StorageDelete(ctx context.Context, deletes []*runtime.StorageDelete) error
}

// NakamaSessionStore implements ports.SessionStore using Nakama's storage
// engine. The session lives as a single system-owned object; every save
// replaces the whole snapshot with no version check, so the last writer
// wins on concurrent edits.
type NakamaSessionStore struct {
	storage StorageAPI
}

// NewNakamaSessionStore creates a new session store adapter.
func NewNakamaSessionStore(storage StorageAPI) *NakamaSessionStore {
	return &NakamaSessionStore{storage: storage}
}

// Load fetches the persisted session snapshot.
func (s *NakamaSessionStore) Load(ctx context.Context) (domain.Session, bool, error) {
	objects, err := s.storage.StorageRead(ctx, []*runtime.StorageRead{
		{
			Collection: sessionCollection,
			Key:        sessionKey,
		},
	})
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("failed to read session: %w", err)
	}
	if len(objects) == 0 || objects[0].Value == "" {
		return domain.Session{}, false, nil
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(objects[0].Value), &session); err != nil {
		return domain.Session{}, false, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return session, true, nil
}

// Save stores the full session snapshot, replacing any prior one.
func (s *NakamaSessionStore) Save(ctx context.Context, session domain.Session) error {
	value, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	_, err = s.storage.StorageWrite(ctx, []*runtime.StorageWrite{
		{
			Collection:      sessionCollection,
			Key:             sessionKey,
			Value:           string(value),
			PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// Delete removes the persisted session snapshot.
func (s *NakamaSessionStore) Delete(ctx context.Context) error {
	err := s.storage.StorageDelete(ctx, []*runtime.StorageDelete{
		{
			Collection: sessionCollection,
			Key:        sessionKey,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

var _ ports.SessionStore = (*NakamaSessionStore)(nil)
