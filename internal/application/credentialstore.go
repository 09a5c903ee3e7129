package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ericfisherdev/vaultpanel/internal/domain/model"
	"github.com/ericfisherdev/vaultpanel/internal/domain/port/driven"
)

// CredentialStore translates record CRUD intents into remote calls. An
// authorization failure on any call terminates the session before the error
// is returned; every other failure is passed through unchanged. No call is
// retried.
type CredentialStore struct {
	remote     driven.VaultStore
	terminator SessionTerminator
	logger     *slog.Logger
}

// NewCredentialStore creates a CredentialStore over the given remote port.
func NewCredentialStore(remote driven.VaultStore, terminator SessionTerminator, logger *slog.Logger) *CredentialStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CredentialStore{remote: remote, terminator: terminator, logger: logger}
}

// List returns every record of the current user.
func (s *CredentialStore) List(ctx context.Context) ([]model.CredentialRecord, error) {
	records, err := s.remote.List(ctx)
	if err != nil {
		return nil, s.handle("list", err)
	}
	if records == nil {
		records = []model.CredentialRecord{}
	}
	return records, nil
}

// Get returns a single record.
func (s *CredentialStore) Get(ctx context.Context, id model.RecordID) (model.CredentialRecord, error) {
	record, err := s.remote.Get(ctx, id)
	if err != nil {
		return model.CredentialRecord{}, s.handle("get", err)
	}
	return record, nil
}

// Create stores a new record and returns it with its server-assigned id.
func (s *CredentialStore) Create(ctx context.Context, draft model.RecordDraft) (model.CredentialRecord, error) {
	record, err := s.remote.Create(ctx, draft)
	if err != nil {
		return model.CredentialRecord{}, s.handle("create", err)
	}
	return record, nil
}

// Update replaces every user field of the record with draft.
func (s *CredentialStore) Update(ctx context.Context, id model.RecordID, draft model.RecordDraft) (model.CredentialRecord, error) {
	record, err := s.remote.Update(ctx, id, draft)
	if err != nil {
		return model.CredentialRecord{}, s.handle("update", err)
	}
	return record, nil
}

// Delete removes the record.
func (s *CredentialStore) Delete(ctx context.Context, id model.RecordID) error {
	if err := s.remote.Delete(ctx, id); err != nil {
		return s.handle("delete", err)
	}
	return nil
}

func (s *CredentialStore) handle(op string, err error) error {
	if errors.Is(err, driven.ErrUnauthorized) {
		s.logger.Warn("vault request unauthorized, terminating session", "op", op)
		if s.terminator != nil {
			s.terminator.Terminate(model.ExpiryUnauthorized)
		}
	}
	return err
}
