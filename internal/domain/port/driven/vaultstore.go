package driven

import (
	"context"

	"github.com/ericfisherdev/vaultpanel/internal/domain/model"
)

// VaultStore defines the driven port for the remote credential record service.
// Every call is attempted at most once; implementations never retry.
type VaultStore interface {
	// List returns every record visible to the current session.
	List(ctx context.Context) ([]model.CredentialRecord, error)

	// Get returns one record. Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, id model.RecordID) (model.CredentialRecord, error)

	// Create stores a new record and returns it with its assigned id.
	Create(ctx context.Context, draft model.RecordDraft) (model.CredentialRecord, error)

	// Update replaces every user field of the record. Returns ErrNotFound if
	// the record does not exist.
	Update(ctx context.Context, id model.RecordID, draft model.RecordDraft) (model.CredentialRecord, error)

	// Delete removes the record. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, id model.RecordID) error
}
