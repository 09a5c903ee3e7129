package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/ericfisherdev/vaultpanel/internal/domain/model"
	"github.com/ericfisherdev/vaultpanel/internal/domain/port/driven"
)

// MaskedPassword is shown in place of a password that is not revealed.
const MaskedPassword = "••••••••"

// SessionWatcher is the part of a session the vault controller observes.
type SessionWatcher interface {
	Subscribe(fn func(SessionEvent)) (cancel func())
	Expired() bool
}

// RecordView is a record together with its client-only reveal flag.
type RecordView struct {
	Record   model.CredentialRecord
	Revealed bool
}

// DisplayPassword returns the password when revealed and a mask otherwise.
func (v RecordView) DisplayPassword() string {
	if v.Revealed {
		return v.Record.Password
	}
	return MaskedPassword
}

// VaultView is an immutable snapshot of the controller for presentation.
type VaultView struct {
	Records []RecordView
	Stale   bool // A remote NotFound showed the local view is out of date.
	Expired bool
}

// Summary returns the stored-count line, e.g. "3 passwords stored".
func (v VaultView) Summary() string {
	if len(v.Records) == 1 {
		return "1 password stored"
	}
	return fmt.Sprintf("%d passwords stored", len(v.Records))
}

// EditDraft is the edit-in-progress form. ExistingID is empty when the draft
// will create a new record.
type EditDraft struct {
	ExistingID model.RecordID
	Fields     model.RecordDraft
}

// VaultController owns the local record collection, the per-record reveal
// flags, and the edit draft. The collection only ever reflects what the
// remote service confirmed: mutations are applied after the remote call
// succeeds, never before.
//
// Reveal flags live in a side map keyed by record id so they can never be
// serialized with a record.
type VaultController struct {
	mu         sync.Mutex
	store      driven.VaultStore
	policy     *PasswordPolicy
	logger     *slog.Logger
	records    []model.CredentialRecord
	revealed   map[model.RecordID]bool
	draft      *EditDraft
	stale      bool
	closed     bool
	generation uint64
	inflight   map[uint64]context.CancelFunc
	nextOpID   uint64
	unsub      func()
}

// NewVaultController creates a controller bound to one session. When the
// session expires every in-flight call is canceled and the local state is
// purged. Call Close to release the session subscription.
func NewVaultController(store driven.VaultStore, policy *PasswordPolicy, session SessionWatcher, logger *slog.Logger) *VaultController {
	if logger == nil {
		logger = slog.Default()
	}
	if policy == nil {
		policy = NewPasswordPolicy(nil)
	}

	c := &VaultController{
		store:    store,
		policy:   policy,
		logger:   logger,
		records:  []model.CredentialRecord{},
		revealed: make(map[model.RecordID]bool),
		inflight: make(map[uint64]context.CancelFunc),
	}

	if session != nil {
		c.unsub = session.Subscribe(func(ev SessionEvent) {
			if ev.State == model.SessionExpired {
				c.purge()
			}
		})
		// The session may have ended before the subscription was in place.
		if session.Expired() {
			c.purge()
		}
	}

	return c
}

// Close releases the session subscription.
func (c *VaultController) Close() {
	c.mu.Lock()
	unsub := c.unsub
	c.unsub = nil
	c.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// Refresh replaces the whole collection with the remote list and resets every
// reveal flag. A refresh that completes after a newer refresh was issued, or
// after a mutation was confirmed, is discarded with ErrSuperseded.
func (c *VaultController) Refresh(ctx context.Context) error {
	opCtx, end, err := c.beginOp(ctx)
	if err != nil {
		return err
	}
	defer end()

	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	records, err := c.store.List(opCtx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return expiredErr(err)
	}
	if err != nil {
		return fmt.Errorf("refresh vault: %w", err)
	}
	if gen != c.generation {
		c.logger.Debug("discarding stale refresh", "generation", gen, "current", c.generation)
		return ErrSuperseded
	}

	c.records = slices.Clone(records)
	if c.records == nil {
		c.records = []model.CredentialRecord{}
	}
	c.revealed = make(map[model.RecordID]bool)
	c.stale = false

	c.logger.Debug("vault refreshed", "records", len(c.records))
	return nil
}

// AddOrUpdate creates a record when existingID is empty, appending it to the
// collection. Otherwise it replaces every field of the existing record and
// keeps it at its position. An existingID unknown to the local collection
// fails with driven.ErrNotFound without a remote call.
func (c *VaultController) AddOrUpdate(ctx context.Context, draft model.RecordDraft, existingID model.RecordID) (model.CredentialRecord, error) {
	if err := draft.Validate(); err != nil {
		return model.CredentialRecord{}, err
	}

	if existingID != "" {
		c.mu.Lock()
		_, ok := c.indexLocked(existingID)
		c.mu.Unlock()
		if !ok {
			return model.CredentialRecord{}, fmt.Errorf("update record %s: %w", existingID, driven.ErrNotFound)
		}
	}

	opCtx, end, err := c.beginOp(ctx)
	if err != nil {
		return model.CredentialRecord{}, err
	}
	defer end()

	var record model.CredentialRecord
	if existingID == "" {
		record, err = c.store.Create(opCtx, draft)
	} else {
		record, err = c.store.Update(opCtx, existingID, draft)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return model.CredentialRecord{}, expiredErr(err)
	}
	if err != nil {
		if existingID != "" && errors.Is(err, driven.ErrNotFound) {
			c.stale = true
		}
		if existingID == "" {
			return model.CredentialRecord{}, fmt.Errorf("create record: %w", err)
		}
		return model.CredentialRecord{}, fmt.Errorf("update record %s: %w", existingID, err)
	}

	c.generation++

	if existingID == "" {
		c.records = append(c.records, record)
		c.logger.Info("record created", "id", record.ID)
		return record, nil
	}

	if record.ID == "" {
		record.ID = existingID
	}
	if i, ok := c.indexLocked(existingID); ok {
		c.records[i] = record
	} else {
		// Removed locally while the update was in flight; do not resurrect it.
		c.stale = true
	}
	c.logger.Info("record updated", "id", existingID)
	return record, nil
}

// Remove deletes the record remotely and, on success, drops the record and
// its reveal flag in a single critical section. Confirmation is the caller's
// concern.
func (c *VaultController) Remove(ctx context.Context, id model.RecordID) error {
	c.mu.Lock()
	_, ok := c.indexLocked(id)
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("remove record %s: %w", id, driven.ErrNotFound)
	}

	opCtx, end, err := c.beginOp(ctx)
	if err != nil {
		return err
	}
	defer end()

	err = c.store.Delete(opCtx, id)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return expiredErr(err)
	}
	if err != nil {
		if errors.Is(err, driven.ErrNotFound) {
			c.stale = true
		}
		return fmt.Errorf("remove record %s: %w", id, err)
	}

	c.generation++
	if i, ok := c.indexLocked(id); ok {
		c.records = slices.Delete(c.records, i, i+1)
	}
	delete(c.revealed, id)
	if c.draft != nil && c.draft.ExistingID == id {
		c.draft = nil
	}

	c.logger.Info("record removed", "id", id)
	return nil
}

// ToggleReveal flips the reveal flag of a record and returns the new value.
func (c *VaultController) ToggleReveal(id model.RecordID) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false, ErrSessionExpired
	}
	if _, ok := c.indexLocked(id); !ok {
		return false, fmt.Errorf("toggle reveal %s: %w", id, driven.ErrNotFound)
	}

	c.revealed[id] = !c.revealed[id]
	return c.revealed[id], nil
}

// View returns a snapshot of the collection for presentation.
func (c *VaultController) View() VaultView {
	c.mu.Lock()
	defer c.mu.Unlock()

	views := make([]RecordView, 0, len(c.records))
	for _, r := range c.records {
		views = append(views, RecordView{Record: r, Revealed: c.revealed[r.ID]})
	}
	return VaultView{Records: views, Stale: c.stale, Expired: c.closed}
}

// Record returns one record of the local collection.
func (c *VaultController) Record(id model.RecordID) (RecordView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.indexLocked(id)
	if !ok {
		return RecordView{}, fmt.Errorf("record %s: %w", id, driven.ErrNotFound)
	}
	return RecordView{Record: c.records[i], Revealed: c.revealed[id]}, nil
}

// Fetch loads one record from the service into the local collection,
// replacing the local copy and keeping its reveal flag. A record the
// service no longer has marks the view stale.
func (c *VaultController) Fetch(ctx context.Context, id model.RecordID) (RecordView, error) {
	opCtx, end, err := c.beginOp(ctx)
	if err != nil {
		return RecordView{}, err
	}
	defer end()

	record, err := c.store.Get(opCtx, id)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return RecordView{}, expiredErr(err)
	}
	if err != nil {
		if _, ok := c.indexLocked(id); ok && errors.Is(err, driven.ErrNotFound) {
			c.stale = true
		}
		return RecordView{}, fmt.Errorf("fetch record %s: %w", id, err)
	}

	if record.ID == "" {
		record.ID = id
	}
	if i, ok := c.indexLocked(id); ok {
		c.records[i] = record
	} else {
		c.records = append(c.records, record)
	}
	return RecordView{Record: record, Revealed: c.revealed[id]}, nil
}

// BeginCreate starts an empty draft for a new record.
func (c *VaultController) BeginCreate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrSessionExpired
	}
	c.draft = &EditDraft{}
	return nil
}

// BeginEdit starts a draft prefilled from an existing record.
func (c *VaultController) BeginEdit(id model.RecordID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrSessionExpired
	}
	i, ok := c.indexLocked(id)
	if !ok {
		return fmt.Errorf("edit record %s: %w", id, driven.ErrNotFound)
	}
	c.draft = &EditDraft{ExistingID: id, Fields: c.records[i].Draft()}
	return nil
}

// SetDraftField assigns one field of the draft.
func (c *VaultController) SetDraftField(field model.DraftField, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.draft == nil {
		return ErrNoDraft
	}
	if !c.draft.Fields.Set(field, value) {
		return fmt.Errorf("unknown draft field %q", field)
	}
	return nil
}

// Draft returns a copy of the draft and whether an edit is in progress.
func (c *VaultController) Draft() (EditDraft, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.draft == nil {
		return EditDraft{}, false
	}
	return *c.draft, true
}

// DraftStrength scores the password currently being edited.
func (c *VaultController) DraftStrength() model.StrengthResult {
	c.mu.Lock()
	password := ""
	if c.draft != nil {
		password = c.draft.Fields.Password
	}
	c.mu.Unlock()

	return c.policy.Score(password)
}

// GenerateInto generates a password with cfg and writes it into field of the
// draft. A config without any character class fails with
// model.InvalidConfigError and leaves the draft untouched.
func (c *VaultController) GenerateInto(field model.DraftField, cfg model.GenerationConfig) (string, error) {
	password, err := c.policy.Generate(cfg)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.draft == nil {
		return "", ErrNoDraft
	}
	if !c.draft.Fields.Set(field, password) {
		return "", fmt.Errorf("unknown draft field %q", field)
	}
	return password, nil
}

// SubmitDraft saves the draft through AddOrUpdate and ends the edit on success.
// On failure the draft is kept so the user can correct it.
func (c *VaultController) SubmitDraft(ctx context.Context) (model.CredentialRecord, error) {
	c.mu.Lock()
	if c.draft == nil {
		c.mu.Unlock()
		return model.CredentialRecord{}, ErrNoDraft
	}
	submitted := c.draft
	draft := *submitted
	c.mu.Unlock()

	record, err := c.AddOrUpdate(ctx, draft.Fields, draft.ExistingID)
	if err != nil {
		return model.CredentialRecord{}, err
	}

	c.mu.Lock()
	if c.draft == submitted {
		c.draft = nil
	}
	c.mu.Unlock()

	return record, nil
}

// CancelEdit discards the draft.
func (c *VaultController) CancelEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = nil
}

// beginOp registers a cancelable context for one remote call. The returned
// end function must be called when the call completes.
func (c *VaultController) beginOp(ctx context.Context) (context.Context, func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, nil, ErrSessionExpired
	}

	opCtx, cancel := context.WithCancel(ctx)
	id := c.nextOpID
	c.nextOpID++
	c.inflight[id] = cancel

	end := func() {
		c.mu.Lock()
		delete(c.inflight, id)
		c.mu.Unlock()
		cancel()
	}
	return opCtx, end, nil
}

// purge cancels every in-flight call and drops all local state. Completions
// arriving afterwards see closed and are discarded.
func (c *VaultController) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	for id, cancel := range c.inflight {
		cancel()
		delete(c.inflight, id)
	}
	c.records = []model.CredentialRecord{}
	c.revealed = make(map[model.RecordID]bool)
	c.draft = nil
	c.stale = false

	c.logger.Info("vault state purged")
}

// expiredErr is the result of a completion that arrived after the session
// ended. The remote error, if any, stays inspectable with errors.Is.
func expiredErr(err error) error {
	if err == nil {
		return ErrSessionExpired
	}
	return errors.Join(ErrSessionExpired, err)
}

func (c *VaultController) indexLocked(id model.RecordID) (int, bool) {
	i := slices.IndexFunc(c.records, func(r model.CredentialRecord) bool { return r.ID == id })
	return i, i >= 0
}
