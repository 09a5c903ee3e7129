package application_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/vaultpanel/internal/application"
	"github.com/ericfisherdev/vaultpanel/internal/domain/model"
	"github.com/ericfisherdev/vaultpanel/internal/domain/port/driven"
)

func newController(t *testing.T, remote *mockVaultStore) (*application.VaultController, *sessionFixture) {
	t.Helper()

	f := newSessionFixture(t)
	ctrl := application.NewVaultController(remote, seededPolicy(5), f.session, discardLogger())
	t.Cleanup(ctrl.Close)
	return ctrl, f
}

func listing(records []model.CredentialRecord) func(context.Context) ([]model.CredentialRecord, error) {
	return func(context.Context) ([]model.CredentialRecord, error) { return records, nil }
}

func viewIDs(v application.VaultView) []model.RecordID {
	ids := make([]model.RecordID, 0, len(v.Records))
	for _, r := range v.Records {
		ids = append(ids, r.Record.ID)
	}
	return ids
}

func TestVaultController_RefreshReplacesAndResetsReveal(t *testing.T) {
	ctrl, _ := newController(t, &mockVaultStore{list: listing(sampleRecords())})
	ctx := context.Background()

	require.NoError(t, ctrl.Refresh(ctx))
	revealed, err := ctrl.ToggleReveal("2")
	require.NoError(t, err)
	require.True(t, revealed)

	view := ctrl.View()
	assert.Equal(t, "b4nk!pass", view.Records[1].DisplayPassword())
	assert.Equal(t, application.MaskedPassword, view.Records[0].DisplayPassword())

	require.NoError(t, ctrl.Refresh(ctx))

	view = ctrl.View()
	assert.Equal(t, []model.RecordID{"1", "2", "3"}, viewIDs(view))
	for _, r := range view.Records {
		assert.False(t, r.Revealed, "reveal flag survived refresh for %s", r.Record.ID)
	}
	assert.Equal(t, "3 passwords stored", view.Summary())
}

func TestVaultController_RefreshErrorKeepsCollection(t *testing.T) {
	var fail atomic.Bool
	remote := &mockVaultStore{
		list: func(context.Context) ([]model.CredentialRecord, error) {
			if fail.Load() {
				return nil, &driven.NetworkError{Op: "list records", Err: context.DeadlineExceeded}
			}
			return sampleRecords(), nil
		},
	}
	ctrl, _ := newController(t, remote)

	require.NoError(t, ctrl.Refresh(context.Background()))
	fail.Store(true)

	err := ctrl.Refresh(context.Background())

	var netErr *driven.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Len(t, ctrl.View().Records, 3)
}

func TestVaultController_CreateAppends(t *testing.T) {
	remote := &mockVaultStore{
		list: listing(sampleRecords()),
		create: func(_ context.Context, d model.RecordDraft) (model.CredentialRecord, error) {
			return recordFromDraft("4", d), nil
		},
	}
	ctrl, _ := newController(t, remote)
	require.NoError(t, ctrl.Refresh(context.Background()))

	rec, err := ctrl.AddOrUpdate(context.Background(), model.RecordDraft{Title: "Chat", Password: "x"}, "")

	require.NoError(t, err)
	assert.Equal(t, model.RecordID("4"), rec.ID)
	assert.Equal(t, []model.RecordID{"1", "2", "3", "4"}, viewIDs(ctrl.View()))
}

func TestVaultController_UpdateKeepsPosition(t *testing.T) {
	remote := &mockVaultStore{list: listing(sampleRecords())}
	ctrl, _ := newController(t, remote)
	require.NoError(t, ctrl.Refresh(context.Background()))

	draft := model.RecordDraft{Title: "Bank (new)", Username: "ann.b", Password: "n3w!pass"}
	_, err := ctrl.AddOrUpdate(context.Background(), draft, "2")
	require.NoError(t, err)

	view := ctrl.View()
	assert.Equal(t, []model.RecordID{"1", "2", "3"}, viewIDs(view))
	assert.Equal(t, "Bank (new)", view.Records[1].Record.Title)
	assert.Equal(t, "n3w!pass", view.Records[1].Record.Password)
	assert.Empty(t, view.Records[1].Record.URL)
}

func TestVaultController_NoOptimisticApply(t *testing.T) {
	remote := &mockVaultStore{
		list: listing(sampleRecords()),
		update: func(context.Context, model.RecordID, model.RecordDraft) (model.CredentialRecord, error) {
			return model.CredentialRecord{}, &driven.ServiceError{Op: "update record", Status: 500}
		},
		delete: func(context.Context, model.RecordID) error {
			return &driven.ServiceError{Op: "delete record", Status: 500}
		},
	}
	ctrl, _ := newController(t, remote)
	require.NoError(t, ctrl.Refresh(context.Background()))

	_, err := ctrl.AddOrUpdate(context.Background(), model.RecordDraft{Title: "Changed"}, "1")
	require.Error(t, err)
	require.Error(t, ctrl.Remove(context.Background(), "3"))

	view := ctrl.View()
	assert.Equal(t, []model.RecordID{"1", "2", "3"}, viewIDs(view))
	assert.Equal(t, "Mail", view.Records[0].Record.Title)
	assert.False(t, view.Stale)
}

func TestVaultController_ValidationBeforeRemote(t *testing.T) {
	remote := &mockVaultStore{}
	ctrl, _ := newController(t, remote)

	_, err := ctrl.AddOrUpdate(context.Background(), model.RecordDraft{Title: "  "}, "")

	var vErr *model.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "title", vErr.Field)
	assert.Empty(t, remote.callLog())
}

func TestVaultController_UnknownIDSkipsRemote(t *testing.T) {
	remote := &mockVaultStore{list: listing(sampleRecords())}
	ctrl, _ := newController(t, remote)
	require.NoError(t, ctrl.Refresh(context.Background()))

	_, err := ctrl.AddOrUpdate(context.Background(), model.RecordDraft{Title: "x"}, "99")
	assert.ErrorIs(t, err, driven.ErrNotFound)
	assert.ErrorIs(t, ctrl.Remove(context.Background(), "99"), driven.ErrNotFound)

	assert.Equal(t, []string{"list"}, remote.callLog())
}

func TestVaultController_RemoteNotFoundMarksStale(t *testing.T) {
	remote := &mockVaultStore{
		list:   listing(sampleRecords()),
		delete: func(context.Context, model.RecordID) error { return driven.ErrNotFound },
	}
	ctrl, _ := newController(t, remote)
	require.NoError(t, ctrl.Refresh(context.Background()))

	err := ctrl.Remove(context.Background(), "2")

	require.ErrorIs(t, err, driven.ErrNotFound)
	view := ctrl.View()
	assert.True(t, view.Stale)
	assert.Len(t, view.Records, 3)

	require.NoError(t, ctrl.Refresh(context.Background()))
	assert.False(t, ctrl.View().Stale)
}

func TestVaultController_FetchReplacesLocalCopy(t *testing.T) {
	remote := &mockVaultStore{
		list: listing(sampleRecords()),
		get: func(_ context.Context, id model.RecordID) (model.CredentialRecord, error) {
			return model.CredentialRecord{ID: id, Title: "Bank (joint)", Password: "n3w!pass"}, nil
		},
	}
	ctrl, _ := newController(t, remote)
	ctx := context.Background()
	require.NoError(t, ctrl.Refresh(ctx))
	_, err := ctrl.ToggleReveal("2")
	require.NoError(t, err)

	view, err := ctrl.Fetch(ctx, "2")
	require.NoError(t, err)

	assert.Equal(t, "Bank (joint)", view.Record.Title)
	assert.True(t, view.Revealed)
	assert.Equal(t, []model.RecordID{"1", "2", "3"}, viewIDs(ctrl.View()))
	assert.Equal(t, "n3w!pass", ctrl.View().Records[1].DisplayPassword())
	assert.Equal(t, []string{"list", "get 2"}, remote.callLog())
}

func TestVaultController_FetchWithoutListing(t *testing.T) {
	remote := &mockVaultStore{}
	ctrl, _ := newController(t, remote)

	view, err := ctrl.Fetch(context.Background(), "9")
	require.NoError(t, err)

	assert.Equal(t, model.RecordID("9"), view.Record.ID)
	assert.Equal(t, []model.RecordID{"9"}, viewIDs(ctrl.View()))
	assert.Equal(t, []string{"get 9"}, remote.callLog())
}

func TestVaultController_FetchNotFoundMarksStale(t *testing.T) {
	remote := &mockVaultStore{
		list: listing(sampleRecords()),
		get: func(context.Context, model.RecordID) (model.CredentialRecord, error) {
			return model.CredentialRecord{}, driven.ErrNotFound
		},
	}
	ctrl, _ := newController(t, remote)
	require.NoError(t, ctrl.Refresh(context.Background()))

	_, err := ctrl.Fetch(context.Background(), "2")

	require.ErrorIs(t, err, driven.ErrNotFound)
	assert.True(t, ctrl.View().Stale)
	assert.Len(t, ctrl.View().Records, 3)
}

func TestVaultController_RemoveThenToggleReveal(t *testing.T) {
	ctrl, _ := newController(t, &mockVaultStore{list: listing(sampleRecords())})
	require.NoError(t, ctrl.Refresh(context.Background()))
	_, err := ctrl.ToggleReveal("2")
	require.NoError(t, err)

	require.NoError(t, ctrl.Remove(context.Background(), "2"))

	_, err = ctrl.ToggleReveal("2")
	assert.ErrorIs(t, err, driven.ErrNotFound)
	assert.Equal(t, []model.RecordID{"1", "3"}, viewIDs(ctrl.View()))
	assert.Equal(t, "2 passwords stored", ctrl.View().Summary())
}

func TestVaultController_ToggleRevealTwice(t *testing.T) {
	ctrl, _ := newController(t, &mockVaultStore{list: listing(sampleRecords())})
	require.NoError(t, ctrl.Refresh(context.Background()))

	first, err := ctrl.ToggleReveal("1")
	require.NoError(t, err)
	second, err := ctrl.ToggleReveal("1")
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
}

func TestVaultController_SupersededRefreshDiscarded(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	older := []model.CredentialRecord{{ID: "1", Title: "old"}}
	newer := []model.CredentialRecord{{ID: "1", Title: "new"}, {ID: "2", Title: "second"}}

	remote := &mockVaultStore{
		list: func(context.Context) ([]model.CredentialRecord, error) {
			if calls.Add(1) == 1 {
				<-release
				return older, nil
			}
			return newer, nil
		},
	}
	ctrl, _ := newController(t, remote)

	firstDone := make(chan error, 1)
	go func() { firstDone <- ctrl.Refresh(context.Background()) }()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, ctrl.Refresh(context.Background()))
	close(release)

	assert.ErrorIs(t, <-firstDone, application.ErrSuperseded)
	view := ctrl.View()
	require.Len(t, view.Records, 2)
	assert.Equal(t, "new", view.Records[0].Record.Title)
}

func TestVaultController_RefreshOlderThanMutationDiscarded(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	remote := &mockVaultStore{
		list: func(context.Context) ([]model.CredentialRecord, error) {
			if calls.Add(1) == 2 {
				<-release
				return []model.CredentialRecord{}, nil
			}
			return sampleRecords(), nil
		},
	}
	ctrl, _ := newController(t, remote)
	require.NoError(t, ctrl.Refresh(context.Background()))

	refreshDone := make(chan error, 1)
	go func() { refreshDone <- ctrl.Refresh(context.Background()) }()
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)

	_, err := ctrl.AddOrUpdate(context.Background(), model.RecordDraft{Title: "Chat"}, "")
	require.NoError(t, err)
	close(release)

	assert.ErrorIs(t, <-refreshDone, application.ErrSuperseded)
	assert.Len(t, ctrl.View().Records, 4)
}

func TestVaultController_CompletionAfterExpiryHasNoEffect(t *testing.T) {
	started := make(chan struct{})
	remote := &mockVaultStore{
		create: func(ctx context.Context, d model.RecordDraft) (model.CredentialRecord, error) {
			close(started)
			<-ctx.Done()
			// The service still answers; the controller must ignore it.
			return recordFromDraft("7", d), nil
		},
	}
	ctrl, f := newController(t, remote)

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.AddOrUpdate(context.Background(), model.RecordDraft{Title: "Late"}, "")
		done <- err
	}()
	<-started

	f.session.Logout()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, application.ErrSessionExpired)
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight call was not canceled on expiry")
	}

	view := ctrl.View()
	assert.True(t, view.Expired)
	assert.Empty(t, view.Records)
}

func TestVaultController_ExpiryPurgesState(t *testing.T) {
	ctrl, f := newController(t, &mockVaultStore{list: listing(sampleRecords())})
	require.NoError(t, ctrl.Refresh(context.Background()))
	_, err := ctrl.ToggleReveal("1")
	require.NoError(t, err)
	require.NoError(t, ctrl.BeginEdit("1"))

	f.clk.Advance(31 * time.Minute)
	f.session.Tick()

	view := ctrl.View()
	assert.Empty(t, view.Records)
	assert.True(t, view.Expired)
	_, ok := ctrl.Draft()
	assert.False(t, ok)

	assert.ErrorIs(t, ctrl.Refresh(context.Background()), application.ErrSessionExpired)
	_, err = ctrl.ToggleReveal("1")
	assert.ErrorIs(t, err, application.ErrSessionExpired)
	assert.ErrorIs(t, ctrl.BeginCreate(), application.ErrSessionExpired)
}

func TestVaultController_ExpiredBeforeConstruction(t *testing.T) {
	f := newSessionFixture(t)
	f.session.Logout()

	ctrl := application.NewVaultController(&mockVaultStore{}, nil, f.session, discardLogger())
	defer ctrl.Close()

	assert.True(t, ctrl.View().Expired)
	assert.ErrorIs(t, ctrl.Refresh(context.Background()), application.ErrSessionExpired)
}

func TestVaultController_EditDraftFlow(t *testing.T) {
	remote := &mockVaultStore{list: listing(sampleRecords())}
	ctrl, _ := newController(t, remote)
	require.NoError(t, ctrl.Refresh(context.Background()))

	require.NoError(t, ctrl.BeginEdit("3"))
	draft, ok := ctrl.Draft()
	require.True(t, ok)
	assert.Equal(t, model.RecordID("3"), draft.ExistingID)
	assert.Equal(t, "https://forge.example", draft.Fields.URL)

	require.NoError(t, ctrl.SetDraftField(model.DraftFieldNotes, "rotated"))
	pw, err := ctrl.GenerateInto(model.DraftFieldPassword, model.DefaultGenerationConfig())
	require.NoError(t, err)
	assert.Len(t, pw, model.DefaultPasswordLength)

	strength := ctrl.DraftStrength()
	assert.Equal(t, application.ScorePassword(pw), strength)

	rec, err := ctrl.SubmitDraft(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pw, rec.Password)
	assert.Equal(t, "rotated", rec.Notes)

	_, ok = ctrl.Draft()
	assert.False(t, ok)
	assert.Equal(t, []string{"list", "update 3"}, remote.callLog())
}

func TestVaultController_GenerateIntoInvalidConfigLeavesDraft(t *testing.T) {
	ctrl, _ := newController(t, &mockVaultStore{})
	require.NoError(t, ctrl.BeginCreate())
	require.NoError(t, ctrl.SetDraftField(model.DraftFieldPassword, "keep-me"))

	_, err := ctrl.GenerateInto(model.DraftFieldPassword, model.GenerationConfig{Length: 16})

	var cfgErr *model.InvalidConfigError
	require.ErrorAs(t, err, &cfgErr)
	draft, _ := ctrl.Draft()
	assert.Equal(t, "keep-me", draft.Fields.Password)
}

func TestVaultController_DraftErrors(t *testing.T) {
	ctrl, _ := newController(t, &mockVaultStore{})

	assert.ErrorIs(t, ctrl.SetDraftField(model.DraftFieldTitle, "x"), application.ErrNoDraft)
	_, err := ctrl.SubmitDraft(context.Background())
	assert.ErrorIs(t, err, application.ErrNoDraft)
	assert.Equal(t, model.StrengthNone, ctrl.DraftStrength().Label)

	require.NoError(t, ctrl.BeginCreate())
	assert.Error(t, ctrl.SetDraftField(model.DraftField("color"), "blue"))

	ctrl.CancelEdit()
	_, ok := ctrl.Draft()
	assert.False(t, ok)
}

func TestVaultController_FailedSubmitKeepsDraft(t *testing.T) {
	remote := &mockVaultStore{
		create: func(context.Context, model.RecordDraft) (model.CredentialRecord, error) {
			return model.CredentialRecord{}, &model.ValidationError{Field: "password", Message: "field required"}
		},
	}
	ctrl, _ := newController(t, remote)
	require.NoError(t, ctrl.BeginCreate())
	require.NoError(t, ctrl.SetDraftField(model.DraftFieldTitle, "Mail"))

	_, err := ctrl.SubmitDraft(context.Background())

	var vErr *model.ValidationError
	require.ErrorAs(t, err, &vErr)
	draft, ok := ctrl.Draft()
	require.True(t, ok)
	assert.Equal(t, "Mail", draft.Fields.Title)
	assert.Empty(t, ctrl.View().Records)
}

func TestVaultView_Summary(t *testing.T) {
	assert.Equal(t, "0 passwords stored", application.VaultView{}.Summary())
	one := application.VaultView{Records: []application.RecordView{{}}}
	assert.Equal(t, "1 password stored", one.Summary())
}
