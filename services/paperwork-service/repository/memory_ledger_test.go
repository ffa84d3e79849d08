package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RigelNana/arkpaper/services/paperwork-service/apperr"
	"github.com/RigelNana/arkpaper/services/paperwork-service/models"
)

func newPaperwork(t *testing.T, l *MemoryLedger, researcher uuid.UUID) *models.Paperwork {
	t.Helper()
	pw := &models.Paperwork{Title: "On Ledgers", ResearcherID: researcher, AssignedBy: uuid.New()}
	require.NoError(t, l.CreatePaperwork(context.Background(), pw))
	return pw
}

func appendNext(tx LedgerTx) (*models.Version, error) {
	latest, err := tx.LatestVersion()
	if err != nil {
		return nil, err
	}
	next := 1
	if latest != nil {
		next = latest.Number + 1
	}
	v := &models.Version{
		Number:    next,
		Artifacts: []models.Artifact{{Role: models.RolePrimaryDocument, MediaKind: models.MediaPDF}},
	}
	return v, tx.AppendVersion(v)
}

func TestMemoryLedgerUnknownPaperwork(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	id := uuid.New()

	_, err := l.GetPaperwork(ctx, id)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	err = l.Serialize(ctx, id, func(LedgerTx) error { return nil })
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = l.GetVersion(ctx, id, 1)
	assert.ErrorIs(t, err, apperr.ErrVersionNotFound)

	versions, err := l.ListVersions(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestMemoryLedgerAppendsAreVisibleAfterCommit(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	pw := newPaperwork(t, l, uuid.New())

	err := l.Serialize(ctx, pw.ID, func(tx LedgerTx) error {
		v, err := appendNext(tx)
		require.NoError(t, err)
		assert.Equal(t, 1, v.Number)
		assert.NotEqual(t, uuid.Nil, v.Artifacts[0].VersionID)

		inside, err := l.ListVersions(ctx, pw.ID)
		require.NoError(t, err)
		assert.Empty(t, inside, "uncommitted version leaked")
		return nil
	})
	require.NoError(t, err)

	v, err := l.GetVersion(ctx, pw.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, pw.ID, v.PaperworkID)
	require.Len(t, v.Artifacts, 1)
}

func TestMemoryLedgerRollsBackOnError(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	pw := newPaperwork(t, l, uuid.New())
	boom := errors.New("boom")

	err := l.Serialize(ctx, pw.ID, func(tx LedgerTx) error {
		_, err := appendNext(tx)
		require.NoError(t, err)
		require.NoError(t, tx.AppendReview(&models.Review{Decision: models.DecisionApproved}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	versions, _ := l.ListVersions(ctx, pw.ID)
	reviews, _ := l.ListReviews(ctx, pw.ID)
	assert.Empty(t, versions)
	assert.Empty(t, reviews)
}

func TestMemoryLedgerRejectsGaps(t *testing.T) {
	l := NewMemoryLedger()
	pw := newPaperwork(t, l, uuid.New())

	err := l.Serialize(context.Background(), pw.ID, func(tx LedgerTx) error {
		return tx.AppendVersion(&models.Version{Number: 2})
	})
	assert.Error(t, err)
}

func TestMemoryLedgerConcurrentAppendsAreGapless(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	pw := newPaperwork(t, l, uuid.New())

	const writers = 32
	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Serialize(ctx, pw.ID, func(tx LedgerTx) error {
				_, err := appendNext(tx)
				return err
			}))
		}()
	}
	wg.Wait()

	versions, err := l.ListVersions(ctx, pw.ID)
	require.NoError(t, err)
	require.Len(t, versions, writers)
	for i, v := range versions {
		assert.Equal(t, i+1, v.Number)
	}
}

func TestMemoryLedgerReviewSequence(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	pw := newPaperwork(t, l, uuid.New())

	for _, d := range []models.Decision{models.DecisionChangesRequested, models.DecisionApproved} {
		require.NoError(t, l.Serialize(ctx, pw.ID, func(tx LedgerTx) error {
			return tx.AppendReview(&models.Review{Decision: d, VersionNumber: 1})
		}))
	}

	reviews, err := l.ListReviews(ctx, pw.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, 1, reviews[0].Sequence)
	assert.Equal(t, 2, reviews[1].Sequence)
	assert.Equal(t, models.DecisionApproved, models.LatestReview(reviews).Decision)
}

func TestMemoryLedgerDeadline(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	pw := newPaperwork(t, l, uuid.New())
	deadline := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, l.Serialize(ctx, pw.ID, func(tx LedgerTx) error {
		return tx.SetDeadline(&deadline, time.Now())
	}))
	got, err := l.GetPaperwork(ctx, pw.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Deadline)
	assert.True(t, deadline.Equal(*got.Deadline))

	require.NoError(t, l.Serialize(ctx, pw.ID, func(tx LedgerTx) error {
		return tx.SetDeadline(nil, time.Now())
	}))
	got, err = l.GetPaperwork(ctx, pw.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Deadline)
}

func TestMemoryLedgerListPaperworksByResearcher(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()
	newPaperwork(t, l, alice)
	newPaperwork(t, l, bob)
	newPaperwork(t, l, alice)

	all, err := l.ListPaperworks(ctx, uuid.Nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := l.ListPaperworks(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	for _, pw := range mine {
		assert.Equal(t, alice, pw.ResearcherID)
	}
}

func TestMemoryLedgerReadsDoNotBlockOnWriter(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	pw := newPaperwork(t, l, uuid.New())

	inside := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- l.Serialize(ctx, pw.ID, func(tx LedgerTx) error {
			close(inside)
			<-release
			return nil
		})
	}()
	<-inside

	_, err := l.ListVersions(ctx, pw.ID)
	assert.NoError(t, err)
	_, err = l.GetPaperwork(ctx, pw.ID)
	assert.NoError(t, err)

	close(release)
	require.NoError(t, <-done)
}
