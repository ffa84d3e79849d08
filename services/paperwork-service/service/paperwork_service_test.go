package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RigelNana/arkpaper/services/paperwork-service/apperr"
	"github.com/RigelNana/arkpaper/services/paperwork-service/archive"
	"github.com/RigelNana/arkpaper/services/paperwork-service/events"
	"github.com/RigelNana/arkpaper/services/paperwork-service/models"
	"github.com/RigelNana/arkpaper/services/paperwork-service/repository"
	"github.com/RigelNana/arkpaper/services/paperwork-service/storage"
)

var pdfBytes = []byte("%PDF-1.7\n1 0 obj << /Type /Catalog >> endobj\n%%EOF\n")

type fixture struct {
	ledger *repository.MemoryLedger
	store  *storage.MemoryStore
	pub    *events.RecordingPublisher
	svc    *PaperworkServiceImpl
	access *ArtifactAccess
	now    time.Time

	admin      models.Principal
	reviewer   models.Principal
	researcher models.Principal
	stranger   models.Principal
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newFixture(t *testing.T, opts ...func(*fixture)) *fixture {
	t.Helper()
	f := &fixture{
		ledger:     repository.NewMemoryLedger(),
		store:      storage.NewMemoryStore(),
		pub:        events.NewRecordingPublisher(),
		now:        time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		admin:      models.Principal{UserID: uuid.New(), Role: models.UserRoleAdmin},
		reviewer:   models.Principal{UserID: uuid.New(), Role: models.UserRoleReviewer},
		researcher: models.Principal{UserID: uuid.New(), Role: models.UserRoleResearcher},
		stranger:   models.Principal{UserID: uuid.New(), Role: models.UserRoleResearcher},
	}
	for _, opt := range opts {
		opt(f)
	}
	f.build(f.store)
	return f
}

func (f *fixture) build(store storage.Store) {
	inspector := archive.NewInspector(0)
	logger := quietLogger()
	f.svc = NewPaperworkService(f.ledger, store, inspector, f.pub, logger, WithClock(func() time.Time { return f.now }))
	f.access = NewArtifactAccess(f.ledger, store, inspector, logger)
}

func (f *fixture) assign(t *testing.T) uuid.UUID {
	t.Helper()
	view, err := f.svc.AssignPaperwork(context.Background(), f.admin, AssignInput{
		Title:        "Learned Index Structures",
		ResearcherID: f.researcher.UserID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, view.Status)
	return view.ID
}

func pdfOnly() SubmitInput {
	return SubmitInput{Artifacts: []ArtifactUpload{
		{Role: models.RolePrimaryDocument, Filename: "paper.pdf", ContentType: "application/pdf", Data: pdfBytes},
	}}
}

func (f *fixture) submit(t *testing.T, id uuid.UUID) *models.Version {
	t.Helper()
	v, err := f.svc.SubmitVersion(context.Background(), f.researcher, id, pdfOnly())
	require.NoError(t, err)
	return v
}

func (f *fixture) review(t *testing.T, id uuid.UUID, d models.Decision) *models.Review {
	t.Helper()
	r, err := f.svc.RecordReview(context.Background(), f.reviewer, id, ReviewInput{Decision: d})
	require.NoError(t, err)
	return r
}

func (f *fixture) status(t *testing.T, id uuid.UUID) models.Status {
	t.Helper()
	st, err := f.svc.Status(context.Background(), f.admin, id)
	require.NoError(t, err)
	return st
}

func zipBytes(t *testing.T, files map[string][]byte, order ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(files[name])
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestScenarioA_FirstSubmission(t *testing.T) {
	f := newFixture(t)
	id := f.assign(t)

	v := f.submit(t, id)
	assert.Equal(t, 1, v.Number)
	assert.Equal(t, models.StatusSubmitted, f.status(t, id))

	versions, err := f.svc.ListVersions(context.Background(), f.researcher, id)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, 1, versions[0].Number)
	require.Len(t, versions[0].Artifacts, 1)
	art := versions[0].Artifacts[0]
	assert.Equal(t, models.MediaPDF, art.MediaKind)
	assert.Equal(t, storage.ArtifactKey(id, 1, models.RolePrimaryDocument), art.StorageKey)
	assert.Len(t, art.Checksum, 64)
	assert.Equal(t, "application/pdf", art.Metadata["content_type"])

	evs := f.pub.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, events.TypeVersionSubmitted, evs[0].Type)
	assert.Equal(t, 1, evs[0].VersionNo)
}

func TestScenarioB_ChangesRequested(t *testing.T) {
	f := newFixture(t)
	id := f.assign(t)
	f.submit(t, id)

	r, err := f.svc.RecordReview(context.Background(), f.admin, id, ReviewInput{
		Decision: models.DecisionChangesRequested,
		Feedback: "add related work",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, r.VersionNumber)
	assert.Equal(t, models.StatusChangesRequested, f.status(t, id))

	reviews, err := f.svc.ListReviews(context.Background(), f.researcher, id)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, models.DecisionChangesRequested, reviews[0].Decision)
	assert.Equal(t, "add related work", reviews[0].Feedback)

	evs := f.pub.Events()
	require.Len(t, evs, 2)
	assert.Equal(t, events.TypeReviewRecorded, evs[1].Type)
	assert.Equal(t, models.DecisionChangesRequested, evs[1].Decision)
}

func TestScenarioC_NewVersionRevertsToSubmitted(t *testing.T) {
	for _, d := range []models.Decision{models.DecisionChangesRequested, models.DecisionApproved} {
		t.Run(string(d), func(t *testing.T) {
			f := newFixture(t)
			id := f.assign(t)
			f.submit(t, id)
			f.review(t, id, d)

			v2 := f.submit(t, id)
			assert.Equal(t, 2, v2.Number)
			assert.Equal(t, models.StatusSubmitted, f.status(t, id))
		})
	}
}

func TestScenarioD_BrowseCodeBundle(t *testing.T) {
	f := newFixture(t)
	id := f.assign(t)
	bundle := zipBytes(t, map[string][]byte{
		"main.py":  []byte("print('hello')\n"),
		"data.bin": {0x01, 0x00, 0x02},
	}, "main.py", "data.bin")

	_, err := f.svc.SubmitVersion(context.Background(), f.researcher, id, SubmitInput{Artifacts: []ArtifactUpload{
		{Role: models.RolePrimaryDocument, Filename: "paper.pdf", Data: pdfBytes},
		{Role: models.RoleCodeBundle, Filename: "code.zip", Data: bundle},
	}})
	require.NoError(t, err)

	ctx := context.Background()
	entries, err := f.access.ListArchiveEntries(ctx, f.reviewer, id, 1, models.RoleCodeBundle, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"main.py", "data.bin"}, []string{entries[0].Path, entries[1].Path})

	bin, err := f.access.ExtractArchiveEntry(ctx, f.reviewer, id, 1, models.RoleCodeBundle, "data.bin")
	require.NoError(t, err)
	assert.True(t, bin.IsBinary)

	txt, err := f.access.ExtractArchiveEntry(ctx, f.researcher, id, 1, models.RoleCodeBundle, "main.py")
	require.NoError(t, err)
	assert.False(t, txt.IsBinary)
	assert.Equal(t, "print('hello')\n", txt.Content)

	again, err := f.access.ExtractArchiveEntry(ctx, f.researcher, id, 1, models.RoleCodeBundle, "main.py")
	require.NoError(t, err)
	assert.Equal(t, txt, again)

	py, err := f.access.ListArchiveEntries(ctx, f.reviewer, id, 1, models.RoleCodeBundle, "*.py")
	require.NoError(t, err)
	require.Len(t, py, 1)
	assert.Equal(t, "main.py", py[0].Path)
}

func TestScenarioE_StrangerCannotSubmit(t *testing.T) {
	f := newFixture(t)
	id := f.assign(t)
	f.submit(t, id)

	_, err := f.svc.SubmitVersion(context.Background(), f.stranger, id, pdfOnly())
	assert.ErrorIs(t, err, apperr.ErrNotAuthorized)

	versions, err := f.svc.ListVersions(context.Background(), f.admin, id)
	require.NoError(t, err)
	assert.Len(t, versions, 1)

	_, err = f.svc.SubmitVersion(context.Background(), f.reviewer, id, pdfOnly())
	assert.ErrorIs(t, err, apperr.ErrNotAuthorized)
}

func TestAdminMaySubmitOnBehalf(t *testing.T) {
	f := newFixture(t)
	id := f.assign(t)

	v, err := f.svc.SubmitVersion(context.Background(), f.admin, id, pdfOnly())
	require.NoError(t, err)
	assert.Equal(t, f.admin.UserID, v.SubmittedBy)
}

func TestSubmitUnknownPaperwork(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SubmitVersion(context.Background(), f.researcher, uuid.New(), pdfOnly())
	assert.ErrorIs(t, err, apperr.ErrNotAuthorized)

	_, err = f.svc.SubmitVersion(context.Background(), f.admin, uuid.New(), pdfOnly())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestConcurrentSubmissionsGetGaplessNumbers(t *testing.T) {
	f := newFixture(t)
	id := f.assign(t)

	const n = 16
	var wg sync.WaitGroup
	numbers := make(chan int, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := f.svc.SubmitVersion(context.Background(), f.researcher, id, pdfOnly())
			if assert.NoError(t, err) {
				numbers <- v.Number
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := map[int]bool{}
	for no := range numbers {
		assert.False(t, seen[no], "duplicate version %d", no)
		seen[no] = true
	}
	for i := 1; i <= n; i++ {
		assert.True(t, seen[i], "missing version %d", i)
	}
	assert.Len(t, f.store.Keys(), n)
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name string
		in   SubmitInput
		want error
	}{
		{"no artifacts", SubmitInput{}, apperr.ErrNoArtifacts},
		{"no primary document", SubmitInput{Artifacts: []ArtifactUpload{
			{Role: models.RoleSource, Filename: "paper.tex", Data: []byte("\\documentclass{article}")},
		}}, apperr.ErrMissingPrimaryArtifact},
		{"wrong kind for role", SubmitInput{Artifacts: []ArtifactUpload{
			{Role: models.RolePrimaryDocument, Filename: "paper.tex", Data: []byte("x")},
		}}, apperr.ErrInvalidArtifact},
		{"unknown role", SubmitInput{Artifacts: []ArtifactUpload{
			{Role: "slides", Filename: "deck.pdf", Data: pdfBytes},
		}}, apperr.ErrInvalidArtifact},
		{"unknown extension", SubmitInput{Artifacts: []ArtifactUpload{
			{Role: models.RolePrimaryDocument, Filename: "paper.odt", Data: []byte("x")},
		}}, apperr.ErrInvalidArtifact},
		{"duplicate role", SubmitInput{Artifacts: []ArtifactUpload{
			{Role: models.RolePrimaryDocument, Filename: "a.pdf", Data: pdfBytes},
			{Role: "Primary-Document", Filename: "b.pdf", Data: pdfBytes},
		}}, apperr.ErrInvalidArtifact},
		{"empty file", SubmitInput{Artifacts: []ArtifactUpload{
			{Role: models.RolePrimaryDocument, Filename: "a.pdf"},
		}}, apperr.ErrInvalidArtifact},
		{"corrupt zip", SubmitInput{Artifacts: []ArtifactUpload{
			{Role: models.RolePrimaryDocument, Filename: "a.pdf", Data: pdfBytes},
			{Role: models.RoleCodeBundle, Filename: "code.zip", Data: []byte("not a zip")},
		}}, apperr.ErrCorruptArchive},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			id := f.assign(t)

			_, err := f.svc.SubmitVersion(context.Background(), f.researcher, id, tc.in)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, models.StatusAssigned, f.status(t, id))
			assert.Empty(t, f.store.Keys())
			assert.Empty(t, f.pub.Events())
		})
	}
}

func TestSubmitNormalizesRoleAndKind(t *testing.T) {
	f := newFixture(t)
	id := f.assign(t)

	v, err := f.svc.SubmitVersion(context.Background(), f.researcher, id, SubmitInput{Artifacts: []ArtifactUpload{
		{Role: "PRIMARY-DOCUMENT", Filename: "Paper.PDF", Data: pdfBytes},
		{Role: "source", MediaKind: "LaTeX", Filename: "main", Data: []byte("\\begin{document}")},
	}})
	require.NoError(t, err)
	src, ok := v.Artifact(models.RoleSource)
	require.True(t, ok)
	assert.Equal(t, models.MediaTeX, src.MediaKind)
	_, ok = v.Artifact(models.RolePrimaryDocument)
	assert.True(t, ok)
}

type failingStore struct {
	storage.Store
	failRole models.ArtifactRole
}

func (s *failingStore) Put(ctx context.Context, key string, data []byte) error {
	if strings.HasSuffix(key, "/"+string(s.failRole)) {
		return apperr.New(apperr.KindStorageFailure, "write %s: disk full", key)
	}
	return s.Store.Put(ctx, key, data)
}

func TestSubmitRollsBackArtifactsOnStorageFailure(t *testing.T) {
	f := newFixture(t)
	f.build(&failingStore{Store: f.store, failRole: models.RoleSource})
	id := f.assign(t)

	_, err := f.svc.SubmitVersion(context.Background(), f.researcher, id, SubmitInput{Artifacts: []ArtifactUpload{
		{Role: models.RolePrimaryDocument, Filename: "paper.pdf", Data: pdfBytes},
		{Role: models.RoleSource, Filename: "paper.tex", Data: []byte("\\documentclass{article}")},
		{Role: models.RoleAuxiliaryDocument, Filename: "appendix.pdf", Data: pdfBytes},
	}})
	assert.ErrorIs(t, err, apperr.ErrStorageFailure)

	assert.Empty(t, f.store.Keys())
	versions, err := f.svc.ListVersions(context.Background(), f.admin, id)
	require.NoError(t, err)
	assert.Empty(t, versions)
	assert.Empty(t, f.pub.Events())

	// the number is not burned
	f.build(f.store)
	assert.Equal(t, 1, f.submit(t, id).Number)
}

// failingAppendLedger lets every artifact land and then fails the version
// append, as a lost database connection would at commit time.
type failingAppendLedger struct {
	repository.Ledger
}

func (l *failingAppendLedger) Serialize(ctx context.Context, id uuid.UUID, fn func(repository.LedgerTx) error) error {
	return l.Ledger.Serialize(ctx, id, func(tx repository.LedgerTx) error {
		return fn(&failingAppendTx{LedgerTx: tx})
	})
}

type failingAppendTx struct {
	repository.LedgerTx
}

func (tx *failingAppendTx) AppendVersion(*models.Version) error {
	return errors.New("commit: connection reset by peer")
}

func TestSubmitRollsBackArtifactsOnLedgerFailure(t *testing.T) {
	f := newFixture(t)
	id := f.assign(t)
	svc := NewPaperworkService(&failingAppendLedger{Ledger: f.ledger}, f.store, archive.NewInspector(0), f.pub, quietLogger(),
		WithClock(func() time.Time { return f.now }))

	bundle := zipBytes(t, map[string][]byte{"main.py": []byte("pass\n")}, "main.py")
	_, err := svc.SubmitVersion(context.Background(), f.researcher, id, SubmitInput{Artifacts: []ArtifactUpload{
		{Role: models.RolePrimaryDocument, Filename: "paper.pdf", Data: pdfBytes},
		{Role: models.RoleCodeBundle, Filename: "code.zip", Data: bundle},
	}})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

	assert.Empty(t, f.store.Keys())
	versions, err := f.svc.ListVersions(context.Background(), f.admin, id)
	require.NoError(t, err)
	assert.Empty(t, versions)
	assert.Equal(t, models.StatusAssigned, f.status(t, id))
	assert.Empty(t, f.pub.Events())

	assert.Equal(t, 1, f.submit(t, id).Number)
}

func TestPublishFailureDoesNotFailSubmission(t *testing.T) {
	f := newFixture(t)
	f.pub.Err = errors.New("broker unavailable")
	id := f.assign(t)

	v := f.submit(t, id)
	assert.Equal(t, 1, v.Number)
	assert.Equal(t, models.StatusSubmitted, f.status(t, id))
}

func TestResubmissionWhileSubmittedSupersedes(t *testing.T) {
	f := newFixture(t)
	id := f.assign(t)
	f.submit(t, id)
	f.submit(t, id)

	r := f.review(t, id, models.DecisionApproved)
	assert.Equal(t, 2, r.VersionNumber)
	assert.Equal(t, models.StatusApproved, f.status(t, id))
}

func TestStaleReviewRejected(t *testing.T) {
	f := newFixture(t)
	id := f.assign(t)
	f.submit(t, id)
	f.submit(t, id)
	ctx := context.Background()

	_, err := f.svc.RecordReview(ctx, f.reviewer, id, ReviewInput{Decision: models.DecisionApproved, VersionNumber: 1})
	assert.ErrorIs(t, err, apperr.ErrStaleVersion)

	_, err = f.svc.RecordReview(ctx, f.reviewer, id, ReviewInput{Decision: models.DecisionApproved, VersionNumber: 3})
	assert.ErrorIs(t, err, apperr.ErrVersionNotFound)

	r, err := f.svc.RecordReview(ctx, f.reviewer, id, ReviewInput{Decision: models.DecisionApproved, VersionNumber: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, r.VersionNumber)

	reviews, err := f.svc.ListReviews(ctx, f.admin, id)
	require.NoError(t, err)
	versions, err := f.svc.ListVersions(ctx, f.admin, id)
	require.NoError(t, err)
	latest := models.LatestVersion(versions)
	for _, rv := range reviews {
		assert.Equal(t, latest.Number, rv.VersionNumber)
	}
}

func TestNothingToReview(t *testing.T) {
	ctx := context.Background()

	t.Run("no versions", func(t *testing.T) {
		f := newFixture(t)
		id := f.assign(t)
		_, err := f.svc.RecordReview(ctx, f.reviewer, id, ReviewInput{Decision: models.DecisionApproved})
		assert.ErrorIs(t, err, apperr.ErrNothingToReview)
	})

	for _, d := range []models.Decision{models.DecisionApproved, models.DecisionChangesRequested} {
		t.Run("already "+string(d), func(t *testing.T) {
			f := newFixture(t)
			id := f.assign(t)
			f.submit(t, id)
			f.review(t, id, d)

			_, err := f.svc.RecordReview(ctx, f.reviewer, id, ReviewInput{Decision: models.DecisionApproved})
			assert.ErrorIs(t, err, apperr.ErrNothingToReview)
		})
	}
}

func TestReviewAuthorizationAndInput(t *testing.T) {
	f := newFixture(t)
	id := f.assign(t)
	f.submit(t, id)
	ctx := context.Background()

	_, err := f.svc.RecordReview(ctx, f.researcher, id, ReviewInput{Decision: models.DecisionApproved})
	assert.ErrorIs(t, err, apperr.ErrNotAuthorized)

	_, err = f.svc.RecordReview(ctx, f.reviewer, id, ReviewInput{Decision: "maybe"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	r, err := f.svc.RecordReview(ctx, f.reviewer, id, ReviewInput{Decision: "changes-requested"})
	require.NoError(t, err)
	assert.Equal(t, models.DecisionChangesRequested, r.Decision)
}

func TestDerivedStatusMatchesReplay(t *testing.T) {
	type step func(f *fixture, t *testing.T, id uuid.UUID)
	submit := func(f *fixture, t *testing.T, id uuid.UUID) { f.submit(t, id) }
	approve := func(f *fixture, t *testing.T, id uuid.UUID) { f.review(t, id, models.DecisionApproved) }
	changes := func(f *fixture, t *testing.T, id uuid.UUID) { f.review(t, id, models.DecisionChangesRequested) }

	scripts := map[string][]step{
		"empty":                  {},
		"submitted":              {submit},
		"approved":               {submit, approve},
		"changes then approved":  {submit, changes, submit, approve},
		"approved then reopened": {submit, approve, submit},
		"double submit":          {submit, submit, changes},
	}
	for name, script := range scripts {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			id := f.assign(t)
			for _, s := range script {
				s(f, t, id)
				timeline, err := f.svc.History(context.Background(), f.admin, id)
				require.NoError(t, err)
				assert.Equal(t, f.status(t, id), timeline.Status)
			}
			timeline, err := f.svc.History(context.Background(), f.admin, id)
			require.NoError(t, err)
			assert.Len(t, timeline.Entries, len(script))
		})
	}
}

func TestReadAuthorization(t *testing.T) {
	f := newFixture(t)
	id := f.assign(t)
	ctx := context.Background()

	_, err := f.svc.GetPaperwork(ctx, f.stranger, id)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.svc.ListVersions(ctx, f.stranger, id)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.GetPaperwork(ctx, f.stranger, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.svc.GetPaperwork(ctx, f.reviewer, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	view, err := f.svc.GetPaperwork(ctx, f.researcher, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, view.Status)
	assert.Zero(t, view.LatestVersionNo)

	_, err = f.svc.GetVersion(ctx, f.researcher, id, 1)
	assert.ErrorIs(t, err, apperr.ErrVersionNotFound)
}

func TestAssignAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AssignPaperwork(ctx, f.reviewer, AssignInput{Title: "x", ResearcherID: f.researcher.UserID})
	assert.ErrorIs(t, err, apperr.ErrNotAuthorized)
	_, err = f.svc.AssignPaperwork(ctx, f.admin, AssignInput{Title: "  ", ResearcherID: f.researcher.UserID})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = f.svc.AssignPaperwork(ctx, f.admin, AssignInput{Title: "x"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	f.assign(t)
	_, err = f.svc.AssignPaperwork(ctx, f.admin, AssignInput{Title: "Other", ResearcherID: f.stranger.UserID})
	require.NoError(t, err)

	mine, err := f.svc.ListPaperworks(ctx, f.researcher)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	all, err := f.svc.ListPaperworks(ctx, f.reviewer)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDeadlines(t *testing.T) {
	f := newFixture(t)
	id := f.assign(t)
	ctx := context.Background()

	future := f.now.Add(72 * time.Hour)
	_, err := f.svc.SetDeadline(ctx, f.reviewer, id, &future)
	assert.ErrorIs(t, err, apperr.ErrNotAuthorized)

	res, err := f.svc.SetDeadline(ctx, f.admin, id, &future)
	require.NoError(t, err)
	assert.False(t, res.PastDeadline)
	assert.False(t, res.Overdue)

	past := f.now.Add(-time.Hour)
	res, err = f.svc.SetDeadline(ctx, f.admin, id, &past)
	require.NoError(t, err)
	assert.True(t, res.PastDeadline)
	assert.True(t, res.Overdue)

	f.submit(t, id)
	f.review(t, id, models.DecisionApproved)
	view, err := f.svc.GetPaperwork(ctx, f.researcher, id)
	require.NoError(t, err)
	assert.False(t, view.Overdue, "approved paperwork is never overdue")

	res, err = f.svc.SetDeadline(ctx, f.admin, id, nil)
	require.NoError(t, err)
	assert.Nil(t, res.Deadline)

	_, err = f.svc.SetDeadline(ctx, f.admin, uuid.New(), &future)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
