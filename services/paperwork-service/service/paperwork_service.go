package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/RigelNana/arkpaper/pkg/metrics"
	"github.com/RigelNana/arkpaper/services/paperwork-service/apperr"
	"github.com/RigelNana/arkpaper/services/paperwork-service/archive"
	"github.com/RigelNana/arkpaper/services/paperwork-service/events"
	"github.com/RigelNana/arkpaper/services/paperwork-service/models"
	"github.com/RigelNana/arkpaper/services/paperwork-service/repository"
	"github.com/RigelNana/arkpaper/services/paperwork-service/storage"
)

type PaperworkService interface {
	AssignPaperwork(ctx context.Context, p models.Principal, in AssignInput) (*PaperworkView, error)
	GetPaperwork(ctx context.Context, p models.Principal, id uuid.UUID) (*PaperworkView, error)
	ListPaperworks(ctx context.Context, p models.Principal) ([]*PaperworkView, error)
	Status(ctx context.Context, p models.Principal, id uuid.UUID) (models.Status, error)
	SetDeadline(ctx context.Context, p models.Principal, id uuid.UUID, deadline *time.Time) (*DeadlineResult, error)

	// 版本与评审
	SubmitVersion(ctx context.Context, p models.Principal, id uuid.UUID, in SubmitInput) (*models.Version, error)
	ListVersions(ctx context.Context, p models.Principal, id uuid.UUID) ([]*models.Version, error)
	GetVersion(ctx context.Context, p models.Principal, id uuid.UUID, number int) (*models.Version, error)
	RecordReview(ctx context.Context, p models.Principal, id uuid.UUID, in ReviewInput) (*models.Review, error)
	ListReviews(ctx context.Context, p models.Principal, id uuid.UUID) ([]*models.Review, error)
	History(ctx context.Context, p models.Principal, id uuid.UUID) (*Timeline, error)
}

// LedgerReader is the read-only view handed to reporting consumers.
type LedgerReader interface {
	ListPaperworks(ctx context.Context, p models.Principal) ([]*PaperworkView, error)
	ListVersions(ctx context.Context, p models.Principal, id uuid.UUID) ([]*models.Version, error)
	ListReviews(ctx context.Context, p models.Principal, id uuid.UUID) ([]*models.Review, error)
	History(ctx context.Context, p models.Principal, id uuid.UUID) (*Timeline, error)
}

var (
	_ PaperworkService = (*PaperworkServiceImpl)(nil)
	_ LedgerReader     = (*PaperworkServiceImpl)(nil)
)

type AssignInput struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	ResearcherID uuid.UUID  `json:"researcher_id"`
	Deadline     *time.Time `json:"deadline"`
}

// ArtifactUpload is one file of a submission. MediaKind may be left empty to
// infer it from Filename.
type ArtifactUpload struct {
	Role        models.ArtifactRole
	MediaKind   models.MediaKind
	Filename    string
	ContentType string
	Data        []byte
}

type SubmitInput struct {
	Artifacts []ArtifactUpload
	Comments  string
}

// ReviewInput targets the latest version. VersionNumber, when non-zero,
// must name that version.
type ReviewInput struct {
	Decision      models.Decision `json:"decision"`
	Feedback      string          `json:"feedback"`
	VersionNumber int             `json:"version_no"`
}

type PaperworkView struct {
	*models.Paperwork
	Status          models.Status `json:"status"`
	LatestVersionNo int           `json:"latest_version_no"`
	Overdue         bool          `json:"overdue"`
}

type DeadlineResult struct {
	*PaperworkView
	PastDeadline bool `json:"past_deadline"`
}

// Timeline is the merged version/review history with its replayed status.
type Timeline struct {
	Entries []TimelineEntry `json:"entries"`
	Status  models.Status   `json:"status"`
}

type TimelineEntry struct {
	Kind      string          `json:"kind"`
	VersionNo int             `json:"version_no"`
	Decision  models.Decision `json:"decision,omitempty"`
	Actor     uuid.UUID       `json:"actor"`
	At        time.Time       `json:"at"`
	// Status is the status right after this entry.
	Status models.Status `json:"status"`
}

type Option func(*PaperworkServiceImpl)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *PaperworkServiceImpl) { s.now = now }
}

type PaperworkServiceImpl struct {
	ledger    repository.Ledger
	store     storage.Store
	inspector *archive.Inspector
	publisher events.Publisher
	logger    *logrus.Logger
	now       func() time.Time
}

func NewPaperworkService(ledger repository.Ledger, store storage.Store, inspector *archive.Inspector, publisher events.Publisher, logger *logrus.Logger, opts ...Option) *PaperworkServiceImpl {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if publisher == nil {
		publisher = events.NewLogPublisher(logger)
	}
	s := &PaperworkServiceImpl{
		ledger:    ledger,
		store:     store,
		inspector: inspector,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PaperworkServiceImpl) AssignPaperwork(ctx context.Context, p models.Principal, in AssignInput) (*PaperworkView, error) {
	if !p.IsAdmin() {
		return nil, apperr.New(apperr.KindNotAuthorized, "only admins may assign paperworks")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "title is required")
	}
	if in.ResearcherID == uuid.Nil {
		return nil, apperr.New(apperr.KindInvalidInput, "researcher_id is required")
	}
	now := s.now()
	pw := &models.Paperwork{
		Base:         models.Base{ID: uuid.New(), CreatedAt: now},
		Title:        title,
		Description:  in.Description,
		ResearcherID: in.ResearcherID,
		AssignedBy:   p.UserID,
		Deadline:     in.Deadline,
		UpdatedAt:    now,
	}
	if err := s.ledger.CreatePaperwork(ctx, pw); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"paperwork_id":  pw.ID,
		"researcher_id": pw.ResearcherID,
		"assigned_by":   p.UserID,
	}).Info("paperwork assigned")
	return &PaperworkView{Paperwork: pw, Status: models.StatusAssigned, Overdue: pw.Overdue(models.StatusAssigned, now)}, nil
}

func (s *PaperworkServiceImpl) GetPaperwork(ctx context.Context, p models.Principal, id uuid.UUID) (*PaperworkView, error) {
	pw, err := authorizeRead(ctx, s.ledger, p, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, pw)
}

func (s *PaperworkServiceImpl) ListPaperworks(ctx context.Context, p models.Principal) ([]*PaperworkView, error) {
	filter := p.UserID
	if p.CanReview() {
		filter = uuid.Nil
	}
	pws, err := s.ledger.ListPaperworks(ctx, filter)
	if err != nil {
		return nil, err
	}
	views := make([]*PaperworkView, 0, len(pws))
	for _, pw := range pws {
		v, err := s.view(ctx, pw)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *PaperworkServiceImpl) Status(ctx context.Context, p models.Principal, id uuid.UUID) (models.Status, error) {
	v, err := s.GetPaperwork(ctx, p, id)
	if err != nil {
		return "", err
	}
	return v.Status, nil
}

func (s *PaperworkServiceImpl) view(ctx context.Context, pw *models.Paperwork) (*PaperworkView, error) {
	versions, err := s.ledger.ListVersions(ctx, pw.ID)
	if err != nil {
		return nil, err
	}
	reviews, err := s.ledger.ListReviews(ctx, pw.ID)
	if err != nil {
		return nil, err
	}
	latest := models.LatestVersion(versions)
	status := models.DeriveStatus(latest, models.LatestReview(reviews))
	view := &PaperworkView{
		Paperwork: pw,
		Status:    status,
		Overdue:   pw.Overdue(status, s.now()),
	}
	if latest != nil {
		view.LatestVersionNo = latest.Number
	}
	return view, nil
}

// SetDeadline sets or, with a nil deadline, clears the advisory deadline.
// Past dates are accepted and flagged.
func (s *PaperworkServiceImpl) SetDeadline(ctx context.Context, p models.Principal, id uuid.UUID, deadline *time.Time) (*DeadlineResult, error) {
	if !p.IsAdmin() {
		return nil, apperr.New(apperr.KindNotAuthorized, "only admins may set deadlines")
	}
	now := s.now()
	err := s.ledger.Serialize(ctx, id, func(tx repository.LedgerTx) error {
		return tx.SetDeadline(deadline, now)
	})
	if err != nil {
		return nil, err
	}
	past := deadline != nil && deadline.Before(now)
	if past {
		s.logger.WithFields(logrus.Fields{
			"paperwork_id": id,
			"deadline":     deadline.Format(time.RFC3339),
		}).Warn("deadline set in the past")
	}
	pw, err := s.ledger.GetPaperwork(ctx, id)
	if err != nil {
		return nil, err
	}
	v, err := s.view(ctx, pw)
	if err != nil {
		return nil, err
	}
	return &DeadlineResult{PaperworkView: v, PastDeadline: past}, nil
}

// authorizeSubmit allows the assigned researcher and admins. Unknown
// paperworks are only revealed to admins.
func (s *PaperworkServiceImpl) authorizeSubmit(ctx context.Context, p models.Principal, id uuid.UUID) (*models.Paperwork, error) {
	pw, err := s.ledger.GetPaperwork(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) && !p.IsAdmin() {
		return nil, apperr.New(apperr.KindNotAuthorized, "not assigned to paperwork %s", id)
	}
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && pw.ResearcherID != p.UserID {
		return nil, apperr.New(apperr.KindNotAuthorized, "not assigned to paperwork %s", id)
	}
	return pw, nil
}

type preparedArtifact struct {
	upload   ArtifactUpload
	kind     models.MediaKind
	checksum string
}

func (s *PaperworkServiceImpl) prepare(in SubmitInput) ([]preparedArtifact, error) {
	if len(in.Artifacts) == 0 {
		return nil, apperr.New(apperr.KindNoArtifacts, "a version needs at least one artifact")
	}
	seen := make(map[models.ArtifactRole]bool, len(in.Artifacts))
	prepared := make([]preparedArtifact, 0, len(in.Artifacts))
	for _, up := range in.Artifacts {
		role, err := models.ParseRole(string(up.Role))
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInvalidArtifact, err, "invalid artifact role %q", up.Role)
		}
		if seen[role] {
			return nil, apperr.New(apperr.KindInvalidArtifact, "duplicate %s artifact", role)
		}
		seen[role] = true

		kind := up.MediaKind
		if kind == "" {
			kind, err = models.MediaKindFromFilename(up.Filename)
		} else {
			kind, err = models.ParseMediaKind(string(kind))
		}
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInvalidArtifact, err, "%s: unsupported file %q", role, up.Filename)
		}
		if !role.Accepts(kind) {
			return nil, apperr.New(apperr.KindInvalidArtifact, "%s cannot hold a %s file", role, kind)
		}
		if len(up.Data) == 0 {
			return nil, apperr.New(apperr.KindInvalidArtifact, "%s file %q is empty", role, up.Filename)
		}
		if kind.IsArchive() {
			if err := s.inspector.Validate(bytes.NewReader(up.Data), int64(len(up.Data))); err != nil {
				return nil, err
			}
		}
		up.Role = role
		sum := sha256.Sum256(up.Data)
		prepared = append(prepared, preparedArtifact{upload: up, kind: kind, checksum: hex.EncodeToString(sum[:])})
	}
	if !seen[models.RolePrimaryDocument] {
		return nil, apperr.New(apperr.KindMissingPrimaryArtifact, "a version needs a primary_document")
	}
	slices.SortFunc(prepared, func(a, b preparedArtifact) int {
		return slices.Index(models.ArtifactRoles, a.upload.Role) - slices.Index(models.ArtifactRoles, b.upload.Role)
	})
	return prepared, nil
}

// SubmitVersion appends the next version. Artifacts are written before the
// version record; if anything fails the written bytes are removed and no
// version becomes visible.
func (s *PaperworkServiceImpl) SubmitVersion(ctx context.Context, p models.Principal, id uuid.UUID, in SubmitInput) (*models.Version, error) {
	version, err := s.submitVersion(ctx, p, id, in)
	if err != nil {
		outcome := string(apperr.KindOf(err))
		metrics.VersionsSubmitted.WithLabelValues(outcome).Inc()
		return nil, err
	}
	metrics.VersionsSubmitted.WithLabelValues("success").Inc()
	s.publish(ctx, events.VersionSubmitted(id, version.Number, version.SubmittedAt))
	return version, nil
}

func (s *PaperworkServiceImpl) submitVersion(ctx context.Context, p models.Principal, id uuid.UUID, in SubmitInput) (*models.Version, error) {
	if _, err := s.authorizeSubmit(ctx, p, id); err != nil {
		return nil, err
	}
	prepared, err := s.prepare(in)
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		written []string
		version *models.Version
	)
	err = s.ledger.Serialize(ctx, id, func(tx repository.LedgerTx) error {
		latest, err := tx.LatestVersion()
		if err != nil {
			return err
		}
		next := 1
		if latest != nil {
			next = latest.Number + 1
		}
		now := s.now()
		v := &models.Version{
			Base:        models.Base{ID: uuid.New(), CreatedAt: now},
			PaperworkID: id,
			Number:      next,
			SubmittedBy: p.UserID,
			SubmittedAt: now,
			Comments:    in.Comments,
			Artifacts:   make([]models.Artifact, len(prepared)),
		}

		g, gctx := errgroup.WithContext(ctx)
		for i, pa := range prepared {
			key := storage.ArtifactKey(id, next, pa.upload.Role)
			v.Artifacts[i] = models.Artifact{
				Base:             models.Base{ID: uuid.New(), CreatedAt: now},
				VersionID:        v.ID,
				Role:             pa.upload.Role,
				MediaKind:        pa.kind,
				StorageKey:       key,
				SizeBytes:        int64(len(pa.upload.Data)),
				OriginalFilename: pa.upload.Filename,
				Checksum:         pa.checksum,
				Metadata: map[string]any{
					"content_type":  pa.upload.ContentType,
					"detected_type": mimetype.Detect(pa.upload.Data).String(),
				},
			}
			g.Go(func() error {
				err := s.store.Put(gctx, key, pa.upload.Data)
				// a failed write may still have landed; an existing key is never ours
				if !errors.Is(err, apperr.ErrKeyAlreadyExists) {
					mu.Lock()
					written = append(written, key)
					mu.Unlock()
				}
				return err
			})
		}
		if err := g.Wait(); err != nil {
			if errors.Is(err, apperr.ErrKeyAlreadyExists) {
				s.logger.WithError(err).WithFields(logrus.Fields{
					"paperwork_id": id,
					"version_no":   next,
				}).Error("artifact key already exists for an unallocated version")
			}
			return err
		}
		if err := tx.AppendVersion(v); err != nil {
			return err
		}
		version = v
		return nil
	})
	if err != nil {
		s.cleanup(ctx, written)
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"paperwork_id": id,
		"version_no":   version.Number,
		"artifacts":    len(version.Artifacts),
		"submitted_by": p.UserID,
	}).Info("version submitted")
	return version, nil
}

func (s *PaperworkServiceImpl) cleanup(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("failed to remove orphaned artifact")
		}
	}
}

func (s *PaperworkServiceImpl) ListVersions(ctx context.Context, p models.Principal, id uuid.UUID) ([]*models.Version, error) {
	if _, err := authorizeRead(ctx, s.ledger, p, id); err != nil {
		return nil, err
	}
	return s.ledger.ListVersions(ctx, id)
}

func (s *PaperworkServiceImpl) GetVersion(ctx context.Context, p models.Principal, id uuid.UUID, number int) (*models.Version, error) {
	if _, err := authorizeRead(ctx, s.ledger, p, id); err != nil {
		return nil, err
	}
	return s.ledger.GetVersion(ctx, id, number)
}

// RecordReview records a decision against the latest version. It is only
// legal while that version is awaiting review.
func (s *PaperworkServiceImpl) RecordReview(ctx context.Context, p models.Principal, id uuid.UUID, in ReviewInput) (*models.Review, error) {
	if !p.CanReview() {
		return nil, apperr.New(apperr.KindNotAuthorized, "only reviewers may record reviews")
	}
	decision, err := models.ParseDecision(string(in.Decision))
	if err != nil {
		return nil, err
	}
	if in.VersionNumber < 0 {
		return nil, apperr.New(apperr.KindInvalidInput, "invalid version number %d", in.VersionNumber)
	}

	var review *models.Review
	err = s.ledger.Serialize(ctx, id, func(tx repository.LedgerTx) error {
		latest, err := tx.LatestVersion()
		if err != nil {
			return err
		}
		if latest == nil {
			return apperr.New(apperr.KindNothingToReview, "paperwork %s has no versions", id)
		}
		if in.VersionNumber > latest.Number {
			return apperr.New(apperr.KindVersionNotFound, "version %d of paperwork %s not found", in.VersionNumber, id)
		}
		if in.VersionNumber != 0 && in.VersionNumber != latest.Number {
			return apperr.New(apperr.KindStaleVersion, "version %d is superseded by version %d", in.VersionNumber, latest.Number)
		}
		latestReview, err := tx.LatestReview()
		if err != nil {
			return err
		}
		if status := models.DeriveStatus(latest, latestReview); status != models.StatusSubmitted {
			return apperr.New(apperr.KindNothingToReview, "paperwork %s is %s", id, status)
		}
		r := &models.Review{
			Base:          models.Base{ID: uuid.New(), CreatedAt: s.now()},
			PaperworkID:   id,
			VersionID:     latest.ID,
			VersionNumber: latest.Number,
			Decision:      decision,
			Feedback:      in.Feedback,
			ReviewerID:    p.UserID,
		}
		if err := tx.AppendReview(r); err != nil {
			return err
		}
		review = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ReviewsRecorded.WithLabelValues(string(decision)).Inc()
	s.logger.WithFields(logrus.Fields{
		"paperwork_id": id,
		"version_no":   review.VersionNumber,
		"decision":     decision,
		"reviewer_id":  p.UserID,
	}).Info("review recorded")
	s.publish(ctx, events.ReviewRecorded(id, decision, review.CreatedAt))
	return review, nil
}

func (s *PaperworkServiceImpl) ListReviews(ctx context.Context, p models.Principal, id uuid.UUID) ([]*models.Review, error) {
	if _, err := authorizeRead(ctx, s.ledger, p, id); err != nil {
		return nil, err
	}
	return s.ledger.ListReviews(ctx, id)
}

// History replays the full ledger from the empty state.
func (s *PaperworkServiceImpl) History(ctx context.Context, p models.Principal, id uuid.UUID) (*Timeline, error) {
	if _, err := authorizeRead(ctx, s.ledger, p, id); err != nil {
		return nil, err
	}
	versions, err := s.ledger.ListVersions(ctx, id)
	if err != nil {
		return nil, err
	}
	reviews, err := s.ledger.ListReviews(ctx, id)
	if err != nil {
		return nil, err
	}
	evs := models.History(versions, reviews)
	timeline := &Timeline{Entries: make([]TimelineEntry, 0, len(evs)), Status: models.ReplayStatus(evs)}
	for i, ev := range evs {
		entry := TimelineEntry{Status: models.ReplayStatus(evs[:i+1])}
		if ev.Version != nil {
			entry.Kind = "version"
			entry.VersionNo = ev.Version.Number
			entry.Actor = ev.Version.SubmittedBy
			entry.At = ev.Version.SubmittedAt
		} else {
			entry.Kind = "review"
			entry.VersionNo = ev.Review.VersionNumber
			entry.Decision = ev.Review.Decision
			entry.Actor = ev.Review.ReviewerID
			entry.At = ev.Review.CreatedAt
		}
		timeline.Entries = append(timeline.Entries, entry)
	}
	return timeline, nil
}

func (s *PaperworkServiceImpl) publish(ctx context.Context, ev events.Event) {
	if err := s.publisher.Publish(context.WithoutCancel(ctx), ev); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event":        ev.Type,
			"paperwork_id": ev.PaperworkID,
		}).Warn("failed to publish event")
	}
}
