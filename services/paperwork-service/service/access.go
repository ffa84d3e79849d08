package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/RigelNana/arkpaper/services/paperwork-service/apperr"
	"github.com/RigelNana/arkpaper/services/paperwork-service/archive"
	"github.com/RigelNana/arkpaper/services/paperwork-service/models"
	"github.com/RigelNana/arkpaper/services/paperwork-service/repository"
	"github.com/RigelNana/arkpaper/services/paperwork-service/storage"
)

// authorizeRead lets the assigned researcher, reviewers and admins read a
// paperwork. Callers without reviewer privilege cannot tell an unknown
// paperwork from one they may not see.
func authorizeRead(ctx context.Context, ledger repository.Ledger, p models.Principal, id uuid.UUID) (*models.Paperwork, error) {
	pw, err := ledger.GetPaperwork(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) && !p.CanReview() {
		return nil, apperr.New(apperr.KindForbidden, "access to paperwork %s denied", id)
	}
	if err != nil {
		return nil, err
	}
	if !p.CanAccess(pw) {
		return nil, apperr.New(apperr.KindForbidden, "access to paperwork %s denied", id)
	}
	return pw, nil
}

// ArtifactStream is an open artifact ready to be served. The caller must
// close Object.
type ArtifactStream struct {
	Artifact    models.Artifact
	Object      storage.Object
	Filename    string
	ContentType string
	ModTime     time.Time
}

// ArtifactAccess serves stored artifacts and browses code bundles. It never
// writes.
type ArtifactAccess struct {
	ledger    repository.Ledger
	store     storage.Store
	inspector *archive.Inspector
	logger    *logrus.Logger
}

func NewArtifactAccess(ledger repository.Ledger, store storage.Store, inspector *archive.Inspector, logger *logrus.Logger) *ArtifactAccess {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ArtifactAccess{ledger: ledger, store: store, inspector: inspector, logger: logger}
}

func (a *ArtifactAccess) resolve(ctx context.Context, p models.Principal, id uuid.UUID, number int, role models.ArtifactRole) (*models.Paperwork, *models.Version, *models.Artifact, error) {
	pw, err := authorizeRead(ctx, a.ledger, p, id)
	if err != nil {
		return nil, nil, nil, err
	}
	if number < 1 {
		return nil, nil, nil, apperr.New(apperr.KindVersionNotFound, "version %d not found", number)
	}
	v, err := a.ledger.GetVersion(ctx, id, number)
	if err != nil {
		return nil, nil, nil, err
	}
	// role arrives unvalidated from the request path
	parsed, err := models.ParseRole(string(role))
	if err != nil {
		return nil, nil, nil, apperr.New(apperr.KindNotFound, "version %d has no %q artifact", number, string(role))
	}
	role = parsed
	art, ok := v.Artifact(role)
	if !ok {
		return nil, nil, nil, apperr.New(apperr.KindNotFound, "version %d has no %s artifact", number, role)
	}
	// the key alone carries the authorization scope
	key, err := storage.ParseKey(art.StorageKey)
	if err != nil || key.PaperworkID != id || key.Version != number || key.Role != role {
		a.logger.WithFields(logrus.Fields{
			"paperwork_id": id,
			"version_no":   number,
			"role":         role,
			"storage_key":  art.StorageKey,
		}).Error("artifact storage key outside its paperwork scope")
		return nil, nil, nil, apperr.New(apperr.KindForbidden, "artifact is outside the requested paperwork")
	}
	return pw, v, art, nil
}

// OpenArtifact opens one artifact for whole-file or ranged reads.
func (a *ArtifactAccess) OpenArtifact(ctx context.Context, p models.Principal, id uuid.UUID, number int, role models.ArtifactRole) (*ArtifactStream, error) {
	pw, v, art, err := a.resolve(ctx, p, id, number, role)
	if err != nil {
		return nil, err
	}
	obj, err := a.store.Open(ctx, art.StorageKey)
	if err != nil {
		return nil, err
	}
	return &ArtifactStream{
		Artifact:    *art,
		Object:      obj,
		Filename:    DownloadName(pw.Title, number, art.MediaKind),
		ContentType: art.MediaKind.ContentType(),
		ModTime:     v.SubmittedAt,
	}, nil
}

func (a *ArtifactAccess) openArchive(ctx context.Context, p models.Principal, id uuid.UUID, number int, role models.ArtifactRole) (storage.Object, error) {
	_, _, art, err := a.resolve(ctx, p, id, number, role)
	if err != nil {
		return nil, err
	}
	if !art.MediaKind.IsArchive() {
		return nil, apperr.New(apperr.KindUnsupportedMediaKind, "%s artifact is %s, not an archive", role, art.MediaKind)
	}
	return a.store.Open(ctx, art.StorageKey)
}

// ListArchiveEntries lists the files of a zip artifact, optionally filtered
// by a glob pattern.
func (a *ArtifactAccess) ListArchiveEntries(ctx context.Context, p models.Principal, id uuid.UUID, number int, role models.ArtifactRole, pattern string) ([]archive.Entry, error) {
	obj, err := a.openArchive(ctx, p, id, number, role)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	entries, err := a.inspector.ListEntries(obj, obj.Size())
	if err != nil {
		return nil, err
	}
	entries, err = archive.Filter(entries, pattern)
	if err != nil {
		return nil, err
	}
	out := []archive.Entry{}
	for e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// ExtractArchiveEntry returns one file of a zip artifact.
func (a *ArtifactAccess) ExtractArchiveEntry(ctx context.Context, p models.Principal, id uuid.UUID, number int, role models.ArtifactRole, path string) (*archive.EntryContent, error) {
	obj, err := a.openArchive(ctx, p, id, number, role)
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	if strings.TrimSpace(path) == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "entry path is required")
	}
	return a.inspector.ExtractEntry(obj, obj.Size(), path)
}

var unsafeFilename = regexp.MustCompile(`[^\p{L}\p{N}._-]+`)

// DownloadName renders {title}_v{no}.{ext} with filesystem-hostile
// characters replaced.
func DownloadName(title string, number int, kind models.MediaKind) string {
	base := strings.Trim(unsafeFilename.ReplaceAllString(strings.TrimSpace(title), "_"), "_.")
	if base == "" {
		base = "paperwork"
	}
	return fmt.Sprintf("%s_v%d%s", base, number, kind.Extension())
}
