package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RigelNana/arkpaper/services/paperwork-service/apperr"
	"github.com/RigelNana/arkpaper/services/paperwork-service/models"
)

// MemoryLedger keeps the ledgers in process memory. It backs tests and the
// memory storage profile.
type MemoryLedger struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*memoryEntry
}

type memoryEntry struct {
	// held for the whole Serialize scope
	writer sync.Mutex

	// guards the fields below; held only briefly
	mu        sync.RWMutex
	paperwork models.Paperwork
	versions  []*models.Version
	reviews   []*models.Review
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[uuid.UUID]*memoryEntry)}
}

func (l *MemoryLedger) entry(id uuid.UUID) (*memoryEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[id]
	return e, ok
}

func (l *MemoryLedger) CreatePaperwork(_ context.Context, pw *models.Paperwork) error {
	if pw.ID == uuid.Nil {
		pw.ID = uuid.New()
	}
	if pw.CreatedAt.IsZero() {
		pw.CreatedAt = time.Now()
	}
	if pw.UpdatedAt.IsZero() {
		pw.UpdatedAt = pw.CreatedAt
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[pw.ID]; ok {
		return apperr.New(apperr.KindInvalidInput, "paperwork %s already exists", pw.ID)
	}
	l.entries[pw.ID] = &memoryEntry{paperwork: clonePaperwork(*pw)}
	return nil
}

func (l *MemoryLedger) GetPaperwork(_ context.Context, id uuid.UUID) (*models.Paperwork, error) {
	e, ok := l.entry(id)
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "paperwork %s not found", id)
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	pw := clonePaperwork(e.paperwork)
	return &pw, nil
}

func (l *MemoryLedger) ListPaperworks(_ context.Context, researcherID uuid.UUID) ([]*models.Paperwork, error) {
	l.mu.RLock()
	entries := make([]*memoryEntry, 0, len(l.entries))
	for _, e := range l.entries {
		entries = append(entries, e)
	}
	l.mu.RUnlock()

	out := []*models.Paperwork{}
	for _, e := range entries {
		e.mu.RLock()
		pw := clonePaperwork(e.paperwork)
		e.mu.RUnlock()
		if researcherID != uuid.Nil && pw.ResearcherID != researcherID {
			continue
		}
		out = append(out, &pw)
	}
	slices.SortFunc(out, func(a, b *models.Paperwork) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})
	return out, nil
}

func (l *MemoryLedger) ListVersions(_ context.Context, paperworkID uuid.UUID) ([]*models.Version, error) {
	e, ok := l.entry(paperworkID)
	if !ok {
		return []*models.Version{}, nil
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*models.Version, 0, len(e.versions))
	for _, v := range e.versions {
		out = append(out, cloneVersion(v))
	}
	return out, nil
}

func (l *MemoryLedger) GetVersion(_ context.Context, paperworkID uuid.UUID, number int) (*models.Version, error) {
	if e, ok := l.entry(paperworkID); ok {
		e.mu.RLock()
		defer e.mu.RUnlock()
		if number >= 1 && number <= len(e.versions) {
			return cloneVersion(e.versions[number-1]), nil
		}
	}
	return nil, apperr.New(apperr.KindVersionNotFound, "version %d of paperwork %s not found", number, paperworkID)
}

func (l *MemoryLedger) ListReviews(_ context.Context, paperworkID uuid.UUID) ([]*models.Review, error) {
	e, ok := l.entry(paperworkID)
	if !ok {
		return []*models.Review{}, nil
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*models.Review, 0, len(e.reviews))
	for _, r := range e.reviews {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (l *MemoryLedger) Serialize(ctx context.Context, paperworkID uuid.UUID, fn func(tx LedgerTx) error) error {
	e, ok := l.entry(paperworkID)
	if !ok {
		return apperr.New(apperr.KindNotFound, "paperwork %s not found", paperworkID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	e.writer.Lock()
	defer e.writer.Unlock()

	e.mu.RLock()
	tx := &memoryTx{entry: e, pw: clonePaperwork(e.paperwork)}
	e.mu.RUnlock()

	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// memoryTx buffers appends until the scope commits.
type memoryTx struct {
	entry    *memoryEntry
	pw       models.Paperwork
	versions []*models.Version
	reviews  []*models.Review
	dirty    bool
}

func (t *memoryTx) Paperwork() *models.Paperwork {
	return &t.pw
}

func (t *memoryTx) LatestVersion() (*models.Version, error) {
	if n := len(t.versions); n > 0 {
		return cloneVersion(t.versions[n-1]), nil
	}
	t.entry.mu.RLock()
	defer t.entry.mu.RUnlock()
	if n := len(t.entry.versions); n > 0 {
		return cloneVersion(t.entry.versions[n-1]), nil
	}
	return nil, nil
}

func (t *memoryTx) LatestReview() (*models.Review, error) {
	if n := len(t.reviews); n > 0 {
		cp := *t.reviews[n-1]
		return &cp, nil
	}
	t.entry.mu.RLock()
	defer t.entry.mu.RUnlock()
	if n := len(t.entry.reviews); n > 0 {
		cp := *t.entry.reviews[n-1]
		return &cp, nil
	}
	return nil, nil
}

func (t *memoryTx) committedVersions() int {
	t.entry.mu.RLock()
	defer t.entry.mu.RUnlock()
	return len(t.entry.versions)
}

func (t *memoryTx) committedReviews() int {
	t.entry.mu.RLock()
	defer t.entry.mu.RUnlock()
	return len(t.entry.reviews)
}

func (t *memoryTx) AppendVersion(v *models.Version) error {
	next := t.committedVersions() + len(t.versions) + 1
	if v.Number != next {
		return apperr.New(apperr.KindInternal, "version number %d is not the next number %d", v.Number, next)
	}
	v.PaperworkID = t.pw.ID
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	for i := range v.Artifacts {
		a := &v.Artifacts[i]
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		a.VersionID = v.ID
		if a.CreatedAt.IsZero() {
			a.CreatedAt = v.CreatedAt
		}
	}
	t.versions = append(t.versions, cloneVersion(v))
	return nil
}

func (t *memoryTx) AppendReview(r *models.Review) error {
	r.PaperworkID = t.pw.ID
	r.Sequence = t.committedReviews() + len(t.reviews) + 1
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	cp := *r
	t.reviews = append(t.reviews, &cp)
	return nil
}

func (t *memoryTx) SetDeadline(deadline *time.Time, updatedAt time.Time) error {
	t.pw.Deadline = cloneTime(deadline)
	t.pw.UpdatedAt = updatedAt
	t.dirty = true
	return nil
}

func (t *memoryTx) commit() {
	e := t.entry
	e.mu.Lock()
	defer e.mu.Unlock()
	e.versions = append(e.versions, t.versions...)
	e.reviews = append(e.reviews, t.reviews...)
	if t.dirty {
		e.paperwork = clonePaperwork(t.pw)
	}
}

func clonePaperwork(pw models.Paperwork) models.Paperwork {
	pw.Deadline = cloneTime(pw.Deadline)
	return pw
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

func cloneVersion(v *models.Version) *models.Version {
	cp := *v
	cp.Artifacts = make([]models.Artifact, len(v.Artifacts))
	for i, a := range v.Artifacts {
		cp.Artifacts[i] = a
		if a.Metadata != nil {
			cp.Artifacts[i].Metadata = make(map[string]any, len(a.Metadata))
			for k, val := range a.Metadata {
				cp.Artifacts[i].Metadata[k] = val
			}
		}
	}
	return &cp
}
