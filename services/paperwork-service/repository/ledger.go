package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/RigelNana/arkpaper/services/paperwork-service/models"
)

// Ledger persists paperworks together with their append-only version and
// review histories. Reads return snapshots and never block on a Serialize
// scope held by another caller.
type Ledger interface {
	CreatePaperwork(ctx context.Context, pw *models.Paperwork) error
	// GetPaperwork fails with apperr.ErrNotFound for unknown ids.
	GetPaperwork(ctx context.Context, id uuid.UUID) (*models.Paperwork, error)
	// ListPaperworks returns paperworks assigned to researcherID, or every
	// paperwork when researcherID is uuid.Nil, oldest first.
	ListPaperworks(ctx context.Context, researcherID uuid.UUID) ([]*models.Paperwork, error)

	// ListVersions returns versions ascending by number, artifacts attached.
	ListVersions(ctx context.Context, paperworkID uuid.UUID) ([]*models.Version, error)
	// GetVersion fails with apperr.ErrVersionNotFound.
	GetVersion(ctx context.Context, paperworkID uuid.UUID, number int) (*models.Version, error)
	// ListReviews returns reviews in recording order.
	ListReviews(ctx context.Context, paperworkID uuid.UUID) ([]*models.Review, error)

	// Serialize runs fn while holding the paperwork's exclusive mutation
	// scope. Writes made through tx become visible only if fn returns nil.
	Serialize(ctx context.Context, paperworkID uuid.UUID, fn func(tx LedgerTx) error) error
}

// LedgerTx is the mutation view of one paperwork inside Serialize.
type LedgerTx interface {
	Paperwork() *models.Paperwork
	LatestVersion() (*models.Version, error)
	LatestReview() (*models.Review, error)
	// AppendVersion stores v and its artifacts. v.Number must be the next number.
	AppendVersion(v *models.Version) error
	// AppendReview assigns the next sequence number and stores r.
	AppendReview(r *models.Review) error
	SetDeadline(deadline *time.Time, updatedAt time.Time) error
}
