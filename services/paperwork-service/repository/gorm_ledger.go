package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/RigelNana/arkpaper/services/paperwork-service/apperr"
	"github.com/RigelNana/arkpaper/services/paperwork-service/models"
)

// GormLedger stores the ledgers in postgres. Serialize takes a row lock on
// the paperwork so concurrent writers of one paperwork queue up while other
// paperworks proceed independently.
type GormLedger struct {
	db         *gorm.DB
	paperworks *BaseRepositoryImpl[models.Paperwork]
	reviews    *BaseRepositoryImpl[models.Review]
}

func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{
		db:         db,
		paperworks: NewBaseRepository[models.Paperwork](db),
		reviews:    NewBaseRepository[models.Review](db),
	}
}

func (l *GormLedger) CreatePaperwork(ctx context.Context, pw *models.Paperwork) error {
	if err := l.paperworks.Create(ctx, pw); err != nil {
		return fmt.Errorf("create paperwork: %w", err)
	}
	return nil
}

func (l *GormLedger) GetPaperwork(ctx context.Context, id uuid.UUID) (*models.Paperwork, error) {
	pw, err := l.paperworks.GetByID(ctx, id)
	if isNotFound(err) {
		return nil, apperr.New(apperr.KindNotFound, "paperwork %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get paperwork %s: %w", id, err)
	}
	return pw, nil
}

func (l *GormLedger) ListPaperworks(ctx context.Context, researcherID uuid.UUID) ([]*models.Paperwork, error) {
	var query any
	var args []any
	if researcherID != uuid.Nil {
		query, args = "researcher_id = ?", []any{researcherID}
	}
	pws, err := l.paperworks.Find(ctx, "created_at asc, id asc", query, args...)
	if err != nil {
		return nil, fmt.Errorf("list paperworks: %w", err)
	}
	return pws, nil
}

func (l *GormLedger) ListVersions(ctx context.Context, paperworkID uuid.UUID) ([]*models.Version, error) {
	var versions []*models.Version
	err := l.db.WithContext(ctx).
		Preload("Artifacts", func(db *gorm.DB) *gorm.DB { return db.Order("role asc") }).
		Where("paperwork_id = ?", paperworkID).
		Order("number asc").
		Find(&versions).Error
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return versions, nil
}

func (l *GormLedger) GetVersion(ctx context.Context, paperworkID uuid.UUID, number int) (*models.Version, error) {
	var v models.Version
	err := l.db.WithContext(ctx).
		Preload("Artifacts").
		Where("paperwork_id = ? AND number = ?", paperworkID, number).
		First(&v).Error
	if isNotFound(err) {
		return nil, apperr.New(apperr.KindVersionNotFound, "version %d of paperwork %s not found", number, paperworkID)
	}
	if err != nil {
		return nil, fmt.Errorf("get version %d: %w", number, err)
	}
	return &v, nil
}

func (l *GormLedger) ListReviews(ctx context.Context, paperworkID uuid.UUID) ([]*models.Review, error) {
	reviews, err := l.reviews.Find(ctx, "created_at asc, sequence asc", "paperwork_id = ?", paperworkID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

func (l *GormLedger) Serialize(ctx context.Context, paperworkID uuid.UUID, fn func(tx LedgerTx) error) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pw models.Paperwork
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&pw, "id = ?", paperworkID).Error
		if isNotFound(err) {
			return apperr.New(apperr.KindNotFound, "paperwork %s not found", paperworkID)
		}
		if err != nil {
			return fmt.Errorf("lock paperwork %s: %w", paperworkID, err)
		}
		return fn(&gormTx{ctx: ctx, tx: tx, pw: &pw, reviews: l.reviews.WithTx(tx)})
	})
}

type gormTx struct {
	ctx     context.Context
	tx      *gorm.DB
	pw      *models.Paperwork
	reviews *BaseRepositoryImpl[models.Review]
}

func (t *gormTx) Paperwork() *models.Paperwork {
	return t.pw
}

func (t *gormTx) LatestVersion() (*models.Version, error) {
	var v models.Version
	err := t.tx.Preload("Artifacts").
		Where("paperwork_id = ?", t.pw.ID).
		Order("number desc").
		First(&v).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest version: %w", err)
	}
	return &v, nil
}

func (t *gormTx) LatestReview() (*models.Review, error) {
	var r models.Review
	err := t.tx.Where("paperwork_id = ?", t.pw.ID).Order("sequence desc").First(&r).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest review: %w", err)
	}
	return &r, nil
}

func (t *gormTx) AppendVersion(v *models.Version) error {
	v.PaperworkID = t.pw.ID
	// artifacts are inserted through the has-many association
	if err := t.tx.Create(v).Error; err != nil {
		return fmt.Errorf("append version %d: %w", v.Number, err)
	}
	return nil
}

func (t *gormTx) AppendReview(r *models.Review) error {
	// reviews are append-only and this row is locked, so count+1 is gapless
	n, err := t.reviews.Count(t.ctx, "paperwork_id = ?", t.pw.ID)
	if err != nil {
		return fmt.Errorf("next review sequence: %w", err)
	}
	r.PaperworkID = t.pw.ID
	r.Sequence = int(n) + 1
	if err := t.reviews.Create(t.ctx, r); err != nil {
		return fmt.Errorf("append review: %w", err)
	}
	return nil
}

func (t *gormTx) SetDeadline(deadline *time.Time, updatedAt time.Time) error {
	err := t.tx.Model(t.pw).Updates(map[string]any{
		"deadline":   deadline,
		"updated_at": updatedAt,
	}).Error
	if err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}
	t.pw.Deadline = deadline
	t.pw.UpdatedAt = updatedAt
	return nil
}
