package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseRepository is the append-only subset of CRUD the ledgers need. Records
// are never updated in place or deleted through it.
type BaseRepository[T any] interface {
	Create(ctx context.Context, entity *T) error
	GetByID(ctx context.Context, id uuid.UUID) (*T, error)
	Find(ctx context.Context, order string, query any, args ...any) ([]*T, error)
	Count(ctx context.Context, query any, args ...any) (int64, error)
}

type BaseRepositoryImpl[T any] struct {
	db *gorm.DB
}

func NewBaseRepository[T any](db *gorm.DB) *BaseRepositoryImpl[T] {
	return &BaseRepositoryImpl[T]{
		db: db,
	}
}

// WithTx returns a repository bound to tx.
func (r *BaseRepositoryImpl[T]) WithTx(tx *gorm.DB) *BaseRepositoryImpl[T] {
	return &BaseRepositoryImpl[T]{db: tx}
}

func (r *BaseRepositoryImpl[T]) Create(ctx context.Context, entity *T) error {
	return r.db.WithContext(ctx).Create(entity).Error
}

// GetByID returns gorm.ErrRecordNotFound when no row matches.
func (r *BaseRepositoryImpl[T]) GetByID(ctx context.Context, id uuid.UUID) (*T, error) {
	var entity T
	err := r.db.WithContext(ctx).First(&entity, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

// Find returns all rows matching query in the given order. A nil query
// matches every row.
func (r *BaseRepositoryImpl[T]) Find(ctx context.Context, order string, query any, args ...any) ([]*T, error) {
	var entities []*T
	q := r.db.WithContext(ctx)
	if query != nil {
		q = q.Where(query, args...)
	}
	if order != "" {
		q = q.Order(order)
	}
	err := q.Find(&entities).Error
	return entities, err
}

func (r *BaseRepositoryImpl[T]) Count(ctx context.Context, query any, args ...any) (int64, error) {
	var count int64
	var entity T
	q := r.db.WithContext(ctx).Model(&entity)
	if query != nil {
		q = q.Where(query, args...)
	}
	err := q.Count(&count).Error
	return count, err
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
