package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/krai/engine/internal/models"
	"gorm.io/gorm"
)

// gormQueueRepository implements QueueRepository over GORM, generalizing
// the durable job queue's dual lease-acquisition path to (document_id,
// stage) keys: Postgres and MySQL use SELECT ... FOR UPDATE SKIP LOCKED
// inside a transaction, SQLite uses a single atomic UPDATE driven by a
// correlated subquery, since SQLite's writer lock makes row-level locking
// both unavailable and unnecessary.
type gormQueueRepository struct {
	db      *gorm.DB
	dialect string
}

// NewQueueRepository creates a QueueRepository. dialect must be one of
// "postgres", "mysql", or "sqlite" and should match the Dialect used to
// open db.
func NewQueueRepository(db *gorm.DB, dialect string) QueueRepository {
	return &gormQueueRepository{db: db, dialect: dialect}
}

func (r *gormQueueRepository) Enqueue(ctx context.Context, item *models.QueueItem) error {
	if item.EnqueuedAt.IsZero() {
		item.EnqueuedAt = models.Now()
	}
	if item.Status == "" {
		item.Status = models.QueueStatusPending
	}
	if item.MaxAttempts == 0 {
		item.MaxAttempts = 5
	}
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *gormQueueRepository) Acquire(ctx context.Context, stages []string, leaseOwner string, leaseFor int64) (*models.QueueItem, error) {
	if r.dialect == "sqlite" {
		return r.acquireAtomicUpdate(ctx, stages, leaseOwner, leaseFor)
	}
	return r.acquireRowLock(ctx, stages, leaseOwner, leaseFor)
}

// acquireRowLock is used on Postgres and MySQL, both of which support
// SELECT ... FOR UPDATE SKIP LOCKED: concurrent stage runners never block
// on each other and never double-claim the same row.
func (r *gormQueueRepository) acquireRowLock(ctx context.Context, stages []string, leaseOwner string, leaseFor int64) (*models.QueueItem, error) {
	var claimed *models.QueueItem
	now := models.Now()
	deadline := now.Add(time.Duration(leaseFor) * time.Second)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.QueueItem
		q := tx.Clauses(skipLockedClause()).
			Where("status = ?", models.QueueStatusPending).
			Where("enqueued_at <= ?", now)
		if len(stages) > 0 {
			q = q.Where("stage IN ?", stages)
		}
		err := q.Order("priority DESC, enqueued_at ASC").First(&item).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return gorm.ErrRecordNotFound
			}
			return err
		}

		item.Status = models.QueueStatusLeased
		item.LeaseOwner = &leaseOwner
		item.LeaseDeadline = &deadline
		item.Attempts++
		item.StartedAt = &now
		if err := tx.Model(&models.QueueItem{}).Where("id = ?", item.ID).Updates(map[string]any{
			"status":         item.Status,
			"lease_owner":    item.LeaseOwner,
			"lease_deadline": item.LeaseDeadline,
			"attempts":       item.Attempts,
			"started_at":     item.StartedAt,
		}).Error; err != nil {
			return err
		}
		claimed = &item
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("acquiring queue item: %w", err)
	}
	return claimed, nil
}

// acquireAtomicUpdate is used on SQLite, which has no SKIP LOCKED support
// and serializes writers anyway: a single UPDATE ... WHERE id = (SELECT
// ...) claims the next eligible row atomically without a transaction.
func (r *gormQueueRepository) acquireAtomicUpdate(ctx context.Context, stages []string, leaseOwner string, leaseFor int64) (*models.QueueItem, error) {
	now := models.Now()
	deadline := now.Add(time.Duration(leaseFor) * time.Second)

	sub := r.db.WithContext(ctx).Model(&models.QueueItem{}).
		Select("id").
		Where("status = ?", models.QueueStatusPending).
		Where("enqueued_at <= ?", now)
	if len(stages) > 0 {
		sub = sub.Where("stage IN ?", stages)
	}
	sub = sub.Order("priority DESC, enqueued_at ASC").Limit(1)

	result := r.db.WithContext(ctx).Model(&models.QueueItem{}).
		Where("id = (?)", sub).
		Updates(map[string]any{
			"status":         models.QueueStatusLeased,
			"lease_owner":    leaseOwner,
			"lease_deadline": deadline,
			"attempts":       gorm.Expr("attempts + 1"),
			"started_at":     now,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("acquiring queue item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}

	var item models.QueueItem
	q := r.db.WithContext(ctx).Where("status = ? AND lease_owner = ?", models.QueueStatusLeased, leaseOwner)
	if len(stages) > 0 {
		q = q.Where("stage IN ?", stages)
	}
	if err := q.Order("started_at DESC").First(&item).Error; err != nil {
		return nil, fmt.Errorf("reloading acquired queue item: %w", err)
	}
	return &item, nil
}

func (r *gormQueueRepository) Complete(ctx context.Context, id models.ULID) error {
	now := models.Now()
	return r.db.WithContext(ctx).Model(&models.QueueItem{}).Where("id = ?", id).Updates(map[string]any{
		"status":      models.QueueStatusCompleted,
		"finished_at": now,
	}).Error
}

func (r *gormQueueRepository) Fail(ctx context.Context, id models.ULID, errMsg string, retryable bool) error {
	var item models.QueueItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return fmt.Errorf("loading queue item to fail: %w", err)
	}

	status := models.QueueStatusFailed
	if retryable && item.Attempts < item.MaxAttempts {
		status = models.QueueStatusRetrying
	}
	now := models.Now()
	updates := map[string]any{
		"status":         status,
		"last_error":     errMsg,
		"lease_owner":    nil,
		"lease_deadline": nil,
	}
	if status == models.QueueStatusFailed {
		updates["finished_at"] = now
	} else {
		updates["enqueued_at"] = item.CalculateNextBackoff()
		updates["status"] = models.QueueStatusPending
	}
	return r.db.WithContext(ctx).Model(&models.QueueItem{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormQueueRepository) ExtendLease(ctx context.Context, id models.ULID, leaseOwner string, leaseFor int64) error {
	deadline := models.Now().Add(time.Duration(leaseFor) * time.Second)
	result := r.db.WithContext(ctx).Model(&models.QueueItem{}).
		Where("id = ? AND lease_owner = ?", id, leaseOwner).
		Update("lease_deadline", deadline)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("extending lease: item %s not leased by %s", id, leaseOwner)
	}
	return nil
}

// RecoverExpiredLeases requeues items whose worker died mid-lease: any
// leased item past its deadline goes back to pending so another worker
// picks it up.
func (r *gormQueueRepository) RecoverExpiredLeases(ctx context.Context) (int, error) {
	result := r.db.WithContext(ctx).Model(&models.QueueItem{}).
		Where("status = ? AND lease_deadline < ?", models.QueueStatusLeased, models.Now()).
		Updates(map[string]any{
			"status":         models.QueueStatusPending,
			"lease_owner":    nil,
			"lease_deadline": nil,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

func (r *gormQueueRepository) HasPending(ctx context.Context, documentID models.ULID, stage string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.QueueItem{}).
		Where("document_id = ? AND stage = ? AND status IN ?", documentID, stage,
			[]models.QueueStatus{models.QueueStatusPending, models.QueueStatusLeased, models.QueueStatusRetrying}).
		Count(&count).Error
	return count > 0, err
}
