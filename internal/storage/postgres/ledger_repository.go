package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clubware/gearledger/internal/domain"
)

// LedgerRepository backs both the allocation and the reconciliation engine:
// equipment row locks, stock adjustments and borrow-record mutations.
type LedgerRepository struct {
	txRunner
}

func NewLedgerRepository(pool *pgxpool.Pool, opts ...Option) *LedgerRepository {
	return &LedgerRepository{txRunner: newTxRunner(pool, opts...)}
}

func (r *LedgerRepository) MemberExists(ctx context.Context, memberID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM members WHERE id = $1)`

	var exists bool
	if err := r.queryRow(ctx, query, memberID).Scan(&exists); err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("member exists: %w", err)
	}
	return exists, nil
}

// GetEquipmentForUpdate locks the equipment row for the rest of the
// transaction. Soft-deleted equipment is reported as unknown.
func (r *LedgerRepository) GetEquipmentForUpdate(ctx context.Context, equipmentID string) (domain.Equipment, error) {
	const query = `
SELECT id, category, model, total_quantity, available_quantity, deleted_at
FROM equipment
WHERE id = $1 AND deleted_at IS NULL
FOR UPDATE`

	var e domain.Equipment
	err := r.queryRow(ctx, query, equipmentID).
		Scan(&e.ID, &e.Category, &e.Model, &e.Total, &e.Available, &e.DeletedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Equipment{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Equipment{}, domain.ErrUnknownEquipment
		}
		return domain.Equipment{}, fmt.Errorf("get equipment for update: %w", err)
	}
	return e, nil
}

// AdjustAvailable shifts available_quantity by delta. The schema's range
// check rejects any adjustment that would leave the counter outside
// [0, total], so a bug here cannot silently corrupt stock.
func (r *LedgerRepository) AdjustAvailable(ctx context.Context, equipmentID string, delta int) error {
	const stmt = `
UPDATE equipment
SET available_quantity = available_quantity + $2
WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.exec(ctx, stmt, equipmentID, delta)
	if err != nil {
		return fmt.Errorf("adjust available: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUnknownEquipment
	}
	return nil
}

func (r *LedgerRepository) InsertRecord(ctx context.Context, rec domain.BorrowRecord) error {
	const stmt = `
INSERT INTO borrow_records
	(id, member_id, equipment_id, borrowed_quantity, outstanding_quantity, status, borrowed_at, due_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.exec(ctx, stmt,
		rec.ID,
		rec.MemberID,
		rec.EquipmentID,
		rec.Borrowed,
		rec.Outstanding,
		rec.Status,
		rec.BorrowedAt,
		rec.DueAt,
	)
	if err != nil {
		return fmt.Errorf("insert borrow record: %w", err)
	}
	return nil
}

// ListOpenRecords returns the member's open records for one equipment in
// first-borrowed-first-returned order, locked so concurrent returns cannot
// walk the same records.
func (r *LedgerRepository) ListOpenRecords(ctx context.Context, memberID, equipmentID string) ([]domain.BorrowRecord, error) {
	const query = `
SELECT id, member_id, equipment_id, borrowed_quantity, outstanding_quantity, status, borrowed_at, due_at, returned_at
FROM borrow_records
WHERE member_id = $1 AND equipment_id = $2 AND status = 'open'
ORDER BY borrowed_at ASC, id ASC
FOR UPDATE`

	rows, err := r.query(ctx, query, memberID, equipmentID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list open records: %w", err)
	}
	defer rows.Close()

	var out []domain.BorrowRecord
	for rows.Next() {
		var rec domain.BorrowRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.MemberID,
			&rec.EquipmentID,
			&rec.Borrowed,
			&rec.Outstanding,
			&rec.Status,
			&rec.BorrowedAt,
			&rec.DueAt,
			&rec.ReturnedAt,
		); err != nil {
			return nil, fmt.Errorf("scan borrow record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list open records: %w", err)
	}
	return out, nil
}

// ApplyReturn shrinks a record's outstanding quantity and closes it when the
// quantity reaches zero.
func (r *LedgerRepository) ApplyReturn(ctx context.Context, recordID string, outstanding int, closed bool, returnedAt time.Time) error {
	const openStmt = `
UPDATE borrow_records
SET outstanding_quantity = $2
WHERE id = $1 AND status = 'open'`

	const closeStmt = `
UPDATE borrow_records
SET outstanding_quantity = $2, status = 'closed', returned_at = $3
WHERE id = $1 AND status = 'open'`

	var err error
	var tag interface{ RowsAffected() int64 }
	if closed {
		tag, err = r.exec(ctx, closeStmt, recordID, outstanding, returnedAt)
	} else {
		tag, err = r.exec(ctx, openStmt, recordID, outstanding)
	}
	if err != nil {
		return fmt.Errorf("apply return: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("apply return: record %s not open", recordID)
	}
	return nil
}
