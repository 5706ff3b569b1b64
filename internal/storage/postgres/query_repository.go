package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clubware/gearledger/internal/domain"
)

// QueryRepository serves the outstanding-loans view. Its reads run outside
// any transaction on the pool's snapshot.
type QueryRepository struct {
	txRunner
}

func NewQueryRepository(pool *pgxpool.Pool) *QueryRepository {
	return &QueryRepository{txRunner: newTxRunner(pool)}
}

func (r *QueryRepository) MemberExists(ctx context.Context, memberID string) (bool, error) {
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

func (r *QueryRepository) ListOutstanding(ctx context.Context, memberID string) ([]domain.OutstandingLine, error) {
	const query = `
SELECT br.id, br.equipment_id, e.category, e.model,
       br.borrowed_quantity, br.outstanding_quantity, br.borrowed_at, br.due_at
FROM borrow_records br
JOIN equipment e ON e.id = br.equipment_id
WHERE br.member_id = $1 AND br.status = 'open'
ORDER BY br.borrowed_at ASC, br.id ASC`

	rows, err := r.query(ctx, query, memberID)
	if err != nil {
		return nil, fmt.Errorf("list outstanding: %w", err)
	}
	defer rows.Close()

	var out []domain.OutstandingLine
	for rows.Next() {
		var l domain.OutstandingLine
		err := rows.Scan(&l.RecordID, &l.EquipmentID, &l.Category, &l.Model,
			&l.Borrowed, &l.Outstanding, &l.BorrowedAt, &l.DueAt)
		if err != nil {
			return nil, fmt.Errorf("scan outstanding line: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list outstanding: %w", err)
	}
	return out, nil
}
