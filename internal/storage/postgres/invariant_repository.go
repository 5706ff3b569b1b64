package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clubware/gearledger/internal/domain"
)

// InvariantRepository serves the read side of the invariant checker. Called
// with a context carrying an engine transaction, its reads see that
// transaction's uncommitted state, which is what makes pre-commit
// verification possible.
type InvariantRepository struct {
	txRunner
}

func NewInvariantRepository(pool *pgxpool.Pool, opts ...Option) *InvariantRepository {
	return &InvariantRepository{txRunner: newTxRunner(pool, opts...)}
}

func (r *InvariantRepository) GetEquipment(ctx context.Context, equipmentID string) (domain.Equipment, error) {
	const query = `
SELECT id, category, model, total_quantity, available_quantity, deleted_at
FROM equipment
WHERE id = $1 AND deleted_at IS NULL`

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
		return domain.Equipment{}, fmt.Errorf("get equipment: %w", err)
	}
	return e, nil
}

func (r *InvariantRepository) SumOutstanding(ctx context.Context, equipmentID string) (int, error) {
	const query = `
SELECT COALESCE(SUM(outstanding_quantity), 0)
FROM borrow_records
WHERE equipment_id = $1 AND status = 'open'`

	var total int
	if err := r.queryRow(ctx, query, equipmentID).Scan(&total); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("sum outstanding: %w", err)
	}
	return total, nil
}

func (r *InvariantRepository) ListEquipmentIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT id FROM equipment WHERE deleted_at IS NULL ORDER BY category, model`

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list equipment ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan equipment id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list equipment ids: %w", err)
	}
	return ids, nil
}
