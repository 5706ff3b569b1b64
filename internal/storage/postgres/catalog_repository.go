package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clubware/gearledger/internal/domain"
)

// CatalogRepository persists the equipment catalog.
type CatalogRepository struct {
	txRunner
}

func NewCatalogRepository(pool *pgxpool.Pool, opts ...Option) *CatalogRepository {
	return &CatalogRepository{txRunner: newTxRunner(pool, opts...)}
}

func (r *CatalogRepository) InsertEquipment(ctx context.Context, e domain.Equipment) error {
	const query = `
INSERT INTO equipment (id, category, model, total_quantity, available_quantity)
VALUES ($1, $2, $3, $4, $5)`

	_, err := r.exec(ctx, query, e.ID, e.Category, e.Model, e.Total, e.Available)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEquipmentExists
		}
		return fmt.Errorf("insert equipment: %w", err)
	}
	return nil
}

func (r *CatalogRepository) GetEquipment(ctx context.Context, equipmentID string) (domain.Equipment, error) {
	const query = `
SELECT id, category, model, total_quantity, available_quantity, deleted_at
FROM equipment
WHERE id = $1 AND deleted_at IS NULL`

	return r.scanEquipment(r.queryRow(ctx, query, equipmentID))
}

func (r *CatalogRepository) GetEquipmentForUpdate(ctx context.Context, equipmentID string) (domain.Equipment, error) {
	const query = `
SELECT id, category, model, total_quantity, available_quantity, deleted_at
FROM equipment
WHERE id = $1 AND deleted_at IS NULL
FOR UPDATE`

	return r.scanEquipment(r.queryRow(ctx, query, equipmentID))
}

func (r *CatalogRepository) scanEquipment(row pgx.Row) (domain.Equipment, error) {
	var e domain.Equipment
	err := row.Scan(&e.ID, &e.Category, &e.Model, &e.Total, &e.Available, &e.DeletedAt)
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

func (r *CatalogRepository) UpdateEquipmentStock(ctx context.Context, equipmentID string, total, available int) error {
	const query = `
UPDATE equipment
SET total_quantity = $2, available_quantity = $3
WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.exec(ctx, query, equipmentID, total, available)
	if err != nil {
		return fmt.Errorf("update equipment stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUnknownEquipment
	}
	return nil
}

func (r *CatalogRepository) SoftDeleteEquipment(ctx context.Context, equipmentID string, at time.Time) error {
	const query = `
UPDATE equipment
SET deleted_at = $2
WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.exec(ctx, query, equipmentID, at)
	if err != nil {
		return fmt.Errorf("soft delete equipment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUnknownEquipment
	}
	return nil
}

func (r *CatalogRepository) CountOpenRecords(ctx context.Context, equipmentID string) (int, error) {
	const query = `
SELECT COUNT(*)
FROM borrow_records
WHERE equipment_id = $1 AND status = 'open'`

	var n int
	if err := r.queryRow(ctx, query, equipmentID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count open records: %w", err)
	}
	return n, nil
}

func (r *CatalogRepository) ListEquipment(ctx context.Context) ([]domain.Equipment, error) {
	const query = `
SELECT id, category, model, total_quantity, available_quantity, deleted_at
FROM equipment
WHERE deleted_at IS NULL
ORDER BY category, model`

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list equipment: %w", err)
	}
	defer rows.Close()

	var out []domain.Equipment
	for rows.Next() {
		var e domain.Equipment
		if err := rows.Scan(&e.ID, &e.Category, &e.Model, &e.Total, &e.Available, &e.DeletedAt); err != nil {
			return nil, fmt.Errorf("scan equipment: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list equipment: %w", err)
	}
	return out, nil
}
