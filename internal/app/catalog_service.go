package app

import (
	"context"
	"time"

	"github.com/clubware/gearledger/internal/clock"
	"github.com/clubware/gearledger/internal/domain"
)

// CatalogRepository is the store surface of catalog management.
type CatalogRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	InsertEquipment(ctx context.Context, eq domain.Equipment) error
	GetEquipment(ctx context.Context, equipmentID string) (domain.Equipment, error)
	GetEquipmentForUpdate(ctx context.Context, equipmentID string) (domain.Equipment, error)
	UpdateEquipmentStock(ctx context.Context, equipmentID string, total, available int) error
	SoftDeleteEquipment(ctx context.Context, equipmentID string, at time.Time) error
	CountOpenRecords(ctx context.Context, equipmentID string) (int, error)
	ListEquipment(ctx context.Context) ([]domain.Equipment, error)
}

// CatalogService manages the equipment catalog. Stock counters are only ever
// touched inside the same transactional boundary as the engines, so the
// invariant survives catalog edits too.
type CatalogService struct {
	repo  CatalogRepository
	inv   InvariantChecker
	clock clock.Clock
	ids   IDGen
}

func NewCatalogService(repo CatalogRepository, inv InvariantChecker, clk clock.Clock, ids IDGen) *CatalogService {
	return &CatalogService{
		repo:  repo,
		inv:   inv,
		clock: clk,
		ids:   ids,
	}
}

type CreateEquipmentInput struct {
	Category string
	Model    string
	Total    int
}

// CreateEquipment adds a new equipment type with every unit available.
func (s *CatalogService) CreateEquipment(ctx context.Context, in CreateEquipmentInput) (domain.Equipment, error) {
	if in.Category == "" {
		return domain.Equipment{}, domain.ErrCategoryRequired
	}
	if in.Model == "" {
		return domain.Equipment{}, domain.ErrModelRequired
	}
	if in.Total < 0 {
		return domain.Equipment{}, domain.ErrInvalidQuantity
	}

	eq := domain.Equipment{
		ID:        s.ids.NewID(),
		Category:  in.Category,
		Model:     in.Model,
		Total:     in.Total,
		Available: in.Total,
	}

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.InsertEquipment(txCtx, eq); err != nil {
			return err
		}
		return s.inv.Verify(txCtx, eq.ID)
	})
	if err != nil {
		return domain.Equipment{}, err
	}
	return eq, nil
}

type UpdateEquipmentInput struct {
	EquipmentID string
	Total       int
}

// UpdateEquipmentTotal changes the total stock of an equipment. Available is
// recomputed as the new total minus the units currently out on loan; a total
// below the outstanding quantity is rejected.
func (s *CatalogService) UpdateEquipmentTotal(ctx context.Context, in UpdateEquipmentInput) (domain.Equipment, error) {
	if in.EquipmentID == "" {
		return domain.Equipment{}, domain.ErrInvalidID
	}
	if in.Total < 0 {
		return domain.Equipment{}, domain.ErrInvalidQuantity
	}

	var updated domain.Equipment
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		eq, err := s.repo.GetEquipmentForUpdate(txCtx, in.EquipmentID)
		if err != nil {
			return err
		}

		outstanding := eq.Outstanding()
		if in.Total < outstanding {
			return domain.ErrTotalBelowOutstanding
		}

		available := in.Total - outstanding
		if err := s.repo.UpdateEquipmentStock(txCtx, eq.ID, in.Total, available); err != nil {
			return err
		}
		if err := s.inv.Verify(txCtx, eq.ID); err != nil {
			return err
		}

		eq.Total = in.Total
		eq.Available = available
		updated = eq
		return nil
	})
	if err != nil {
		return domain.Equipment{}, err
	}
	return updated, nil
}

// DeleteEquipment soft-deletes an equipment type. Equipment with open borrow
// records cannot be deleted.
func (s *CatalogService) DeleteEquipment(ctx context.Context, equipmentID string) error {
	if equipmentID == "" {
		return domain.ErrInvalidID
	}

	now := s.clock.Now()
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		eq, err := s.repo.GetEquipmentForUpdate(txCtx, equipmentID)
		if err != nil {
			return err
		}

		open, err := s.repo.CountOpenRecords(txCtx, eq.ID)
		if err != nil {
			return err
		}
		if open > 0 {
			return domain.ErrEquipmentInUse
		}
		return s.repo.SoftDeleteEquipment(txCtx, eq.ID, now)
	})
}

// GetEquipment returns one catalog entry.
func (s *CatalogService) GetEquipment(ctx context.Context, equipmentID string) (domain.Equipment, error) {
	if equipmentID == "" {
		return domain.Equipment{}, domain.ErrInvalidID
	}
	return s.repo.GetEquipment(ctx, equipmentID)
}

// ListEquipment returns all non-deleted catalog entries.
func (s *CatalogService) ListEquipment(ctx context.Context) ([]domain.Equipment, error) {
	return s.repo.ListEquipment(ctx)
}
