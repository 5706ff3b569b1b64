package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/clubware/gearledger/internal/domain"
)

// InvariantRepository is the read-only store surface of the invariant
// checker. Inside an engine transaction its reads observe that transaction's
// uncommitted writes.
type InvariantRepository interface {
	GetEquipment(ctx context.Context, equipmentID string) (domain.Equipment, error)
	SumOutstanding(ctx context.Context, equipmentID string) (int, error)
	ListEquipmentIDs(ctx context.Context) ([]string, error)
}

// InvariantService verifies that, for every equipment, available stock plus
// the summed outstanding quantity of open records equals total stock. The
// engines call Verify before committing; Check and CheckAll serve as external
// diagnostics.
type InvariantService struct {
	repo   InvariantRepository
	logger *slog.Logger
}

func NewInvariantService(repo InvariantRepository, logger *slog.Logger) *InvariantService {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvariantService{repo: repo, logger: logger}
}

// Verify returns an InvariantViolationError when the accounting identity does
// not hold for the equipment. A violation means an engine defect, so it is
// logged at error level, distinct from business failures.
func (s *InvariantService) Verify(ctx context.Context, equipmentID string) error {
	eq, err := s.repo.GetEquipment(ctx, equipmentID)
	if err != nil {
		return err
	}
	outstanding, err := s.repo.SumOutstanding(ctx, equipmentID)
	if err != nil {
		return err
	}

	if eq.Available+outstanding != eq.Total {
		violation := &domain.InvariantViolationError{
			EquipmentID: eq.ID,
			Total:       eq.Total,
			Available:   eq.Available,
			Outstanding: outstanding,
		}
		s.logger.Error("stock invariant violated",
			"equipment_id", eq.ID,
			"total", eq.Total,
			"available", eq.Available,
			"outstanding", outstanding,
		)
		return violation
	}
	return nil
}

// Check is the diagnostic form of Verify for a single equipment.
func (s *InvariantService) Check(ctx context.Context, equipmentID string) (bool, error) {
	err := s.Verify(ctx, equipmentID)
	if err == nil {
		return true, nil
	}
	var violation *domain.InvariantViolationError
	if errors.As(err, &violation) {
		return false, nil
	}
	return false, err
}

// ConsistencyReport is one row of the full-catalog diagnostic.
type ConsistencyReport struct {
	EquipmentID string
	Category    string
	Model       string
	Total       int
	Available   int
	Outstanding int
	Consistent  bool
}

// CheckAll reports the accounting state of every non-deleted equipment.
func (s *InvariantService) CheckAll(ctx context.Context) ([]ConsistencyReport, error) {
	ids, err := s.repo.ListEquipmentIDs(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]ConsistencyReport, 0, len(ids))
	for _, id := range ids {
		eq, err := s.repo.GetEquipment(ctx, id)
		if err != nil {
			return nil, err
		}
		outstanding, err := s.repo.SumOutstanding(ctx, id)
		if err != nil {
			return nil, err
		}
		consistent := eq.Available+outstanding == eq.Total
		if !consistent {
			s.logger.Error("stock invariant violated",
				"equipment_id", eq.ID,
				"total", eq.Total,
				"available", eq.Available,
				"outstanding", outstanding,
			)
		}
		reports = append(reports, ConsistencyReport{
			EquipmentID: eq.ID,
			Category:    eq.Category,
			Model:       eq.Model,
			Total:       eq.Total,
			Available:   eq.Available,
			Outstanding: outstanding,
			Consistent:  consistent,
		})
	}
	return reports, nil
}
