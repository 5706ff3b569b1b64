package app

import (
	"context"
	"time"

	"github.com/clubware/gearledger/internal/clock"
	"github.com/clubware/gearledger/internal/domain"
)

// ReconciliationRepository is the store surface the return engine needs.
type ReconciliationRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	MemberExists(ctx context.Context, memberID string) (bool, error)
	GetEquipmentForUpdate(ctx context.Context, equipmentID string) (domain.Equipment, error)
	// ListOpenRecords returns the member's open records for one equipment,
	// locked for update, ordered by borrowed_at then record ID ascending.
	ListOpenRecords(ctx context.Context, memberID, equipmentID string) ([]domain.BorrowRecord, error)
	ApplyReturn(ctx context.Context, recordID string, outstanding int, closed bool, returnedAt time.Time) error
	AdjustAvailable(ctx context.Context, equipmentID string, delta int) error
}

// ReconciliationService applies returns against outstanding borrow records
// under a first-borrowed-first-returned policy, supporting partial returns.
// It never creates or deletes records; only outstanding quantities shrink.
type ReconciliationService struct {
	repo  ReconciliationRepository
	inv   InvariantChecker
	clock clock.Clock
}

func NewReconciliationService(repo ReconciliationRepository, inv InvariantChecker, clk clock.Clock) *ReconciliationService {
	return &ReconciliationService{
		repo:  repo,
		inv:   inv,
		clock: clk,
	}
}

type ReturnInput struct {
	MemberID string
	Items    []domain.BorrowItem
}

// ReturnApplication records how much of a return line landed on one record.
type ReturnApplication struct {
	RecordID string
	Applied  int
	Closed   bool
}

type ReturnLine struct {
	EquipmentID  string
	Returned     int
	Applications []ReturnApplication
}

type ReturnSummary struct {
	Lines      []ReturnLine
	ReturnedAt time.Time
}

// Return reconciles every requested line or none of them. Each line is walked
// oldest record first; a line asking for more than the member's outstanding
// quantity aborts the whole request with an over-return error.
func (s *ReconciliationService) Return(ctx context.Context, in ReturnInput) (ReturnSummary, error) {
	if err := validateItems(in.MemberID, in.Items); err != nil {
		return ReturnSummary{}, err
	}

	now := s.clock.Now()
	var summary ReturnSummary

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		summary = ReturnSummary{ReturnedAt: now}

		ok, err := s.repo.MemberExists(txCtx, in.MemberID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrUnknownMember
		}

		byEquipment := make(map[string]ReturnLine, len(in.Items))
		for _, item := range sortedByEquipment(in.Items) {
			eq, err := s.repo.GetEquipmentForUpdate(txCtx, item.EquipmentID)
			if err != nil {
				return err
			}

			line, err := s.reconcileLine(txCtx, in.MemberID, eq.ID, item.Quantity, now)
			if err != nil {
				return err
			}

			if err := s.repo.AdjustAvailable(txCtx, eq.ID, item.Quantity); err != nil {
				return err
			}
			byEquipment[eq.ID] = line
		}

		for _, item := range in.Items {
			if err := s.inv.Verify(txCtx, item.EquipmentID); err != nil {
				return err
			}
		}

		for _, item := range in.Items {
			summary.Lines = append(summary.Lines, byEquipment[item.EquipmentID])
		}
		return nil
	})
	if err != nil {
		return ReturnSummary{}, err
	}
	return summary, nil
}

func (s *ReconciliationService) reconcileLine(ctx context.Context, memberID, equipmentID string, quantity int, now time.Time) (ReturnLine, error) {
	records, err := s.repo.ListOpenRecords(ctx, memberID, equipmentID)
	if err != nil {
		return ReturnLine{}, err
	}

	outstanding := 0
	for _, rec := range records {
		outstanding += rec.Outstanding
	}
	if quantity > outstanding {
		return ReturnLine{}, &domain.OverReturnError{
			EquipmentID: equipmentID,
			Requested:   quantity,
			Outstanding: outstanding,
		}
	}

	line := ReturnLine{EquipmentID: equipmentID, Returned: quantity}
	remaining := quantity
	for _, rec := range records {
		if remaining == 0 {
			break
		}
		applied := min(remaining, rec.Outstanding)
		newOutstanding := rec.Outstanding - applied
		closed := newOutstanding == 0

		if err := s.repo.ApplyReturn(ctx, rec.ID, newOutstanding, closed, now); err != nil {
			return ReturnLine{}, err
		}

		line.Applications = append(line.Applications, ReturnApplication{
			RecordID: rec.ID,
			Applied:  applied,
			Closed:   closed,
		})
		remaining -= applied
	}
	return line, nil
}
