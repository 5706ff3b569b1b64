package app

import (
	"context"
	"sort"
	"time"

	"github.com/clubware/gearledger/internal/clock"
	"github.com/clubware/gearledger/internal/domain"
)

// AllocationRepository is the store surface the allocation engine needs. All
// mutating methods run inside the transaction installed by WithTx.
type AllocationRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	MemberExists(ctx context.Context, memberID string) (bool, error)
	GetEquipmentForUpdate(ctx context.Context, equipmentID string) (domain.Equipment, error)
	AdjustAvailable(ctx context.Context, equipmentID string, delta int) error
	InsertRecord(ctx context.Context, rec domain.BorrowRecord) error
}

// InvariantChecker verifies the stock accounting identity for one equipment
// inside the current transaction. A non-nil error aborts the commit.
type InvariantChecker interface {
	Verify(ctx context.Context, equipmentID string) error
}

// AllocationService executes multi-line borrow requests as all-or-nothing
// transactions against the catalog and the ledger.
type AllocationService struct {
	repo  AllocationRepository
	inv   InvariantChecker
	clock clock.Clock
	ids   IDGen
}

func NewAllocationService(repo AllocationRepository, inv InvariantChecker, clk clock.Clock, ids IDGen) *AllocationService {
	return &AllocationService{
		repo:  repo,
		inv:   inv,
		clock: clk,
		ids:   ids,
	}
}

type BorrowInput struct {
	MemberID string
	Items    []domain.BorrowItem
	// DueAt optionally records the expected return time on every created
	// record. Informational only.
	DueAt *time.Time
}

// Borrow reserves every requested line or none of them. On success it returns
// the IDs of the created borrow records, one per line, in request order.
func (s *AllocationService) Borrow(ctx context.Context, in BorrowInput) ([]string, error) {
	if err := validateItems(in.MemberID, in.Items); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var recordIDs []string

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		recordIDs = recordIDs[:0]

		ok, err := s.repo.MemberExists(txCtx, in.MemberID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrUnknownMember
		}

		// Lock equipment rows in a deterministic order so concurrent
		// multi-line requests cannot deadlock each other.
		byRecord := make(map[string]string, len(in.Items))
		for _, item := range sortedByEquipment(in.Items) {
			eq, err := s.repo.GetEquipmentForUpdate(txCtx, item.EquipmentID)
			if err != nil {
				return err
			}
			if eq.Available < item.Quantity {
				return &domain.InsufficientStockError{
					EquipmentID: eq.ID,
					Requested:   item.Quantity,
					Available:   eq.Available,
				}
			}

			if err := s.repo.AdjustAvailable(txCtx, eq.ID, -item.Quantity); err != nil {
				return err
			}

			recordID, err := s.ids.NewRecordID()
			if err != nil {
				return err
			}
			rec := domain.BorrowRecord{
				ID:          recordID,
				MemberID:    in.MemberID,
				EquipmentID: eq.ID,
				Borrowed:    item.Quantity,
				Outstanding: item.Quantity,
				Status:      domain.RecordStatusOpen,
				BorrowedAt:  now,
				DueAt:       in.DueAt,
			}
			if err := s.repo.InsertRecord(txCtx, rec); err != nil {
				return err
			}
			byRecord[eq.ID] = recordID
		}

		for _, item := range in.Items {
			if err := s.inv.Verify(txCtx, item.EquipmentID); err != nil {
				return err
			}
		}

		for _, item := range in.Items {
			recordIDs = append(recordIDs, byRecord[item.EquipmentID])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recordIDs, nil
}

func validateItems(memberID string, items []domain.BorrowItem) error {
	if memberID == "" {
		return domain.ErrInvalidID
	}
	if len(items) == 0 {
		return domain.ErrEmptyRequest
	}
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.EquipmentID == "" {
			return domain.ErrInvalidID
		}
		if item.Quantity <= 0 {
			return domain.ErrInvalidQuantity
		}
		if _, dup := seen[item.EquipmentID]; dup {
			return domain.ErrDuplicateEquipment
		}
		seen[item.EquipmentID] = struct{}{}
	}
	return nil
}

func sortedByEquipment(items []domain.BorrowItem) []domain.BorrowItem {
	out := append([]domain.BorrowItem(nil), items...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].EquipmentID < out[j].EquipmentID
	})
	return out
}
