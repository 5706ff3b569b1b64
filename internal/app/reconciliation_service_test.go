package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clubware/gearledger/internal/clock"
	"github.com/clubware/gearledger/internal/domain"
)

func TestReconciliationService_Return(t *testing.T) {
	t.Parallel()

	t1 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	now := t1.Add(24 * time.Hour)

	// Equipment with total 5: records for 2 + 2 out, 1 on the shelf.
	makeStore := func() *fakeStore {
		store := newFakeStore()
		store.addMember("m-1")
		store.addEquipment(domain.Equipment{ID: "eq-guitar", Category: "Guitar", Model: "Strat", Total: 5, Available: 1})
		store.addRecord(domain.BorrowRecord{
			ID: "rec-001", MemberID: "m-1", EquipmentID: "eq-guitar",
			Borrowed: 2, Outstanding: 2, Status: domain.RecordStatusOpen, BorrowedAt: t1,
		})
		store.addRecord(domain.BorrowRecord{
			ID: "rec-002", MemberID: "m-1", EquipmentID: "eq-guitar",
			Borrowed: 2, Outstanding: 2, Status: domain.RecordStatusOpen, BorrowedAt: t2,
		})
		return store
	}

	makeSvc := func(store *fakeStore) *ReconciliationService {
		inv := NewInvariantService(store, discardLogger())
		return NewReconciliationService(store, inv, clock.NewFixed(now))
	}

	t.Run("small return reduces oldest record only", func(t *testing.T) {
		store := makeStore()
		svc := makeSvc(store)

		summary, err := svc.Return(context.Background(), ReturnInput{
			MemberID: "m-1",
			Items:    []domain.BorrowItem{{EquipmentID: "eq-guitar", Quantity: 1}},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if got := store.record("rec-001").Outstanding; got != 1 {
			t.Fatalf("expected oldest record outstanding 1, got %d", got)
		}
		if got := store.record("rec-002").Outstanding; got != 2 {
			t.Fatalf("expected newer record untouched, got %d", got)
		}
		if store.record("rec-001").Status != domain.RecordStatusOpen {
			t.Fatalf("expected oldest record still open")
		}
		if got := store.equipment["eq-guitar"].Available; got != 2 {
			t.Fatalf("expected available 2, got %d", got)
		}

		if len(summary.Lines) != 1 || len(summary.Lines[0].Applications) != 1 {
			t.Fatalf("unexpected summary: %+v", summary)
		}
		app := summary.Lines[0].Applications[0]
		if app.RecordID != "rec-001" || app.Applied != 1 || app.Closed {
			t.Fatalf("unexpected application: %+v", app)
		}
	})

	t.Run("return splits across records and closes exhausted ones", func(t *testing.T) {
		store := makeStore()
		svc := makeSvc(store)

		summary, err := svc.Return(context.Background(), ReturnInput{
			MemberID: "m-1",
			Items:    []domain.BorrowItem{{EquipmentID: "eq-guitar", Quantity: 3}},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		first := store.record("rec-001")
		if first.Outstanding != 0 || first.Status != domain.RecordStatusClosed {
			t.Fatalf("expected oldest record closed, got %+v", first)
		}
		if first.ReturnedAt == nil || !first.ReturnedAt.Equal(now) {
			t.Fatalf("expected returned_at %v, got %v", now, first.ReturnedAt)
		}
		second := store.record("rec-002")
		if second.Outstanding != 1 || second.Status != domain.RecordStatusOpen {
			t.Fatalf("expected newer record partially returned, got %+v", second)
		}
		if got := store.equipment["eq-guitar"].Available; got != 4 {
			t.Fatalf("expected available 4, got %d", got)
		}

		apps := summary.Lines[0].Applications
		if len(apps) != 2 || apps[0].Applied != 2 || !apps[0].Closed || apps[1].Applied != 1 || apps[1].Closed {
			t.Fatalf("unexpected applications: %+v", apps)
		}
	})

	t.Run("record id breaks timestamp ties", func(t *testing.T) {
		store := newFakeStore()
		store.addMember("m-1")
		store.addEquipment(domain.Equipment{ID: "eq-guitar", Category: "Guitar", Model: "Strat", Total: 4, Available: 2})
		store.addRecord(domain.BorrowRecord{
			ID: "rec-b", MemberID: "m-1", EquipmentID: "eq-guitar",
			Borrowed: 1, Outstanding: 1, Status: domain.RecordStatusOpen, BorrowedAt: t1,
		})
		store.addRecord(domain.BorrowRecord{
			ID: "rec-a", MemberID: "m-1", EquipmentID: "eq-guitar",
			Borrowed: 1, Outstanding: 1, Status: domain.RecordStatusOpen, BorrowedAt: t1,
		})
		svc := makeSvc(store)

		_, err := svc.Return(context.Background(), ReturnInput{
			MemberID: "m-1",
			Items:    []domain.BorrowItem{{EquipmentID: "eq-guitar", Quantity: 1}},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if store.record("rec-a").Status != domain.RecordStatusClosed {
			t.Fatalf("expected rec-a (lower id) closed first")
		}
		if store.record("rec-b").Status != domain.RecordStatusOpen {
			t.Fatalf("expected rec-b untouched")
		}
	})

	t.Run("two partial returns equal one full return", func(t *testing.T) {
		oneShot := makeStore()
		twoShot := makeStore()
		ctx := context.Background()

		if _, err := makeSvc(oneShot).Return(ctx, ReturnInput{
			MemberID: "m-1",
			Items:    []domain.BorrowItem{{EquipmentID: "eq-guitar", Quantity: 4}},
		}); err != nil {
			t.Fatalf("full return: %v", err)
		}

		svc := makeSvc(twoShot)
		if _, err := svc.Return(ctx, ReturnInput{
			MemberID: "m-1",
			Items:    []domain.BorrowItem{{EquipmentID: "eq-guitar", Quantity: 1}},
		}); err != nil {
			t.Fatalf("first partial return: %v", err)
		}
		if _, err := svc.Return(ctx, ReturnInput{
			MemberID: "m-1",
			Items:    []domain.BorrowItem{{EquipmentID: "eq-guitar", Quantity: 3}},
		}); err != nil {
			t.Fatalf("second partial return: %v", err)
		}

		for _, id := range []string{"rec-001", "rec-002"} {
			a, b := oneShot.record(id), twoShot.record(id)
			if a.Outstanding != b.Outstanding || a.Status != b.Status {
				t.Fatalf("diverged state for %s: %+v vs %+v", id, a, b)
			}
		}
		if oneShot.equipment["eq-guitar"].Available != twoShot.equipment["eq-guitar"].Available {
			t.Fatalf("diverged available: %d vs %d",
				oneShot.equipment["eq-guitar"].Available, twoShot.equipment["eq-guitar"].Available)
		}
	})

	t.Run("over-return rejected with excess detail", func(t *testing.T) {
		store := makeStore()
		svc := makeSvc(store)

		_, err := svc.Return(context.Background(), ReturnInput{
			MemberID: "m-1",
			Items:    []domain.BorrowItem{{EquipmentID: "eq-guitar", Quantity: 5}},
		})
		if !errors.Is(err, domain.ErrOverReturn) {
			t.Fatalf("expected ErrOverReturn, got %v", err)
		}

		var detail *domain.OverReturnError
		if !errors.As(err, &detail) {
			t.Fatalf("expected OverReturnError detail, got %v", err)
		}
		if detail.EquipmentID != "eq-guitar" || detail.Excess() != 1 {
			t.Fatalf("unexpected detail: %+v", detail)
		}

		if got := store.record("rec-001").Outstanding; got != 2 {
			t.Fatalf("expected records untouched, got outstanding %d", got)
		}
		if got := store.equipment["eq-guitar"].Available; got != 1 {
			t.Fatalf("expected available untouched, got %d", got)
		}
	})

	t.Run("return with nothing outstanding is a full over-return", func(t *testing.T) {
		store := makeStore()
		store.addMember("m-2")
		svc := makeSvc(store)

		_, err := svc.Return(context.Background(), ReturnInput{
			MemberID: "m-2",
			Items:    []domain.BorrowItem{{EquipmentID: "eq-guitar", Quantity: 2}},
		})
		var detail *domain.OverReturnError
		if !errors.As(err, &detail) {
			t.Fatalf("expected OverReturnError, got %v", err)
		}
		if detail.Outstanding != 0 || detail.Excess() != 2 {
			t.Fatalf("expected full excess, got %+v", detail)
		}
	})

	t.Run("over-return on one line aborts the whole batch", func(t *testing.T) {
		store := makeStore()
		store.addEquipment(domain.Equipment{ID: "eq-amp", Category: "Amp", Model: "JC-40", Total: 2, Available: 1})
		store.addRecord(domain.BorrowRecord{
			ID: "rec-003", MemberID: "m-1", EquipmentID: "eq-amp",
			Borrowed: 1, Outstanding: 1, Status: domain.RecordStatusOpen, BorrowedAt: t1,
		})
		svc := makeSvc(store)

		_, err := svc.Return(context.Background(), ReturnInput{
			MemberID: "m-1",
			Items: []domain.BorrowItem{
				{EquipmentID: "eq-amp", Quantity: 1},
				{EquipmentID: "eq-guitar", Quantity: 9},
			},
		})
		if !errors.Is(err, domain.ErrOverReturn) {
			t.Fatalf("expected ErrOverReturn, got %v", err)
		}

		if got := store.record("rec-003").Outstanding; got != 1 {
			t.Fatalf("expected amp record untouched, got outstanding %d", got)
		}
		if got := store.equipment["eq-amp"].Available; got != 1 {
			t.Fatalf("expected amp stock untouched, got %d", got)
		}
	})

	t.Run("closed records never reopen or shrink further", func(t *testing.T) {
		store := makeStore()
		svc := makeSvc(store)
		ctx := context.Background()

		if _, err := svc.Return(ctx, ReturnInput{
			MemberID: "m-1",
			Items:    []domain.BorrowItem{{EquipmentID: "eq-guitar", Quantity: 4}},
		}); err != nil {
			t.Fatalf("full return: %v", err)
		}

		_, err := svc.Return(ctx, ReturnInput{
			MemberID: "m-1",
			Items:    []domain.BorrowItem{{EquipmentID: "eq-guitar", Quantity: 1}},
		})
		if !errors.Is(err, domain.ErrOverReturn) {
			t.Fatalf("expected ErrOverReturn after everything returned, got %v", err)
		}
	})

	t.Run("unknown member and equipment", func(t *testing.T) {
		store := makeStore()
		svc := makeSvc(store)
		ctx := context.Background()

		_, err := svc.Return(ctx, ReturnInput{
			MemberID: "m-ghost",
			Items:    []domain.BorrowItem{{EquipmentID: "eq-guitar", Quantity: 1}},
		})
		if !errors.Is(err, domain.ErrUnknownMember) {
			t.Fatalf("expected ErrUnknownMember, got %v", err)
		}

		_, err = svc.Return(ctx, ReturnInput{
			MemberID: "m-1",
			Items:    []domain.BorrowItem{{EquipmentID: "eq-missing", Quantity: 1}},
		})
		if !errors.Is(err, domain.ErrUnknownEquipment) {
			t.Fatalf("expected ErrUnknownEquipment, got %v", err)
		}
	})

	t.Run("borrow then partial returns walk the example", func(t *testing.T) {
		// total=3, available=3; borrow 2, return 1, return 1.
		store := newFakeStore()
		store.addMember("m-1")
		store.addEquipment(domain.Equipment{ID: "eq-e", Category: "Guitar", Model: "LP", Total: 3, Available: 3})
		inv := NewInvariantService(store, discardLogger())
		alloc := NewAllocationService(store, inv, clock.NewFixed(t1), &seqIDGen{})
		recon := NewReconciliationService(store, inv, clock.NewFixed(now))
		ctx := context.Background()

		ids, err := alloc.Borrow(ctx, BorrowInput{
			MemberID: "m-1",
			Items:    []domain.BorrowItem{{EquipmentID: "eq-e", Quantity: 2}},
		})
		if err != nil {
			t.Fatalf("borrow: %v", err)
		}
		if got := store.equipment["eq-e"].Available; got != 1 {
			t.Fatalf("expected available 1, got %d", got)
		}

		if _, err := recon.Return(ctx, ReturnInput{
			MemberID: "m-1",
			Items:    []domain.BorrowItem{{EquipmentID: "eq-e", Quantity: 1}},
		}); err != nil {
			t.Fatalf("first return: %v", err)
		}
		rec := store.record(ids[0])
		if store.equipment["eq-e"].Available != 2 || rec.Outstanding != 1 || rec.Status != domain.RecordStatusOpen {
			t.Fatalf("unexpected state after first return: available=%d rec=%+v",
				store.equipment["eq-e"].Available, rec)
		}

		if _, err := recon.Return(ctx, ReturnInput{
			MemberID: "m-1",
			Items:    []domain.BorrowItem{{EquipmentID: "eq-e", Quantity: 1}},
		}); err != nil {
			t.Fatalf("second return: %v", err)
		}
		if store.equipment["eq-e"].Available != 3 || rec.Outstanding != 0 || rec.Status != domain.RecordStatusClosed {
			t.Fatalf("unexpected final state: available=%d rec=%+v",
				store.equipment["eq-e"].Available, rec)
		}

		ok, err := inv.Check(ctx, "eq-e")
		if err != nil || !ok {
			t.Fatalf("invariant broken at end: ok=%v err=%v", ok, err)
		}
	})
}
