package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/clubware/gearledger/internal/domain"
)

// fakeStore is an in-memory stand-in for the Postgres repositories. WithTx
// snapshots state and restores it when the closure fails, so all-or-nothing
// behavior is observable in service tests.
type fakeStore struct {
	members   map[string]bool
	equipment map[string]*domain.Equipment
	records   []*domain.BorrowRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		members:   make(map[string]bool),
		equipment: make(map[string]*domain.Equipment),
	}
}

func (f *fakeStore) addMember(id string) {
	f.members[id] = true
}

func (f *fakeStore) addEquipment(eq domain.Equipment) {
	cp := eq
	f.equipment[eq.ID] = &cp
}

func (f *fakeStore) addRecord(rec domain.BorrowRecord) {
	cp := rec
	f.records = append(f.records, &cp)
}

func (f *fakeStore) record(id string) *domain.BorrowRecord {
	for _, rec := range f.records {
		if rec.ID == id {
			return rec
		}
	}
	return nil
}

func (f *fakeStore) snapshot() *fakeStore {
	snap := newFakeStore()
	for id := range f.members {
		snap.members[id] = true
	}
	for id, eq := range f.equipment {
		cp := *eq
		snap.equipment[id] = &cp
	}
	for _, rec := range f.records {
		cp := *rec
		snap.records = append(snap.records, &cp)
	}
	return snap
}

func (f *fakeStore) restore(snap *fakeStore) {
	f.members = snap.members
	f.equipment = snap.equipment
	f.records = snap.records
}

func (f *fakeStore) WithTx(_ context.Context, fn func(ctx context.Context) error) error {
	snap := f.snapshot()
	if err := fn(context.Background()); err != nil {
		f.restore(snap)
		return err
	}
	return nil
}

func (f *fakeStore) MemberExists(_ context.Context, memberID string) (bool, error) {
	return f.members[memberID], nil
}

func (f *fakeStore) GetEquipment(_ context.Context, equipmentID string) (domain.Equipment, error) {
	eq, ok := f.equipment[equipmentID]
	if !ok || eq.Deleted() {
		return domain.Equipment{}, domain.ErrUnknownEquipment
	}
	return *eq, nil
}

func (f *fakeStore) GetEquipmentForUpdate(ctx context.Context, equipmentID string) (domain.Equipment, error) {
	return f.GetEquipment(ctx, equipmentID)
}

func (f *fakeStore) AdjustAvailable(_ context.Context, equipmentID string, delta int) error {
	eq, ok := f.equipment[equipmentID]
	if !ok {
		return domain.ErrUnknownEquipment
	}
	next := eq.Available + delta
	if next < 0 || next > eq.Total {
		return fmt.Errorf("available_quantity out of range for %s: %d", equipmentID, next)
	}
	eq.Available = next
	return nil
}

func (f *fakeStore) InsertRecord(_ context.Context, rec domain.BorrowRecord) error {
	cp := rec
	f.records = append(f.records, &cp)
	return nil
}

func (f *fakeStore) ListOpenRecords(_ context.Context, memberID, equipmentID string) ([]domain.BorrowRecord, error) {
	var out []domain.BorrowRecord
	for _, rec := range f.records {
		if rec.MemberID == memberID && rec.EquipmentID == equipmentID && rec.Open() {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].BorrowedAt.Equal(out[j].BorrowedAt) {
			return out[i].BorrowedAt.Before(out[j].BorrowedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeStore) ApplyReturn(_ context.Context, recordID string, outstanding int, closed bool, returnedAt time.Time) error {
	rec := f.record(recordID)
	if rec == nil {
		return fmt.Errorf("record %s not found", recordID)
	}
	rec.Outstanding = outstanding
	if closed {
		rec.Status = domain.RecordStatusClosed
		at := returnedAt
		rec.ReturnedAt = &at
	}
	return nil
}

func (f *fakeStore) SumOutstanding(_ context.Context, equipmentID string) (int, error) {
	total := 0
	for _, rec := range f.records {
		if rec.EquipmentID == equipmentID && rec.Open() {
			total += rec.Outstanding
		}
	}
	return total, nil
}

func (f *fakeStore) ListEquipmentIDs(_ context.Context) ([]string, error) {
	var ids []string
	for id, eq := range f.equipment {
		if !eq.Deleted() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeStore) InsertEquipment(_ context.Context, eq domain.Equipment) error {
	for _, existing := range f.equipment {
		if !existing.Deleted() && existing.Category == eq.Category && existing.Model == eq.Model {
			return domain.ErrEquipmentExists
		}
	}
	cp := eq
	f.equipment[eq.ID] = &cp
	return nil
}

func (f *fakeStore) UpdateEquipmentStock(_ context.Context, equipmentID string, total, available int) error {
	eq, ok := f.equipment[equipmentID]
	if !ok {
		return domain.ErrUnknownEquipment
	}
	eq.Total = total
	eq.Available = available
	return nil
}

func (f *fakeStore) SoftDeleteEquipment(_ context.Context, equipmentID string, at time.Time) error {
	eq, ok := f.equipment[equipmentID]
	if !ok {
		return domain.ErrUnknownEquipment
	}
	t := at
	eq.DeletedAt = &t
	return nil
}

func (f *fakeStore) CountOpenRecords(_ context.Context, equipmentID string) (int, error) {
	count := 0
	for _, rec := range f.records {
		if rec.EquipmentID == equipmentID && rec.Open() {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) ListEquipment(_ context.Context) ([]domain.Equipment, error) {
	var out []domain.Equipment
	for _, eq := range f.equipment {
		if !eq.Deleted() {
			out = append(out, *eq)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Model < out[j].Model
	})
	return out, nil
}

func (f *fakeStore) ListOutstanding(ctx context.Context, memberID string) ([]domain.OutstandingLine, error) {
	var open []domain.BorrowRecord
	for _, rec := range f.records {
		if rec.MemberID == memberID && rec.Open() {
			open = append(open, *rec)
		}
	}
	sort.Slice(open, func(i, j int) bool {
		if !open[i].BorrowedAt.Equal(open[j].BorrowedAt) {
			return open[i].BorrowedAt.Before(open[j].BorrowedAt)
		}
		return open[i].ID < open[j].ID
	})

	var out []domain.OutstandingLine
	for _, rec := range open {
		eq := f.equipment[rec.EquipmentID]
		out = append(out, domain.OutstandingLine{
			RecordID:    rec.ID,
			EquipmentID: rec.EquipmentID,
			Category:    eq.Category,
			Model:       eq.Model,
			Borrowed:    rec.Borrowed,
			Outstanding: rec.Outstanding,
			BorrowedAt:  rec.BorrowedAt,
			DueAt:       rec.DueAt,
		})
	}
	return out, nil
}

// seqIDGen hands out deterministic, lexicographically ordered IDs.
type seqIDGen struct {
	n int
}

func (g *seqIDGen) NewID() string {
	g.n++
	return fmt.Sprintf("id-%03d", g.n)
}

func (g *seqIDGen) NewRecordID() (string, error) {
	g.n++
	return fmt.Sprintf("rec-%03d", g.n), nil
}
