package domain

import "time"

type RecordStatus string

const (
	RecordStatusOpen   RecordStatus = "open"
	RecordStatusClosed RecordStatus = "closed"
)

// BorrowRecord is one ledger entry: a quantity of one equipment borrowed by
// one member in one request. Borrowed is fixed at creation; Outstanding only
// ever decreases, and the record flips to closed exactly once, when it
// reaches zero. Records are never deleted.
//
// Record IDs are monotonic ULIDs, so ordering by (BorrowedAt, ID) is a total
// order that matches creation order even for records sharing a timestamp.
type BorrowRecord struct {
	ID          string
	MemberID    string
	EquipmentID string
	Borrowed    int
	Outstanding int
	Status      RecordStatus
	BorrowedAt  time.Time
	DueAt       *time.Time
	ReturnedAt  *time.Time
}

// Open reports whether any quantity is still out on loan.
func (r BorrowRecord) Open() bool {
	return r.Status == RecordStatusOpen
}

// BorrowItem is one line of a borrow or return request.
type BorrowItem struct {
	EquipmentID string
	Quantity    int
}

// OutstandingLine is one row of a member's outstanding-loans view, oldest
// first.
type OutstandingLine struct {
	RecordID    string
	EquipmentID string
	Category    string
	Model       string
	Borrowed    int
	Outstanding int
	BorrowedAt  time.Time
	DueAt       *time.Time
}
