package domain

import "time"

// Equipment is one rentable equipment type (quantity-tracked, not serialized
// per unit). Available must stay within [0, Total] at all times.
type Equipment struct {
	ID        string
	Category  string
	Model     string
	Total     int
	Available int
	DeletedAt *time.Time
}

// Deleted reports whether the equipment has been soft-deleted from the
// catalog. Deleted equipment is invisible to borrow and return operations.
func (e Equipment) Deleted() bool {
	return e.DeletedAt != nil
}

// Outstanding is the number of units currently out on loan, derived from the
// stock counters rather than the ledger.
func (e Equipment) Outstanding() int {
	return e.Total - e.Available
}
