package domain

import (
	"errors"
	"fmt"
)

// Business-rule errors: expected failures reported back to the caller.
var (
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrOverReturn            = errors.New("return exceeds outstanding quantity")
	ErrInvalidQuantity       = errors.New("invalid quantity")
	ErrEmptyRequest          = errors.New("request has no items")
	ErrDuplicateEquipment    = errors.New("duplicate equipment in request")
	ErrUnknownEquipment      = errors.New("unknown equipment")
	ErrUnknownMember         = errors.New("unknown member")
	ErrEquipmentExists       = errors.New("equipment already exists")
	ErrEquipmentInUse        = errors.New("equipment has open borrow records")
	ErrTotalBelowOutstanding = errors.New("total below outstanding quantity")
	ErrCategoryRequired      = errors.New("category is required")
	ErrModelRequired         = errors.New("model is required")
	ErrInvalidID             = errors.New("invalid id")
)

// Infrastructure errors.
var (
	// ErrContention marks a retryable store-level conflict (lock timeout,
	// deadlock, serialization failure). Callers may retry the whole request.
	ErrContention = errors.New("transaction contention")

	// ErrInvariantViolation marks a broken stock/ledger accounting identity.
	// It indicates a defect in the engine, never a caller mistake.
	ErrInvariantViolation = errors.New("stock invariant violated")
)

// InsufficientStockError reports the failing equipment and the shortfall of a
// rejected borrow line. Matches ErrInsufficientStock under errors.Is.
type InsufficientStockError struct {
	EquipmentID string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for equipment %s: requested %d, available %d",
		e.EquipmentID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Shortfall is the number of units missing to satisfy the request.
func (e *InsufficientStockError) Shortfall() int {
	return e.Requested - e.Available
}

// OverReturnError reports the equipment and excess quantity of a rejected
// return line. A return against zero outstanding records carries the full
// requested quantity as excess. Matches ErrOverReturn under errors.Is.
type OverReturnError struct {
	EquipmentID string
	Requested   int
	Outstanding int
}

func (e *OverReturnError) Error() string {
	return fmt.Sprintf("over-return for equipment %s: requested %d, outstanding %d",
		e.EquipmentID, e.Requested, e.Outstanding)
}

func (e *OverReturnError) Is(target error) bool {
	return target == ErrOverReturn
}

// Excess is the returned quantity beyond what is outstanding.
func (e *OverReturnError) Excess() int {
	return e.Requested - e.Outstanding
}

// InvariantViolationError carries the full accounting state of the equipment
// that failed the consistency check. Matches ErrInvariantViolation under
// errors.Is.
type InvariantViolationError struct {
	EquipmentID string
	Total       int
	Available   int
	Outstanding int
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("stock invariant violated for equipment %s: total=%d available=%d outstanding=%d",
		e.EquipmentID, e.Total, e.Available, e.Outstanding)
}

func (e *InvariantViolationError) Is(target error) bool {
	return target == ErrInvariantViolation
}
