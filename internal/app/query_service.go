package app

import (
	"context"

	"github.com/clubware/gearledger/internal/domain"
)

// QueryRepository is the read-only store surface of the outstanding-loans
// view. Reads happen on a consistent snapshot; no transaction is needed.
type QueryRepository interface {
	MemberExists(ctx context.Context, memberID string) (bool, error)
	// ListOutstanding returns the member's open records joined with their
	// equipment, ordered by borrowed_at then record ID ascending.
	ListOutstanding(ctx context.Context, memberID string) ([]domain.OutstandingLine, error)
}

// QueryService answers the outstanding-loans query used by reconciliation
// callers and reporting.
type QueryService struct {
	repo QueryRepository
}

func NewQueryService(repo QueryRepository) *QueryService {
	return &QueryService{repo: repo}
}

// Outstanding lists what the member still has out on loan, oldest first.
func (s *QueryService) Outstanding(ctx context.Context, memberID string) ([]domain.OutstandingLine, error) {
	if memberID == "" {
		return nil, domain.ErrInvalidID
	}

	ok, err := s.repo.MemberExists(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrUnknownMember
	}
	return s.repo.ListOutstanding(ctx, memberID)
}
