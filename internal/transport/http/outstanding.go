package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/clubware/gearledger/internal/domain"
)

// OutstandingLister is the minimal interface for the outstanding-loans query.
type OutstandingLister interface {
	Outstanding(ctx context.Context, memberID string) ([]domain.OutstandingLine, error)
}

// HandleMemberOutstanding returns an HTTP handler for
// GET /members/{id}/outstanding.
func HandleMemberOutstanding(svc OutstandingLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		memberID, ok := parseMemberOutstandingPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		lines, err := svc.Outstanding(r.Context(), memberID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]outstandingLineResponse, 0, len(lines))
		for _, l := range lines {
			resp = append(resp, outstandingLineResponse{
				RecordID:    l.RecordID,
				EquipmentID: l.EquipmentID,
				Category:    l.Category,
				Model:       l.Model,
				Borrowed:    l.Borrowed,
				Outstanding: l.Outstanding,
				BorrowedAt:  l.BorrowedAt,
				DueAt:       l.DueAt,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func parseMemberOutstandingPath(path string) (string, bool) {
	rest, ok := strings.CutPrefix(path, "/members/")
	if !ok {
		return "", false
	}
	memberID, ok := strings.CutSuffix(rest, "/outstanding")
	if !ok || memberID == "" || strings.Contains(memberID, "/") {
		return "", false
	}
	return memberID, true
}

type outstandingLineResponse struct {
	RecordID    string     `json:"record_id"`
	EquipmentID string     `json:"equipment_id"`
	Category    string     `json:"category"`
	Model       string     `json:"model"`
	Borrowed    int        `json:"borrowed"`
	Outstanding int        `json:"outstanding"`
	BorrowedAt  time.Time  `json:"borrowed_at"`
	DueAt       *time.Time `json:"due_at,omitempty"`
}
