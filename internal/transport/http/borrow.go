package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/clubware/gearledger/internal/app"
	"github.com/clubware/gearledger/internal/domain"
)

var validate = validator.New()

// BorrowService is the minimal interface needed to create a borrow.
type BorrowService interface {
	Borrow(ctx context.Context, in app.BorrowInput) ([]string, error)
}

// HandleCreateBorrow returns an HTTP handler for multi-line borrow requests.
func HandleCreateBorrow(svc BorrowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createBorrowRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, err.Error())
			return
		}

		var dueAt *time.Time
		if req.DueAt != "" {
			parsed, err := time.Parse(time.RFC3339, req.DueAt)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid due_at format")
				return
			}
			dueAt = &parsed
		}

		items := make([]domain.BorrowItem, 0, len(req.Items))
		for _, it := range req.Items {
			items = append(items, domain.BorrowItem{
				EquipmentID: it.EquipmentID,
				Quantity:    it.Quantity,
			})
		}

		recordIDs, err := svc.Borrow(r.Context(), app.BorrowInput{
			MemberID: req.MemberID,
			Items:    items,
			DueAt:    dueAt,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(createBorrowResponse{RecordIDs: recordIDs})
	}
}

type borrowItemRequest struct {
	EquipmentID string `json:"equipment_id" validate:"required"`
	Quantity    int    `json:"quantity"`
}

// Quantity and list emptiness are checked by the engine so their rejections
// keep their own error codes; the validator covers field presence only.
type createBorrowRequest struct {
	MemberID string              `json:"member_id" validate:"required"`
	Items    []borrowItemRequest `json:"items" validate:"omitempty,dive"`
	DueAt    string              `json:"due_at,omitempty"`
}

type createBorrowResponse struct {
	RecordIDs []string `json:"record_ids"`
}
