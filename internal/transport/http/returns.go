package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/clubware/gearledger/internal/app"
	"github.com/clubware/gearledger/internal/domain"
)

// ReturnService is the minimal interface needed to reconcile a return.
type ReturnService interface {
	Return(ctx context.Context, in app.ReturnInput) (app.ReturnSummary, error)
}

// HandleCreateReturn returns an HTTP handler for multi-line return requests.
func HandleCreateReturn(svc ReturnService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createReturnRequest
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

		items := make([]domain.BorrowItem, 0, len(req.Items))
		for _, it := range req.Items {
			items = append(items, domain.BorrowItem{
				EquipmentID: it.EquipmentID,
				Quantity:    it.Quantity,
			})
		}

		summary, err := svc.Return(r.Context(), app.ReturnInput{
			MemberID: req.MemberID,
			Items:    items,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := returnResponse{
			ReturnedAt: summary.ReturnedAt,
			Lines:      make([]returnLineResponse, 0, len(summary.Lines)),
		}
		for _, line := range summary.Lines {
			lr := returnLineResponse{
				EquipmentID:  line.EquipmentID,
				Returned:     line.Returned,
				Applications: make([]returnApplicationResponse, 0, len(line.Applications)),
			}
			for _, ap := range line.Applications {
				lr.Applications = append(lr.Applications, returnApplicationResponse{
					RecordID: ap.RecordID,
					Applied:  ap.Applied,
					Closed:   ap.Closed,
				})
			}
			resp.Lines = append(resp.Lines, lr)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

type createReturnRequest struct {
	MemberID string              `json:"member_id" validate:"required"`
	Items    []borrowItemRequest `json:"items" validate:"omitempty,dive"`
}

type returnApplicationResponse struct {
	RecordID string `json:"record_id"`
	Applied  int    `json:"applied"`
	Closed   bool   `json:"closed"`
}

type returnLineResponse struct {
	EquipmentID  string                      `json:"equipment_id"`
	Returned     int                         `json:"returned"`
	Applications []returnApplicationResponse `json:"applications"`
}

type returnResponse struct {
	Lines      []returnLineResponse `json:"lines"`
	ReturnedAt time.Time            `json:"returned_at"`
}
