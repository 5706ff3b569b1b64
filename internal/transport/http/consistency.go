package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/clubware/gearledger/internal/app"
)

// ConsistencyChecker is the minimal interface for the stock diagnostics
// endpoint.
type ConsistencyChecker interface {
	CheckAll(ctx context.Context) ([]app.ConsistencyReport, error)
}

// HandleConsistency returns an HTTP handler for GET /consistency. It reports
// the accounting state of every equipment and answers 409 when any row is
// inconsistent, so monitors can alert on the status code alone.
func HandleConsistency(svc ConsistencyChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		reports, err := svc.CheckAll(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}

		consistent := true
		rows := make([]consistencyRowResponse, 0, len(reports))
		for _, rep := range reports {
			if !rep.Consistent {
				consistent = false
			}
			rows = append(rows, consistencyRowResponse{
				EquipmentID: rep.EquipmentID,
				Category:    rep.Category,
				Model:       rep.Model,
				Total:       rep.Total,
				Available:   rep.Available,
				Outstanding: rep.Outstanding,
				Consistent:  rep.Consistent,
			})
		}

		status := http.StatusOK
		if !consistent {
			status = http.StatusConflict
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(consistencyResponse{
			Consistent: consistent,
			Equipment:  rows,
		})
	}
}

type consistencyRowResponse struct {
	EquipmentID string `json:"equipment_id"`
	Category    string `json:"category"`
	Model       string `json:"model"`
	Total       int    `json:"total"`
	Available   int    `json:"available"`
	Outstanding int    `json:"outstanding"`
	Consistent  bool   `json:"consistent"`
}

type consistencyResponse struct {
	Consistent bool                     `json:"consistent"`
	Equipment  []consistencyRowResponse `json:"equipment"`
}
