package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/clubware/gearledger/internal/app"
	"github.com/clubware/gearledger/internal/domain"
)

// EquipmentService is the minimal interface needed for catalog endpoints.
type EquipmentService interface {
	CreateEquipment(ctx context.Context, in app.CreateEquipmentInput) (domain.Equipment, error)
	UpdateEquipmentTotal(ctx context.Context, in app.UpdateEquipmentInput) (domain.Equipment, error)
	DeleteEquipment(ctx context.Context, equipmentID string) error
	GetEquipment(ctx context.Context, equipmentID string) (domain.Equipment, error)
	ListEquipment(ctx context.Context) ([]domain.Equipment, error)
}

// HandleEquipmentCollection returns an HTTP handler for listing and creating
// equipment under /equipment.
func HandleEquipmentCollection(svc EquipmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			list, err := svc.ListEquipment(r.Context())
			if err != nil {
				writeDomainError(w, err)
				return
			}
			resp := make([]equipmentResponse, 0, len(list))
			for _, eq := range list {
				resp = append(resp, newEquipmentResponse(eq))
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
		case http.MethodPost:
			var req createEquipmentRequest
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

			eq, err := svc.CreateEquipment(r.Context(), app.CreateEquipmentInput{
				Category: req.Category,
				Model:    req.Model,
				Total:    req.Total,
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(newEquipmentResponse(eq))
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleEquipmentItem returns an HTTP handler for reading, restocking and
// retiring one equipment under /equipment/{id}.
func HandleEquipmentItem(svc EquipmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		equipmentID, ok := parseEquipmentItemPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch r.Method {
		case http.MethodGet:
			eq, err := svc.GetEquipment(r.Context(), equipmentID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(newEquipmentResponse(eq))
		case http.MethodPut:
			var req updateEquipmentRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			eq, err := svc.UpdateEquipmentTotal(r.Context(), app.UpdateEquipmentInput{
				EquipmentID: equipmentID,
				Total:       req.Total,
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(newEquipmentResponse(eq))
		case http.MethodDelete:
			if err := svc.DeleteEquipment(r.Context(), equipmentID); err != nil {
				writeDomainError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

func parseEquipmentItemPath(path string) (string, bool) {
	id, ok := strings.CutPrefix(path, "/equipment/")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

type createEquipmentRequest struct {
	Category string `json:"category" validate:"required"`
	Model    string `json:"model" validate:"required"`
	Total    int    `json:"total" validate:"gte=0"`
}

type updateEquipmentRequest struct {
	Total int `json:"total"`
}

type equipmentResponse struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	Model       string `json:"model"`
	Total       int    `json:"total"`
	Available   int    `json:"available"`
	Outstanding int    `json:"outstanding"`
}

func newEquipmentResponse(eq domain.Equipment) equipmentResponse {
	return equipmentResponse{
		ID:          eq.ID,
		Category:    eq.Category,
		Model:       eq.Model,
		Total:       eq.Total,
		Available:   eq.Available,
		Outstanding: eq.Outstanding(),
	}
}
