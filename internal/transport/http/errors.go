package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clubware/gearledger/internal/domain"
)

const (
	codeMethodNotAllowed      = "method_not_allowed"
	codeNotFound              = "not_found"
	codeInvalidRequestBody    = "invalid_request_body"
	codeInvalidID             = "invalid_id"
	codeInvalidQuantity       = "invalid_quantity"
	codeEmptyRequest          = "empty_request"
	codeDuplicateEquipment    = "duplicate_equipment_line"
	codeCategoryRequired      = "category_required"
	codeModelRequired         = "model_required"
	codeMemberNotFound        = "member_not_found"
	codeEquipmentNotFound     = "equipment_not_found"
	codeEquipmentExists       = "equipment_already_exists"
	codeEquipmentInUse        = "equipment_in_use"
	codeTotalBelowOutstanding = "total_below_outstanding"
	codeInsufficientStock     = "insufficient_stock"
	codeOverReturn            = "over_return"
	codeContention            = "contention"
	codeInvariantViolation    = "invariant_violation"
	codeForbidden             = "forbidden"
	codeInternalError         = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	// Detail carries quantities for stock and return rejections.
	Detail map[string]any `json:"detail,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorDetail(w, status, code, msg, nil)
}

func writeErrorDetail(w http.ResponseWriter, status int, code, msg string, detail map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error:  msg,
		Code:   code,
		Detail: detail,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps engine errors onto HTTP statuses. Ledger conflicts
// answer 409, contention answers 503 so clients retry, and an invariant
// violation is a server fault.
func writeDomainError(w http.ResponseWriter, err error) {
	var stockErr *domain.InsufficientStockError
	if errors.As(err, &stockErr) {
		writeErrorDetail(w, http.StatusConflict, codeInsufficientStock, stockErr.Error(), map[string]any{
			"equipment_id": stockErr.EquipmentID,
			"requested":    stockErr.Requested,
			"available":    stockErr.Available,
			"shortfall":    stockErr.Shortfall(),
		})
		return
	}
	var returnErr *domain.OverReturnError
	if errors.As(err, &returnErr) {
		writeErrorDetail(w, http.StatusConflict, codeOverReturn, returnErr.Error(), map[string]any{
			"equipment_id": returnErr.EquipmentID,
			"requested":    returnErr.Requested,
			"outstanding":  returnErr.Outstanding,
			"excess":       returnErr.Excess(),
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
	case errors.Is(err, domain.ErrEmptyRequest):
		writeError(w, http.StatusBadRequest, codeEmptyRequest, err.Error())
	case errors.Is(err, domain.ErrDuplicateEquipment):
		writeError(w, http.StatusBadRequest, codeDuplicateEquipment, err.Error())
	case errors.Is(err, domain.ErrCategoryRequired):
		writeError(w, http.StatusBadRequest, codeCategoryRequired, err.Error())
	case errors.Is(err, domain.ErrModelRequired):
		writeError(w, http.StatusBadRequest, codeModelRequired, err.Error())
	case errors.Is(err, domain.ErrUnknownMember):
		writeError(w, http.StatusNotFound, codeMemberNotFound, err.Error())
	case errors.Is(err, domain.ErrUnknownEquipment):
		writeError(w, http.StatusNotFound, codeEquipmentNotFound, err.Error())
	case errors.Is(err, domain.ErrEquipmentExists):
		writeError(w, http.StatusConflict, codeEquipmentExists, err.Error())
	case errors.Is(err, domain.ErrEquipmentInUse):
		writeError(w, http.StatusConflict, codeEquipmentInUse, err.Error())
	case errors.Is(err, domain.ErrTotalBelowOutstanding):
		writeError(w, http.StatusConflict, codeTotalBelowOutstanding, err.Error())
	case errors.Is(err, domain.ErrContention):
		writeError(w, http.StatusServiceUnavailable, codeContention, "conflicting update, retry the request")
	case errors.Is(err, domain.ErrInvariantViolation):
		writeError(w, http.StatusInternalServerError, codeInvariantViolation, "stock accounting is inconsistent")
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
