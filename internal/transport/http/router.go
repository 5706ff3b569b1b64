package http

import (
	"log/slog"
	"net/http"
)

// Services groups the engine surfaces the HTTP API exposes.
type Services struct {
	Borrow      BorrowService
	Return      ReturnService
	Outstanding OutstandingLister
	Equipment   EquipmentService
	Consistency ConsistencyChecker
}

// NewHandler wires the API routes with request logging and CORS.
func NewHandler(svcs Services, corsOrigins []string, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", HealthHandler)
	mux.Handle("/borrows", HandleCreateBorrow(svcs.Borrow))
	mux.Handle("/returns", HandleCreateReturn(svcs.Return))
	mux.Handle("/members/", HandleMemberOutstanding(svcs.Outstanding))
	mux.Handle("/equipment", HandleEquipmentCollection(svcs.Equipment))
	mux.Handle("/equipment/", HandleEquipmentItem(svcs.Equipment))
	mux.Handle("/consistency", HandleConsistency(svcs.Consistency))
	mux.Handle("/", NotFoundHandler())

	return RequestLogger(CORS(corsOrigins, mux), logger)
}
