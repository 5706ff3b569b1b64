package http

import (
	"encoding/json"
	stdhttp "net/http"
)

// HealthHandler reports liveness along with the service name, so probes
// pointed at the wrong port fail loudly.
func HealthHandler(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(stdhttp.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "gearledger",
	})
}
