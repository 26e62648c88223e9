package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/habibmedhh/EcommerceLinguistic-sub001/pkg/ordersapi"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "err", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message, details string) {
	respondJSON(w, status, ordersapi.ErrorResponse{Error: message, Code: code, Details: details})
}
