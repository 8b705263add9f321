package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"studentrank/internal/model"
	"studentrank/internal/ranking"
	"studentrank/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// writeError maps service errors to status codes. Client errors carry the
// error text; server errors are logged and answered generically. emptyMsg
// replaces the text of an empty-store error.
func writeError(w http.ResponseWriter, err error, emptyMsg string) {
	switch {
	case errors.Is(err, model.ErrMissingField), errors.Is(err, model.ErrInvalidMark), errors.Is(err, service.ErrInvalidQuery):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, model.ErrDuplicateID):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ranking.ErrEmptyStore):
		if emptyMsg == "" {
			emptyMsg = err.Error()
		}
		http.Error(w, emptyMsg, http.StatusNotFound)
	default:
		slog.Error("request failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
