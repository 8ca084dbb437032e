package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"trendpulse/internal/domain/trend"
)

// SignalFinder reads persisted signal history
type SignalFinder interface {
	FindSignals(ctx context.Context, filter trend.Filter) ([]trend.Signal, error)
	GetSignal(ctx context.Context, name string) (*trend.Signal, error)
}

// SignalHandler handles signal-history HTTP requests
type SignalHandler struct {
	log   *zap.Logger
	store SignalFinder
}

// NewSignalHandler creates a new signal handler
func NewSignalHandler(log *zap.Logger, store SignalFinder) *SignalHandler {
	return &SignalHandler{
		log:   log,
		store: store,
	}
}

// GetSignals returns recent persisted signals, newest first
func (h *SignalHandler) GetSignals(w http.ResponseWriter, r *http.Request) {
	filter := trend.Filter{}

	if minGrowth := r.URL.Query().Get("min_growth"); minGrowth != "" {
		value, err := strconv.ParseFloat(minGrowth, 64)
		if err != nil {
			respondWithError(h.log, w, http.StatusBadRequest, "Invalid min_growth", err)
			return
		}
		filter.MinGrowthRate = value
	}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		value, err := strconv.Atoi(limit)
		if err != nil {
			respondWithError(h.log, w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		filter.Limit = value
	}

	if window := r.URL.Query().Get("window"); window != "" {
		value, err := time.ParseDuration(window)
		if err != nil {
			respondWithError(h.log, w, http.StatusBadRequest, "Invalid window", err)
			return
		}
		filter.Since = time.Now().UTC().Add(-value)
	}

	signals, err := h.store.FindSignals(r.Context(), filter)
	if err != nil {
		respondWithError(h.log, w, http.StatusInternalServerError, "Failed to get signals", err)
		return
	}

	respondWithJSON(w, http.StatusOK, signals)
}

// GetSignal returns the most recent signal for a tag
func (h *SignalHandler) GetSignal(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		respondWithError(h.log, w, http.StatusBadRequest, "Missing tag name", nil)
		return
	}

	sig, err := h.store.GetSignal(r.Context(), name)
	if err != nil {
		respondWithError(h.log, w, http.StatusInternalServerError, "Failed to get signal", err)
		return
	}
	if sig == nil {
		respondWithError(h.log, w, http.StatusNotFound, "Signal not found", nil)
		return
	}

	respondWithJSON(w, http.StatusOK, sig)
}

// Helper for JSON responses
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Helper for error responses
func respondWithError(log *zap.Logger, w http.ResponseWriter, code int, message string, err error) {
	if err != nil {
		log.Warn("request failed",
			zap.Int("status", code),
			zap.String("message", message),
			zap.Error(err),
		)
	}

	response := map[string]string{"error": message}

	jsonResponse, _ := json.Marshal(response)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(jsonResponse)
}
