package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"trendpulse/internal/domain/content"
	"trendpulse/internal/domain/trend"
	"trendpulse/internal/service/listening"
)

// PipelineRunner runs ingest passes and reports scrape statistics
type PipelineRunner interface {
	Ingest(ctx context.Context, platform content.Platform, payloads []map[string]interface{}) ([]content.Item, []trend.Signal, error)
	Scrape(ctx context.Context, platform content.Platform, query string) ([]content.Item, []trend.Signal, error)
	Stats() listening.Stats
}

// PipelineHandler handles ingest, raw-content and stats HTTP requests
type PipelineHandler struct {
	log      *zap.Logger
	pipeline PipelineRunner
	rawStore content.Store
}

// NewPipelineHandler creates a new pipeline handler
func NewPipelineHandler(log *zap.Logger, pipeline PipelineRunner, rawStore content.Store) *PipelineHandler {
	return &PipelineHandler{
		log:      log,
		pipeline: pipeline,
		rawStore: rawStore,
	}
}

type ingestRequest struct {
	Platform content.Platform         `json:"platform"`
	Records  []map[string]interface{} `json:"records"`
}

type pipelineResponse struct {
	Items   []content.Item `json:"items"`
	Signals []trend.Signal `json:"signals"`
}

// Ingest runs one pipeline pass over a posted batch of raw records
func (h *PipelineHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(h.log, w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.Platform == "" {
		respondWithError(h.log, w, http.StatusBadRequest, "Missing platform", nil)
		return
	}

	items, signals, err := h.pipeline.Ingest(r.Context(), req.Platform, req.Records)
	if err != nil {
		respondWithError(h.log, w, http.StatusInternalServerError, "Pipeline run failed", err)
		return
	}

	respondWithJSON(w, http.StatusOK, pipelineResponse{Items: items, Signals: signals})
}

type scrapeRequest struct {
	Platform content.Platform `json:"platform"`
	Query    string           `json:"query"`
}

// Scrape fetches a batch from a registered platform source and ingests it
func (h *PipelineHandler) Scrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(h.log, w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.Platform == "" {
		respondWithError(h.log, w, http.StatusBadRequest, "Missing platform", nil)
		return
	}

	items, signals, err := h.pipeline.Scrape(r.Context(), req.Platform, req.Query)
	if err != nil {
		respondWithError(h.log, w, http.StatusBadGateway, "Scrape failed", err)
		return
	}

	respondWithJSON(w, http.StatusOK, pipelineResponse{Items: items, Signals: signals})
}

// GetRaw returns the stored raw payload for a content id
func (h *PipelineHandler) GetRaw(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(h.log, w, http.StatusBadRequest, "Missing content ID", nil)
		return
	}

	payload, ok, err := h.rawStore.Get(id)
	if err != nil {
		respondWithError(h.log, w, http.StatusInternalServerError, "Failed to read raw content", err)
		return
	}
	if !ok {
		respondWithError(h.log, w, http.StatusNotFound, "Raw content not found", nil)
		return
	}

	respondWithJSON(w, http.StatusOK, payload)
}

// GetStats returns the pipeline's scrape counters
func (h *PipelineHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.pipeline.Stats())
}
