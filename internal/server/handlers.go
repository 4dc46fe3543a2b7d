package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/trueinf/geosight-new-sub000/internal/analyze"
	"github.com/trueinf/geosight-new-sub000/internal/model"
	"github.com/trueinf/geosight-new-sub000/internal/parse"
	"github.com/trueinf/geosight-new-sub000/internal/pipeline"
	"github.com/trueinf/geosight-new-sub000/internal/resilience"
	"github.com/trueinf/geosight-new-sub000/internal/store"
)

type healthResponse struct {
	Status    string                              `json:"status"`
	Providers []model.Provider                    `json:"providers"`
	Circuits  map[string]resilience.CircuitStatus `json:"circuits"`
	Cache     pipeline.CacheStats                 `json:"cache"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Providers: s.fetcher.Providers(),
		Circuits:  s.fetcher.Breakers().Statuses(),
		Cache:     s.fetcher.Cache().Stats(),
	})
}

// searchResponse flattens the fetch result next to the snapshot id and the
// target analysis.
type searchResponse struct {
	SnapshotID string `json:"snapshotId,omitempty"`
	*model.FetchResult
	TargetAnalysis *model.TargetAnalysis `json:"targetAnalysis,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var q pipeline.Query
	if err := decodeBody(r, &q); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := s.fetcher.Search(r.Context(), q)
	if err != nil {
		var verr *pipeline.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		zap.L().Error("server: search failed", zap.String("query", q.Text), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	if s.store != nil {
		if err := s.store.SaveSnapshot(r.Context(), snap); err != nil {
			zap.L().Warn("server: save snapshot failed", zap.String("query", snap.Query), zap.Error(err))
			snap.ID = ""
		}
	}

	writeJSON(w, http.StatusOK, searchResponse{
		SnapshotID:     snap.ID,
		FetchResult:    snap.Result,
		TargetAnalysis: snap.Analysis,
	})
}

type analyzeRequest struct {
	ProviderItems map[model.Provider][]model.ParsedResultItem `json:"providerItems"`
	Target        string                                      `json:"target"`
	Query         string                                      `json:"query"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Target) == "" {
		writeError(w, http.StatusBadRequest, "target is required")
		return
	}
	for p := range req.ProviderItems {
		if !p.Valid() {
			writeError(w, http.StatusBadRequest, "unknown provider "+strconv.Quote(string(p)))
			return
		}
	}

	writeJSON(w, http.StatusOK, analyze.Analyze(req.ProviderItems, req.Target, req.Query))
}

type parseRequest struct {
	Text            string                  `json:"text"`
	RankingAnalysis []model.RankingAnalysis `json:"rankingAnalysis,omitempty"`
	Mode            model.Mode              `json:"mode"`
	Target          string                  `json:"target"`
}

type parseResponse struct {
	Items      []model.ParsedResultItem `json:"items"`
	Structured parse.Structured         `json:"structured"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	mode, ok := model.ParseMode(string(req.Mode))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown mode "+strconv.Quote(string(req.Mode)))
		return
	}

	structured := parse.ExtractStructured(req.Text)
	analyses := req.RankingAnalysis
	if analyses == nil {
		analyses = structured.RankingAnalysis
	}

	writeJSON(w, http.StatusOK, parseResponse{
		Items:      parse.Parse(req.Text, analyses, parse.Options{Mode: mode, Target: req.Target}),
		Structured: structured,
	})
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "snapshot store not configured")
		return
	}

	filter := store.SnapshotFilter{Target: r.URL.Query().Get("target")}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, name+" must be a non-negative integer")
			return
		}
		*dst = n
	}

	snaps, err := s.store.ListSnapshots(r.Context(), filter)
	if err != nil {
		zap.L().Error("server: list snapshots failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list snapshots failed")
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "snapshot store not configured")
		return
	}

	id := chi.URLParam(r, "id")
	snap, err := s.store.GetSnapshot(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "snapshot not found")
		return
	}
	if err != nil {
		zap.L().Error("server: get snapshot failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get snapshot failed")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleInvalidateCache(w http.ResponseWriter, r *http.Request) {
	s.fetcher.Cache().InvalidateOnReload()
	zap.L().Info("server: result cache invalidated")
	writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}
