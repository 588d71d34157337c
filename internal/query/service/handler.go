package service

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fieldsearch/queryengine/internal/analytics"
	"github.com/fieldsearch/queryengine/internal/query/algorithm"
	"github.com/fieldsearch/queryengine/internal/query/parser"
	"github.com/fieldsearch/queryengine/internal/query/registry"
	"github.com/fieldsearch/queryengine/pkg/logger"
	"github.com/fieldsearch/queryengine/pkg/metrics"
	"github.com/fieldsearch/queryengine/pkg/tracing"
)

// Handler serves the query engine's HTTP surface: GET /api/v1/search and
// the cache introspection/invalidation endpoints.
type Handler struct {
	registry     *registry.Registry
	cache        *QueryCache
	collector    *analytics.Collector
	metrics      *metrics.Metrics
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

func NewHandler(reg *registry.Registry, cache *QueryCache, collector *analytics.Collector, m *metrics.Metrics, defaultLimit, maxResults int) *Handler {
	return &Handler{
		registry:     reg,
		cache:        cache,
		collector:    collector,
		metrics:      m,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "query-handler"),
	}
}

// Search handles GET /api/v1/search?index=...&q=...&params=<json>&limit=N&profile=0|1.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := tracing.StartSpan(r.Context(), "query.search", logger.RequestID(r.Context()))
	defer func() {
		span.End()
		span.Log()
	}()
	log := logger.FromContext(ctx)

	indexName := r.URL.Query().Get("index")
	if indexName == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'index' is required")
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	span.SetAttr("index", indexName)
	span.SetAttr("query", query)

	limit := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > h.maxResults {
			parsed = h.maxResults
		}
		limit = parsed
	}

	rawParams := make(map[string][]float64)
	if paramsStr := r.URL.Query().Get("params"); paramsStr != "" {
		if err := json.Unmarshal([]byte(paramsStr), &rawParams); err != nil {
			h.writeError(w, http.StatusBadRequest, "params must be a JSON object of vectors")
			return
		}
	}
	profiling := r.URL.Query().Get("profile") == "1"

	fi, err := h.registry.Get(indexName)
	if err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	var alg algorithm.SearchAlgorithm
	compute := func() (*algorithm.SearchResult, error) {
		if profiling {
			alg.EnableProfiling()
		}
		if !alg.Init(query, toParserParams(rawParams)) {
			return &algorithm.SearchResult{Error: "failed to parse query"}, nil
		}
		result := alg.Search(fi)
		return &result, nil
	}

	var result *algorithm.SearchResult
	cacheHit := false
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, indexName, query, rawParams, limit, compute)
	} else {
		result, err = compute()
	}
	if err != nil {
		log.Error("search execution failed", "index", indexName, "query", query, "error", err)
		h.writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	if h.metrics != nil && !cacheHit {
		if _, ok := alg.GetKnnScoreSortOption(); ok {
			h.metrics.KnnQueriesTotal.Inc()
		}
		if result.Profile != nil {
			h.metrics.ProfileEventsTotal.Add(float64(len(result.Profile.Events)))
		}
		h.metrics.FieldIndexDocs.WithLabelValues(indexName).Set(float64(len(fi.AllIDs())))
	}

	latencyMs := time.Since(start).Milliseconds()
	log.Info("search completed",
		"index", indexName,
		"query", query,
		"total_hits", result.Total,
		"cache_hit", cacheHit,
		"latency_ms", latencyMs,
	)
	if h.collector != nil {
		eventType := analytics.EventCacheMiss
		if cacheHit {
			eventType = analytics.EventCacheHit
		}
		h.collector.Track(analytics.SearchEvent{
			Type:      eventType,
			Query:     query,
			TotalHits: result.Total,
			Returned:  len(result.IDs),
			LatencyMs: latencyMs,
			CacheHit:  cacheHit,
			Timestamp: time.Now().UTC(),
			RequestID: logger.RequestID(ctx),
		})
	}

	h.writeJSON(w, http.StatusOK, result)
}

func toParserParams(raw map[string][]float64) parser.Params {
	out := make(parser.Params, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	return out
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
