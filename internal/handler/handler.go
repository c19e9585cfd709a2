package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/alex-user-go/bizfinder/internal/config"
	"github.com/alex-user-go/bizfinder/internal/export"
	"github.com/alex-user-go/bizfinder/internal/middleware"
	"github.com/alex-user-go/bizfinder/internal/obs"
	"github.com/alex-user-go/bizfinder/internal/providers"
	"github.com/alex-user-go/bizfinder/internal/search"
	"github.com/alex-user-go/bizfinder/internal/search/cache"
	"github.com/alex-user-go/bizfinder/internal/search/ratelimit"
	"github.com/alex-user-go/bizfinder/internal/search/types"
)

// Defaults applied when a search request omits a parameter.
const (
	defaultLocation  = "Italy"
	defaultCategory  = "restaurant"
	defaultRadiusKM  = 5
	defaultMinRating = 3.5
	defaultPageSize  = 50
)

// validSources are the accepted apiSource values.
var validSources = []string{"google", "yelp", "osm"}

// Handler handles HTTP requests.
type Handler struct {
	aggregator     *search.Aggregator
	cache          *cache.Cache
	rateLimiter    *ratelimit.Limiter
	store          *export.Store
	metrics        *obs.Metrics
	selectProvider func(source string) providers.Provider
	cfg            config.Config
	logger         *slog.Logger
}

// New creates a new Handler. selectProvider builds a fresh provider
// instance per request for the requested source, applying the
// free-provider fallback for unconfigured paid sources.
func New(
	aggregator *search.Aggregator,
	searchCache *cache.Cache,
	rateLimiter *ratelimit.Limiter,
	store *export.Store,
	metrics *obs.Metrics,
	selectProvider func(source string) providers.Provider,
	cfg config.Config,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		aggregator:     aggregator,
		cache:          searchCache,
		rateLimiter:    rateLimiter,
		store:          store,
		metrics:        metrics,
		selectProvider: selectProvider,
		cfg:            cfg,
		logger:         logger,
	}
}

// SearchResponse is the /api/businesses response body.
type SearchResponse struct {
	Results []types.Record `json:"results"`
	Meta    SearchMeta     `json:"meta"`
}

// SearchMeta describes the full (pre-pagination) result set.
type SearchMeta struct {
	Count      int          `json:"count"`
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
	TotalPages int          `json:"totalPages"`
	API        string       `json:"api"`
	Params     SearchParams `json:"params"`
}

// SearchParams holds validated search criteria.
type SearchParams struct {
	Location  string  `json:"location"`
	Category  string  `json:"category"`
	RadiusKM  int     `json:"radius"`
	MinRating float64 `json:"minRating"`
	Source    string  `json:"-"`
	Page      int     `json:"-"`
	PageSize  int     `json:"-"`
}

// SearchHandler handles GET /api/businesses.
func (h *Handler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	h.metrics.IncSearches()
	requestID := middleware.RequestID(r.Context())

	ip := ExtractIP(r)
	if !h.rateLimiter.Allow(ip) {
		h.logger.Warn("rate limit exceeded", "request_id", requestID, "ip", ip)
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	params, err := h.parseSearchParams(r)
	if err != nil {
		h.logger.Debug("invalid request parameters", "request_id", requestID, "error", err, "ip", ip)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Resolve the provider up front so the fallback source shares the
	// cache entry of the source it falls back to.
	provider := h.selectProvider(params.Source)

	key := h.cache.Key(provider.Name(), params.Location, params.Category, params.RadiusKM, params.MinRating)
	result, cacheHit, err := h.cache.GetOrFetch(r.Context(), key, func() (*types.Result, error) {
		return h.aggregator.Search(r.Context(), provider, params.Location, params.Category, params.RadiusKM, params.MinRating), nil
	})
	if err != nil {
		h.logger.Error("search failed",
			"request_id", requestID,
			"error", err,
			"location", params.Location,
			"category", params.Category,
		)
		writeError(w, http.StatusInternalServerError, "failed to search businesses")
		return
	}
	if cacheHit {
		h.metrics.IncCacheHits()
	}

	records := withIDs(result.Records)
	h.store.Set(records)

	totalPages := (len(records) + params.PageSize - 1) / params.PageSize
	if totalPages == 0 {
		totalPages = 1
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Results: paginate(records, params.Page, params.PageSize),
		Meta: SearchMeta{
			Count:      len(records),
			Page:       params.Page,
			PageSize:   params.PageSize,
			TotalPages: totalPages,
			API:        result.Provider,
			Params:     *params,
		},
	})
}

// parseSearchParams parses and validates query parameters, applying
// the documented defaults.
func (h *Handler) parseSearchParams(r *http.Request) (*SearchParams, error) {
	query := r.URL.Query()

	params := &SearchParams{
		Location:  defaultLocation,
		Category:  defaultCategory,
		RadiusKM:  defaultRadiusKM,
		MinRating: defaultMinRating,
		Source:    h.cfg.DefaultSource,
		Page:      1,
		PageSize:  defaultPageSize,
	}

	if v := strings.TrimSpace(query.Get("location")); v != "" {
		params.Location = v
	}
	if v := strings.TrimSpace(query.Get("category")); v != "" {
		params.Category = strings.ToLower(v)
	}
	if v := query.Get("radius"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("radius must be an integer")
		}
		params.RadiusKM = n
	}
	if v := query.Get("minRating"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("minRating must be a number")
		}
		params.MinRating = f
	}
	if v := query.Get("apiSource"); v != "" {
		params.Source = strings.ToLower(v)
	}
	if v := query.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("page must be a positive integer")
		}
		params.Page = n
	}
	if v := query.Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("pageSize must be a positive integer")
		}
		params.PageSize = n
	}

	if err := search.ValidateParams(params.Location, params.Category, params.RadiusKM, params.MinRating); err != nil {
		return nil, err
	}
	if !slices.Contains(validSources, params.Source) {
		return nil, fmt.Errorf("apiSource must be one of: %s", strings.Join(validSources, ", "))
	}

	return params, nil
}

// withIDs copies the records and assigns each a fresh ID for frontend
// reference. The cached collection keeps no IDs, so repeated searches
// hand out new ones.
func withIDs(records []types.Record) []types.Record {
	out := make([]types.Record, len(records))
	for i, r := range records {
		r.ID = uuid.New().String()
		out[i] = r
	}
	return out
}

func paginate(records []types.Record, page, pageSize int) []types.Record {
	start := (page - 1) * pageSize
	if start >= len(records) {
		return []types.Record{}
	}
	end := start + pageSize
	if end > len(records) {
		end = len(records)
	}
	return records[start:end]
}

// ExtractIP extracts the client IP from the request, preferring proxy
// headers over RemoteAddr.
func ExtractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
