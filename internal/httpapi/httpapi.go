package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"eatdecider/backend/internal/domain"
	"eatdecider/backend/internal/logging"
	"eatdecider/backend/internal/service"
	"eatdecider/backend/internal/store"
	"eatdecider/backend/internal/validation"
)

const maxBodyBytes = 1 << 20

type Options struct {
	AllowedOrigin  string
	RequestsPerMin int
}

type API struct {
	service *service.Service
	opts    Options
}

func New(svc *service.Service, opts Options) *API {
	if opts.AllowedOrigin == "" {
		opts.AllowedOrigin = "*"
	}
	return &API{service: svc, opts: opts}
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: strings.Split(a.opts.AllowedOrigin, ","),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))
	if a.opts.RequestsPerMin > 0 {
		r.Use(httprate.LimitByIP(a.opts.RequestsPerMin, time.Minute))
	}
	r.Use(limitBody)
	r.Use(instrument)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, errors.New("not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	})

	r.Get("/healthz", a.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/menu", a.handleMenu)
		r.Get("/recommend", a.handleRecommendQuery)
		r.Post("/recommend", a.handleRecommend)
		r.Post("/feedback", a.handleFeedback)
		r.Get("/feedback", a.handleFeedbackEvents)
		r.Get("/history", a.handleHistory)
		r.Post("/imports/share", a.handleShareImport)
	})

	return r
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleMenu(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.service.Menu(r.Context()))
}

func (a *API) handleRecommend(w http.ResponseWriter, r *http.Request) {
	req := domain.RecommendationRequest{UserPreferences: domain.DefaultPreferences()}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a.recommend(w, r, req)
}

func (a *API) handleRecommendQuery(w http.ResponseWriter, r *http.Request) {
	req, err := parseRecommendQuery(r)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	a.recommend(w, r, req)
}

func (a *API) recommend(w http.ResponseWriter, r *http.Request, req domain.RecommendationRequest) {
	resp, err := a.service.Recommend(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req domain.FeedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.service.RecordFeedback(r.Context(), req)
	if errors.Is(err, domain.ErrPersistence) {
		logging.Ctx(r.Context()).Error().Err(err).Msg("feedback history not persisted")
		writeJSON(w, http.StatusServiceUnavailable, persistenceErrorResponse{
			Error:   "history could not be saved",
			Code:    "PERSISTENCE_ERROR",
			History: resp.History,
		})
		return
	}
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleFeedbackEvents(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 50, 500)
	list, err := a.service.FeedbackEvents(r.Context(), limit)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": list})
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.service.History(r.Context()))
}

func (a *API) handleShareImport(w http.ResponseWriter, r *http.Request) {
	var req domain.ShareImportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.service.ImportShare(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// parseRecommendQuery reads preferences from query parameters, starting
// from the defaults. Malformed numbers are reported as validation errors.
func parseRecommendQuery(r *http.Request) (domain.RecommendationRequest, error) {
	q := r.URL.Query()
	req := domain.RecommendationRequest{UserPreferences: domain.DefaultPreferences()}
	req.Query = q.Get("q")
	if v := q.Get("query"); v != "" {
		req.Query = v
	}
	req.Strategy = q.Get("strategy")

	var verr *validation.RequestValidationError
	reject := func(field, tag, message string) {
		if verr == nil {
			verr = validation.NewError(field, tag, message)
			return
		}
		verr.Add(field, tag, message)
	}
	floatParam := func(name string, dest *float64) {
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			return
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			reject(name, "number", name+" must be a number")
			return
		}
		*dest = v
	}
	intParam := func(name string, dest *int) {
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			return
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			reject(name, "integer", name+" must be an integer")
			return
		}
		*dest = v
	}
	boolParam := func(name string, dest *bool) {
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			return
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			reject(name, "boolean", name+" must be true or false")
			return
		}
		*dest = v
	}

	floatParam("budget", &req.Budget)
	boolParam("veg_only", &req.VegOnly)
	floatParam("spice", &req.Spice)
	boolParam("low_oil", &req.LowOil)
	floatParam("novelty", &req.Novelty)
	intParam("eta_limit", &req.ETALimit)
	intParam("count", &req.Count)

	if verr != nil {
		return req, verr
	}
	return req, nil
}

type errorResponse struct {
	Error   string                  `json:"error"`
	Code    string                  `json:"code,omitempty"`
	Details []validation.FieldError `json:"details,omitempty"`
}

type persistenceErrorResponse struct {
	Error   string              `json:"error"`
	Code    string              `json:"code"`
	History domain.HistoryState `json:"history"`
}

func (a *API) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		apiErr := verr.ToAPIError()
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: apiErr.Message, Code: apiErr.Code, Details: apiErr.Details})
	case errors.Is(err, service.ErrImportFailed):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Code: "IMPORT_FAILED"})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, store.ErrInvalidItem):
		writeError(w, http.StatusBadRequest, err)
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, err)
	}
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx bodies stay generic; the cause is logged by the caller.
	msg := err.Error()
	if status >= 500 {
		msg = "internal server error"
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
