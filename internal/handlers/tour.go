package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"cluster-tour-router/internal/models"
	"cluster-tour-router/internal/tour"
)

// SolveTourRequest is the optional body of POST /api/v1/tour/solve.
// An explicit empty force_link clears the configured default.
type SolveTourRequest struct {
	ForceLink     *string `json:"force_link" validate:"omitempty,oneof=outbound return ''"`
	MaxIterations int     `json:"max_iterations" validate:"gte=0,lte=1000000"`
}

var validate = newRequestValidator()

// requestFieldErrors maps a JSON field name to the message reported when it
// fails validation
var requestFieldErrors = map[string]string{
	"force_link":     fmt.Sprintf("force_link must be %q, %q or empty", tour.ForceOutbound, tour.ForceReturn),
	"max_iterations": "max_iterations must be between 0 and 1000000",
}

func newRequestValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// requestError turns a validation failure into a client-facing message
func requestError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		if msg, ok := requestFieldErrors[fieldErrs[0].Field()]; ok {
			return errors.New(msg)
		}
		return fmt.Errorf("%s is invalid", fieldErrs[0].Field())
	}
	return errors.New("invalid request body")
}

// networkReloader is implemented by network sources backed by a file
type networkReloader interface {
	Reload() error
}

// HandleHealthCheck handles GET /api/v1/health
func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "connected"

	if h.DB == nil {
		dbStatus = "disabled"
	} else if err := h.DB.HealthCheck(r.Context()); err != nil {
		log.Printf("[ERROR] Health check failed: err=%v", err)
		status = "degraded"
		dbStatus = "error"
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":   status,
		"version":  "1.0.0",
		"database": dbStatus,
	})
}

// HandleGetNetwork handles GET /api/v1/network
func (h *Handler) HandleGetNetwork(w http.ResponseWriter, r *http.Request) {
	net, err := h.Network.Load(r.Context())
	if err != nil {
		if h.checkNotFound(err) {
			h.handleNotFound(w, "No network configured")
			return
		}
		h.handleInternalError(w, err)
		return
	}

	log.Printf("[HTTP] GET /api/v1/network: name=%s locations=%d", net.Name, net.Size())
	h.writeJSON(w, http.StatusOK, net)
}

// HandleReloadNetwork handles POST /api/v1/network/reload
func (h *Handler) HandleReloadNetwork(w http.ResponseWriter, r *http.Request) {
	reloader, ok := h.Network.(networkReloader)
	if !ok {
		h.handleValidationError(w, "Network source cannot be reloaded")
		return
	}
	if err := reloader.Reload(); err != nil {
		log.Printf("[ERROR] Network reload failed: err=%v", err)
		h.writeError(w, http.StatusBadRequest, string(tour.KindInvalidNetwork), err.Error(), nil)
		return
	}
	h.HandleGetNetwork(w, r)
}

// HandleGetTour handles GET /api/v1/tour. It returns the latest solve, or
// solves with the default options when nothing has been solved yet.
func (h *Handler) HandleGetTour(w http.ResponseWriter, r *http.Request) {
	if latest := h.Sessions.Latest(); latest != nil {
		log.Printf("[HTTP] GET /api/v1/tour: run_id=%s cached=true", latest.ID)
		h.writeJSON(w, http.StatusOK, latest.Result)
		return
	}

	log.Printf("[HTTP] GET /api/v1/tour: no previous solve, solving")
	result, err := h.Solve(r.Context(), h.Defaults)
	if err != nil {
		h.handleSolveError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// HandleSolveTour handles POST /api/v1/tour/solve
func (h *Handler) HandleSolveTour(w http.ResponseWriter, r *http.Request) {
	opts, err := h.parseSolveRequest(r)
	if err != nil {
		log.Printf("[HTTP] POST /api/v1/tour/solve: invalid_request err=%v", err)
		h.handleValidationError(w, err.Error())
		return
	}

	log.Printf("[HTTP] POST /api/v1/tour/solve: force=%q max_iterations=%d", opts.ForceLink, opts.MaxIterations)

	result, err := h.Solve(r.Context(), opts)
	if err != nil {
		h.handleSolveError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// HandleListTourRuns handles GET /api/v1/tour/runs
func (h *Handler) HandleListTourRuns(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_ids": h.Sessions.List(),
	})
}

// HandleGetTourRun handles GET /api/v1/tour/runs/{id}
func (h *Handler) HandleGetTourRun(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/tour/runs/")
	session := h.Sessions.Get(id)
	if session == nil {
		h.handleNotFound(w, fmt.Sprintf("Tour run %q not found", id))
		return
	}
	h.writeJSON(w, http.StatusOK, session.Result)
}

// HandleClearCache handles DELETE /api/v1/cache
func (h *Handler) HandleClearCache(w http.ResponseWriter, r *http.Request) {
	if h.DB == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	if err := h.DB.TravelTimeCache().Clear(r.Context()); err != nil {
		h.handleInternalError(w, err)
		return
	}
	if err := h.DB.GeocodeCache().Clear(r.Context()); err != nil {
		h.handleInternalError(w, err)
		return
	}
	log.Printf("[CACHE] Provider caches cleared")
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// Solve loads the network, plans a tour and records the session
func (h *Handler) Solve(ctx context.Context, opts tour.PlanOptions) (*models.TourResult, error) {
	net, err := h.Network.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load network: %w", err)
	}

	started := time.Now()
	result, err := h.Planner.Plan(ctx, net, opts)
	if err != nil {
		return nil, err
	}

	h.Sessions.Create(result, opts)
	log.Printf("[HTTP] Tour solved: run_id=%s total=%.1f duration=%s", result.RunID, result.TotalTravelMinutes, time.Since(started).Round(time.Millisecond))
	return result, nil
}

func (h *Handler) handleSolveError(w http.ResponseWriter, err error) {
	if h.checkNotFound(err) {
		h.handleNotFound(w, "No network configured")
		return
	}
	h.handleTourError(w, err)
}

func (h *Handler) parseSolveRequest(r *http.Request) (tour.PlanOptions, error) {
	opts := h.Defaults

	var req SolveTourRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return opts, nil
		}
		return opts, errors.New("invalid request body")
	}

	if err := validate.Struct(&req); err != nil {
		return opts, requestError(err)
	}
	if req.ForceLink != nil {
		opts.ForceLink = *req.ForceLink
	}
	if req.MaxIterations > 0 {
		opts.MaxIterations = req.MaxIterations
	}
	return opts, nil
}
