package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"cluster-tour-router/internal/database"
	"cluster-tour-router/internal/models"
	"cluster-tour-router/internal/tour"
)

// Planner solves one tour for a network
type Planner interface {
	Plan(ctx context.Context, net *models.Network, opts tour.PlanOptions) (*models.TourResult, error)
}

// Handler provides common handler utilities and dependencies
type Handler struct {
	// DB is nil when the provider cache is disabled.
	DB       database.DataStore
	Network  database.NetworkRepository
	Planner  Planner
	Sessions *TourSessionStore
	// Defaults apply to GET /api/v1/tour and to solve requests without a body.
	Defaults tour.PlanOptions
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	h.writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// handleNotFound handles 404 errors
func (h *Handler) handleNotFound(w http.ResponseWriter, message string) {
	h.writeError(w, http.StatusNotFound, "NOT_FOUND", message, nil)
}

// handleValidationError handles 400 errors
func (h *Handler) handleValidationError(w http.ResponseWriter, message string) {
	h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", message, nil)
}

// handleMethodNotAllowed handles 405 errors
func (h *Handler) handleMethodNotAllowed(w http.ResponseWriter) {
	h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
}

// handleInternalError handles 500 errors
func (h *Handler) handleInternalError(w http.ResponseWriter, err error) {
	log.Printf("[ERROR] Internal error: %v", err)
	h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An error occurred. Please try again.", nil)
}

// tourErrorStatus maps a failure kind to its HTTP status
var tourErrorStatus = map[tour.FailureKind]int{
	tour.KindInvalidNetwork:      http.StatusBadRequest,
	tour.KindModelInfeasible:     http.StatusUnprocessableEntity,
	tour.KindModelUnbounded:      http.StatusUnprocessableEntity,
	tour.KindModelError:          http.StatusServiceUnavailable,
	tour.KindReconstructionFault: http.StatusInternalServerError,
	tour.KindConfiguration:       http.StatusInternalServerError,
}

// handleTourError writes a failed solve. No partial tour is ever returned.
func (h *Handler) handleTourError(w http.ResponseWriter, err error) {
	var tf *tour.ErrTourFailed
	if !errors.As(err, &tf) {
		h.handleInternalError(w, err)
		return
	}

	status, ok := tourErrorStatus[tf.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	log.Printf("[ERROR] Tour solve failed: kind=%s reason=%q err=%v", tf.Kind, tf.Reason, tf.Err)

	var details interface{}
	if tf.Err != nil {
		details = map[string]string{"cause": tf.Err.Error()}
	}
	h.writeError(w, status, string(tf.Kind), tf.Reason, details)
}

// checkNotFound checks if an error is a not found error
func (h *Handler) checkNotFound(err error) bool {
	return errors.Is(err, database.ErrNotFound)
}
