package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/boddenberg/insights-bff-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeBody(w http.ResponseWriter, contentType string, body *bytes.Buffer) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	body.WriteTo(w)
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var validation *domain.ErrValidation
	var auth *domain.ErrAuth
	var network *domain.ErrNetwork
	var fetch *domain.ErrFetch
	var sessionRequired *domain.ErrSessionRequired

	switch {
	case errors.As(err, &sessionRequired):
		logger.Debug("session required", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, validation.Message)
	case errors.As(err, &auth):
		logger.Debug("auth rejected", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, auth.Message)
	case errors.As(err, &network):
		logger.Error("upstream unreachable", zap.Error(err))
		writeError(w, http.StatusBadGateway, domain.MsgNetworkError)
	case errors.As(err, &fetch):
		logger.Warn("upstream fetch failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, fetch.Message)
	case errors.Is(err, domain.ErrSurfaceClosed), errors.Is(err, domain.ErrChartReleased):
		logger.Debug("chart gone", zap.Error(err))
		writeError(w, http.StatusGone, err.Error())
	case errors.Is(err, domain.ErrWorkspaceClosed):
		logger.Debug("workspace gone", zap.Error(err))
		writeError(w, http.StatusGone, err.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
