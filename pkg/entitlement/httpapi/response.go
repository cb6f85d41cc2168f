package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/medtrack-app/entitlements/pkg/catalog"
	"github.com/medtrack-app/entitlements/pkg/entitlement"
	"github.com/medtrack-app/entitlements/pkg/logger"
	"github.com/medtrack-app/entitlements/pkg/subscription"
	"github.com/medtrack-app/entitlements/pkg/usage"
)

// Response is the JSON envelope of every endpoint.
type Response struct {
	Data  any          `json:"data,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func ok(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Data: data})
}

type errorMapping struct {
	target error
	status int
	code   string
}

// errorMappings is matched in order with errors.Is.
var errorMappings = []errorMapping{
	{ErrMissingUser, http.StatusUnauthorized, "missing_user"},
	{ErrInvalidUserID, http.StatusBadRequest, "invalid_user_id"},
	{ErrInvalidRequest, http.StatusBadRequest, "invalid_request"},
	{entitlement.ErrUnknownFeature, http.StatusNotFound, "unknown_feature"},
	{usage.ErrUnknownFeatureType, http.StatusNotFound, "unknown_feature_type"},
	{entitlement.ErrInvalidPlan, http.StatusBadRequest, "invalid_plan"},
	{catalog.ErrUnknownPlan, http.StatusBadRequest, "invalid_plan"},
	{subscription.ErrSubscriptionNotFound, http.StatusNotFound, "subscription_not_found"},
	{subscription.ErrTrialPeriodUnsupported, http.StatusNotImplemented, "trial_period_unsupported"},
	{entitlement.ErrUsageNotConfigured, http.StatusNotImplemented, "usage_not_configured"},
	{entitlement.ErrLoadFailed, http.StatusServiceUnavailable, "entitlements_unavailable"},
	{entitlement.ErrSessionsClosed, http.StatusServiceUnavailable, "shutting_down"},
	{entitlement.ErrTrialRecordFailed, http.StatusServiceUnavailable, "trial_record_failed"},
	{entitlement.ErrPlanChangeFailed, http.StatusServiceUnavailable, "plan_change_failed"},
	{entitlement.ErrCancelFailed, http.StatusServiceUnavailable, "cancel_failed"},
	{entitlement.ErrTrialStartFailed, http.StatusServiceUnavailable, "trial_start_failed"},
	{usage.ErrFailedToReadUsage, http.StatusServiceUnavailable, "usage_unavailable"},
	{usage.ErrFailedToIncrementUsage, http.StatusServiceUnavailable, "usage_unavailable"},
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			status, code = m.status, m.code
			break
		}
	}

	level := slog.LevelDebug
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.log.Log(r.Context(), level, "request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		logger.Error(err),
	)

	message := http.StatusText(status)
	if status < http.StatusInternalServerError {
		message = err.Error()
	}
	writeJSON(w, status, Response{Error: &ErrorDetail{Code: code, Message: message}})
}
