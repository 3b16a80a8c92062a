package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/taskhub/internal/common"
	"github.com/dmitrijs2005/taskhub/internal/server/services"
	"github.com/dmitrijs2005/taskhub/internal/server/throttle"
	"github.com/dmitrijs2005/taskhub/internal/validation"
)

const (
	msgInvalidInput       = "Invalid input."
	msgInvalidCredentials = "No active account found with the given credentials"
	msgNotAuthenticated   = "Authentication credentials were not provided."
	msgTokenInvalid       = "Given token not valid for any token type"
	msgTokenExpired       = "Token is expired"
	msgTaskNotFound       = "Task not found"
	msgNotFound           = "Not found."
	msgInternal           = "An unexpected error occurred."
	msgClientClosed       = "Client closed request."
)

// statusClientClosed is the nginx convention for a request the client
// abandoned before the response was ready.
const statusClientClosed = 499

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// errorBody is the envelope shared by every failure response. At most one
// of the context fields is set.
type errorBody struct {
	Status       string              `json:"status"`
	Error        string              `json:"error"`
	Fields       map[string][]string `json:"fields,omitempty"`
	MissingUsers []int64             `json:"missing_users,omitempty"`
	RetryAfter   int                 `json:"retry_after,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Status: "error", Error: message})
}

func writeValidationErrors(w http.ResponseWriter, errs validation.Errors) {
	writeJSON(w, http.StatusBadRequest, errorBody{Status: "error", Error: msgInvalidInput, Fields: errs})
}

func writeThrottled(w http.ResponseWriter, e *throttle.RateLimitedError) {
	secs := e.Seconds()
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeJSON(w, http.StatusTooManyRequests, errorBody{
		Status:     "error",
		Error:      fmt.Sprintf("Request was throttled. Expected available in %d seconds.", secs),
		RetryAfter: secs,
	})
}

// handleError maps a service error onto the response envelope. Anything it
// does not recognise is logged and reported as a generic 500.
func (a *API) handleError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	var (
		verrs     validation.Errors
		missing   *services.UsersNotFoundError
		throttled *throttle.RateLimitedError
	)

	switch {
	case errors.As(err, &verrs):
		writeValidationErrors(w, verrs)
	case errors.As(err, &missing):
		writeJSON(w, http.StatusBadRequest, errorBody{Status: "error", Error: missing.Error(), MissingUsers: missing.Missing})
	case errors.As(err, &throttled):
		writeThrottled(w, throttled)
	case errors.Is(err, common.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, msgInvalidCredentials)
	case errors.Is(err, common.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, msgTokenExpired)
	case errors.Is(err, common.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, msgTokenInvalid)
	case errors.Is(err, common.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, msgTaskNotFound)
	case errors.Is(err, common.ErrUserNotFound):
		writeError(w, http.StatusNotFound, msgNotFound)
	case errors.Is(err, context.Canceled):
		// client went away; the status is only for the access log
		a.logger.Warn(ctx, op+" cancelled", "request_id", RequestID(ctx))
		writeError(w, statusClientClosed, msgClientClosed)
	default:
		a.logger.Error(ctx, op+" failed", "error", err.Error(), "request_id", RequestID(ctx))
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}
