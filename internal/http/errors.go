package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"voter-outreach/internal/domain"

	"go.uber.org/zap"
)

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case domain.IsStructural(err),
		errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrInvalidFilter),
		errors.Is(err, domain.ErrInvalidOutcome),
		errors.Is(err, domain.ErrEmptyTerritory):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrVoterNotFound),
		errors.Is(err, domain.ErrImportJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoActiveAssignment),
		errors.Is(err, domain.ErrUnauthorizedTerritory):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrAssignmentConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError 5xx details stay in the log, not the response.
func writeError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error(op+" failed", zap.Error(err))
		writeJSON(w, status, Fail("internal error"))
		return
	}
	logger.Debug(op+" rejected", zap.Int("status", status), zap.Error(err))

	var missing *domain.MissingMappingError
	if errors.As(err, &missing) {
		writeJSON(w, status, FailWith(err.Error(), map[string]any{"missing_fields": missing.Fields}))
		return
	}
	writeJSON(w, status, Fail(err.Error()))
}

func invalidArgument(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidArgument, msg)
}
