package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SscSPs/cbr_rates/internal/apperrors"
	"github.com/gin-gonic/gin"
)

// statusForError maps application error kinds to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrMalformedDocument),
		errors.Is(err, apperrors.ErrCurrencyNotFound),
		errors.Is(err, apperrors.ErrMalformedRate):
		return http.StatusBadGateway
	case errors.Is(err, apperrors.ErrSourceUnavailable), errors.Is(err, apperrors.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err and writes a JSON error body. Server-side failures get a
// generic message; client errors echo the cause.
func writeError(c *gin.Context, logger *slog.Logger, err error, msg string) {
	status := statusForError(err)
	switch {
	case status == http.StatusNotFound:
		logger.Info(msg, slog.String("error", err.Error()))
		c.JSON(status, gin.H{"error": "No data found"})
	case status < http.StatusInternalServerError:
		logger.Warn(msg, slog.String("error", err.Error()))
		c.JSON(status, gin.H{"error": err.Error()})
	case status == http.StatusServiceUnavailable:
		logger.Error(msg, slog.String("error", err.Error()))
		c.JSON(status, gin.H{"error": "Temporarily unavailable, try again later"})
	default:
		logger.Error(msg, slog.String("error", err.Error()))
		c.JSON(status, gin.H{"error": msg})
	}
}

// errorMessages flattens an errors.Join result.
func errorMessages(err error) []string {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var msgs []string
		for _, e := range joined.Unwrap() {
			msgs = append(msgs, e.Error())
		}
		return msgs
	}
	return []string{err.Error()}
}
