package errors

import (
	"log/slog"
	"net/http"
	"strings"
)

// MessageHeader carries the one-line summary of every webhook response.
const MessageHeader = "X-Message"

var headerSanitizer = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// HTTPErrorAdapter maps classified errors onto webhook responses.
type HTTPErrorAdapter struct {
	logger *slog.Logger
}

// NewHTTPErrorAdapter creates an adapter logging to logger, or slog.Default when nil.
func NewHTTPErrorAdapter(logger *slog.Logger) *HTTPErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPErrorAdapter{logger: logger}
}

// StatusCodeFor maps err's category onto a status code. Unclassified errors are 500.
func (a *HTTPErrorAdapter) StatusCodeFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	c, ok := AsClassified(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch c.Category() {
	case CategoryValidation, CategoryConfig:
		return http.StatusBadRequest
	case CategoryAuth:
		return http.StatusForbidden
	case CategoryMethod:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// MessageFor returns the client-facing text for err.
func (a *HTTPErrorAdapter) MessageFor(err error) string {
	if err == nil {
		return ""
	}
	if c, ok := AsClassified(err); ok {
		return c.Message()
	}
	return err.Error()
}

// WriteErrorResponse writes a body-less response whose X-Message header holds
// the error text, and logs err at a level matching its severity.
func (a *HTTPErrorAdapter) WriteErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	status := a.StatusCodeFor(err)
	w.Header().Set(MessageHeader, SanitizeHeader(a.MessageFor(err)))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)

	c, ok := AsClassified(err)
	if !ok {
		a.logger.ErrorContext(r.Context(), err.Error(), slog.Int("status", status))
		return
	}
	args := append(c.Context().attrs(), slog.Int("status", status))
	a.logger.Log(r.Context(), levelFor(c.Severity()), c.Error(), args...)
}

// SanitizeHeader folds line breaks so a multi-line trace fits in one header value.
func SanitizeHeader(v string) string {
	return headerSanitizer.Replace(v)
}

func levelFor(s ErrorSeverity) slog.Level {
	if s == SeverityWarning {
		return slog.LevelWarn
	}
	return slog.LevelError
}
