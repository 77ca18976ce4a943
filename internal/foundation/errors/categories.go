package errors

// ErrorCategory tells the HTTP adapter which status a failure maps to.
type ErrorCategory string

const (
	// Rejections of the request itself.
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryAuth       ErrorCategory = "auth"
	CategoryMethod     ErrorCategory = "method"

	// Failures of a stage once the job has been accepted.
	CategoryGit        ErrorCategory = "git"
	CategoryStorage    ErrorCategory = "storage"
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryInternal   ErrorCategory = "internal"
)

// ErrorSeverity selects the log level an error is reported at.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal" // the job cannot continue
	SeverityError   ErrorSeverity = "error"
	SeverityWarning ErrorSeverity = "warning" // the client sent something we do not serve
)

// ErrorContext holds structured key/value details, logged with the error.
type ErrorContext map[string]any

// GetString returns the string stored under key.
func (c ErrorContext) GetString(key string) (string, bool) {
	s, ok := c[key].(string)
	return s, ok
}

// attrs flattens the context for slog.
func (c ErrorContext) attrs() []any {
	out := make([]any, 0, 2*len(c))
	for k, v := range c {
		out = append(out, k, v)
	}
	return out
}
