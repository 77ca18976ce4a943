package git

import (
	"strings"

	"git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
)

// Clone failure reasons recorded in the error context under "reason".
const (
	ReasonAuth     = "auth"
	ReasonNotFound = "not_found"
	ReasonNetwork  = "network"
	ReasonUnknown  = "unknown"
)

// classifyCloneError wraps err as a git error and records a coarse reason for
// logs and metrics.
func classifyCloneError(url string, err error) error {
	if _, ok := errors.AsClassified(err); ok {
		return err
	}
	return errors.GitError("error while git cloning").
		WithCause(err).
		WithContext("url", url).
		WithContext("reason", cloneFailureReason(err.Error())).
		Build()
}

func cloneFailureReason(msg string) string {
	l := strings.ToLower(msg)
	switch {
	case strings.Contains(l, "authentication"), strings.Contains(l, "permission denied"),
		strings.Contains(l, "not authorized"), strings.Contains(l, "could not read username"):
		return ReasonAuth
	case strings.Contains(l, "not found"), strings.Contains(l, "does not exist"),
		strings.Contains(l, "does not appear to be a git repository"):
		return ReasonNotFound
	case strings.Contains(l, "timeout"), strings.Contains(l, "connection reset"),
		strings.Contains(l, "remote hung up"), strings.Contains(l, "no route to host"),
		strings.Contains(l, "could not resolve host"):
		return ReasonNetwork
	default:
		return ReasonUnknown
	}
}

// FailureReason extracts the reason recorded by a cloner, or ReasonUnknown.
func FailureReason(err error) string {
	if c, ok := errors.AsClassified(err); ok {
		if r, ok := c.Context().GetString("reason"); ok {
			return r
		}
	}
	return ReasonUnknown
}
