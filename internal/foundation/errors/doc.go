// Package errors classifies the failures of a webhook job so the transport can
// turn them into a status code and an X-Message header.
//
//	err := errors.GitError("error while git cloning, trace:\n" + out).
//		WithContext("url", cloneURL).
//		WithCause(cause).
//		Build()
package errors
