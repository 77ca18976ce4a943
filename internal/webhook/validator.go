// Package webhook authenticates and parses inbound GitLab push hooks.
package webhook

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
)

const (
	HeaderToken = "X-Gitlab-Token"
	HeaderEvent = "X-Gitlab-Event"

	PushHook = "Push Hook"
)

// Validator checks the shared secret, the event type and the payload, in that
// order, stopping at the first failure.
type Validator struct {
	secret []byte
}

// NewValidator creates a validator. An empty secret disables token checking.
func NewValidator(secret string) *Validator {
	v := &Validator{}
	if secret != "" {
		v.secret = []byte(secret)
	}
	return v
}

// RequiresToken reports whether a secret is configured.
func (v *Validator) RequiresToken() bool {
	return v.secret != nil
}

// Validate returns the parsed push event, or a classified error: auth for a
// token mismatch, validation for everything else.
func (v *Validator) Validate(header http.Header, body []byte) (*PushEvent, error) {
	if v.secret != nil {
		token := []byte(header.Get(HeaderToken))
		if subtle.ConstantTimeCompare(token, v.secret) != 1 {
			return nil, errors.AuthError("invalid secret token").Build()
		}
	}

	if event := header.Get(HeaderEvent); event != PushHook {
		return nil, errors.ValidationError(fmt.Sprintf("only '%s' supported, not '%s'", PushHook, event)).
			WithContext("event", event).
			Build()
	}

	return ParsePushEvent(body)
}

// ParsePushEvent decodes a push hook body.
func ParsePushEvent(body []byte) (*PushEvent, error) {
	var payload gitlabPushEvent
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "malformed push event payload").Build()
	}
	if payload.Project == nil || payload.Project.Name == "" {
		return nil, errors.ValidationError("push event payload has no project name").Build()
	}

	ev := &PushEvent{
		ProjectName:       payload.Project.Name,
		PathWithNamespace: payload.Project.PathWithNamespace,
		SSHURL:            payload.Project.GitSSHURL,
		HTTPURL:           payload.Project.GitHTTPURL,
		Ref:               payload.Ref,
		CheckoutSHA:       payload.CheckoutSHA,
		UserName:          payload.UserName,
		CommitCount:       payload.TotalCommitsCount,
	}
	if payload.Repository != nil {
		if ev.SSHURL == "" {
			ev.SSHURL = payload.Repository.GitSSHURL
		}
		if ev.HTTPURL == "" {
			ev.HTTPURL = payload.Repository.GitHTTPURL
		}
	}
	if ev.CommitCount == 0 {
		ev.CommitCount = len(payload.Commits)
	}

	if ev.SSHURL == "" && ev.HTTPURL == "" {
		return nil, errors.ValidationError("push event payload has no clone URL").
			WithContext("project", ev.ProjectName).
			Build()
	}
	if !IsSafeName(ev.ProjectName) {
		return nil, errors.ValidationError(fmt.Sprintf("unsafe project name %q", ev.ProjectName)).Build()
	}
	return ev, nil
}

// IsSafeName reports whether name can be used as a single path element.
func IsSafeName(name string) bool {
	if strings.TrimSpace(name) == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00")
}

// IsSafeDocumentPath reports whether file is a relative path that stays inside
// the directory it is resolved against.
func IsSafeDocumentPath(file string) bool {
	if strings.TrimSpace(file) == "" || strings.ContainsRune(file, '\x00') {
		return false
	}
	slashed := filepath.ToSlash(file)
	if filepath.IsAbs(file) || path.IsAbs(slashed) {
		return false
	}
	clean := path.Clean(slashed)
	return clean != "." && clean != ".." && !strings.HasPrefix(clean, "../")
}

// ValidateDocumentPaths rejects the first file that would resolve outside the
// job's working directory.
func ValidateDocumentPaths(files []string) error {
	for _, f := range files {
		if !IsSafeDocumentPath(f) {
			return errors.ValidationError(fmt.Sprintf("unsafe document path %q", f)).
				WithContext("file", f).
				Build()
		}
	}
	return nil
}
