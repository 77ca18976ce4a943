package webhook

import "time"

// gitlabPushEvent is the subset of a GitLab push hook payload texbuilder reads.
type gitlabPushEvent struct {
	ObjectKind        string          `json:"object_kind"`
	Ref               string          `json:"ref"`
	CheckoutSHA       string          `json:"checkout_sha"`
	UserName          string          `json:"user_name"`
	TotalCommitsCount int             `json:"total_commits_count"`
	Project           *gitlabProject  `json:"project"`
	Commits           []gitlabCommit  `json:"commits"`
	Repository        *gitlabRepoInfo `json:"repository"`
}

type gitlabProject struct {
	ID                int    `json:"id"`
	Name              string `json:"name"`
	PathWithNamespace string `json:"path_with_namespace"`
	DefaultBranch     string `json:"default_branch"`
	GitSSHURL         string `json:"git_ssh_url"`
	GitHTTPURL        string `json:"git_http_url"`
	WebURL            string `json:"web_url"`
}

type gitlabCommit struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// gitlabRepoInfo is the legacy "repository" block; older GitLab versions only
// carry the clone URLs here.
type gitlabRepoInfo struct {
	Name       string `json:"name"`
	GitSSHURL  string `json:"git_ssh_url"`
	GitHTTPURL string `json:"git_http_url"`
}

// PushEvent is a validated push hook.
type PushEvent struct {
	ProjectName       string
	PathWithNamespace string
	SSHURL            string
	HTTPURL           string
	Ref               string
	CheckoutSHA       string
	UserName          string
	CommitCount       int
}

// CloneURL returns the HTTP URL when preferHTTP is set and available, the SSH
// URL otherwise, falling back to whichever one the payload carries.
func (e *PushEvent) CloneURL(preferHTTP bool) string {
	if preferHTTP && e.HTTPURL != "" {
		return e.HTTPURL
	}
	if e.SSHURL != "" {
		return e.SSHURL
	}
	return e.HTTPURL
}
