package pipeline

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/texbuilder/internal/buildlog"
)

// Job is the state of one webhook request, from arrival to cleanup.
type Job struct {
	ID            string
	ClientAddress string
	ReceivedAt    time.Time
	Files         []string
	Log           *buildlog.Log

	mu       sync.Mutex
	repoName string
	cloneURL string
	workdir  string
	progress Progress

	responded atomic.Bool
}

// NewJob creates a job for files, in request order.
func NewJob(clientAddress string, files []string) *Job {
	return &Job{
		ID:            uuid.NewString(),
		ClientAddress: clientAddress,
		ReceivedAt:    time.Now(),
		Files:         append([]string(nil), files...),
		Log:           buildlog.New(),
	}
}

// ParseFiles splits the comma-separated files query value, trimming spaces
// and dropping blank entries. Order is preserved.
func ParseFiles(raw string) []string {
	var files []string
	for _, f := range strings.Split(raw, ",") {
		if f = strings.TrimSpace(f); f != "" {
			files = append(files, f)
		}
	}
	return files
}

// Status renders the current progress.
func (j *Job) Status() string {
	return j.Progress().String()
}

// Progress returns a snapshot of the job's progress.
func (j *Job) Progress() Progress {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress
}

// RepoName returns the repository name, once validated.
func (j *Job) RepoName() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.repoName
}

// CloneURL returns the URL the repository is cloned from.
func (j *Job) CloneURL() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cloneURL
}

// Workdir returns the job's working directory.
func (j *Job) Workdir() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.workdir
}

// Responded reports whether the job's single response has been claimed.
func (j *Job) Responded() bool {
	return j.responded.Load()
}

// claimResponse returns true for exactly one caller.
func (j *Job) claimResponse() bool {
	return j.responded.CompareAndSwap(false, true)
}

func (j *Job) setTarget(repo, url, workdir string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.repoName, j.cloneURL, j.workdir = repo, url, workdir
}

func (j *Job) update(fn func(p *Progress)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	fn(&j.progress)
}

func (j *Job) setState(s State) {
	j.update(func(p *Progress) {
		*p = Progress{State: s, Outcome: p.Outcome}
	})
}
