// Package buildlog accumulates per-file build and upload failures of one job
// and renders them into the plain-text report returned to the caller.
package buildlog

import (
	"strings"
	"sync"
)

const separator = "----------------------------------------"

// Log is safe for concurrent use: the worker appends while the watchdog may
// render a provisional report.
type Log struct {
	mu           sync.Mutex
	buildFailed  bool
	uploadFailed bool
	buildOut     strings.Builder
	buildErr     strings.Builder
	uploadOut    strings.Builder
}

// New returns an empty log.
func New() *Log {
	return &Log{}
}

func fileHeader(file string) string {
	return "\n### " + file + ":\n"
}

// RecordBuildFailure marks the build as failed and appends file's captured
// output under a per-file header.
func (l *Log) RecordBuildFailure(file, stdout, stderr string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buildFailed = true
	l.buildOut.WriteString(fileHeader(file) + stdout)
	l.buildErr.WriteString(fileHeader(file) + stderr)
}

// RecordUploadFailure marks the upload as failed and appends the output of
// the failed upload of file.
func (l *Log) RecordUploadFailure(file, output string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.uploadFailed = true
	l.uploadOut.WriteString(fileHeader(file) + output)
}

// RecordPrepareFailure marks the upload as failed because the remote folder
// could not be prepared.
func (l *Log) RecordPrepareFailure(output string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.uploadFailed = true
	l.uploadOut.WriteString(output)
}

// BuildFailed reports whether any document failed to build.
func (l *Log) BuildFailed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buildFailed
}

// UploadFailed reports whether folder preparation or any upload failed.
func (l *Log) UploadFailed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.uploadFailed
}

// Render produces the report. provisional marks a report sent before the job
// finished; the "no errors" lines then end in " so far".
func (l *Log) Render(provisional bool) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	suffix := ""
	if provisional {
		suffix = " so far"
	}

	lines := []string{"# Build Log"}
	if l.buildFailed {
		lines = append(lines, "## stdout:", l.buildOut.String(), "## stderr:", l.buildErr.String())
	} else {
		lines = append(lines, "no build errors"+suffix)
	}
	lines = append(lines, separator, "", "# Upload Log")
	if l.uploadFailed {
		lines = append(lines, "## stdout:", l.uploadOut.String())
	} else {
		lines = append(lines, "no upload errors"+suffix)
	}
	return strings.Join(lines, "\n")
}
