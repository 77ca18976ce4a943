package handlers

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/metrics"
	"git.home.luguber.info/inful/texbuilder/internal/pipeline"
)

// JobStarter launches a build job; implemented by *pipeline.Orchestrator.
type JobStarter interface {
	Start(ctx context.Context, req pipeline.Request) *pipeline.Run
}

// WebhookHandler turns a webhook request into a pipeline run and writes the
// run's single response.
type WebhookHandler struct {
	jobs         JobStarter
	maxBodyBytes int64
	errorAdapter *errors.HTTPErrorAdapter
	recorder     metrics.Recorder
}

// NewWebhookHandler creates the handler. maxBodyBytes <= 0 disables the limit.
func NewWebhookHandler(jobs JobStarter, maxBodyBytes int64, recorder metrics.Recorder) *WebhookHandler {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &WebhookHandler{
		jobs:         jobs,
		maxBodyBytes: maxBodyBytes,
		errorAdapter: errors.NewHTTPErrorAdapter(slog.Default()),
		recorder:     recorder,
	}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		h.reject(w, r, errors.NewError(errors.CategoryMethod,
			fmt.Sprintf("only POST supported, not %s", r.Method)).
			WithSeverity(errors.SeverityWarning).
			Build())
		return
	}

	bodyReader := io.Reader(r.Body)
	if h.maxBodyBytes > 0 {
		bodyReader = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}
	body, err := io.ReadAll(bodyReader)
	if err != nil {
		msg := "unable to read request body"
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			msg = fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)
		}
		h.reject(w, r, errors.WrapError(err, errors.CategoryValidation, msg).Build())
		return
	}

	run := h.jobs.Start(r.Context(), pipeline.Request{
		Header:        r.Header,
		Body:          body,
		Files:         pipeline.ParseFiles(r.URL.Query().Get("files")),
		ClientAddress: r.RemoteAddr,
	})

	resp := <-run.Response()
	writeResponse(w, resp)

	if resp.Terminate {
		// The worker keeps running; cut the connection so the caller sees the
		// provisional report as final.
		terminate(w, run.Job.ID)
		return
	}
	<-run.Done()
}

func (h *WebhookHandler) reject(w http.ResponseWriter, r *http.Request, err error) {
	h.recorder.IncRejected(h.errorAdapter.StatusCodeFor(err))
	h.errorAdapter.WriteErrorResponse(w, r, err)
}

func writeResponse(w http.ResponseWriter, resp pipeline.Response) {
	hdr := w.Header()
	hdr.Set(errors.MessageHeader, errors.SanitizeHeader(resp.Message))
	hdr.Set("Content-Type", "text/plain; charset=utf-8")
	if resp.HasBody {
		hdr.Set("Content-Length", strconv.Itoa(len(resp.Body)))
	}
	if resp.Terminate {
		hdr.Set("Connection", "close")
	}
	w.WriteHeader(resp.StatusCode)
	if resp.HasBody {
		if _, err := io.WriteString(w, resp.Body); err != nil {
			slog.Warn("Failed writing response body", logfields.Error(err))
		}
	}
}

func terminate(w http.ResponseWriter, jobID string) {
	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil && !stderrors.Is(err, http.ErrNotSupported) {
		slog.Debug("Flush before close failed", logfields.JobID(jobID), logfields.Error(err))
	}
	conn, _, err := rc.Hijack()
	if err != nil {
		// HTTP/2 and test recorders cannot be hijacked; Connection: close
		// still ends the exchange once the handler returns.
		return
	}
	_ = conn.Close()
	slog.Info("Closed connection after provisional response", logfields.JobID(jobID))
}
