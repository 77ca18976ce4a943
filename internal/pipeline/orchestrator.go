// Package pipeline runs one build job per webhook request: validate, clone,
// compile every requested document, upload the artifacts, and reply exactly
// once, either with the final report or, when the deadline passes first, with
// a provisional one.
package pipeline

import (
	"context"
	"log/slog"
	"net/http"
	"path"
	"sync"
	"time"

	"git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuilder/internal/git"
	"git.home.luguber.info/inful/texbuilder/internal/latex"
	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/metrics"
	"git.home.luguber.info/inful/texbuilder/internal/storage"
	"git.home.luguber.info/inful/texbuilder/internal/watchdog"
	"git.home.luguber.info/inful/texbuilder/internal/webhook"
	"git.home.luguber.info/inful/texbuilder/internal/workspace"
)

const (
	DefaultDeadline    = 9 * time.Second
	DefaultArtifactExt = ".pdf"
)

// Request is the transport-independent content of a webhook call.
type Request struct {
	Header        http.Header
	Body          []byte
	Files         []string
	ClientAddress string
}

// Orchestrator wires the pipeline stages together.
type Orchestrator struct {
	validator   *webhook.Validator
	cloner      git.Cloner
	executor    *latex.Executor
	store       storage.Store
	workspace   *workspace.Manager
	recorder    metrics.Recorder
	adapter     *errors.HTTPErrorAdapter
	deadline    time.Duration
	preferHTTP  bool
	artifactExt string
	inflight    sync.WaitGroup
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDeadline sets how long a request may run before a provisional response
// is sent.
func WithDeadline(d time.Duration) Option {
	return func(o *Orchestrator) { o.deadline = d }
}

// WithRecorder injects a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithHTTPClone clones from the payload's HTTP URL instead of the SSH one.
func WithHTTPClone(preferHTTP bool) Option {
	return func(o *Orchestrator) { o.preferHTTP = preferHTTP }
}

// WithArtifactExt sets the extension of the files produced by the toolchain.
func WithArtifactExt(ext string) Option {
	return func(o *Orchestrator) { o.artifactExt = ext }
}

// New creates an orchestrator.
func New(validator *webhook.Validator, cloner git.Cloner, executor *latex.Executor,
	store storage.Store, ws *workspace.Manager, options ...Option,
) *Orchestrator {
	o := &Orchestrator{
		validator:   validator,
		cloner:      cloner,
		executor:    executor,
		store:       store,
		workspace:   ws,
		recorder:    metrics.NoopRecorder{},
		adapter:     errors.NewHTTPErrorAdapter(nil),
		deadline:    DefaultDeadline,
		artifactExt: DefaultArtifactExt,
	}
	for _, opt := range options {
		opt(o)
	}
	return o
}

// Run is a job in flight.
type Run struct {
	Job       *Job
	responses chan Response
	done      chan struct{}
}

// Response delivers the job's single response.
func (r *Run) Response() <-chan Response { return r.responses }

// Done is closed once the worker has finished, including cleanup.
func (r *Run) Done() <-chan struct{} { return r.done }

// respond emits resp unless a response was already sent.
func (r *Run) respond(resp Response) bool {
	if !r.Job.claimResponse() {
		return false
	}
	r.responses <- resp
	return true
}

// Start arms the deadline watchdog and launches the worker. The worker is
// detached from ctx cancellation: a job whose caller went away still runs to
// completion and cleans up.
func (o *Orchestrator) Start(ctx context.Context, req Request) *Run {
	job := NewJob(req.ClientAddress, req.Files)
	run := &Run{
		Job:       job,
		responses: make(chan Response, 1),
		done:      make(chan struct{}),
	}

	slog.Info("Received build request",
		logfields.JobID(job.ID),
		logfields.RemoteAddr(job.ClientAddress),
		slog.Any("files", job.Files))

	o.inflight.Add(1)
	wd := watchdog.Arm(o.deadline, func() { o.preempt(run) })
	go o.work(context.WithoutCancel(ctx), run, req, wd)
	return run
}

// Handle runs a job to completion and returns its response. Intended for
// callers that do not need pre-emption handling, such as tests and the CLI.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (Response, *Job) {
	run := o.Start(ctx, req)
	resp := <-run.Response()
	<-run.Done()
	return resp, run.Job
}

// Drain waits for every started worker, including pre-empted ones whose
// client has already been answered, or until ctx is done.
func (o *Orchestrator) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) preempt(run *Run) {
	status := run.Job.Status()
	resp := Response{
		StatusCode: http.StatusAccepted,
		Message:    "job not finished yet, status: " + status,
		Body:       run.Job.Log.Render(true),
		HasBody:    true,
		Terminate:  true,
	}
	if run.respond(resp) {
		o.recorder.IncPreempted()
		slog.Warn("Deadline reached, sent provisional report",
			logfields.JobID(run.Job.ID),
			logfields.JobStatus(status))
	}
}

func (o *Orchestrator) work(ctx context.Context, run *Run, req Request, wd *watchdog.Watchdog) {
	job := run.Job
	defer o.inflight.Done()
	defer close(run.done)
	defer func() {
		wd.Disarm()
		if wdir := job.Workdir(); wdir != "" {
			if err := o.workspace.Release(wdir); err != nil {
				slog.Error("Failed to clean up working directory", logfields.JobID(job.ID), logfields.Error(err))
			}
		}
		slog.Info("Job finished",
			logfields.JobID(job.ID),
			logfields.JobStatus(job.Status()),
			logfields.DurationMS(float64(time.Since(job.ReceivedAt).Milliseconds())))
	}()

	event, err := o.validator.Validate(req.Header, req.Body)
	if err == nil {
		err = webhook.ValidateDocumentPaths(job.Files)
	}
	if err != nil {
		status := o.adapter.StatusCodeFor(err)
		o.recorder.IncRejected(status)
		slog.Warn("Rejected webhook", logfields.JobID(job.ID), logfields.Status(status), logfields.Error(err))
		run.respond(Response{StatusCode: status, Message: o.adapter.MessageFor(err)})
		return
	}

	repo := event.ProjectName
	job.setTarget(repo, event.CloneURL(o.preferHTTP), o.workspace.Path(repo, job.ID))
	log := slog.With(logfields.JobID(job.ID), logfields.Repository(repo))

	if !o.clone(ctx, run, log) {
		return
	}
	o.compile(ctx, job, log)
	o.upload(ctx, job, log)

	outcome := outcomeOf(job.Log.BuildFailed(), job.Log.UploadFailed())
	job.update(func(p *Progress) { *p = Progress{State: StateCompleted, Outcome: outcome} })
	o.recorder.ObserveJob(outcome.String(), time.Since(job.ReceivedAt))

	if !run.respond(Response{
		StatusCode: http.StatusOK,
		Message:    job.Status(),
		Body:       job.Log.Render(false),
		HasBody:    true,
	}) {
		log.Info("Final report discarded, provisional report already sent", logfields.JobStatus(job.Status()))
	}
}

// clone prepares the working directory and clones into it. It responds and
// returns false on failure.
func (o *Orchestrator) clone(ctx context.Context, run *Run, log *slog.Logger) bool {
	job := run.Job
	job.setState(StateCloning)
	workdir := job.Workdir()

	if err := o.workspace.Acquire(workdir); err != nil {
		job.setState(StateAborted)
		o.recorder.ObserveJob(StateAborted.String(), time.Since(job.ReceivedAt))
		log.Error("Unable to prepare working directory", logfields.Path(workdir), logfields.Error(err))
		run.respond(Response{StatusCode: o.adapter.StatusCodeFor(err), Message: o.adapter.MessageFor(err)})
		return false
	}

	start := time.Now()
	out, err := o.cloner.Clone(ctx, job.CloneURL(), workdir)
	o.recorder.ObserveCloneDuration(time.Since(start), metrics.Result(err != nil))
	if err != nil {
		job.setState(StateAborted)
		o.recorder.ObserveJob(StateAborted.String(), time.Since(job.ReceivedAt))
		if rerr := o.workspace.Release(workdir); rerr != nil {
			log.Error("Failed to remove partial clone", logfields.Path(workdir), logfields.Error(rerr))
		}
		log.Error("Clone failed",
			logfields.URL(job.CloneURL()),
			slog.String("reason", git.FailureReason(err)),
			logfields.Error(err))
		run.respond(Response{
			StatusCode: http.StatusInternalServerError,
			Message:    "error while git cloning, trace:\n" + out,
		})
		return false
	}
	log.Info("Cloned repository", logfields.URL(job.CloneURL()), logfields.Path(workdir))
	return true
}

func (o *Orchestrator) compile(ctx context.Context, job *Job, log *slog.Logger) {
	job.setState(StateCompiling)
	workdir := job.Workdir()
	total := len(job.Files)

	exec := o.executor.WithObserver(latex.Observer{
		OnStepStart: func(ev latex.StepEvent) {
			job.update(func(p *Progress) {
				p.Step, p.StepIndex, p.StepTotal = ev.Step, ev.Index, ev.Total
			})
		},
		OnStepDone: func(r latex.StepResult) {
			o.recorder.ObserveStepDuration(r.Step, r.Result.Duration, metrics.Result(r.Result.Failed()))
		},
	})

	for i, file := range job.Files {
		job.update(func(p *Progress) {
			*p = Progress{State: StateCompiling, File: file, FileIndex: i, FileTotal: total}
		})
		failed, stdout, stderr := exec.Compile(ctx, workdir, file)
		if failed {
			job.Log.RecordBuildFailure(file, stdout, stderr)
			log.Warn("Document failed to build", logfields.File(file))
			continue
		}
		log.Info("Document built", logfields.File(file))
	}
}

func (o *Orchestrator) upload(ctx context.Context, job *Job, log *slog.Logger) {
	job.setState(StateUploading)
	if len(job.Files) == 0 {
		return
	}
	repo := job.RepoName()
	workdir := job.Workdir()

	if out, err := o.store.PrepareFolder(ctx, repo); err != nil {
		job.Log.RecordPrepareFailure(out)
		log.Error("Unable to prepare remote folder, skipping uploads", logfields.Error(err))
		return
	}

	total := len(job.Files)
	for i, file := range job.Files {
		job.update(func(p *Progress) {
			*p = Progress{State: StateUploading, File: file, FileIndex: i, FileTotal: total}
		})
		src := latex.ArtifactPath(workdir, file, o.artifactExt)
		dest := path.Join(repo, latex.ArtifactName(file, o.artifactExt))

		out, err := o.store.Upload(ctx, dest, src)
		o.recorder.IncUploadResult(metrics.Result(err != nil))
		if err != nil {
			job.Log.RecordUploadFailure(file, out)
			log.Warn("Upload failed", logfields.File(file), logfields.Path(dest), logfields.Error(err))
			continue
		}
		log.Info("Uploaded artifact", logfields.File(file), logfields.Path(dest))
	}
}
