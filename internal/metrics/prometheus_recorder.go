package metrics

import (
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "texbuilder"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stepDuration  *prom.HistogramVec
	cloneDuration *prom.HistogramVec
	uploadResults *prom.CounterVec
	jobDuration   *prom.HistogramVec
	preempted     prom.Counter
	rejected      *prom.CounterVec
}

// NewPrometheusRecorder constructs the collectors and registers them on reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stepDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of individual typesetting steps",
			Buckets:   prom.DefBuckets,
		}, []string{"step", "result"}),
		cloneDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "clone_duration_seconds",
			Help:      "Duration of repository clones",
			Buckets:   prom.DefBuckets,
		}, []string{"result"}),
		uploadResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "upload_results_total",
			Help:      "Artifact uploads by result",
		}, []string{"result"}),
		jobDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Total job duration by final outcome",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"outcome"}),
		preempted: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "preempted_responses_total",
			Help:      "Responses sent by the deadline watchdog before the job finished",
		}),
		rejected: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_requests_total",
			Help:      "Webhook requests rejected before the pipeline ran, by status code",
		}, []string{"status"}),
	}
	reg.MustRegister(pr.stepDuration, pr.cloneDuration, pr.uploadResults, pr.jobDuration, pr.preempted, pr.rejected)
	return pr
}

func (p *PrometheusRecorder) ObserveStepDuration(step string, d time.Duration, result ResultLabel) {
	p.stepDuration.WithLabelValues(step, string(result)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveCloneDuration(d time.Duration, result ResultLabel) {
	p.cloneDuration.WithLabelValues(string(result)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncUploadResult(result ResultLabel) {
	p.uploadResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveJob(outcome string, d time.Duration) {
	p.jobDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPreempted() {
	p.preempted.Inc()
}

func (p *PrometheusRecorder) IncRejected(status int) {
	p.rejected.WithLabelValues(strconv.Itoa(status)).Inc()
}
