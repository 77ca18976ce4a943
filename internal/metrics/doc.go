// Package metrics provides observability hooks for the build pipeline.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no nil checks are needed at call sites:
//
//	recorder := metrics.Recorder(metrics.NoopRecorder{})
//	if cfg.Metrics.Enabled {
//	    recorder = metrics.NewPrometheusRecorder(registry)
//	}
//
// PrometheusRecorder registers its collectors on the given registry, which
// HTTPHandler then serves.
package metrics
