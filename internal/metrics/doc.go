// Package metrics records build metrics.
//
// Components receive a Recorder and default to NoopRecorder, so metrics
// cost nothing unless configured:
//
//	recorder := metrics.NewPrometheusRecorder(nil)
//	builder := build.New(cfg, build.WithRecorder(recorder))
//
// A PrometheusRecorder can be written to a node-exporter textfile after a
// run or served over HTTP by the scheduler.
package metrics
