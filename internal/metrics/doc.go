// Package metrics records task, build and external tool metrics.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no call site needs a nil check:
//
//	rec := metrics.NewPrometheusRecorder(nil)
//	executor.WithObserver(metrics.NewObserver(rec))
//	sphinxPlugin := sphinx.New(sphinx.WithRecorder(rec))
//
// sphinxctl has no long-running server, so the Prometheus implementation is
// exported by writing the registry to a node_exporter textfile
// (PrometheusRecorder.WriteTextfile) after each build.
package metrics
