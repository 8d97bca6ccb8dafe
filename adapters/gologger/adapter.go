// Package gologger routes the bridge session and its go-job workers through
// one logging sink.
package gologger

import (
	job "github.com/goliatone/go-job"
	glog "github.com/goliatone/go-logger/glog"
)

// WorkerLogging is the resolved logger pair plus its go-job projections. The
// balance-refresh and ledger-prune workers take the job side so their output
// lands in the same sink the session writes to.
type WorkerLogging struct {
	Provider    glog.LoggerProvider
	Logger      glog.Logger
	JobProvider job.LoggerProvider
	JobLogger   job.Logger
}

// Resolve applies the precedence provider > logger > nop and names the
// resulting logger after the bridge component.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	return glog.Resolve(name, provider, logger)
}

// ForWorkers resolves the pair under name and bridges it to the go-job
// contracts.
func ForWorkers(name string, provider glog.LoggerProvider, logger glog.Logger) WorkerLogging {
	resolvedProvider, resolvedLogger := Resolve(name, provider, logger)
	logging := WorkerLogging{
		Provider: resolvedProvider,
		Logger:   resolvedLogger,
	}
	if resolvedProvider != nil {
		logging.JobProvider = job.GoLoggerProvider(resolvedProvider)
	}
	if resolvedLogger != nil {
		logging.JobLogger = job.GoLogger(resolvedLogger)
	}
	return logging
}
