package bridge

import (
	"context"
	"time"

	"github.com/goliatone/go-hostbridge/core"
)

// observeOperation wraps one session operation with a counter and a duration
// histogram. Tags carry the operation name and terminal status.
func observeOperation(ctx context.Context, recorder core.MetricsRecorder, clock func() time.Time, operation string, fn func() error) error {
	if recorder == nil {
		recorder = core.NopMetricsRecorder{}
	}
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	started := clock()
	err := fn()
	status := "ok"
	if err != nil {
		status = "error"
	}
	tags := map[string]string{"operation": operation, "status": status}
	recorder.IncCounter(ctx, "bridge."+operation+".total", 1, tags)
	recorder.ObserveHistogram(ctx, "bridge."+operation+".duration_ms", float64(clock().Sub(started).Milliseconds()), tags)
	return err
}
