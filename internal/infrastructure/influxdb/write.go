package influxdb

import "time"

// Measurement names written by cogweb.
const (
	MeasurementDispatch = "dispatch"
	MeasurementEngine   = "engine"
	MeasurementRuntime  = "runtime"
)

// EngineSnapshot is the set of engine gauges written by WriteEngineStats.
// A negative Atoms means the count could not be read and is not written.
type EngineSnapshot struct {
	QueueDepth int
	Executed   uint64
	Failed     uint64
	Discarded  uint64
	Atoms      int
}

// RuntimeSnapshot holds process gauges written alongside engine stats.
type RuntimeSnapshot struct {
	Goroutines int
	HeapMB     float64
	NumGC      uint32
}

// RecordDispatch writes one dispatch through the bridge. It satisfies
// bridge.Recorder.
func (c *Client) RecordDispatch(operation, outcome string, duration time.Duration) {
	c.write(MeasurementDispatch,
		map[string]string{"operation": operation, "outcome": outcome},
		map[string]any{"duration_ms": float64(duration) / float64(time.Millisecond)},
		time.Now())
}

// WriteEngineStats writes a point-in-time snapshot of engine counters.
func (c *Client) WriteEngineStats(s EngineSnapshot) {
	fields := map[string]any{
		"queue_depth": s.QueueDepth,
		"executed":    s.Executed,
		"failed":      s.Failed,
		"discarded":   s.Discarded,
	}
	if s.Atoms >= 0 {
		fields["atoms"] = s.Atoms
	}
	c.write(MeasurementEngine, nil, fields, time.Now())
}

// WriteRuntime writes process gauges taken at the given time.
func (c *Client) WriteRuntime(s RuntimeSnapshot, at time.Time) {
	c.write(MeasurementRuntime, nil, map[string]any{
		"goroutines": s.Goroutines,
		"heap_mb":    s.HeapMB,
		"num_gc":     s.NumGC,
	}, at)
}
