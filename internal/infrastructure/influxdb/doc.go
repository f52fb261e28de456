// Package influxdb provides InfluxDB connectivity for cogweb metrics.
//
// It wraps the official influxdb-client-go v2 library and writes three
// measurements, each tagged service=cogweb:
//   - dispatch: one point per bridge dispatch, tagged by operation and
//     outcome, with the wait duration in milliseconds
//   - engine: periodic snapshots of queue depth, command counters and
//     atom count
//   - runtime: goroutines, heap and GC count sampled with the engine
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB, logger)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	b := bridge.New(eng, bridge.Options{Recorder: client})
//
// # Thread Safety
//
// All methods are safe for concurrent use. Writes are non-blocking and
// batched per batch_size and flush_interval; write errors are counted and
// logged.
package influxdb
