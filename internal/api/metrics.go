package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/cogweb/cogweb-core/internal/atomspace"
	"github.com/cogweb/cogweb-core/internal/bridge"
	"github.com/cogweb/cogweb-core/internal/command"
	"github.com/cogweb/cogweb-core/internal/engine"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	WebSocket     WSMetrics        `json:"websocket"`
	MQTT          MQTTMetrics      `json:"mqtt"`
	Bridge        bridge.Stats     `json:"bridge"`
	Engine        *engine.Stats    `json:"engine,omitempty"`
	Atoms         AtomMetrics      `json:"atoms"`
	Database      *DatabaseMetrics `json:"database,omitempty"`
}

// AtomMetrics holds AtomSpace counts read through the engine queue.
// Status is "ok" or the outcome kind that prevented the read, in which
// case Stats is omitted.
type AtomMetrics struct {
	Status string           `json:"status"`
	Stats  *atomspace.Stats `json:"stats,omitempty"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int    `json:"connected_clients"`
	DroppedEvents    uint64 `json:"dropped_events"`
}

// MQTTMetrics contains MQTT client statistics.
type MQTTMetrics struct {
	Enabled   bool `json:"enabled"`
	Connected bool `json:"connected"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleMetrics returns dispatch counters, engine statistics and runtime data.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	// Dispatched first so the bridge counters below include it.
	atoms := s.atomMetrics()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Bridge: s.bridge.Stats(),
		Atoms:  atoms,
	}

	if s.hub != nil {
		metrics.WebSocket.ConnectedClients = s.hub.ClientCount()
		metrics.WebSocket.DroppedEvents = s.hub.Dropped()
	}

	if s.mqtt != nil {
		metrics.MQTT = MQTTMetrics{
			Enabled:   true,
			Connected: s.mqtt.IsConnected(),
		}
	}

	if s.engine != nil {
		stats := s.engine.Stats()
		metrics.Engine = &stats
	}

	if s.db != nil {
		dbStats := s.db.Stats()
		metrics.Database = &DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}

// atomMetrics reads AtomSpace counts with the stats operation. A timeout or
// refusal leaves the section without stats.
func (s *Server) atomMetrics() AtomMetrics {
	outcome, err := s.bridge.Call(s.registry, engine.OpStats, nil)
	if err != nil {
		outcome = outcomeFromError(err)
	}
	if outcome.Kind != command.KindSuccess {
		s.logger.Warn("atom stats unavailable", "outcome", outcome.Kind.String(), "message", outcome.Message)
		return AtomMetrics{Status: outcome.Kind.String()}
	}
	stats, ok := outcome.Payload.(atomspace.Stats)
	if !ok {
		return AtomMetrics{Status: command.KindEngineError.String()}
	}
	return AtomMetrics{Status: "ok", Stats: &stats}
}
