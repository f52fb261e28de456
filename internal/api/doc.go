// Package api implements the HTTP REST API and WebSocket server for cogweb.
//
// This package provides:
//   - REST endpoints for atom lookup, listing, creation and generic commands
//   - WebSocket hub broadcasting atom events
//   - MQTT command ingress answering on response topics
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - Static document root without directory listing
//
// # Architecture
//
// Handlers never read the AtomSpace. Each request becomes a command from
// the registry, is submitted through the bridge and waits a bounded time
// for the engine. The outcome is rendered by one status table:
//
//	Success                      200
//	BadRequest                   400
//	NotFound, unknown operation  404
//	Timeout, EngineError         500
//
// A route that exists but names an absent atom is a 500 from the engine;
// a path with no route is a 404 from the router.
//
// # Routing
//
// chi carries middleware and the fixed endpoints. Atom, list and command
// paths are resolved by route tables where the most specific pattern wins
// regardless of registration order.
//
// # Graceful Degradation
//
// MQTT, InfluxDB and the database are optional. Without them the API still
// serves every data route from the in-memory AtomSpace.
package api
