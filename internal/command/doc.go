// Package command defines the unit of work exchanged between HTTP handlers
// and the engine, plus the registry that builds fresh commands by name.
//
// # Lifecycle
//
//	Registry.Create ──▶ bridge.Submit ──▶ engine queue ──▶ worker Execute
//	                        │                                    │
//	                        ◀───────────── Complete ◀────────────┘
//
// A Command is completed exactly once. If the waiting side gives up first it
// calls Abandon, and the eventual completion is discarded.
//
// # Registration
//
// Operations are registered during startup and the registry is then sealed:
//
//	reg := command.NewRegistry()
//	_ = reg.Register("ping", func() command.Request { return pingRequest{} })
//	reg.Seal()
//
// After Seal the registry is read-only and Create needs no locking.
package command
