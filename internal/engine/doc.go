// Package engine runs the graph engine: the goroutines that own the
// AtomSpace and execute commands taken from a FIFO queue.
//
// # Architecture
//
//	HTTP handlers ──▶ bridge.Submit ──▶ Queue ──▶ worker(s) ──▶ AtomSpace
//	                                                  │
//	                                                  ├──▶ WebSocket hub (atom.created)
//	                                                  └──▶ MQTT (<prefix>/atom/created/<type>)
//
// # Usage
//
//	eng := engine.New(space, command.NewRegistry(), engine.Options{Workers: 2})
//	if err := eng.RegisterBuiltins(); err != nil {
//	    return err
//	}
//	if err := eng.Start(ctx); err != nil {
//	    return err
//	}
//	defer eng.Stop()
package engine
