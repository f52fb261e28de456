// Package atomspace holds the graph engine's data model.
//
// An AtomSpace is a hypergraph of typed atoms. Nodes carry a name, links carry
// an ordered outgoing set of other atoms. Every atom has a numeric handle that
// is assigned once and never reused, and a simple truth value.
//
// # Ownership
//
// The AtomSpace is owned by the engine. Only engine workers read or mutate it;
// HTTP handlers receive copies through dispatched command results. The space
// is still internally locked so that more than one engine worker can run.
//
// # Persistence
//
// A Repository can be attached so atoms survive restarts:
//
//	repo := atomspace.NewSQLiteRepository(db.DB)
//	space := atomspace.New()
//	if err := space.Load(ctx, repo); err != nil {
//	    return err
//	}
package atomspace
