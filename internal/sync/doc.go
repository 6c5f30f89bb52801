// Package sync keeps the in-memory record collections, the local cache
// and the remote store consistent.
//
// # Overview
//
// The Coordinator is the only writer of the three collections
// (treatments, dentists, tooth statuses). It decides per operation which
// stores to touch:
//
//	     mutation
//	        |
//	session + remote? --yes--> Remote Store (awaited, best-effort)
//	        |                         |
//	        v                         v
//	in-memory collections <---- adopt server id on insert
//	        |
//	        v
//	   Local Cache (always)
//
// A remote failure never aborts a mutation: the error is logged and the
// local write proceeds with a client-generated id. The cache is therefore
// always current and is the durable source of truth for the running
// process.
//
// # Reconciliation
//
// When a session starts (interactive sign-in or restore at start-up) the
// coordinator fetches all three remote collections in parallel. If every
// fetch succeeds, the fetched values replace memory and overwrite the
// cache; this is a one-way overwrite, not a merge. If any fetch fails,
// memory is reloaded from the cache unchanged and the coordinator keeps
// working in cache-only mode. A reconciliation for a session that
// already reconciled is skipped, so duplicate sign-in events are
// harmless.
//
// Guest data that never reached the remote store is lost by the
// overwrite. The coordinator logs a warning with the counts first, and
// Options.PushGuestDataOnSignIn pushes that data before overwriting.
//
// Usage
//
//	coord := sync.New(store, remoteStore, sessions, sync.Options{Logger: logger})
//	if err := coord.Init(ctx); err != nil {
//	    return err
//	}
//	defer coord.Close()
//
//	t, err := coord.AddOrEditTreatment(ctx, model.Treatment{
//	    ToothID: model.ToothPtr(16),
//	    Kind:    model.KindExtraction,
//	    Date:    "2024-01-01",
//	}, "")
//
// # Concurrency
//
// Mutations and reconciliation are serialized by a write lock held across
// the remote await and the local apply, so local applies happen in
// issuance order. Readers (Collections, IsSyncing, HasSession) use a
// separate lock and never wait on network I/O.
package sync
