// Package wire synchronizes slices of remote git repositories into a local
// tree.
//
// An Engine takes a list of Requests, groups them by cache key and, for each
// key, fetches at most once per run before extracting every request's
// filtered subset into its target. Groups run in parallel on a bounded pool;
// with one worker everything runs strictly in order, producing the same
// outcomes and the same files.
//
// Basic usage:
//
//	store, _ := cache.NewStore(root)
//	engine := wire.New(store, cache.NewLockRegistry(), fetch.New(store), extract.New())
//	report, err := engine.Sync(ctx, requests)
//	if err != nil {
//	    // the request list itself is invalid; nothing ran
//	}
//	for _, r := range report.Failed() {
//	    log.Println(r.Request.Target, r.Err)
//	}
package wire
