// Package session provides session management and the match archive for
// the Gobblets server.
//
// Manager keeps live sessions in memory, keyed case-insensitively by a
// 4-character hex ID drawn from crypto/rand. Each service.Session owns its
// own engine and, for timed games, its own clock scheduler. Deleting or
// expiring a session closes it, which stops the clock and detaches every
// observer before the session is dropped.
//
// FileResultStore archives the outcome of every finished match as one JSON
// file. Live game state is never written to disk: a session lives exactly as
// long as the process that hosts it.
//
// Usage:
//
//	manager := session.NewManager(session.WithLogger(logger))
//
//	// Create a new session
//	sess, err := manager.Create("", config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Remove sessions idle for more than an hour, checking every minute
//	go manager.RunJanitor(ctx, time.Minute, time.Hour)
//
//	// Archive finished matches
//	results, err := session.NewFileResultStore("results")
//
// Concurrency:
//
// Manager and FileResultStore are safe for concurrent use. Sessions are
// closed outside the manager lock because stopping a clock waits for its
// in-flight tick.
package session
