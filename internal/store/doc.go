// Package store provides persistent storage for coven-mcp using SQLite.
//
// # Architecture
//
// Two small interfaces cover what the server persists:
//
//   - LedgerStore: an append-only record of every tools/call
//   - NoteStore: key/value notes grouped by namespace
//
// SQLiteStore implements both (as Store). MockStore is an in-memory
// implementation with the same semantics for tests.
//
// # Timestamps
//
// Times are stored as fixed-width UTC strings so lexical order matches
// chronological order.
//
// # Usage
//
//	s, err := store.NewSQLiteStore("/var/lib/coven/mcp.db")
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
//	err = s.SetNote(ctx, &store.Note{Key: "greeting", Value: "hello"})
//	note, err := s.GetNote(ctx, store.DefaultNamespace, "greeting")
package store
