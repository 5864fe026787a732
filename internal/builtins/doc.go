// Package builtins provides the tool providers compiled into coven-mcp.
//
// # Providers
//
// Sample Provider (builtin:sample):
//
//   - get_time: Current server time (RFC 3339)
//   - add: Sum of two integers
//   - concat: Concatenation of two strings
//   - throw_error: Always fails, message defaults to "Intentional error"
//
// Notes Provider (builtin:notes), backed by store.NoteStore:
//
//   - set_note, get_note, list_notes, delete_note
//   - export_notes: Every note in a namespace, reporting progress per note
//
// Every notes tool takes an optional namespace (default "default").
//
// Ledger Provider (builtin:ledger), backed by store.LedgerStore:
//
//   - recent_calls: Recent tool calls, optionally filtered by tool
//
// LedgerRecorder is the mcp.CallRecorder that fills the ledger.
package builtins
