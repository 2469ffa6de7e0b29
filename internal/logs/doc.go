// Package logs reads the daemon log file for CLI display.
//
// Tail supports negative offsets for "last N lines", resuming from a saved
// byte offset, and a bounded follow mode that polls for fresh lines until a
// wait elapses. Both `uplink logs` and the LogTail RPC build on it. A missing
// log file reports empty output instead of an error so log commands work
// before the daemon has written anything.
package logs
