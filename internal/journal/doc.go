// Package journal persists the recording lifecycle in SQLite so operators can
// audit what the watcher detected and where each upload ended up.
//
// The Store manages database connections, schema initialization, and status
// transitions for recordings. Rows capture the source path, the share URL, and
// failure details so the history command can answer "what happened to that
// recording" long after the daemon restarted.
//
// The journal is an audit log, not runtime state: the watcher never rebuilds
// its claimed-file set from these rows, so deleting the database only loses
// history. Schema changes bump the version in schema.go; users delete the
// database to adopt the new schema.
package journal
