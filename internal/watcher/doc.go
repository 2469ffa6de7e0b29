// Package watcher owns the recording lifecycle: it notices new files in the
// watch directory, claims each one exactly once, polls the claimed file until
// its size stops changing, and brackets that window with capture start/stop
// and the two upload phases.
//
// One goroutine runs the state machine. Change notifications, poll samples,
// capture exits, and upload completions all arrive as typed events on a
// single channel, so every transition happens single-threaded even though the
// stimuli come from many goroutines. The known-file set, the active recording
// slot, and the poller handle are touched only from that loop.
package watcher
