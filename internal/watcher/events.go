package watcher

import (
	"uplink/internal/capture"
	"uplink/internal/upload"
)

// Everything that can happen to the lifecycle arrives as one of these on a
// single channel, so transitions stay single-threaded no matter which
// goroutine observed the stimulus.
type event interface{ isEvent() }

// fileChangedEvent carries a batch of changed paths from the change
// notifier. An empty batch means "something changed, rescan the directory".
type fileChangedEvent struct {
	paths []string
}

// pollSampleEvent carries one stability-poll observation. cycleID pins the
// sample to the recording it was taken for, so a sample from a poller that
// was cancelled late is discarded instead of leaking into the next cycle.
type pollSampleEvent struct {
	cycleID string
	size    int64
	ok      bool
}

// captureExitedEvent reports an auxiliary capture subprocess finishing.
type captureExitedEvent struct {
	kind     capture.Kind
	exitCode int
}

// uploadFinishedEvent reports an asynchronous upload stage completing.
type uploadFinishedEvent struct {
	stage  string
	result upload.Result
}

func (fileChangedEvent) isEvent()    {}
func (pollSampleEvent) isEvent()     {}
func (captureExitedEvent) isEvent()  {}
func (uploadFinishedEvent) isEvent() {}
