package watcher

import (
	"context"
	"time"
)

// poller samples one file's size on a fixed interval and feeds the
// observations into the event loop. At most one poller is live at a time;
// the loop always stops the previous one before arming another. A stopped
// poller may still have a sample in flight, which the loop discards by
// cycle ID.
type poller struct {
	cancel context.CancelFunc
}

func (w *Watcher) startPoller(cycleID, path string) *poller {
	ctx, cancel := context.WithCancel(w.runCtx)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				size, err := w.probe(path)
				w.post(pollSampleEvent{cycleID: cycleID, size: size, ok: err == nil})
			}
		}
	}()
	return &poller{cancel: cancel}
}

// stopPoller cancels the live poller, if any. Safe to call when none is
// running.
func (w *Watcher) stopPoller() {
	if w.poll == nil {
		return
	}
	w.poll.cancel()
	w.poll = nil
}
