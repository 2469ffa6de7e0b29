package journal

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a journaled recording.
type Status string

const (
	StatusDetected  Status = "detected"
	StatusUploading Status = "uploading"
	StatusShared    Status = "shared"
	StatusFailed    Status = "failed"
	StatusAborted   Status = "aborted"
)

// WatcherStopReason is the error message recorded when in-flight recordings
// are abandoned because the daemon shut down.
const WatcherStopReason = "Watcher stopped"

var allStatuses = []Status{
	StatusDetected,
	StatusUploading,
	StatusShared,
	StatusFailed,
	StatusAborted,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// terminalStatuses are the states a recording can rest in; anything else is
// considered in flight when the daemon starts up.
var terminalStatuses = map[Status]struct{}{
	StatusShared:  {},
	StatusFailed:  {},
	StatusAborted: {},
}

// HealthSummary describes aggregated journal counts per key lifecycle states.
type HealthSummary struct {
	Total    int
	InFlight int
	Shared   int
	Failed   int
	Aborted  int
}

// Recording represents one detected recording persisted in SQLite.
type Recording struct {
	ID           int64
	CycleID      string
	BaseName     string
	SourcePath   string
	Status       Status
	ShareURL     string
	ErrorMessage string
	SizeBytes    int64
	DetectedAt   time.Time
	CompletedAt  *time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus normalizes user input into a known status.
func ParseStatus(value string) (Status, bool) {
	candidate := Status(strings.ToLower(strings.TrimSpace(value)))
	_, ok := statusSet[candidate]
	return candidate, ok
}

// IsTerminal reports whether the status is a resting state.
func (s Status) IsTerminal() bool {
	_, ok := terminalStatuses[s]
	return ok
}

// String implements fmt.Stringer.
func (s Status) String() string {
	return string(s)
}
