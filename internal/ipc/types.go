package ipc

import "time"

// PingRequest probes daemon liveness.
type PingRequest struct{}

// PingResponse identifies the responding daemon process.
type PingResponse struct {
	PID int `json:"pid"`
}

// StartRequest asks the daemon to begin watching for recordings.
type StartRequest struct{}

// StartResponse indicates whether watching began.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest ends the current watch run. The daemon process stays alive.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// JournalSummary aggregates journal rows by outcome.
type JournalSummary struct {
	Total    int `json:"total"`
	InFlight int `json:"in_flight"`
	Shared   int `json:"shared"`
	Failed   int `json:"failed"`
	Aborted  int `json:"aborted"`
}

// DependencyStatus describes availability of an external binary.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail"`
}

// StatusResponse represents combined daemon and watcher status information.
type StatusResponse struct {
	Watching     bool               `json:"watching"`
	Phase        string             `json:"phase"`
	ActiveBase   string             `json:"active_base"`
	CycleID      string             `json:"cycle_id"`
	Uploading    bool               `json:"uploading"`
	KnownFiles   int                `json:"known_files"`
	Journal      JournalSummary     `json:"journal"`
	JournalPath  string             `json:"journal_path"`
	LockPath     string             `json:"lock_path"`
	SocketPath   string             `json:"socket_path"`
	PID          int                `json:"pid"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// DevicesRequest fetches the capture device inventory. Refresh probes the
// system instead of returning the cached snapshot.
type DevicesRequest struct {
	Refresh bool `json:"refresh"`
}

// ScreenInfo describes one X11 output.
type ScreenInfo struct {
	Output   string `json:"output"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Primary  bool   `json:"primary"`
	Selected bool   `json:"selected"`
}

// CameraInfo describes one V4L2 capture device.
type CameraInfo struct {
	Device   string `json:"device"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// AudioInfo describes one PulseAudio source.
type AudioInfo struct {
	Name     string `json:"name"`
	Monitor  bool   `json:"monitor"`
	Selected bool   `json:"selected"`
}

// DevicesResponse contains the capture device inventory.
type DevicesResponse struct {
	Screens     []ScreenInfo `json:"screens"`
	Cameras     []CameraInfo `json:"cameras"`
	Audio       []AudioInfo  `json:"audio"`
	RefreshedAt time.Time    `json:"refreshed_at"`
}

// SelectDeviceRequest persists a capture device choice.
type SelectDeviceRequest struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// SelectDeviceResponse echoes the persisted selection.
type SelectDeviceResponse struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// HistoryRequest lists recent journal entries, newest first.
type HistoryRequest struct {
	Limit int `json:"limit"`
}

// HistoryEntry mirrors one journal row for CLI display.
type HistoryEntry struct {
	ID           int64      `json:"id"`
	CycleID      string     `json:"cycle_id"`
	BaseName     string     `json:"base_name"`
	SourcePath   string     `json:"source_path"`
	Status       string     `json:"status"`
	ShareURL     string     `json:"share_url"`
	ErrorMessage string     `json:"error_message"`
	SizeBytes    int64      `json:"size_bytes"`
	DetectedAt   time.Time  `json:"detected_at"`
	CompletedAt  *time.Time `json:"completed_at"`
}

// HistoryResponse contains journal entries.
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}

// HistoryClearRequest removes all journal entries.
type HistoryClearRequest struct{}

// HistoryClearResponse reports number of removed entries.
type HistoryClearResponse struct {
	Removed int64 `json:"removed"`
}

// UploadRequest shares an existing recording outside the watch flow.
type UploadRequest struct {
	Path string `json:"path"`
}

// UploadResponse reports where the file was shared.
type UploadResponse struct {
	BaseName string `json:"base_name"`
	Dest     string `json:"dest"`
	URL      string `json:"url"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
