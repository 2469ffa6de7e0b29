// Package daemon ties the journal, watcher, device catalog, and upload
// coordinator together behind one control surface.
//
// A file lock enforces single-instance execution. Start begins a watching
// run: the device inventory is refreshed, a hotplug monitor keeps it fresh,
// and the watcher takes over the recording lifecycle. Stop ends the run
// without terminating the process, so the IPC surface stays available for
// status queries, device selection, history, and manual uploads.
package daemon
