// Package notify wakes the watcher when the watch directory changes.
//
// The primary implementation uses inotify so new recordings surface within
// milliseconds of the recorder creating them. When inotify is unavailable
// (exotic filesystems, exhausted watch descriptors) a polling fallback samples
// the directory mtime instead. Both deliver coalesced batches of entry names;
// consumers treat a batch as a hint to rescan, never as an authoritative
// listing.
package notify
