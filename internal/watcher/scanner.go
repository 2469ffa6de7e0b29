package watcher

import (
	"os"
	"path/filepath"
	"strings"
)

// Scan lists the files with the tracked extension directly under dir and
// returns their names. Files already present when watching begins are never
// treated as new recordings. The listing is read-only and tolerant: an
// unreadable or missing directory yields an empty set so the watcher can
// still start.
func Scan(dir, ext string) map[string]struct{} {
	known := make(map[string]struct{})
	entries, err := os.ReadDir(dir)
	if err != nil {
		return known
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			known[entry.Name()] = struct{}{}
		}
	}
	return known
}
