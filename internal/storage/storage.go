package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotConfigured indicates the storage section lacks a bucket, so upload
// components should stay disabled rather than fail per recording.
var ErrNotConfigured = errors.New("storage not configured")

// Cache-control applied to every uploaded object. The placeholder must never
// be cached (viewers poll it while the real upload is in flight) and the real
// asset reuses the same policy so a cached placeholder can never shadow it.
const CacheControlNoCache = "no-cache"

// Content types for the two object kinds uplink writes.
const (
	ContentTypeHTML  = "text/html"
	ContentTypeVideo = "video/mp4"
)

// ObjectStore is the collaborator the upload coordinator drives.
//
// Delete is idempotent: deleting an object that does not exist succeeds.
type ObjectStore interface {
	Put(ctx context.Context, name, contentType, cacheControl string, body io.Reader, length int64) error
	Delete(ctx context.Context, name string) error
	SetPublicRead(ctx context.Context, name string) error
	PublicURL(name string) string
}

// Disabled returns an ObjectStore whose operations fail with
// ErrNotConfigured. The daemon installs it when no bucket is set, so
// recordings are still detected and journaled while uploads report a clear
// error instead of crashing the watch loop.
func Disabled() ObjectStore {
	return disabledStore{}
}

type disabledStore struct{}

func (disabledStore) Put(context.Context, string, string, string, io.Reader, int64) error {
	return ErrNotConfigured
}

func (disabledStore) Delete(context.Context, string) error { return ErrNotConfigured }

func (disabledStore) SetPublicRead(context.Context, string) error { return ErrNotConfigured }

func (disabledStore) PublicURL(string) string { return "" }

