// Package config loads, normalizes, and validates uplink configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads the JSON settings file, and honours environment fallbacks
// for object-store credentials. The Config type centralizes every knob the
// daemon and CLI need: the watch directory, stability tuning, capture devices,
// storage destination, and notification routing.
//
// A missing settings file yields defaults; a malformed one also yields
// defaults together with ErrMalformed so callers can warn and keep running.
// Settings are written back with Save whenever the user changes one, so the
// file on disk always reflects the active selection.
package config
