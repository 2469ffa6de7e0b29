// Package notifications delivers one-shot user-facing notices for recording
// lifecycle milestones such as a new detection or a finished upload.
//
// Two backends exist: desktop notifications over the session bus, and remote
// push via ntfy. Both can be active at once. Per-event toggles in the config
// gate which milestones notify at all, and failures are returned to the
// caller for logging without ever affecting the lifecycle itself.
package notifications
