// Package capture supervises the auxiliary ffmpeg subprocesses that record
// raw screen, camera, and microphone sources alongside each detected
// recording.
//
// A session brackets one recording: it starts up to three subprocesses
// writing into <output_dir>/<base>_sources/ and stops them when the recording
// finishes. Capture is strictly best-effort: launch failures and early exits
// are logged but never block the upload lifecycle.
//
// Stop semantics are deliberately asymmetric: the screen encoder gets SIGTERM
// (its container is the most prone to corruption on abrupt exit and ffmpeg
// finalizes cleanly on TERM), camera and audio get SIGINT. A delayed sweep
// force-kills anything still running after the grace window. The sweep closes
// over the handles captured at stop time, so a session started before the
// sweep fires is never touched by it.
package capture
