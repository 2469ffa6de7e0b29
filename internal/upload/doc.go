// Package upload drives the two-phase upload that makes a recording's share
// URL useful from the moment the file appears: a placeholder page is written
// at detection, and the finished video replaces it once the file stops
// growing. Both phases target the same destination object, so the URL handed
// out at detection time never changes.
package upload
