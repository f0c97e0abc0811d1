// Package cache persists recorded upstream responses. A ResponseCache maps a
// request fingerprint to <segments>/<id>.json (plus an optional
// <id>.meta.json and a shared apiQuery.log audit trail) on top of a BlobStore.
// Three BlobStore backends exist: plain files (temp file + rename), LevelDB
// and SQLite. Writes are best effort and report failures through WriteReport
// instead of returning errors.
package cache
