// Package repositories implements SQLite persistence for the sync run journal.
//
// [RunRepository] stores one [models.SyncRun] per form or option list run. Entries are soft deleted
// via deleted_at and excluded from queries once deleted.
//
// Sequence numbers give runs a stable, human-readable order (run #42) independent of UUIDs and
// timestamps. [NextSequence] increments the per-table counter held in a dedicated sequence table.
package repositories
