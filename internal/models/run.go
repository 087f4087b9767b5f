package models

import (
	"errors"
	"fmt"
	"time"
)

// RunKind names the pipeline that produced a [SyncRun].
type RunKind string

const (
	RunKindForm RunKind = "form"
	RunKindList RunKind = "list"
)

// RunStatus is the lifecycle state of a [SyncRun].
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunCounts tallies what a run did (or planned, for dry runs).
type RunCounts struct {
	Creates  int `json:"creates"`
	Updates  int `json:"updates"`
	Deletes  int `json:"deletes"`
	Skipped  int `json:"skipped"`
	Warnings int `json:"warnings"`
	Calls    int `json:"calls"`
}

// SyncRun is the journal entry of one form or option list sync.
type SyncRun struct {
	id        string
	sequence  int
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time

	Kind        RunKind    `json:"kind"`
	Target      string     `json:"target"`
	ProfileID   int64      `json:"profile_id"`
	DryRun      bool       `json:"dry_run"`
	Status      RunStatus  `json:"status"`
	Counts      RunCounts  `json:"counts"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewSyncRun creates a running journal entry for target.
func NewSyncRun(kind RunKind, target string, profileID int64, dryRun bool) *SyncRun {
	now := time.Now()
	return &SyncRun{
		createdAt: now,
		updatedAt: now,
		Kind:      kind,
		Target:    target,
		ProfileID: profileID,
		DryRun:    dryRun,
		Status:    RunStatusRunning,
		StartedAt: now,
	}
}

func (r *SyncRun) ID() string                { return r.id }
func (r *SyncRun) Sequence() int             { return r.sequence }
func (r *SyncRun) CreatedAt() time.Time      { return r.createdAt }
func (r *SyncRun) UpdatedAt() time.Time      { return r.updatedAt }
func (r *SyncRun) DeletedAt() *time.Time     { return r.deletedAt }
func (r *SyncRun) SetID(id string)           { r.id = id }
func (r *SyncRun) SetSequence(seq int)       { r.sequence = seq }
func (r *SyncRun) SetCreatedAt(t time.Time)  { r.createdAt = t }
func (r *SyncRun) SetUpdatedAt(t time.Time)  { r.updatedAt = t }
func (r *SyncRun) SetDeletedAt(t *time.Time) { r.deletedAt = t }

// Complete marks the run finished. A non-nil err marks it failed and records the message.
func (r *SyncRun) Complete(counts RunCounts, err error) {
	now := time.Now()
	r.Counts = counts
	r.CompletedAt = &now
	r.Status = RunStatusCompleted
	if err != nil {
		r.Status = RunStatusFailed
		r.Error = err.Error()
	}
}

// Duration returns how long the run took, or zero while it is still running.
func (r *SyncRun) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// Validate checks required fields and known enum values.
func (r *SyncRun) Validate() error {
	switch r.Kind {
	case RunKindForm, RunKindList:
	default:
		return fmt.Errorf("invalid run kind %q", r.Kind)
	}
	switch r.Status {
	case RunStatusRunning, RunStatusCompleted, RunStatusFailed:
	default:
		return fmt.Errorf("invalid run status %q", r.Status)
	}
	if r.Target == "" {
		return errors.New("target is required")
	}
	if r.StartedAt.IsZero() {
		return errors.New("started_at is required")
	}
	return nil
}
