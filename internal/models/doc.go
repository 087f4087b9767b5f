// Package models defines the data model shared by the form and option list syncers.
//
// The package contains three categories of types:
//
// 1. Local data: what the CSV loader produces
//   - [Dataset] : ordered rows of string cells with a stable column list
//   - [Row] : one row, keyed by sanitized column name
//
// 2. Remote data: what the iFormBuilder API returns
//   - [Container] : a page or option list, referenced by id
//   - [Element] : one field of a page schema
//   - [Record] : one page record with its remote id
//   - [Option] : one option of an option list
//
// 3. Reconciliation output and history
//   - [Operation] and [Plan] : derived create/update/delete calls, never persisted
//   - [SyncRun] : journal entry of one run, persisted through [Repository]
//
// Every cell is a string. Remote values are coerced to strings before they reach this package,
// so comparisons during reconciliation are plain string equality.
package models
