// Package tasks reconciles CSV datasets with iFormBuilder pages and option lists.
//
// # Pipeline
//
// Each sync runs four steps per unit of work (one page, or one option list):
//
//  1. Load: [dataset.LoadForm] or [dataset.LoadOptions] read and normalize the CSV
//  2. Resolve: [Resolver] finds or creates the remote container and its fields
//  3. Reconcile: [PlanRecords] and [PlanOptions] compute creates, updates and deletes
//  4. Apply: [Applier] sends the plan in batches of at most [shared.MaxBatchSize]
//
// [FormSyncer] and [ListSyncer] wire the steps together. Both return a result even when they fail part way
// so the caller can report what was applied. A dry run stops after step 3 and makes read calls only.
//
// # Validation
//
// Keyed page sync fails before any remote call when the key column is missing, empty, or duplicated.
// Option lists are validated per group; a bad group is skipped and the remaining groups still sync.
//
// # Progress Reporting
//
// Operations send [ProgressUpdate] values on an optional channel. Sends never block: updates are dropped
// when the receiver is not ready.
package tasks
