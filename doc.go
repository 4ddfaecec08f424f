// Package blobcast implements a scheduled batch export job that moves a
// fixed-size snapshot of records through three stores: a PostgreSQL
// source, a MongoDB staging collection, and an Azure Blob Storage
// container hosting the published CSV artifact.
//
// # Pipeline
//
// One run executes five stages in strict sequence:
//
//  1. Extract: read a bounded, ordered slice of rows from the source table
//  2. Stage: normalize values and replace the staging collection contents
//  3. Re-extract: read the staged documents back, dropping the store identity
//  4. Serialize: render the records as a UTF-8 CSV artifact
//  5. Publish: upload the artifact under a fixed blob name and return its URL
//
// Failure of any stage aborts the rest of the run. The blob name never
// changes, so the published artifact stays addressable at one stable URL
// and each successful run overwrites the previous one.
//
// # Layout
//
//   - cmd/blobcast: the CLI entry point
//   - internal/pipeline: the run orchestrator and its state machine
//   - pkg/recordset: the tabular in-memory model and value normalization
//   - pkg/source/postgres, pkg/staging/mongo, pkg/publish/azure: the three
//     store boundaries
//   - pkg/export: CSV serialization
//   - pkg/config, pkg/logger, pkg/xerrors: configuration, logging and the
//     structured error taxonomy
package blobcast
