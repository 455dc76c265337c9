// Package core provides the business logic for catalog spreadsheet operations.
//
// This package compiles attribute rules into a typed spreadsheet schema and
// uses that schema to move data both ways between catalog records and
// spreadsheet rows. It is independent of any transport or file format and can
// be used by web handlers, the CLI or tests without modification.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Columns: the schema unit for one attribute, with its display name,
//     ownership (core or extended) and validation.
//   - Compiler: [Compile] folds an unordered list of [RuleRecord] values into
//     ordered columns. Each [RuleKind] has one handler producing a
//     [ColumnPatch]; a single merge function applies the cross-rule policies.
//   - Model: [Model] indexes columns by save name and display name and groups
//     them into severity tiers.
//   - Coercion: [Coerce] turns loosely typed cells into [CellValue] variants
//     and [RenderValue] turns them back into cells.
//   - Reconciliation: [Reconciler] turns one row into a [CatalogRecord] in two
//     phases, scan then merge with the existing record.
//   - Rendering: [Render] lays a model and its records out as a [Grid] for a
//     sink such as an xlsx writer or the HTML preview.
//   - Service: [Service] wires the external rule, catalog and warehouse
//     sources to the operations above.
//
// # Parsing
//
// A parse reads a whole sheet through a [RowSource] and reconciles rows in
// parallel:
//
//  1. The schema is compiled from the category and account rule sources
//  2. The header row is bound to columns by display name
//  3. Every row is scanned (phase one), in parallel
//  4. Existing records for all skus are fetched with one bulk lookup
//  5. Every row is merged with its existing record (phase two), in parallel,
//     with the warehouse directory fetched once per supplier
//
// # Error Handling
//
// Coercion never fails: malformed cells degrade to Null or a NaN number and
// are reported by [RecordValidator] as compliance entries. Source failures
// abort the whole call and are wrapped with sentinel errors such as
// [ErrRuleSource]. Technical errors are mapped to user-friendly messages using
// [MapError]:
//
//   - RULE001-RULE002: Rule source errors
//   - CAT001-CAT002: Catalog and warehouse errors
//   - FILE001-FILE005: File errors (size, type, header, format)
//   - PARSE001-PARSE003: Parse errors (busy, cancelled, timeout)
//
// Schema invariant violations, such as registering a column twice, are
// programming errors and panic.
package core
