// Package simplefields provides a reusable library for attaching typed,
// validated metadata fields to named content types, with pluggable content
// store, cache, and host-event backends.
//
// It exposes two cooperating building blocks: a Group (an ordered registry of
// field definitions with its own validate/sanitize/persist pipeline and
// lifecycle hooks) and a Model (a per-content-type orchestrator owning one or
// more Groups and wiring them into CRUD, cached reads, ranked search, and the
// administrative column / quick-edit surface). Implementations of the
// collaborator interfaces (e.g., memory, Postgres, Redis, S3) are provided
// under subpackages.
//
// Metadata Strategy
//
// A field's persisted key is always the group's key prefix plus the field id.
// The store supports multi-valued keys natively; media and file fields use a
// replace-all write strategy (delete every entry for the key, then add each
// sanitized id) rather than updating in place.
package simplefields
