// Package store holds the shared relational schema for the reconciliation
// stores. Each entity store lives in its own subpackage.
package store

import _ "embed"

// Schema is the full DDL for the reconciliation tables.
//
//go:embed schema.sql
var Schema string
