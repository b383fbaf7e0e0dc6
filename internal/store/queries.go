// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package store provides SQLite-backed persistence for the mirror
// system: languages, entities, translation pointers, queue jobs, field
// snapshots and the event log.
package store

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql used by Queries, satisfied by both
// *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries exposes all database operations.
type Queries struct {
	db DBTX
}

// New creates a Queries bound to the given database or transaction.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries bound to the given transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}
