// ABOUTME: SQLite-backed offline snapshot of the pipeline
// ABOUTME: Persists each collection as JSON and records every sync run
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/harperreed/agencycrm/models"
)

// Collection names stored in the snapshots table.
const (
	collectionLeads         = "leads"
	collectionSavedLeads    = "saved_leads"
	collectionClients       = "clients"
	collectionCustomers     = "customers"
	collectionGoal          = "goal"
	collectionPreviousGoals = "previous_goals"
)

// Cache stores the last pipeline fetched from the server.
type Cache struct {
	db  *sql.DB
	now func() time.Time
}

// NewCache wraps an open cache database.
func NewCache(db *sql.DB) *Cache {
	return &Cache{db: db, now: time.Now}
}

// OpenCache opens the database at path and wraps it.
func OpenCache(path string) (*Cache, error) {
	db, err := OpenDatabase(path)
	if err != nil {
		return nil, err
	}
	return NewCache(db), nil
}

// DB exposes the underlying handle for sync state queries.
func (c *Cache) DB() *sql.DB { return c.db }

func (c *Cache) Close() error { return c.db.Close() }

// SaveSnapshot replaces every cached collection and logs a successful sync run.
func (c *Cache) SaveSnapshot(ctx context.Context, p models.Pipeline) error {
	now := c.now().UTC()
	payloads := map[string]any{
		collectionLeads:         nonNil(p.Leads),
		collectionSavedLeads:    nonNil(p.SavedLeads),
		collectionClients:       nonNil(p.Clients),
		collectionCustomers:     nonNil(p.Customers),
		collectionGoal:          p.Goal,
		collectionPreviousGoals: nonNil(p.PreviousGoals),
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for name, v := range payloads {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", name, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO snapshots (collection, payload, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(collection) DO UPDATE SET
				payload = excluded.payload,
				updated_at = excluded.updated_at
		`, name, string(data), now)
		if err != nil {
			return fmt.Errorf("failed to store %s: %w", name, err)
		}
	}

	runID := newRunID(now)
	if err := markSynced(tx, ServiceCRM, runID, now); err != nil {
		return err
	}
	err = logRun(tx, SyncRun{
		ID:        runID,
		Service:   ServiceCRM,
		Status:    "success",
		Leads:     len(p.Leads) + len(p.SavedLeads),
		Clients:   len(p.Clients),
		Customers: len(p.Customers),
		SyncedAt:  now,
	})
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the cached pipeline and when it was written, or nil if nothing is cached.
func (c *Cache) LoadSnapshot(ctx context.Context) (*models.Pipeline, time.Time, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT collection, payload, updated_at FROM snapshots`)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to read snapshot: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var p models.Pipeline
	var cachedAt time.Time
	found := false
	for rows.Next() {
		var name, payload string
		var updated time.Time
		if err := rows.Scan(&name, &payload, &updated); err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		found = true
		if updated.After(cachedAt) {
			cachedAt = updated
		}

		var target any
		switch name {
		case collectionLeads:
			target = &p.Leads
		case collectionSavedLeads:
			target = &p.SavedLeads
		case collectionClients:
			target = &p.Clients
		case collectionCustomers:
			target = &p.Customers
		case collectionGoal:
			target = &p.Goal
		case collectionPreviousGoals:
			target = &p.PreviousGoals
		default:
			continue
		}
		if err := json.Unmarshal([]byte(payload), target); err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to decode %s: %w", name, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if !found {
		return nil, time.Time{}, nil
	}
	return &p, cachedAt, nil
}

// RecordSyncError marks the CRM sync as failed and logs the attempt.
func (c *Cache) RecordSyncError(ctx context.Context, cause error) error {
	if cause == nil {
		cause = errors.New("unknown error")
	}
	msg := cause.Error()
	if err := UpdateSyncStatus(c.db, ServiceCRM, StatusError, &msg); err != nil {
		return err
	}
	now := c.now().UTC()
	return logRun(c.db, SyncRun{
		ID:           newRunID(now),
		Service:      ServiceCRM,
		Status:       "error",
		ErrorMessage: msg,
		SyncedAt:     now,
	})
}

// LastSync reports the CRM sync state, nil if the cache has never been written.
func (c *Cache) LastSync(ctx context.Context) (*SyncState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return GetSyncState(c.db, ServiceCRM)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
