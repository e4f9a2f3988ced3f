// ABOUTME: Database operations for sync_state and sync_log tables
// ABOUTME: Tracks the last successful pull from the CRM server and failed attempts
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// ServiceCRM is the sync_state key for the REST backend.
const ServiceCRM = "crm"

// Sync states.
const (
	StatusIdle    = "idle"
	StatusSyncing = "syncing"
	StatusError   = "error"
)

// SyncState represents the sync state for a service.
type SyncState struct {
	Service      string
	LastSyncTime *time.Time
	LastSyncID   *string
	Status       string
	ErrorMessage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SyncRun is one row of the sync log.
type SyncRun struct {
	ID           string
	Service      string
	Status       string
	Leads        int
	Clients      int
	Customers    int
	ErrorMessage string
	SyncedAt     time.Time
}

func newRunID(now time.Time) string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(now.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(now), entropy).String()
}

// GetSyncState retrieves the sync state for a service. Returns nil when the service never synced.
func GetSyncState(db *sql.DB, service string) (*SyncState, error) {
	var state SyncState
	var lastSyncTime sql.NullTime
	var lastSyncID sql.NullString
	var status sql.NullString
	var errorMessage sql.NullString

	err := db.QueryRow(`
		SELECT service, last_sync_time, last_sync_id, status, error_message, created_at, updated_at
		FROM sync_state
		WHERE service = ?
	`, service).Scan(
		&state.Service,
		&lastSyncTime,
		&lastSyncID,
		&status,
		&errorMessage,
		&state.CreatedAt,
		&state.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}

	state.Status = status.String
	if lastSyncTime.Valid {
		state.LastSyncTime = &lastSyncTime.Time
	}
	if lastSyncID.Valid {
		state.LastSyncID = &lastSyncID.String
	}
	if errorMessage.Valid {
		state.ErrorMessage = &errorMessage.String
	}

	return &state, nil
}

// UpdateSyncStatus updates the sync status for a service without touching the last sync marker.
func UpdateSyncStatus(db *sql.DB, service, status string, errorMsg *string) error {
	var errorMsgVal sql.NullString
	if errorMsg != nil {
		errorMsgVal = sql.NullString{String: *errorMsg, Valid: true}
	}

	_, err := db.Exec(`
		INSERT INTO sync_state (service, status, error_message, created_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(service) DO UPDATE SET
			status = excluded.status,
			error_message = excluded.error_message,
			updated_at = CURRENT_TIMESTAMP
	`, service, status, errorMsgVal)

	if err != nil {
		return fmt.Errorf("failed to update sync status: %w", err)
	}
	return nil
}

func markSynced(tx *sql.Tx, service, runID string, at time.Time) error {
	_, err := tx.Exec(`
		INSERT INTO sync_state (service, last_sync_time, last_sync_id, status, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, NULL, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(service) DO UPDATE SET
			last_sync_time = excluded.last_sync_time,
			last_sync_id = excluded.last_sync_id,
			status = excluded.status,
			error_message = NULL,
			updated_at = CURRENT_TIMESTAMP
	`, service, at, runID, StatusIdle)
	if err != nil {
		return fmt.Errorf("failed to mark sync: %w", err)
	}
	return nil
}

func logRun(exec interface {
	Exec(query string, args ...any) (sql.Result, error)
}, run SyncRun) error {
	var errorMsg sql.NullString
	if run.ErrorMessage != "" {
		errorMsg = sql.NullString{String: run.ErrorMessage, Valid: true}
	}
	_, err := exec.Exec(`
		INSERT INTO sync_log (id, service, status, leads, clients, customers, error_message, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Service, run.Status, run.Leads, run.Clients, run.Customers, errorMsg, run.SyncedAt)
	if err != nil {
		return fmt.Errorf("failed to log sync run: %w", err)
	}
	return nil
}

// RecentSyncRuns returns up to limit sync log rows, newest first.
func RecentSyncRuns(db *sql.DB, service string, limit int) ([]SyncRun, error) {
	rows, err := db.Query(`
		SELECT id, service, status, leads, clients, customers, error_message, synced_at
		FROM sync_log
		WHERE service = ?
		ORDER BY synced_at DESC, id DESC
		LIMIT ?
	`, service, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []SyncRun
	for rows.Next() {
		var run SyncRun
		var errorMsg sql.NullString
		if err := rows.Scan(&run.ID, &run.Service, &run.Status, &run.Leads, &run.Clients, &run.Customers, &errorMsg, &run.SyncedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		run.ErrorMessage = errorMsg.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
