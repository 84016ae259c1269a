package db

import (
	"context"
	"database/sql"
	"time"
)

// Queries wraps the audit mirror's database connection.
type Queries struct {
	db *sql.DB
}

// New creates a Queries instance over conn.
func New(conn *sql.DB) *Queries {
	return &Queries{db: conn}
}

// DB returns the underlying connection.
func (q *Queries) DB() *sql.DB {
	return q.db
}

// UTSFAuditEntry mirrors one utsf.UpdateEntry row in utsf_audit_log.
type UTSFAuditEntry struct {
	ID            int64
	VendorID      string
	Timestamp     time.Time
	EditorID      string
	Reason        string
	ChangeSummary string
	CreatedAt     time.Time
}

// InsertAuditEntry mirrors one Manager-produced audit entry. Failures
// here never block the Manager write itself: the UTSF file's own
// updates[] is authoritative, this table is a queryable copy.
func (q *Queries) InsertAuditEntry(ctx context.Context, vendorID string, timestamp time.Time, editorID, reason, changeSummary string) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO utsf_audit_log (vendor_id, "timestamp", editor_id, reason, change_summary)
		VALUES ($1, $2, $3, $4, $5)
	`, vendorID, timestamp, editorID, reason, changeSummary)
	return err
}

// AuditEntriesForVendor returns the mirrored audit history for one
// vendor, most recent first, backing the diagnostic HTTP endpoint.
func (q *Queries) AuditEntriesForVendor(ctx context.Context, vendorID string, limit int) ([]UTSFAuditEntry, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, vendor_id, "timestamp", editor_id, reason, change_summary, created_at
		FROM utsf_audit_log
		WHERE vendor_id = $1
		ORDER BY "timestamp" DESC
		LIMIT $2
	`, vendorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []UTSFAuditEntry
	for rows.Next() {
		var e UTSFAuditEntry
		if err := rows.Scan(&e.ID, &e.VendorID, &e.Timestamp, &e.EditorID, &e.Reason, &e.ChangeSummary, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
