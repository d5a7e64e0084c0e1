package internal

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EventRecord is one journaled request to the collector.
type EventRecord struct {
	UUID             string    `json:"uuid" db:"uuid"`
	TraceID          string    `json:"trace_id" db:"trace_id"`
	ReceivedAt       time.Time `json:"received_at" db:"received_at"`
	Method           string    `json:"method" db:"method"`
	Path             string    `json:"path" db:"path"`
	RemoteAddr       string    `json:"remote_addr" db:"remote_addr"`
	Authenticated    bool      `json:"authenticated" db:"authenticated"`
	Validation       string    `json:"validation" db:"validation"`
	ValidationReason string    `json:"validation_reason,omitempty" db:"validation_reason"`
	RequestBody      string    `json:"request_body" db:"request_body"`
	ResponseStatus   int       `json:"response_status" db:"response_status"`
	ResponseBody     string    `json:"response_body,omitempty" db:"response_body"`
}

const insertEvent = `
	INSERT INTO ves_events (
		uuid, trace_id, received_at, method, path, remote_addr, authenticated,
		validation, validation_reason, request_body, response_status, response_body
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectEvents = `
	SELECT uuid, trace_id, received_at, method, path, remote_addr, authenticated,
		validation, validation_reason, request_body, response_status, response_body
	FROM ves_events
	ORDER BY received_at DESC
	LIMIT ?`

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func InsertQuery(driver string) string {
	return Rebind(driver, insertEvent)
}

// InsertEvent inserts one record.
func InsertEvent(ctx context.Context, db Execer, driver string, record *EventRecord) error {
	_, err := db.ExecContext(ctx, InsertQuery(driver), Args(record)...)
	return err
}

// Args returns the insert arguments for record in column order.
func Args(record *EventRecord) []interface{} {
	return []interface{}{
		record.UUID,
		record.TraceID,
		record.ReceivedAt.UnixMilli(),
		record.Method,
		record.Path,
		record.RemoteAddr,
		record.Authenticated,
		record.Validation,
		record.ValidationReason,
		record.RequestBody,
		record.ResponseStatus,
		record.ResponseBody,
	}
}

// ListEvents returns up to limit records, newest first.
func ListEvents(ctx context.Context, db *sql.DB, driver string, limit int) ([]EventRecord, error) {
	rows, err := db.QueryContext(ctx, Rebind(driver, selectEvents), limit)
	if err != nil {
		return nil, fmt.Errorf("error querying events: %w", err)
	}
	defer rows.Close()

	records := make([]EventRecord, 0, limit)
	for rows.Next() {
		var (
			r          EventRecord
			receivedAt int64
			traceID    sql.NullString
			remoteAddr sql.NullString
			validation sql.NullString
			reason     sql.NullString
			reqBody    sql.NullString
			status     sql.NullInt64
			respBody   sql.NullString
		)

		if err := rows.Scan(&r.UUID, &traceID, &receivedAt, &r.Method, &r.Path, &remoteAddr,
			&r.Authenticated, &validation, &reason, &reqBody, &status, &respBody); err != nil {
			return nil, fmt.Errorf("error scanning event: %w", err)
		}

		r.ReceivedAt = time.UnixMilli(receivedAt).UTC()
		r.TraceID = traceID.String
		r.RemoteAddr = remoteAddr.String
		r.Validation = validation.String
		r.ValidationReason = reason.String
		r.RequestBody = reqBody.String
		r.ResponseStatus = int(status.Int64)
		r.ResponseBody = respBody.String

		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading events: %w", err)
	}

	return records, nil
}
