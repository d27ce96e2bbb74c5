package service

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"boardlink/models"
)

const (
	DefaultJournalRetention = 10000
	pruneEvery              = 500
)

// Journal records board events in SQLite so recent activity can be
// inspected over the API.
type Journal struct {
	db        *sql.DB
	retention int

	mu      sync.Mutex
	written int
}

// NewJournal expects a database migrated by config.InitDatabase. Only the
// newest retention events are kept.
func NewJournal(db *sql.DB, retention int) *Journal {
	if retention <= 0 {
		retention = DefaultJournalRetention
	}
	return &Journal{db: db, retention: retention}
}

// Publish stores ev. Failures are logged and otherwise ignored.
func (j *Journal) Publish(ev models.BoardEvent) {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		log.Printf("⚠️ Journal: failed to marshal %s event: %v", ev.Kind, err)
		return
	}

	_, err = j.db.Exec(
		`INSERT INTO board_events (id, board_id, board_name, kind, data, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.BoardID, ev.BoardName, string(ev.Kind), string(data), ev.Timestamp.UnixNano(),
	)
	if err != nil {
		log.Printf("⚠️ Journal: failed to store %s event for %s: %v", ev.Kind, ev.BoardID, err)
		return
	}

	j.mu.Lock()
	j.written++
	due := j.written%pruneEvery == 0
	j.mu.Unlock()
	if due {
		if err := j.Prune(); err != nil {
			log.Printf("⚠️ Journal: prune failed: %v", err)
		}
	}
}

// Prune drops everything but the newest retention events.
func (j *Journal) Prune() error {
	_, err := j.db.Exec(
		`DELETE FROM board_events WHERE seq <= (SELECT COALESCE(MAX(seq), 0) FROM board_events) - ?`,
		j.retention,
	)
	return err
}

// Recent returns up to limit events for boardID, newest first. An empty
// boardID matches every board.
func (j *Journal) Recent(boardID string, limit int) ([]models.BoardEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, board_id, board_name, kind, data, created_at FROM board_events`
	args := []interface{}{}
	if boardID != "" {
		query += ` WHERE board_id = ?`
		args = append(args, boardID)
	}
	query += ` ORDER BY seq DESC LIMIT ?`
	args = append(args, limit)

	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []models.BoardEvent{}
	for rows.Next() {
		var (
			ev      models.BoardEvent
			kind    string
			data    string
			created int64
		)
		if err := rows.Scan(&ev.ID, &ev.BoardID, &ev.BoardName, &kind, &data, &created); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Kind = models.EventKind(kind)
		ev.Data = json.RawMessage(data)
		ev.Timestamp = time.Unix(0, created).UTC()
		events = append(events, ev)
	}
	return events, rows.Err()
}
