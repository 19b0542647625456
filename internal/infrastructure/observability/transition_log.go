package observability

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// TransitionEvent records one status transition of a reservation, kept
// for operator audits independently of the reservation row itself.
type TransitionEvent struct {
	ID            int64
	Timestamp     time.Time
	ReservationID string
	ItemID        int64
	FromStatus    string
	ToStatus      string
	ActorID       string
	Operation     string
}

// TransitionLog persists reservation status transitions to SQLite.
// Writes are batched; a background worker flushes on a fixed tick so a
// slow audit write never sits on the request path.
type TransitionLog struct {
	db        *sql.DB
	mu        sync.Mutex
	batch     []*TransitionEvent
	batchSize int
	flushTick *time.Ticker
	done      chan struct{}
}

// NewTransitionLog creates a new transition log backed by the given
// SQLite file.
func NewTransitionLog(dbPath string, batchSize int) (*TransitionLog, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	tl := &TransitionLog{
		db:        db,
		batch:     make([]*TransitionEvent, 0, batchSize),
		batchSize: batchSize,
		flushTick: time.NewTicker(5 * time.Second),
		done:      make(chan struct{}),
	}

	if err := tl.initSchema(); err != nil {
		return nil, err
	}

	go tl.flushWorker()

	return tl, nil
}

func (t *TransitionLog) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reserve_transitions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		reservation_id TEXT NOT NULL,
		item_id INTEGER NOT NULL,
		from_status TEXT NOT NULL,
		to_status TEXT NOT NULL,
		actor_id TEXT,
		operation TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transition_reservation
		ON reserve_transitions(reservation_id, timestamp);

	CREATE INDEX IF NOT EXISTS idx_transition_item
		ON reserve_transitions(item_id, timestamp);
	`

	_, err := t.db.Exec(schema)
	return err
}

// Record adds a transition event to the batch.
func (t *TransitionLog) Record(event *TransitionEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	t.mu.Lock()
	t.batch = append(t.batch, event)
	shouldFlush := len(t.batch) >= t.batchSize
	t.mu.Unlock()

	if shouldFlush {
		return t.FlushBatch()
	}

	return nil
}

// FlushBatch writes all batched events to the database in a single
// transaction.
func (t *TransitionLog) FlushBatch() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.batch) == 0 {
		return nil
	}

	tx, err := t.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO reserve_transitions (
			timestamp, reservation_id, item_id, from_status, to_status,
			actor_id, operation
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, event := range t.batch {
		_, err := stmt.Exec(
			event.Timestamp,
			event.ReservationID,
			event.ItemID,
			event.FromStatus,
			event.ToStatus,
			event.ActorID,
			event.Operation,
		)
		if err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	t.batch = t.batch[:0]
	return nil
}

func (t *TransitionLog) flushWorker() {
	for {
		select {
		case <-t.flushTick.C:
			t.FlushBatch()
		case <-t.done:
			t.FlushBatch() // Final flush on shutdown
			return
		}
	}
}

// Close flushes remaining events and closes the database.
func (t *TransitionLog) Close() error {
	t.flushTick.Stop()
	close(t.done)
	<-time.After(100 * time.Millisecond) // Wait for worker to finish

	if err := t.FlushBatch(); err != nil {
		return err
	}

	return t.db.Close()
}

// QueryByReservationID retrieves the transition timeline of a
// reservation in chronological order.
func (t *TransitionLog) QueryByReservationID(reservationID string) ([]*TransitionEvent, error) {
	rows, err := t.db.Query(`
		SELECT id, timestamp, reservation_id, item_id, from_status,
		       to_status, actor_id, operation
		FROM reserve_transitions
		WHERE reservation_id = ?
		ORDER BY timestamp ASC, id ASC
	`, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transitions: %w", err)
	}
	defer rows.Close()

	return scanTransitions(rows)
}

// QueryByItemID retrieves transitions for all reservations of an item.
func (t *TransitionLog) QueryByItemID(itemID int64) ([]*TransitionEvent, error) {
	rows, err := t.db.Query(`
		SELECT id, timestamp, reservation_id, item_id, from_status,
		       to_status, actor_id, operation
		FROM reserve_transitions
		WHERE item_id = ?
		ORDER BY timestamp ASC, id ASC
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transitions: %w", err)
	}
	defer rows.Close()

	return scanTransitions(rows)
}

func scanTransitions(rows *sql.Rows) ([]*TransitionEvent, error) {
	var events []*TransitionEvent
	for rows.Next() {
		var ev TransitionEvent
		var actor sql.NullString
		if err := rows.Scan(
			&ev.ID, &ev.Timestamp, &ev.ReservationID, &ev.ItemID,
			&ev.FromStatus, &ev.ToStatus, &actor, &ev.Operation,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		ev.ActorID = actor.String
		events = append(events, &ev)
	}
	return events, rows.Err()
}
