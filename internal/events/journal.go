package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/excbridge/internal/log"
	"github.com/mattjoyce/excbridge/internal/storage"
)

// ErrJournalClosed is returned by Recent after Close.
var ErrJournalClosed = errors.New("events: journal closed")

// Record is one journaled notification.
type Record struct {
	ID         string    `json:"id"`
	Seq        int64     `json:"seq"`
	RecordedAt time.Time `json:"recorded_at"`
	Notification
}

// Journal appends notifications to the lifecycle_events sqlite table from a
// single writer goroutine. Emit only enqueues; when the queue is full the
// notification is dropped and counted.
type Journal struct {
	db     *sql.DB
	ownsDB bool
	logger *slog.Logger

	seq     atomic.Int64
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
	queue  chan Record
	done   chan struct{}
}

// OpenJournal opens (creating if needed) the journal database at path.
func OpenJournal(ctx context.Context, path string, buffer int) (*Journal, error) {
	db, err := storage.OpenSQLite(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	j := NewJournal(db, buffer)
	j.ownsDB = true
	return j, nil
}

// NewJournal starts a journal over an already bootstrapped database. The
// caller keeps ownership of db.
func NewJournal(db *sql.DB, buffer int) *Journal {
	if buffer <= 0 {
		buffer = 256
	}
	j := &Journal{
		db:     db,
		logger: log.WithComponent("journal"),
		queue:  make(chan Record, buffer),
		done:   make(chan struct{}),
	}
	var last int64
	if err := db.QueryRow(`SELECT COALESCE(MAX(seq), 0) FROM lifecycle_events;`).Scan(&last); err != nil {
		j.logger.Warn("journal sequence lookup failed", "error", err)
	}
	j.seq.Store(last)
	go j.writer()
	return j
}

func (j *Journal) Emit(n Notification) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return
	}
	rec := Record{
		ID:           uuid.NewString(),
		Seq:          j.seq.Add(1),
		RecordedAt:   time.Now().UTC(),
		Notification: n,
	}
	select {
	case j.queue <- rec:
	default:
		j.dropped.Add(1)
	}
}

// Recent returns up to n most recent records, oldest first.
func (j *Journal) Recent(ctx context.Context, n int) ([]Record, error) {
	j.mu.RLock()
	closed := j.closed
	j.mu.RUnlock()
	if closed {
		return nil, ErrJournalClosed
	}
	if n <= 0 {
		n = 50
	}

	rows, err := j.db.QueryContext(ctx, `
SELECT id, seq, app_name, debug_tag, elapsed_ms, recorded_at
FROM (SELECT * FROM lifecycle_events ORDER BY seq DESC LIMIT ?)
ORDER BY seq ASC;`, n)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec Record
			at  string
		)
		if err := rows.Scan(&rec.ID, &rec.Seq, &rec.AppName, &rec.DebugTag, &rec.ElapsedMillis, &at); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		if rec.RecordedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("parse recorded_at %q: %w", at, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Dropped counts notifications lost to a full queue.
func (j *Journal) Dropped() int64 { return j.dropped.Load() }

// Close stops accepting notifications, drains the queue and, when the
// journal opened the database itself, closes it.
func (j *Journal) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	close(j.queue)
	j.mu.Unlock()

	<-j.done
	if j.ownsDB {
		return j.db.Close()
	}
	return nil
}

func (j *Journal) writer() {
	defer close(j.done)
	for rec := range j.queue {
		if err := j.insert(rec); err != nil {
			j.logger.Warn("journal write failed", "debug_tag", rec.DebugTag, "error", err)
		}
	}
}

func (j *Journal) insert(rec Record) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := j.db.ExecContext(ctx, `
INSERT INTO lifecycle_events(id, seq, app_name, debug_tag, elapsed_ms, recorded_at)
VALUES(?, ?, ?, ?, ?, ?);`,
		rec.ID, rec.Seq, rec.AppName, rec.DebugTag, rec.ElapsedMillis, rec.RecordedAt.Format(time.RFC3339Nano))
	return err
}
