// Package history keeps a local journal of configuration loads and saves.
// Entries are appended after every settled request so an operator can see
// what the window looked like and who changed it from this console, even
// when the backend is unreachable.

package history

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/doughall/dailyclean/console/internal/form"
)

const entriesBucket = "entries"

// Entry is a single journaled request.
type Entry struct {
	ID         uint64    `json:"id"`
	Operation  string    `json:"operation"`
	At         time.Time `json:"at"`
	CronStart  string    `json:"cron_start,omitempty"`
	CronStop   string    `json:"cron_stop,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

// OK reports whether the request succeeded.
func (e *Entry) OK() bool {
	return e.Error == ""
}

// Journal provides persistent storage for entries
type Journal struct {
	db     *bolt.DB
	logger *slog.Logger
}

// Open opens or creates the journal database
func Open(dbPath string, logger *slog.Logger) (*Journal, error) {
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", dbPath, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(entriesBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Journal{db: db, logger: logger.With(slog.String("component", "history"))}, nil
}

// Append adds an entry, assigning its ID.
func (j *Journal) Append(e *Entry) error {
	return j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(entriesBucket))

		// Auto-increment ID
		id, _ := b.NextSequence()
		e.ID = id

		data, err := json.Marshal(e)
		if err != nil {
			return err
		}

		return b.Put(itob(id), data)
	})
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(limit int) ([]*Entry, error) {
	var entries []*Entry

	err := j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(entriesBucket)).Cursor()

		for k, v := c.Last(); k != nil && len(entries) < limit; k, v = c.Prev() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				continue
			}
			entries = append(entries, &e)
		}
		return nil
	})

	return entries, err
}

// LastSaved returns the most recent successful save, or nil.
func (j *Journal) LastSaved() (*Entry, error) {
	var found *Entry

	err := j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(entriesBucket)).Cursor()

		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				continue
			}
			if e.Operation == string(form.OperationSave) && e.OK() {
				found = &e
				return nil
			}
		}
		return nil
	})

	return found, err
}

// Count returns the number of journaled entries
func (j *Journal) Count() (int, error) {
	var count int
	err := j.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket([]byte(entriesBucket)).Stats().KeyN
		return nil
	})
	return count, err
}

// Observe journals a settled form request. It implements form.Observer.
func (j *Journal) Observe(_ context.Context, ev form.Event) {
	e := &Entry{
		Operation:  string(ev.Operation),
		At:         ev.At.UTC(),
		CronStart:  ev.Pair.CronStart,
		CronStop:   ev.Pair.CronStop,
		DurationMs: ev.Duration.Milliseconds(),
	}
	if ev.Err != nil {
		e.Error = ev.Err.Error()
	}

	if err := j.Append(e); err != nil {
		j.logger.Error("failed to journal request",
			slog.String("operation", e.Operation),
			slog.String("error", err.Error()),
		)
		return
	}
	j.logger.Debug("request journaled",
		slog.Uint64("id", e.ID),
		slog.String("operation", e.Operation),
	)
}

// Shutdown closes the database. It implements shutdown.Shutdowner.
func (j *Journal) Shutdown(_ context.Context) error {
	return j.Close()
}

// Close closes the database
func (j *Journal) Close() error {
	return j.db.Close()
}

// itob converts uint64 to big-endian bytes for ordered keys
func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
