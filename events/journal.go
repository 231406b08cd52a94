package events

import (
	"encoding/binary"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var bucketEvents = []byte("events")

// Record is the persisted form of an emitted event. Records are keyed by a
// monotonically increasing sequence; the journal is append-only.
type Record struct {
	ID         string            `json:"id"`
	Sequence   uint64            `json:"sequence"`
	Type       string            `json:"type"`
	EmittedAt  time.Time         `json:"emittedAt"`
	Attributes map[string]string `json:"attributes"`
}

// Journal persists emitted events in a BoltDB-backed append-only log.
type Journal struct {
	db  *bolt.DB
	now func() time.Time
}

// OpenJournal initialises (and migrates) the journal at path.
func OpenJournal(path string) (*Journal, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEvents)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Journal{db: db, now: time.Now}, nil
}

// Close releases the underlying database handle.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Append writes the event to the log and returns the persisted record.
func (j *Journal) Append(evt Event) (Record, error) {
	record := Record{
		ID:         uuid.NewString(),
		Type:       evt.EventType(),
		EmittedAt:  j.now().UTC(),
		Attributes: evt.Attributes(),
	}
	err := j.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketEvents)
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		record.Sequence = seq
		payload, err := json.Marshal(record)
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return bucket.Put(key, payload)
	})
	if err != nil {
		return Record{}, err
	}
	return record, nil
}

// Emit implements Emitter. Persistence failures are logged rather than
// surfaced: the state transition already committed and the audit log must
// not retroactively abort it.
func (j *Journal) Emit(evt Event) {
	if j == nil || j.db == nil {
		return
	}
	if _, err := j.Append(evt); err != nil {
		slog.Warn("event journal append failed", "type", evt.EventType(), "err", err)
	}
}

// Records returns every persisted record in sequence order.
func (j *Journal) Records() ([]Record, error) {
	var out []Record
	err := j.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEvents).ForEach(func(_, value []byte) error {
			var record Record
			if err := json.Unmarshal(value, &record); err != nil {
				return err
			}
			out = append(out, record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
