package registry

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/adacs-australia/finorch/pkg/jobtypes"
)

var (
	bucketJobs           = []byte("jobs")
	bucketJobsByIdentifier = []byte("jobs_by_identifier")
)

// ErrNotFound is returned when an identifier has no matching row.
var ErrNotFound = fmt.Errorf("job not found")

// ErrDuplicateIdentifier is returned by AddJob when the identifier already
// exists; identifiers must be unique within an execution root.
var ErrDuplicateIdentifier = fmt.Errorf("identifier already exists")

// DB is the persistent job registry for one execution root.
type DB struct {
	db *bolt.DB
}

type jobRow struct {
	Identifier string
	BatchID    string
	Status     jobtypes.Status
	StartTime  time.Time
}

// Open creates or opens the registry file db.bolt under execRoot.
func Open(execRoot string) (*DB, error) {
	path := filepath.Join(execRoot, "db.bolt")

	bdb, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}

	err = bdb.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketJobs); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketJobsByIdentifier)
		return err
	})
	if err != nil {
		bdb.Close()
		return nil, fmt.Errorf("init registry buckets: %w", err)
	}

	return &DB{db: bdb}, nil
}

// Close closes the underlying bbolt file.
func (d *DB) Close() error {
	return d.db.Close()
}

func itob(id uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, id)
	return b
}

func btoi(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

// AddJob inserts a new PENDING row for identifier and returns its
// autoincrement id. batchID may be empty if the backend has not yet
// acknowledged the submission.
func (d *DB) AddJob(identifier, batchID string) (int64, error) {
	var id uint64
	err := d.db.Update(func(tx *bolt.Tx) error {
		idx := tx.Bucket(bucketJobsByIdentifier)
		if idx.Get([]byte(identifier)) != nil {
			return ErrDuplicateIdentifier
		}

		jobs := tx.Bucket(bucketJobs)
		seq, err := jobs.NextSequence()
		if err != nil {
			return err
		}
		id = seq

		row := jobRow{
			Identifier: identifier,
			BatchID:    batchID,
			Status:     jobtypes.StatusPending,
			StartTime:  time.Now(),
		}
		data, err := json.Marshal(row)
		if err != nil {
			return err
		}
		if err := jobs.Put(itob(id), data); err != nil {
			return err
		}
		return idx.Put([]byte(identifier), itob(id))
	})
	if err != nil {
		return 0, err
	}
	return int64(id), nil
}

// RemoveJob deletes a row outright. Used for the best-effort registry
// cleanup after a failed submission (spec.md §7: "the registry row is
// removed" on start_job failure).
func (d *DB) RemoveJob(identifier string) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		idx := tx.Bucket(bucketJobsByIdentifier)
		key := idx.Get([]byte(identifier))
		if key == nil {
			return nil
		}
		if err := idx.Delete([]byte(identifier)); err != nil {
			return err
		}
		return tx.Bucket(bucketJobs).Delete(key)
	})
}

func (d *DB) lookup(tx *bolt.Tx, identifier string) (jobRow, []byte, error) {
	idx := tx.Bucket(bucketJobsByIdentifier)
	key := idx.Get([]byte(identifier))
	if key == nil {
		return jobRow{}, nil, ErrNotFound
	}

	data := tx.Bucket(bucketJobs).Get(key)
	if data == nil {
		return jobRow{}, nil, ErrNotFound
	}

	var row jobRow
	if err := json.Unmarshal(data, &row); err != nil {
		return jobRow{}, nil, err
	}
	return row, key, nil
}

// UpdateJobStatus persists status for identifier, but only ever moves it
// forward: a status lower than the one already stored is silently ignored,
// preserving the monotonic-transitions invariant regardless of call order.
func (d *DB) UpdateJobStatus(identifier string, status jobtypes.Status) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		row, key, err := d.lookup(tx, identifier)
		if err != nil {
			return err
		}
		if status <= row.Status {
			return nil
		}
		row.Status = status
		data, err := json.Marshal(row)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketJobs).Put(key, data)
	})
}

// UpdateJobBatchID records the scheduler handle returned by a backend's
// submission call, once it is known.
func (d *DB) UpdateJobBatchID(identifier, batchID string) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		row, key, err := d.lookup(tx, identifier)
		if err != nil {
			return err
		}
		row.BatchID = batchID
		data, err := json.Marshal(row)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketJobs).Put(key, data)
	})
}

// GetJobStatus returns the stored status for identifier.
func (d *DB) GetJobStatus(identifier string) (jobtypes.Status, error) {
	var status jobtypes.Status
	err := d.db.View(func(tx *bolt.Tx) error {
		row, _, err := d.lookup(tx, identifier)
		if err != nil {
			return err
		}
		status = row.Status
		return nil
	})
	return status, err
}

// GetJobBatchID returns the stored scheduler handle for identifier.
func (d *DB) GetJobBatchID(identifier string) (string, error) {
	var batchID string
	err := d.db.View(func(tx *bolt.Tx) error {
		row, _, err := d.lookup(tx, identifier)
		if err != nil {
			return err
		}
		batchID = row.BatchID
		return nil
	})
	return batchID, err
}

// GetJobs returns every row ordered by strictly increasing id: bbolt keys
// are big-endian uint64s, so a forward cursor walk is already id-ascending.
func (d *DB) GetJobs() ([]jobtypes.JobRecord, error) {
	var records []jobtypes.JobRecord
	err := d.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketJobs).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var row jobRow
			if err := json.Unmarshal(v, &row); err != nil {
				return err
			}
			records = append(records, jobtypes.JobRecord{
				ID:         int64(btoi(k)),
				Identifier: row.Identifier,
				BatchID:    row.BatchID,
				Status:     row.Status,
				StartTime:  row.StartTime,
			})
		}
		return nil
	})
	return records, err
}
