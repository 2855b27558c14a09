package engine

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/fairbatch/fairbatch/protocol"
)

// PebbleArchive implements ArchiveStore on an embedded Pebble database.
// Records are stored under big-endian batch keys so iteration order matches
// batch order.
type PebbleArchive struct {
	db *pebble.DB
}

// NewPebbleArchive opens (or creates) a Pebble archive at path.
func NewPebbleArchive(path string) (*PebbleArchive, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("opening pebble archive: %w", err)
	}
	return &PebbleArchive{db: db}, nil
}

func batchKey(batch protocol.BatchID) []byte {
	key := make([]byte, 8+len("batch/"))
	copy(key, "batch/")
	binary.BigEndian.PutUint64(key[len("batch/"):], uint64(batch))
	return key
}

// SaveBatch persists a batch record, replacing any earlier version.
func (s *PebbleArchive) SaveBatch(record *protocol.BatchRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding batch record: %w", err)
	}
	return s.db.Set(batchKey(record.Batch), payload, pebble.Sync)
}

// LoadBatch retrieves a persisted batch record.
func (s *PebbleArchive) LoadBatch(batch protocol.BatchID) (*protocol.BatchRecord, error) {
	payload, closer, err := s.db.Get(batchKey(batch))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	record := new(protocol.BatchRecord)
	if err := json.Unmarshal(payload, record); err != nil {
		return nil, fmt.Errorf("decoding batch record: %w", err)
	}
	return record, nil
}

// Close closes the database.
func (s *PebbleArchive) Close() error {
	return s.db.Close()
}
