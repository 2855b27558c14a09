package engine

import (
	"errors"
	"sync"

	"github.com/fairbatch/fairbatch/protocol"
)

// ErrBatchNotFound is returned by ArchiveStore lookups for unknown batches.
var ErrBatchNotFound = errors.New("batch not found")

// ArchiveStore persists per-batch audit records: the full commitment set,
// revealed orders and clearing outcome of each settled batch.
type ArchiveStore interface {
	SaveBatch(record *protocol.BatchRecord) error
	LoadBatch(batch protocol.BatchID) (*protocol.BatchRecord, error)
	Close() error
}

// InMemoryArchive implements ArchiveStore for testing without a database.
type InMemoryArchive struct {
	mu      sync.RWMutex
	batches map[protocol.BatchID]*protocol.BatchRecord
}

// NewInMemoryArchive creates an in-memory archive.
func NewInMemoryArchive() *InMemoryArchive {
	return &InMemoryArchive{
		batches: make(map[protocol.BatchID]*protocol.BatchRecord),
	}
}

// SaveBatch stores a batch record in memory.
func (s *InMemoryArchive) SaveBatch(record *protocol.BatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[record.Batch] = record
	return nil
}

// LoadBatch returns a stored batch record.
func (s *InMemoryArchive) LoadBatch(batch protocol.BatchID) (*protocol.BatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.batches[batch]
	if !ok {
		return nil, ErrBatchNotFound
	}
	return record, nil
}

// Close is a no-op.
func (s *InMemoryArchive) Close() error {
	return nil
}
