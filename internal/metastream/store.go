package metastream

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/stellar/go/xdr"

	"github.com/withObsrvr/captive-ingest/ledgermeta"
)

// defaultReadAhead sizes the store's map for short replays before the first
// insert tells us anything better.
const defaultReadAhead = 20

// LedgerStore is the delivery sink for single-threaded offline replays: a
// mapping from ledger sequence to decoded record, populated in stream order.
// In-stream errors are collected and surfaced through Err after the replay.
type LedgerStore struct {
	mu    sync.Mutex
	byseq map[uint32]*xdr.LedgerCloseMeta
	errs  []error
	log   *slog.Logger
}

// NewLedgerStore creates a store sized for about hint ledgers. A hint of zero
// falls back to a small default.
func NewLedgerStore(hint int) *LedgerStore {
	if hint <= 0 {
		hint = defaultReadAhead
	}
	return &LedgerStore{
		byseq: make(map[uint32]*xdr.LedgerCloseMeta, hint),
		log:   slog.With("component", "ledgerstore"),
	}
}

// Deliver inserts a decoded record keyed by its sequence, or records an
// in-stream error. Duplicate sequences overwrite; correct node behavior never
// produces them, so an overwrite is logged.
func (s *LedgerStore) Deliver(res ledgermeta.MetaResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if res.Err != nil {
		s.errs = append(s.errs, res.Err)
		return nil
	}

	seq := res.LedgerCloseMeta.LedgerSequence()
	if _, dup := s.byseq[seq]; dup {
		s.log.Warn("duplicate ledger sequence in stream, overwriting", "sequence", seq)
	}
	s.byseq[seq] = res.LedgerCloseMeta
	return nil
}

// Close is a no-op; the store has no end-of-stream state.
func (s *LedgerStore) Close() {}

// Abort is a no-op; Deliver never blocks on a store.
func (s *LedgerStore) Abort() {}

// Get returns the record stored for seq, or false when the sequence was not
// part of the replay.
func (s *LedgerStore) Get(seq uint32) (*xdr.LedgerCloseMeta, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lcm, ok := s.byseq[seq]
	return lcm, ok
}

// Len returns the number of stored records.
func (s *LedgerStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byseq)
}

// Err returns the in-stream errors collected during the replay, joined, or
// nil when the stream was clean.
func (s *LedgerStore) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(s.errs...)
}
