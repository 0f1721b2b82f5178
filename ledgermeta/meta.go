// Package ledgermeta defines the typed unit delivered to consumers of the
// metadata stream: either a decoded ledger-close record or an in-stream error,
// plus accessor helpers over the decoded record.
package ledgermeta

import (
	"errors"

	"github.com/stellar/go/xdr"
)

var (
	// ErrTruncatedFrame is carried by a MetaResult when the pipe hit EOF in
	// the middle of a frame. The stream ends after this result.
	ErrTruncatedFrame = errors.New("metadata frame truncated by pipe EOF")

	// ErrDecode is carried by a MetaResult when a complete frame did not
	// decode as ledger-close metadata. The stream continues past this result.
	ErrDecode = errors.New("metadata frame did not decode")

	// ErrPipeIO is carried by a MetaResult when reading the pipe failed with
	// an I/O error other than EOF. The stream ends after this result.
	ErrPipeIO = errors.New("metadata pipe read failed")

	// ErrNoMeta is returned by accessors invoked on a MetaResult that carries
	// an error instead of a decoded record.
	ErrNoMeta = errors.New("result carries no decoded ledger meta")
)

// MetaResult is one unit of the metadata stream. Exactly one of the two
// fields is set: LedgerCloseMeta on success, Err on an in-stream failure.
type MetaResult struct {
	LedgerCloseMeta *xdr.LedgerCloseMeta
	Err             error
}

// Ok wraps a decoded record in a MetaResult.
func Ok(lcm *xdr.LedgerCloseMeta) MetaResult {
	return MetaResult{LedgerCloseMeta: lcm}
}

// Failed wraps an in-stream error in a MetaResult.
func Failed(err error) MetaResult {
	return MetaResult{Err: err}
}

// IsErr reports whether the result carries an in-stream error.
func (r MetaResult) IsErr() bool {
	return r.Err != nil
}

// Meta returns the decoded record, or the carried error.
func (r MetaResult) Meta() (*xdr.LedgerCloseMeta, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	if r.LedgerCloseMeta == nil {
		return nil, ErrNoMeta
	}
	return r.LedgerCloseMeta, nil
}
