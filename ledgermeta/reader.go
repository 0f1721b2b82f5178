package ledgermeta

import (
	"fmt"

	"github.com/stellar/go/xdr"
)

// Sequence returns the ledger sequence of the decoded record.
func (r MetaResult) Sequence() (uint32, error) {
	lcm, err := r.Meta()
	if err != nil {
		return 0, err
	}
	return lcm.LedgerSequence(), nil
}

// LedgerHash returns the hex-encoded hash of the ledger.
func (r MetaResult) LedgerHash() (string, error) {
	lcm, err := r.Meta()
	if err != nil {
		return "", err
	}
	return lcm.LedgerHash().HexString(), nil
}

// PreviousLedgerHash returns the hex-encoded hash of the preceding ledger.
func (r MetaResult) PreviousLedgerHash() (string, error) {
	lcm, err := r.Meta()
	if err != nil {
		return "", err
	}
	return lcm.PreviousLedgerHash().HexString(), nil
}

// ProtocolVersion returns the protocol version the ledger closed under.
func (r MetaResult) ProtocolVersion() (uint32, error) {
	lcm, err := r.Meta()
	if err != nil {
		return 0, err
	}
	return lcm.ProtocolVersion(), nil
}

// BucketListHash returns the hex-encoded bucket list hash of the ledger.
func (r MetaResult) BucketListHash() (string, error) {
	lcm, err := r.Meta()
	if err != nil {
		return "", err
	}
	return lcm.BucketListHash().HexString(), nil
}

// CloseTime returns the ledger close time as a unix timestamp.
func (r MetaResult) CloseTime() (int64, error) {
	lcm, err := r.Meta()
	if err != nil {
		return 0, err
	}
	switch lcm.V {
	case 0:
		return int64(lcm.MustV0().LedgerHeader.Header.ScpValue.CloseTime), nil
	case 1:
		return int64(lcm.MustV1().LedgerHeader.Header.ScpValue.CloseTime), nil
	case 2:
		return int64(lcm.MustV2().LedgerHeader.Header.ScpValue.CloseTime), nil
	default:
		return 0, fmt.Errorf("unsupported LedgerCloseMeta version: %d", lcm.V)
	}
}

// TransactionCount returns the number of transactions in the ledger.
func (r MetaResult) TransactionCount() (int, error) {
	lcm, err := r.Meta()
	if err != nil {
		return 0, err
	}
	return lcm.CountTransactions(), nil
}

// TransactionEnvelopes returns the transaction envelopes of the ledger in
// transaction-set order.
func (r MetaResult) TransactionEnvelopes() ([]xdr.TransactionEnvelope, error) {
	lcm, err := r.Meta()
	if err != nil {
		return nil, err
	}
	return lcm.TransactionEnvelopes(), nil
}

// TransactionResults returns the per-transaction result pairs in apply order.
func (r MetaResult) TransactionResults() ([]xdr.TransactionResultPair, error) {
	lcm, err := r.Meta()
	if err != nil {
		return nil, err
	}
	results := make([]xdr.TransactionResultPair, 0, lcm.CountTransactions())
	for i := 0; i < lcm.CountTransactions(); i++ {
		results = append(results, lcm.TransactionResultPair(i))
	}
	return results, nil
}

// TransactionMetas returns the per-transaction application metadata in apply
// order.
func (r MetaResult) TransactionMetas() ([]xdr.TransactionMeta, error) {
	lcm, err := r.Meta()
	if err != nil {
		return nil, err
	}
	metas := make([]xdr.TransactionMeta, 0, lcm.CountTransactions())
	for i := 0; i < lcm.CountTransactions(); i++ {
		metas = append(metas, lcm.TxApplyProcessing(i))
	}
	return metas, nil
}

// SorobanTransactionMetas returns the Soroban metadata of every transaction
// that carries it. Transactions without Soroban activity are skipped.
func (r MetaResult) SorobanTransactionMetas() ([]xdr.SorobanTransactionMeta, error) {
	metas, err := r.TransactionMetas()
	if err != nil {
		return nil, err
	}
	var soroban []xdr.SorobanTransactionMeta
	for _, meta := range metas {
		if meta.V != 3 || meta.MustV3().SorobanMeta == nil {
			continue
		}
		soroban = append(soroban, *meta.MustV3().SorobanMeta)
	}
	return soroban, nil
}

// SorobanContractEvents returns every contract event emitted by the ledger's
// Soroban transactions, flattened in apply order.
func (r MetaResult) SorobanContractEvents() ([]xdr.ContractEvent, error) {
	sorobanMetas, err := r.SorobanTransactionMetas()
	if err != nil {
		return nil, err
	}
	var events []xdr.ContractEvent
	for _, meta := range sorobanMetas {
		events = append(events, meta.Events...)
	}
	return events, nil
}
