package ledgermeta

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stellar/go/xdr"
)

func testMeta() *xdr.LedgerCloseMeta {
	var hash, prevHash, bucketHash xdr.Hash
	hash[0] = 0xaa
	prevHash[0] = 0xbb
	bucketHash[0] = 0xcc

	return &xdr.LedgerCloseMeta{
		V: 0,
		V0: &xdr.LedgerCloseMetaV0{
			LedgerHeader: xdr.LedgerHeaderHistoryEntry{
				Hash: hash,
				Header: xdr.LedgerHeader{
					LedgerSeq:          292395,
					LedgerVersion:      21,
					PreviousLedgerHash: prevHash,
					BucketListHash:     bucketHash,
					ScpValue: xdr.StellarValue{
						CloseTime: xdr.TimePoint(1700000000),
					},
				},
			},
		},
	}
}

func TestAccessors(t *testing.T) {
	res := Ok(testMeta())

	seq, err := res.Sequence()
	if err != nil || seq != 292395 {
		t.Fatalf("Sequence = %d, %v; want 292395, nil", seq, err)
	}

	version, err := res.ProtocolVersion()
	if err != nil || version != 21 {
		t.Fatalf("ProtocolVersion = %d, %v; want 21, nil", version, err)
	}

	closeTime, err := res.CloseTime()
	if err != nil || closeTime != 1700000000 {
		t.Fatalf("CloseTime = %d, %v; want 1700000000, nil", closeTime, err)
	}

	hash, err := res.LedgerHash()
	if err != nil {
		t.Fatalf("LedgerHash failed: %v", err)
	}
	if decoded, _ := hex.DecodeString(hash); len(decoded) != 32 || decoded[0] != 0xaa {
		t.Errorf("unexpected ledger hash: %s", hash)
	}

	prev, err := res.PreviousLedgerHash()
	if err != nil {
		t.Fatalf("PreviousLedgerHash failed: %v", err)
	}
	if decoded, _ := hex.DecodeString(prev); decoded[0] != 0xbb {
		t.Errorf("unexpected previous hash: %s", prev)
	}

	bucket, err := res.BucketListHash()
	if err != nil {
		t.Fatalf("BucketListHash failed: %v", err)
	}
	if decoded, _ := hex.DecodeString(bucket); decoded[0] != 0xcc {
		t.Errorf("unexpected bucket list hash: %s", bucket)
	}

	count, err := res.TransactionCount()
	if err != nil || count != 0 {
		t.Fatalf("TransactionCount = %d, %v; want 0, nil", count, err)
	}

	envelopes, err := res.TransactionEnvelopes()
	if err != nil || len(envelopes) != 0 {
		t.Fatalf("TransactionEnvelopes = %d entries, %v; want 0, nil", len(envelopes), err)
	}

	events, err := res.SorobanContractEvents()
	if err != nil || len(events) != 0 {
		t.Fatalf("SorobanContractEvents = %d entries, %v; want 0, nil", len(events), err)
	}
}

func TestAccessorsOnErrorResult(t *testing.T) {
	res := Failed(ErrDecode)

	if !res.IsErr() {
		t.Fatal("IsErr should report true")
	}
	if _, err := res.Meta(); !errors.Is(err, ErrDecode) {
		t.Fatalf("Meta should return the carried error, got: %v", err)
	}
	if _, err := res.Sequence(); !errors.Is(err, ErrDecode) {
		t.Fatalf("Sequence should return the carried error, got: %v", err)
	}
	if _, err := res.TransactionMetas(); !errors.Is(err, ErrDecode) {
		t.Fatalf("TransactionMetas should return the carried error, got: %v", err)
	}
}

func TestMetaOnEmptyResult(t *testing.T) {
	var res MetaResult
	if _, err := res.Meta(); !errors.Is(err, ErrNoMeta) {
		t.Fatalf("expected ErrNoMeta, got: %v", err)
	}
}
