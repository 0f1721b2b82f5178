package metastream

import (
	"errors"
	"testing"
	"time"

	"github.com/withObsrvr/captive-ingest/ledgermeta"
)

func TestBoundedSinkBlocksWhenFull(t *testing.T) {
	sink := NewChannelSink(1)

	if err := sink.Deliver(ledgermeta.Ok(metaForSeq(1))); err != nil {
		t.Fatalf("first Deliver failed: %v", err)
	}

	delivered := make(chan error, 1)
	go func() {
		delivered <- sink.Deliver(ledgermeta.Ok(metaForSeq(2)))
	}()

	select {
	case err := <-delivered:
		t.Fatalf("second Deliver should block on a full channel, returned: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	<-sink.Out()
	if err := <-delivered; err != nil {
		t.Fatalf("Deliver after drain failed: %v", err)
	}
}

func TestUnboundedSinkNeverBlocks(t *testing.T) {
	sink := NewChannelSink(0)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			if err := sink.Deliver(ledgermeta.Ok(metaForSeq(uint32(i)))); err != nil {
				t.Errorf("Deliver %d failed: %v", i, err)
				return
			}
		}
		sink.Close()
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("unbounded sink blocked the producer")
	}

	var count int
	for res := range sink.Out() {
		seq, err := res.Sequence()
		if err != nil {
			t.Fatalf("unexpected error result: %v", err)
		}
		if seq != uint32(count) {
			t.Fatalf("result %d out of order: sequence %d", count, seq)
		}
		count++
	}
	if count != 1000 {
		t.Fatalf("received %d results, want 1000", count)
	}
}

func TestSinkCloseEndsStreamAfterDrain(t *testing.T) {
	sink := NewChannelSink(2)
	sink.Deliver(ledgermeta.Ok(metaForSeq(1)))
	sink.Deliver(ledgermeta.Ok(metaForSeq(2)))
	sink.Close()

	var count int
	for range sink.Out() {
		count++
	}
	if count != 2 {
		t.Fatalf("received %d results before close, want 2", count)
	}
}

func TestAbortUnblocksPendingDeliver(t *testing.T) {
	sink := NewChannelSink(1)
	sink.Deliver(ledgermeta.Ok(metaForSeq(1)))

	delivered := make(chan error, 1)
	go func() {
		delivered <- sink.Deliver(ledgermeta.Ok(metaForSeq(2)))
	}()

	time.Sleep(50 * time.Millisecond)
	sink.Abort()

	select {
	case err := <-delivered:
		if !errors.Is(err, ErrSinkAborted) {
			t.Fatalf("expected ErrSinkAborted, got: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Abort did not unblock the pending Deliver")
	}
}

func TestAbortIsIdempotent(t *testing.T) {
	sink := NewChannelSink(0)
	sink.Abort()
	sink.Abort()

	if err := sink.Deliver(ledgermeta.Ok(metaForSeq(1))); !errors.Is(err, ErrSinkAborted) {
		t.Fatalf("Deliver after abort should fail, got: %v", err)
	}
}
