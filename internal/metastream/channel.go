package metastream

import (
	"sync"

	"github.com/withObsrvr/captive-ingest/ledgermeta"
)

// ChannelSink is the delivery sink for multi-threaded offline and online
// modes. With a positive capacity deliveries block when the consumer lags,
// which is the backpressure path all the way back to the node. With no
// capacity the sink queues internally and deliveries never block.
type ChannelSink struct {
	out chan ledgermeta.MetaResult
	in  chan ledgermeta.MetaResult

	stop     chan struct{}
	stopOnce sync.Once
}

// NewChannelSink creates a sink delivering into a channel of the given
// capacity. A capacity of zero or less means unbounded: an internal pump
// goroutine queues results so the reader is never blocked by the consumer.
func NewChannelSink(capacity int) *ChannelSink {
	s := &ChannelSink{stop: make(chan struct{})}

	if capacity > 0 {
		s.out = make(chan ledgermeta.MetaResult, capacity)
		return s
	}

	s.in = make(chan ledgermeta.MetaResult)
	s.out = make(chan ledgermeta.MetaResult)
	go s.pump()
	return s
}

// Out returns the receive side handed to the consumer. It is closed when the
// stream ends.
func (s *ChannelSink) Out() <-chan ledgermeta.MetaResult {
	return s.out
}

// Deliver pushes one result toward the consumer. On a bounded sink this
// blocks while the channel is full. Returns ErrSinkAborted if Abort was
// called while the delivery was pending.
func (s *ChannelSink) Deliver(res ledgermeta.MetaResult) error {
	target := s.out
	if s.in != nil {
		target = s.in
	}
	select {
	case target <- res:
		return nil
	case <-s.stop:
		return ErrSinkAborted
	}
}

// Close ends the stream; the consumer-facing channel closes once queued
// results have drained.
func (s *ChannelSink) Close() {
	if s.in != nil {
		close(s.in)
		return
	}
	close(s.out)
}

// Abort unblocks any pending Deliver and stops the pump. Idempotent.
func (s *ChannelSink) Abort() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// pump moves results from in to out through an in-memory queue so senders
// never block. Runs only for unbounded sinks.
func (s *ChannelSink) pump() {
	var queue []ledgermeta.MetaResult
	in := s.in

	for {
		var out chan ledgermeta.MetaResult
		var head ledgermeta.MetaResult
		if len(queue) > 0 {
			out = s.out
			head = queue[0]
		} else if in == nil {
			close(s.out)
			return
		}

		select {
		case res, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			queue = append(queue, res)
		case out <- head:
			queue = queue[1:]
		case <-s.stop:
			close(s.out)
			return
		}
	}
}
