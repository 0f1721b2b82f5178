// Package metastream turns the raw byte stream of the metadata pipe into
// decoded results and hands them to a delivery sink. The framing is a 4-byte
// big-endian length whose top bit marks the final record of the stream; the
// body is XDR-encoded ledger-close metadata.
package metastream

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/stellar/go/xdr"

	"github.com/withObsrvr/captive-ingest/internal/metrics"
	"github.com/withObsrvr/captive-ingest/ledgermeta"
)

const (
	// MetaPipeBufferSize is the buffered-reader capacity over the pipe. Large
	// ledgers carry multi-megabyte metadata, so the buffer is sized to hold a
	// full frame in the common case.
	MetaPipeBufferSize = 10 * 1024 * 1024

	// eosBit marks the last record of the stream in the length prefix. It
	// must be masked off before the prefix is used as a length.
	eosBit = 1 << 31

	// lengthMask recovers the frame length from the prefix.
	lengthMask = eosBit - 1
)

// ErrJoinTimeout is returned by Join when the reader does not exit in time.
var ErrJoinTimeout = errors.New("reader did not exit within the join window")

// Config wires a Reader to its pipe and sink.
type Config struct {
	// Open opens the read end of the pipe. Called on the reader's own
	// goroutine because the open blocks until the node opens the write end.
	Open func() (io.ReadCloser, error)

	// Sink receives every decoded result. The reader calls Sink.Close when
	// it exits.
	Sink Sink

	// Stagger, if positive, is slept after each successful emission.
	Stagger time.Duration

	// Metrics may be nil.
	Metrics *metrics.Metrics
	Labels  metrics.Labels
}

// Reader drains the metadata pipe on a dedicated goroutine, recovers frames,
// decodes them, and emits results to the sink in stream order.
type Reader struct {
	cfg  Config
	log  *slog.Logger
	done chan struct{}
}

// New creates a reader. Start launches it.
func New(cfg Config) *Reader {
	return &Reader{
		cfg:  cfg,
		log:  slog.With("component", "metastream"),
		done: make(chan struct{}),
	}
}

// Start launches the reader goroutine. The goroutine exits when the stream
// ends (EOF, end-of-stream bit, fatal read error) or when the sink is
// aborted; it closes the sink and then Done on the way out.
func (r *Reader) Start() {
	go r.run()
}

// Done is closed when the reader goroutine has exited.
func (r *Reader) Done() <-chan struct{} {
	return r.done
}

// Join waits for the reader to exit, up to timeout.
func (r *Reader) Join(timeout time.Duration) error {
	select {
	case <-r.done:
		return nil
	case <-time.After(timeout):
		return ErrJoinTimeout
	}
}

func (r *Reader) run() {
	defer close(r.done)
	defer r.cfg.Sink.Close()

	src, err := r.cfg.Open()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, os.ErrClosed) {
			r.log.Debug("pipe gone before open, reader exiting")
			return
		}
		r.cfg.Metrics.IncPipeErrors(r.cfg.Labels)
		r.emit(ledgermeta.Failed(fmt.Errorf("%w: %v", ledgermeta.ErrPipeIO, err)))
		return
	}
	defer src.Close()

	r.loop(bufio.NewReaderSize(src, MetaPipeBufferSize))
}

// loop reads frames until the stream ends. Exits on: clean EOF at a frame
// boundary, the end-of-stream bit, truncation, a pipe I/O error, or an
// aborted sink. Decode failures are emitted and the loop continues, since the
// framing is still intact.
func (r *Reader) loop(br *bufio.Reader) {
	var header [4]byte
	for {
		start := time.Now()

		if _, err := io.ReadFull(br, header[:]); err != nil {
			switch {
			case errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed):
				r.log.Debug("metadata stream ended")
			case errors.Is(err, io.ErrUnexpectedEOF):
				r.cfg.Metrics.IncTruncatedFrames(r.cfg.Labels)
				r.emit(ledgermeta.Failed(fmt.Errorf("%w: partial length prefix", ledgermeta.ErrTruncatedFrame)))
			default:
				r.cfg.Metrics.IncPipeErrors(r.cfg.Labels)
				r.emit(ledgermeta.Failed(fmt.Errorf("%w: %v", ledgermeta.ErrPipeIO, err)))
			}
			return
		}

		prefix := binary.BigEndian.Uint32(header[:])
		last := prefix&eosBit != 0
		length := prefix & lengthMask

		body := make([]byte, length)
		if _, err := io.ReadFull(br, body); err != nil {
			switch {
			case errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF):
				r.cfg.Metrics.IncTruncatedFrames(r.cfg.Labels)
				r.emit(ledgermeta.Failed(fmt.Errorf("%w: got fewer than %d body bytes", ledgermeta.ErrTruncatedFrame, length)))
			default:
				r.cfg.Metrics.IncPipeErrors(r.cfg.Labels)
				r.emit(ledgermeta.Failed(fmt.Errorf("%w: %v", ledgermeta.ErrPipeIO, err)))
			}
			return
		}

		r.cfg.Metrics.IncFramesRead(r.cfg.Labels)
		r.cfg.Metrics.AddBytesRead(r.cfg.Labels, float64(length))

		var lcm xdr.LedgerCloseMeta
		if err := lcm.UnmarshalBinary(body); err != nil {
			r.cfg.Metrics.IncDecodeErrors(r.cfg.Labels)
			if !r.emit(ledgermeta.Failed(fmt.Errorf("%w: %v", ledgermeta.ErrDecode, err))) {
				return
			}
			continue
		}

		if !r.emit(ledgermeta.Ok(&lcm)) {
			return
		}

		r.cfg.Metrics.IncLedgersIngested(r.cfg.Labels)
		r.cfg.Metrics.SetLastLedgerSeq(r.cfg.Labels, float64(lcm.LedgerSequence()))
		r.cfg.Metrics.ObserveFrameReadDuration(r.cfg.Labels, time.Since(start).Seconds())

		if r.cfg.Stagger > 0 {
			time.Sleep(r.cfg.Stagger)
		}

		if last {
			r.log.Debug("end-of-stream bit observed, reader exiting", "sequence", lcm.LedgerSequence())
			return
		}
	}
}

// emit delivers one result to the sink. Returns false when the sink was
// aborted and the loop must stop.
func (r *Reader) emit(res ledgermeta.MetaResult) bool {
	if err := r.cfg.Sink.Deliver(res); err != nil {
		r.log.Debug("sink aborted, reader exiting", "error", err)
		return false
	}
	return true
}
