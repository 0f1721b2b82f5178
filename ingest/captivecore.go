// Package ingest supervises a captive node process and exposes its per-ledger
// metadata stream. A CaptiveCore binds the generated node config, scratch
// directory, metadata FIFO, child process, and framed reader into one handle
// with three entry points: a single-threaded bounded replay into an indexed
// store, a channel-delivered bounded replay, and an unbounded online stream.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/stellar/go/xdr"

	"github.com/withObsrvr/captive-ingest/internal/metastream"
	"github.com/withObsrvr/captive-ingest/internal/metrics"
	"github.com/withObsrvr/captive-ingest/internal/pipe"
	"github.com/withObsrvr/captive-ingest/internal/runner"
	"github.com/withObsrvr/captive-ingest/internal/scratch"
	"github.com/withObsrvr/captive-ingest/ledgermeta"
)

// readerJoinTimeout bounds the wait for the reader goroutine during close.
// By then the pipe has been unblocked and the node terminated, so the reader
// sees EOF almost immediately; the bound guards against a wedged pipe.
const readerJoinTimeout = 10 * time.Second

// Mode is the supervisor's lifecycle state.
type Mode int

const (
	// ModeIdle means no node is running and no stream is live.
	ModeIdle Mode = iota
	// ModeOfflineSingle is a bounded replay into the indexed store. It is
	// held only while PrepareLedgers blocks; concurrent callers observe it
	// (and are refused with ErrWrongMode) during that window.
	ModeOfflineSingle
	// ModeOfflineMulti is a bounded replay delivered over a channel.
	ModeOfflineMulti
	// ModeOnline is an unbounded run from the current tip.
	ModeOnline
)

func (m Mode) String() string {
	switch m {
	case ModeOfflineSingle:
		return "offline-single"
	case ModeOfflineMulti:
		return "offline-multi"
	case ModeOnline:
		return "online"
	default:
		return "idle"
	}
}

// CaptiveCore supervises one captive node at a time. All methods are safe for
// concurrent use; at most one mode is active per instance.
type CaptiveCore struct {
	config IngestionConfig
	log    *slog.Logger
	m      *metrics.Metrics

	mu      sync.Mutex
	mode    Mode
	scratch *scratch.Dir
	pipe    *pipe.Pipe
	runner  *runner.Runner
	reader  *metastream.Reader
	sink    metastream.Sink

	store    *metastream.LedgerStore
	prepared Range
}

// NewCaptiveCore validates the configuration and returns an idle supervisor.
// Teardown is guaranteed even if the caller forgets Close: a finalizer
// releases the child process, pipe, and scratch directory.
func NewCaptiveCore(cfg IngestionConfig) (*CaptiveCore, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	c := &CaptiveCore{
		config: cfg,
		log:    slog.With("component", "captivecore", "network", cfg.Network.String()),
		m:      metrics.Get(),
	}
	runtime.SetFinalizer(c, func(core *CaptiveCore) { _ = core.Close() })
	return c, nil
}

// Mode returns the supervisor's current lifecycle state.
func (c *CaptiveCore) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// PrepareLedgers replays the bounded range into the supervisor's indexed
// store and blocks until the replay finishes. On return the supervisor is
// idle again and GetLedger serves the range. A previous replay's store is
// discarded first. In-stream decode or pipe errors collected during the
// replay are returned after teardown.
func (c *CaptiveCore) PrepareLedgers(r Range) error {
	c.mu.Lock()
	if c.mode != ModeIdle {
		c.mu.Unlock()
		return fmt.Errorf("%w: prepare requires idle, supervisor is %s", ErrWrongMode, c.mode)
	}
	if !r.Bounded() {
		c.mu.Unlock()
		return fmt.Errorf("%w: offline replay requires a bounded range", ErrConfigInvalid)
	}

	c.store = nil
	c.prepared = Range{}
	store := metastream.NewLedgerStore(int(r.Count()))

	if err := c.launchLocked(r, store, ModeOfflineSingle); err != nil {
		c.mu.Unlock()
		return err
	}
	run := c.runner
	c.mu.Unlock()

	waitErr := run.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()

	closeErr := c.closeLocked()

	if waitErr != nil {
		c.m.IncNodeFailures(c.labels(ModeOfflineSingle))
		return fmt.Errorf("%w: %w", ErrNodeFailed, waitErr)
	}
	if closeErr != nil {
		return closeErr
	}
	if err := store.Err(); err != nil {
		return err
	}

	c.store = store
	c.prepared = r
	c.log.Info("replay prepared", "range", r.String(), "ledgers", store.Len())
	return nil
}

// GetLedger returns the decoded record for seq from the last PrepareLedgers
// replay, or ErrOutOfRange when the sequence was not covered.
func (c *CaptiveCore) GetLedger(seq uint32) (*xdr.LedgerCloseMeta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != ModeIdle {
		return nil, fmt.Errorf("%w: get requires idle, supervisor is %s", ErrWrongMode, c.mode)
	}
	if c.store == nil {
		return nil, fmt.Errorf("%w: no replay has been prepared", ErrOutOfRange)
	}
	lcm, ok := c.store.Get(seq)
	if !ok {
		return nil, fmt.Errorf("%w: sequence %d not in %s", ErrOutOfRange, seq, c.prepared.String())
	}
	return lcm, nil
}

// PrepareLedgersMultiThread replays the bounded range and returns the channel
// the results are delivered on. The channel closes when the stream ends. The
// caller must invoke Close after draining.
func (c *CaptiveCore) PrepareLedgersMultiThread(r Range) (<-chan ledgermeta.MetaResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != ModeIdle {
		return nil, fmt.Errorf("%w: prepare requires idle, supervisor is %s", ErrWrongMode, c.mode)
	}
	if !r.Bounded() {
		return nil, fmt.Errorf("%w: offline replay requires a bounded range", ErrConfigInvalid)
	}

	sink := metastream.NewChannelSink(c.config.BoundedBufferSize)
	if err := c.launchLocked(r, sink, ModeOfflineMulti); err != nil {
		return nil, err
	}
	c.reapAsync(ModeOfflineMulti)
	return sink.Out(), nil
}

// StartOnlineNoRange runs the node from the current tip and returns the
// channel newly closed ledgers are delivered on. The stream runs until Close.
func (c *CaptiveCore) StartOnlineNoRange() (<-chan ledgermeta.MetaResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != ModeIdle {
		return nil, fmt.Errorf("%w: online start requires idle, supervisor is %s", ErrWrongMode, c.mode)
	}

	sink := metastream.NewChannelSink(c.config.BoundedBufferSize)
	if err := c.launchLocked(UnboundedRange(), sink, ModeOnline); err != nil {
		return nil, err
	}
	c.reapAsync(ModeOnline)
	return sink.Out(), nil
}

// Close stops the reader, terminates the node, unlinks the pipe, removes the
// scratch directory, discards the store, and returns the supervisor to idle.
// Idempotent: closing an idle supervisor returns nil.
func (c *CaptiveCore) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store = nil
	c.prepared = Range{}
	return c.closeLocked()
}

// launchLocked brings up scratch dir, node config, FIFO, child process, and
// reader, in that order, rolling back on failure. Caller holds c.mu.
func (c *CaptiveCore) launchLocked(r Range, sink metastream.Sink, mode Mode) error {
	dir, err := scratch.Create(c.config.ContextPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrScratchIO, err)
	}

	confPath, err := writeConf(c.config.Network, dir.Path())
	if err != nil {
		_ = dir.Remove()
		return fmt.Errorf("%w: %w", ErrScratchIO, err)
	}

	p, err := pipe.New(dir.Path())
	if err != nil {
		_ = dir.Remove()
		return fmt.Errorf("%w: %w", ErrPipeIO, err)
	}

	run := runner.New(c.config.ExecutablePath, confPath, dir.Path())
	if mode == ModeOnline {
		err = run.StartOnline(p.Path())
	} else {
		err = run.StartOffline(p.Path(), r.From(), r.To())
	}
	if err != nil {
		_ = p.Close()
		_ = dir.Remove()
		if errors.Is(err, runner.ErrSpawn) {
			return fmt.Errorf("%w: %w", ErrNodeSpawn, err)
		}
		return err
	}

	reader := metastream.New(metastream.Config{
		Open:    func() (io.ReadCloser, error) { return p.OpenRead() },
		Sink:    sink,
		Stagger: c.config.Stagger,
		Metrics: c.m,
		Labels:  c.labels(mode),
	})
	reader.Start()

	c.scratch = dir
	c.pipe = p
	c.runner = run
	c.reader = reader
	c.sink = sink
	c.mode = mode

	c.m.IncNodeLaunches(c.labels(mode))
	c.log.Info("captive node launched", "mode", mode.String(), "range", r.String(), "scratch", dir.Path())
	return nil
}

// closeLocked tears down in the reverse of launch order: unblock a reader
// stuck opening the FIFO, terminate the node so its write end closes, unblock
// a reader stuck delivering, join the reader (re-releasing the FIFO while
// waiting, in case the reader reached the open only after the first unblock),
// unlink the pipe, remove the scratch directory. Caller holds c.mu.
func (c *CaptiveCore) closeLocked() error {
	if c.mode == ModeIdle && c.runner == nil {
		return nil
	}

	var errs []error

	if c.pipe != nil {
		if err := c.pipe.Unblock(); err != nil {
			errs = append(errs, fmt.Errorf("%w: %w", ErrPipeIO, err))
		}
	}

	if c.runner != nil {
		if err := c.runner.Close(); err != nil {
			if errors.Is(err, runner.ErrKillTimeout) {
				errs = append(errs, fmt.Errorf("%w: %w", ErrNodeKillTimeout, err))
			} else {
				errs = append(errs, err)
			}
		}
	}

	if c.sink != nil {
		c.sink.Abort()
	}

	if c.reader != nil {
		// A reader that reaches OpenRead after the node is gone has no writer
		// to pair with; keep releasing the FIFO until it exits.
		deadline := time.Now().Add(readerJoinTimeout)
		for c.reader.Join(10*time.Millisecond) != nil {
			if time.Now().After(deadline) {
				errs = append(errs, metastream.ErrJoinTimeout)
				break
			}
			if c.pipe != nil {
				_ = c.pipe.Unblock()
			}
		}
	}

	if c.pipe != nil {
		if err := c.pipe.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%w: %w", ErrPipeIO, err))
		}
	}

	if c.scratch != nil {
		if err := c.scratch.Remove(); err != nil {
			errs = append(errs, fmt.Errorf("%w: %w", ErrScratchIO, err))
		}
	}

	c.scratch = nil
	c.pipe = nil
	c.runner = nil
	c.reader = nil
	c.sink = nil
	c.mode = ModeIdle

	if len(errs) == 0 {
		c.log.Info("captive node closed")
	}
	return errors.Join(errs...)
}

// reapAsync watches the child of a channel-delivered run so a nonzero exit is
// logged and counted even though nobody awaits it. A signal exit after Close
// requested termination is the normal shutdown path, not a failure.
func (c *CaptiveCore) reapAsync(mode Mode) {
	run := c.runner
	go func() {
		err := run.Wait()
		if err == nil || run.TerminationRequested() {
			return
		}
		c.m.IncNodeFailures(c.labels(mode))
		c.log.Error("node exited with failure", "mode", mode.String(), "error", err)
	}()
}

func (c *CaptiveCore) labels(mode Mode) metrics.Labels {
	return metrics.Labels{Network: c.config.Network.String(), Mode: mode.String()}
}
