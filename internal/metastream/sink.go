package metastream

import (
	"errors"

	"github.com/withObsrvr/captive-ingest/ledgermeta"
)

// ErrSinkAborted is returned by Deliver when the sink was aborted while the
// delivery was pending.
var ErrSinkAborted = errors.New("delivery sink aborted")

// Sink receives the reader's emissions. Deliver may block (bounded channel
// backpressure); Abort unblocks a pending Deliver during teardown. Close marks
// the end of the stream and is called exactly once, by the reader, when it
// exits.
type Sink interface {
	Deliver(res ledgermeta.MetaResult) error
	Close()
	Abort()
}
