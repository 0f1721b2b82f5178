package ingest

import "errors"

// Structural errors returned by the supervisor's entry points. In-stream
// errors travel through the delivery channel or store instead, as
// ledgermeta sentinels, so consumers can correlate them with their position
// in the stream.
var (
	// ErrConfigInvalid is returned for a missing or non-executable node
	// binary, a negative buffer size, or an ill-formed range.
	ErrConfigInvalid = errors.New("ingestion config invalid")

	// ErrScratchIO is returned when the scratch directory or the generated
	// node config could not be created or removed.
	ErrScratchIO = errors.New("scratch directory I/O failed")

	// ErrPipeIO is returned when the metadata FIFO could not be created or
	// torn down.
	ErrPipeIO = errors.New("metadata pipe I/O failed")

	// ErrNodeSpawn is returned when the node child process could not start.
	ErrNodeSpawn = errors.New("node could not be spawned")

	// ErrNodeFailed is returned when an awaited offline node exited nonzero.
	ErrNodeFailed = errors.New("node exited with failure")

	// ErrNodeKillTimeout is returned when the node ignored SIGTERM and
	// survived SIGKILL's wait window.
	ErrNodeKillTimeout = errors.New("node did not terminate in time")

	// ErrWrongMode is returned when an operation is invoked in an
	// incompatible supervisor state. The state is left untouched.
	ErrWrongMode = errors.New("operation not valid in the current mode")

	// ErrOutOfRange is returned by GetLedger for a sequence the last replay
	// did not cover.
	ErrOutOfRange = errors.New("ledger sequence not covered by the last replay")
)
