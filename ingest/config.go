package ingest

import (
	"fmt"
	"os"
	"time"

	"github.com/stellar/go/network"
)

// Network selects which chain the node joins. Each variant maps to a baked
// passphrase, quorum set, and history archive list in the generated config.
type Network int

const (
	// NetworkTestnet is the SDF test network.
	NetworkTestnet Network = iota
	// NetworkPubnet is the public network.
	NetworkPubnet
)

func (n Network) String() string {
	switch n {
	case NetworkPubnet:
		return "pubnet"
	default:
		return "testnet"
	}
}

// Passphrase returns the network passphrase baked into the node config.
func (n Network) Passphrase() string {
	switch n {
	case NetworkPubnet:
		return network.PublicNetworkPassphrase
	default:
		return network.TestNetworkPassphrase
	}
}

// IngestionConfig is the recognized set of supervisor options. The zero value
// is not usable; ExecutablePath is mandatory.
type IngestionConfig struct {
	// ExecutablePath is the path to the node binary. It must exist and be
	// executable.
	ExecutablePath string

	// ContextPath is the root under which per-run scratch directories are
	// created. Empty means a directory under the platform temp path.
	ContextPath string

	// Network selects the chain to ingest from.
	Network Network

	// BoundedBufferSize is the delivery channel capacity in multi-threaded
	// modes. Zero means an unbounded channel.
	BoundedBufferSize int

	// Stagger, if positive, delays the reader between successive emissions.
	Stagger time.Duration
}

func (c IngestionConfig) validate() error {
	if c.ExecutablePath == "" {
		return fmt.Errorf("%w: executable path is required", ErrConfigInvalid)
	}

	info, err := os.Stat(c.ExecutablePath)
	if err != nil {
		return fmt.Errorf("%w: executable %s: %v", ErrConfigInvalid, c.ExecutablePath, err)
	}
	if info.IsDir() || info.Mode()&0o111 == 0 {
		return fmt.Errorf("%w: %s is not an executable file", ErrConfigInvalid, c.ExecutablePath)
	}

	if c.BoundedBufferSize < 0 {
		return fmt.Errorf("%w: bounded buffer size %d is negative", ErrConfigInvalid, c.BoundedBufferSize)
	}
	if c.Stagger < 0 {
		return fmt.Errorf("%w: stagger delay %s is negative", ErrConfigInvalid, c.Stagger)
	}
	return nil
}
