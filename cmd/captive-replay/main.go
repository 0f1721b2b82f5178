package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/withObsrvr/captive-ingest/ingest"
	"github.com/withObsrvr/captive-ingest/internal/config"
	"github.com/withObsrvr/captive-ingest/internal/logging"
	"github.com/withObsrvr/captive-ingest/internal/metrics"
	"github.com/withObsrvr/captive-ingest/ledgermeta"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (environment overrides apply)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logging.Setup(logging.Config{Format: cfg.Logging.Format, Level: cfg.Logging.Level})
	log := logging.Component("main")

	if cfg.Metrics.Enabled {
		metrics.Init("captive_ingest")
		go func() {
			if err := metrics.StartServer(cfg.Metrics.Address); err != nil {
				log.Error("metrics server failed", "error", err)
			}
		}()
	}

	net := ingest.NetworkTestnet
	if cfg.Node.Network == "pubnet" {
		net = ingest.NetworkPubnet
	}

	core, err := ingest.NewCaptiveCore(ingest.IngestionConfig{
		ExecutablePath:    cfg.Node.ExecutablePath,
		ContextPath:       cfg.Node.ContextPath,
		Network:           net,
		BoundedBufferSize: cfg.Node.BufferSize,
		Stagger:           time.Duration(cfg.Node.StaggerMs) * time.Millisecond,
	})
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	switch cfg.Replay.Mode {
	case "single":
		err = runSingle(core, logging.RangeLogger(cfg.Node.Network, cfg.Replay.From, cfg.Replay.To), cfg.Replay.From, cfg.Replay.To)
	case "online":
		err = runOnline(core, log)
	default:
		err = runReplay(core, logging.RangeLogger(cfg.Node.Network, cfg.Replay.From, cfg.Replay.To), cfg.Replay.From, cfg.Replay.To)
	}
	if err != nil {
		log.Error("run failed", "mode", cfg.Replay.Mode, "error", err)
		_ = core.Close()
		os.Exit(1)
	}

	if err := core.Close(); err != nil {
		log.Error("close failed", "error", err)
		os.Exit(1)
	}
	log.Info("done")
}

// runSingle replays the range into the indexed store and prints each ledger
// by random access.
func runSingle(core *ingest.CaptiveCore, log *slog.Logger, from, to uint32) error {
	r, err := ingest.BoundedRange(from, to)
	if err != nil {
		return err
	}

	log.Info("preparing ledgers", "range", r.String())
	if err := core.PrepareLedgers(r); err != nil {
		return err
	}

	for seq := from; seq <= to; seq++ {
		lcm, err := core.GetLedger(seq)
		if err != nil {
			return err
		}
		printLedger(ledgermeta.Ok(lcm))
	}
	return nil
}

// runReplay replays the range over a channel, printing summaries as they
// arrive.
func runReplay(core *ingest.CaptiveCore, log *slog.Logger, from, to uint32) error {
	r, err := ingest.BoundedRange(from, to)
	if err != nil {
		return err
	}

	log.Info("replaying ledgers", "range", r.String())
	ch, err := core.PrepareLedgersMultiThread(r)
	if err != nil {
		return err
	}

	var streamErrs []error
	for res := range ch {
		if res.IsErr() {
			log.Warn("in-stream error", "error", res.Err)
			streamErrs = append(streamErrs, res.Err)
			continue
		}
		printLedger(res)
	}
	return errors.Join(streamErrs...)
}

// runOnline streams newly closed ledgers until interrupted.
func runOnline(core *ingest.CaptiveCore, log *slog.Logger) error {
	ch, err := core.StartOnlineNoRange()
	if err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	log.Info("streaming from current tip, interrupt to stop")
	for {
		select {
		case res, ok := <-ch:
			if !ok {
				return errors.New("metadata stream ended unexpectedly")
			}
			if res.IsErr() {
				log.Warn("in-stream error", "error", res.Err)
				continue
			}
			printLedger(res)
		case s := <-sig:
			log.Info("signal received, shutting down", "signal", s.String())
			return nil
		}
	}
}

func printLedger(res ledgermeta.MetaResult) {
	seq, _ := res.Sequence()
	hash, _ := res.LedgerHash()
	txCount, _ := res.TransactionCount()
	events, _ := res.SorobanContractEvents()
	fmt.Printf("ledger %d hash=%s txs=%d soroban_events=%d\n", seq, hash, txCount, len(events))
}
