package ingest

import (
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml"
	"github.com/stellar/go/keypair"
)

// ConfFileName is the name of the generated node config inside the scratch
// directory.
const ConfFileName = "node.toml"

// nodeConfig is the generated captive-mode configuration. The node runs
// without a public HTTP surface, with a throwaway identity, and with quorum
// safety relaxed since it only observes.
type nodeConfig struct {
	LogFilePath       string       `toml:"LOG_FILE_PATH"`
	HTTPPort          int          `toml:"HTTP_PORT"`
	PublicHTTPPort    bool         `toml:"PUBLIC_HTTP_PORT"`
	NetworkPassphrase string       `toml:"NETWORK_PASSPHRASE"`
	NodeSeed          string       `toml:"NODE_SEED"`
	Database          string       `toml:"DATABASE"`
	PeerPort          int          `toml:"PEER_PORT"`
	UnsafeQuorum      bool         `toml:"UNSAFE_QUORUM"`
	FailureSafety     int          `toml:"FAILURE_SAFETY"`
	HomeDomains       []homeDomain `toml:"HOME_DOMAINS"`
	Validators        []validator  `toml:"VALIDATORS"`
}

type homeDomain struct {
	HomeDomain string `toml:"HOME_DOMAIN"`
	Quality    string `toml:"QUALITY"`
}

type validator struct {
	Name       string `toml:"NAME"`
	HomeDomain string `toml:"HOME_DOMAIN"`
	PublicKey  string `toml:"PUBLIC_KEY"`
	Address    string `toml:"ADDRESS"`
	History    string `toml:"HISTORY"`
}

var testnetValidators = []validator{
	{
		Name:       "sdftest1",
		HomeDomain: "testnet.stellar.org",
		PublicKey:  "GDKXE2OZMJIPOSLNA6N6F2BVCI3O777I2OOC4BV7VOYUEHYX7RTRYA7Y",
		Address:    "core-testnet1.stellar.org",
		History:    "curl -sf http://history.stellar.org/prd/core-testnet/core_testnet_001/{0} -o {1}",
	},
	{
		Name:       "sdftest2",
		HomeDomain: "testnet.stellar.org",
		PublicKey:  "GCUCJTIYXSOXKBSNFGNFWW5MUQ54HKRPGJUTQFJ5RQXZXNOLNXYDHRAP",
		Address:    "core-testnet2.stellar.org",
		History:    "curl -sf http://history.stellar.org/prd/core-testnet/core_testnet_002/{0} -o {1}",
	},
	{
		Name:       "sdftest3",
		HomeDomain: "testnet.stellar.org",
		PublicKey:  "GC2V2EFSXN6SQTWVYA5EPJPBWWIMSD2XQNKUOHGEKB535AQE2I6IXV2Z",
		Address:    "core-testnet3.stellar.org",
		History:    "curl -sf http://history.stellar.org/prd/core-testnet/core_testnet_003/{0} -o {1}",
	},
}

var pubnetValidators = []validator{
	{
		Name:       "sdf1",
		HomeDomain: "www.stellar.org",
		PublicKey:  "GCGB2S2KGYARPVIA37HYZXVRM2YZUEXA6S33ZU5BUDC6THSB62LZSTYH",
		Address:    "core-live-a.stellar.org:11625",
		History:    "curl -sf https://history.stellar.org/prd/core-live/core_live_001/{0} -o {1}",
	},
	{
		Name:       "sdf2",
		HomeDomain: "www.stellar.org",
		PublicKey:  "GCM6QMP3DLRPTAZW2UZPCPX2LF3SXWXKPMP3GKFZBDSF3QZGV2G5QSTK",
		Address:    "core-live-b.stellar.org:11625",
		History:    "curl -sf https://history.stellar.org/prd/core-live/core_live_002/{0} -o {1}",
	},
	{
		Name:       "sdf3",
		HomeDomain: "www.stellar.org",
		PublicKey:  "GABMKJM6I25XI4K7U6XWMULOUQIQ27BCTMLS6BYYSOWKTBUXVRJSXHYQ",
		Address:    "core-live-c.stellar.org:11625",
		History:    "curl -sf https://history.stellar.org/prd/core-live/core_live_003/{0} -o {1}",
	},
}

// generateConf renders the node configuration for the chosen network. The
// node identity is a fresh throwaway keypair per run.
func generateConf(net Network) (string, error) {
	cfg := nodeConfig{
		HTTPPort:          0,
		PublicHTTPPort:    false,
		NetworkPassphrase: net.Passphrase(),
		NodeSeed:          keypair.MustRandom().Seed(),
		Database:          "sqlite3://stellar.db",
		PeerPort:          11725,
		UnsafeQuorum:      true,
		FailureSafety:     0,
	}

	switch net {
	case NetworkPubnet:
		cfg.HomeDomains = []homeDomain{{HomeDomain: "www.stellar.org", Quality: "HIGH"}}
		cfg.Validators = pubnetValidators
	default:
		cfg.HomeDomains = []homeDomain{{HomeDomain: "testnet.stellar.org", Quality: "HIGH"}}
		cfg.Validators = testnetValidators
	}

	out, err := toml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal node config: %w", err)
	}
	return string(out), nil
}

// writeConf generates and writes the node config into dir, returning its
// path. Restricted to the current user; no secrets beyond the throwaway seed
// are written.
func writeConf(net Network, dir string) (string, error) {
	conf, err := generateConf(net)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, ConfFileName)
	if err := os.WriteFile(path, []byte(conf), 0o600); err != nil {
		return "", fmt.Errorf("write node config %s: %w", path, err)
	}
	return path, nil
}
