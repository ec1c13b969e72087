package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"nftmarket/crypto"
)

// KeystorePassphraseEnv names the environment variable holding the operator
// keystore passphrase. An unset variable means an empty passphrase.
const KeystorePassphraseEnv = "MARKET_KEYSTORE_PASSPHRASE"

// PassphraseSource resolves the operator keystore passphrase.
type PassphraseSource func() (string, error)

type loadOptions struct {
	passphrase PassphraseSource
}

// LoadOption customises Load.
type LoadOption func(*loadOptions)

// WithKeystorePassphraseSource overrides how the operator keystore
// passphrase is obtained when the keystore must be created or opened.
func WithKeystorePassphraseSource(source PassphraseSource) LoadOption {
	return func(o *loadOptions) {
		if source != nil {
			o.passphrase = source
		}
	}
}

func envPassphrase() (string, error) {
	return os.Getenv(KeystorePassphraseEnv), nil
}

type Config struct {
	ListenAddress        string    `toml:"ListenAddress"`
	MetricsAddress       string    `toml:"MetricsAddress"`
	DataDir              string    `toml:"DataDir"`
	Database             string    `toml:"Database"`
	GenesisFile          string    `toml:"GenesisFile"`
	Operator             string    `toml:"Operator"`
	OperatorKeystorePath string    `toml:"OperatorKeystorePath,omitempty"`
	CommissionBps        uint32    `toml:"CommissionBps"`
	Environment          string    `toml:"Environment"`
	Log                  Log       `toml:"Log"`
	Index                Index     `toml:"Index"`
	Telemetry            Telemetry `toml:"Telemetry"`
	RateLimit            RateLimit `toml:"RateLimit"`
	// TrustedProxies lists reverse proxies, as IPs or CIDRs, whose
	// X-Forwarded-For header identifies the client.
	TrustedProxies []string `toml:"TrustedProxies,omitempty"`
}

// Load loads the configuration from the given path. A missing file is
// replaced by a default configuration with a freshly generated operator
// key.
func Load(path string, opts ...LoadOption) (*Config, error) {
	options := loadOptions{passphrase: envPassphrase}
	for _, opt := range opts {
		opt(&options)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path, options.passphrase)
	}

	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s: unknown key %q", path, undecoded[0].String())
	}

	if strings.TrimSpace(cfg.Operator) == "" {
		if err := ensureOperator(path, cfg, options.passphrase); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration used when no file exists. Operator is
// left empty.
func Default() *Config {
	return &Config{
		ListenAddress:  ":8545",
		MetricsAddress: ":9100",
		DataDir:        "./market-data",
		Database:       "leveldb",
		CommissionBps:  100,
		Environment:    "dev",
		Log:            Log{Level: "info", MaxSizeMB: 100, MaxBackups: 5},
		Index:          Index{Driver: "sqlite", DSN: "file:market-index.db"},
		Telemetry:      Telemetry{SampleRatio: 1},
		RateLimit:      RateLimit{RequestsPerMinute: 600, Burst: 60},
	}
}

// ensureOperator loads or creates the operator keystore and records its
// address in the config file.
func ensureOperator(configPath string, cfg *Config, source PassphraseSource) error {
	keystorePath := cfg.OperatorKeystorePath
	if keystorePath == "" {
		keystorePath = defaultKeystorePath(configPath)
	}
	passphrase, err := source()
	if err != nil {
		return fmt.Errorf("operator keystore passphrase: %w", err)
	}

	var key *crypto.PrivateKey
	if _, err := os.Stat(keystorePath); os.IsNotExist(err) {
		generated, genErr := crypto.GeneratePrivateKey()
		if genErr != nil {
			return genErr
		}
		if err := crypto.SaveToKeystore(keystorePath, generated, passphrase); err != nil {
			return err
		}
		key = generated
	} else if err != nil {
		return err
	} else {
		loaded, err := crypto.LoadFromKeystore(keystorePath, passphrase)
		if err != nil {
			return err
		}
		key = loaded
	}

	cfg.OperatorKeystorePath = keystorePath
	cfg.Operator = crypto.HexAddress(key.Address())
	return persist(configPath, cfg)
}

// createDefault creates and saves a default configuration file.
func createDefault(path string, source PassphraseSource) (*Config, error) {
	cfg := Default()
	if err := ensureOperator(path, cfg, source); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "operator.keystore")
}
