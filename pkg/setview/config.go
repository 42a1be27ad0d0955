package setview

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the variable holding the path of an optional
// YAML configuration file.
const ConfigFileEnv = "SETVIEW_CONFIG"

// Config of a setview server. Values are read from the defaults, the
// configuration file, the environment and the flags, the later ones win.
type Config struct {
	ListenAddress string `yaml:"listen_address" env:"SETVIEW_LISTEN_ADDRESS"`
	DataDir       string `yaml:"data_dir" env:"SETVIEW_DATA_DIR"`
	TmpDir        string `yaml:"tmp_dir" env:"SETVIEW_TMP_DIR"`

	// CompactorPath and MergerPath are the helper binaries, empty runs
	// the helpers in process.
	CompactorPath string `yaml:"compactor_path" env:"SETVIEW_COMPACTOR_PATH"`
	MergerPath    string `yaml:"merger_path" env:"SETVIEW_MERGER_PATH"`

	MaxRetries    uint64        `yaml:"max_retries" env:"SETVIEW_MAX_RETRIES"`
	RetryBackoff  time.Duration `yaml:"retry_backoff" env:"SETVIEW_RETRY_BACKOFF"`
	ScriptTimeout time.Duration `yaml:"script_timeout" env:"SETVIEW_SCRIPT_TIMEOUT"`

	// Groups are created on start, by name.
	Groups map[string]map[string]interface{} `yaml:"groups"`
}

func DefaultConfig() *Config {
	return &Config{
		ListenAddress: ":7070",
		DataDir:       "./data",
		ScriptTimeout: 5 * time.Second,
	}
}

// NewConfig returns the defaults overwritten by the file named in
// SETVIEW_CONFIG and the environment.
func NewConfig() (*Config, error) {
	cfg := DefaultConfig()
	if path := os.Getenv(ConfigFileEnv); path != "" {
		err := cfg.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}
	err := env.Parse(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	return cfg, nil
}

func (cfg *Config) ReadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	err = cfg.ReadFileData(data)
	if err != nil {
		return fmt.Errorf("invalid config file %q: %w", path, err)
	}
	return nil
}

// ReadFileData reads the YAML encoded config.
func (cfg *Config) ReadFileData(data []byte) error {
	return yaml.Unmarshal(data, cfg)
}

func (cfg *Config) ParseFlags() {
	cfg.FlagSet(flag.CommandLine)
	flag.Parse()
}

// FlagSet registers the flags of the config.
func (cfg *Config) FlagSet(fs *flag.FlagSet) {
	fs.StringVar(&cfg.ListenAddress, "addr", cfg.ListenAddress, "address to listen on")
	fs.StringVar(&cfg.DataDir, "dir", cfg.DataDir, "directory of the group files")
	fs.StringVar(&cfg.TmpDir, "tmp", cfg.TmpDir, "directory of the temporary files, defaults to <dir>/tmp")
	fs.StringVar(&cfg.CompactorPath, "compactor", cfg.CompactorPath, "path of the compactor helper binary")
	fs.StringVar(&cfg.MergerPath, "merger", cfg.MergerPath, "path of the merger helper binary")
	fs.Uint64Var(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "catch-up rounds per compaction, 0 is unbounded")
	fs.DurationVar(&cfg.RetryBackoff, "retry-backoff", cfg.RetryBackoff, "pause before a catch-up round")
	fs.DurationVar(&cfg.ScriptTimeout, "script-timeout", cfg.ScriptTimeout, "time limit of map and reduce functions per request")
}
