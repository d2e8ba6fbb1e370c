package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/weberc2/sfs/pkg/fs"
	"github.com/weberc2/sfs/pkg/pgdevice"
	"gopkg.in/yaml.v2"
)

const (
	envVarPrefix = "SFS"
	appName      = "sfs"

	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Config holds every setting the CLI needs. Values come from the defaults,
// then the YAML config file, then `SFS_*` environment variables, then
// command line flags, each layer overriding the last.
type Config struct {
	Backend        string `envconfig:"SFS_BACKEND"          yaml:"backend"`
	Image          string `envconfig:"SFS_IMAGE"            yaml:"image"`
	Volume         string `envconfig:"SFS_VOLUME"           yaml:"volume"`
	Table          string `envconfig:"SFS_TABLE"            yaml:"table"`
	LogLevel       string `envconfig:"SFS_LOG_LEVEL"        yaml:"logLevel"`
	InodeCacheSize int    `envconfig:"SFS_INODE_CACHE_SIZE" yaml:"inodeCacheSize"`
	Bucket         string `envconfig:"SFS_BUCKET"           yaml:"bucket"`
	Region         string `envconfig:"SFS_REGION"           yaml:"region"`
	Endpoint       string `envconfig:"SFS_ENDPOINT"         yaml:"endpoint"`
}

func DefaultConfig() Config {
	return Config{
		Backend:        BackendFile,
		Image:          "sfs.img",
		Table:          pgdevice.DefaultTable,
		LogLevel:       "info",
		InodeCacheSize: fs.DefaultInodeCacheSize,
	}
}

// ConfigFile returns the path of the YAML config file: `$SFS_CONFIG_FILE`
// if set, else `$HOME/.config/sfs.yaml`.
func ConfigFile() string {
	if configFile := os.Getenv(envVarPrefix + "_CONFIG_FILE"); configFile != "" {
		return configFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName+".yaml")
}

// LoadConfig layers the file at `configFile` and the environment over the
// defaults. A missing file is not an error.
func LoadConfig(configFile string) (*Config, error) {
	c := DefaultConfig()
	if configFile != "" {
		data, err := os.ReadFile(configFile)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			if err := yaml.UnmarshalStrict(data, &c); err != nil {
				return nil, fmt.Errorf("unmarshaling config file: %w", err)
			}
		}
	}

	if err := envconfig.Process(envVarPrefix, &c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}

	return &c, nil
}

func (c *Config) Validate() error {
	if y, e := func() (string, string) {
		if c.Backend == BackendFile && c.Image == "" {
			return "image", "IMAGE"
		}
		if c.Backend == BackendPostgres && c.Table == "" {
			return "table", "TABLE"
		}
		return "", ""
	}(); y != "" {
		return fmt.Errorf(
			"missing required config `%s` (env: `%s_%s`)",
			y,
			envVarPrefix,
			e,
		)
	}

	switch c.Backend {
	case BackendFile, BackendPostgres:
	default:
		return fmt.Errorf(
			"invalid backend `%s`: wanted `%s` or `%s`",
			c.Backend,
			BackendFile,
			BackendPostgres,
		)
	}

	if c.InodeCacheSize < 0 {
		return fmt.Errorf(
			"invalid inode cache size `%d`: must not be negative",
			c.InodeCacheSize,
		)
	}
	return nil
}

// VolumeName names the volume in postgres rows and snapshot keys. It
// defaults to the image's base name without its extension.
func (c *Config) VolumeName() string {
	if c.Volume != "" {
		return c.Volume
	}
	base := filepath.Base(c.Image)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
