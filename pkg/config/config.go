// Package config loads the settings shared by the minfs host tools from an
// optional YAML file overlaid with environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	. "github.com/weberc2/minfs/pkg/types"
)

const (
	EnvVarPrefix = "MINFS"
	appName      = "minfs"
)

type Config struct {
	// Image is the path of the image file. Ignored when S3Bucket is set.
	Image string `envconfig:"MINFS_IMAGE" yaml:"image"`

	// Offset is the block at which the filesystem starts within the image.
	Offset uint32 `envconfig:"MINFS_OFFSET" yaml:"offset"`

	// Blocks sizes a newly created image.
	Blocks uint32 `envconfig:"MINFS_BLOCKS" yaml:"blocks"`
	Inodes uint32 `envconfig:"MINFS_INODES" yaml:"inodes"`

	// FVM formats a simulated resizable volume instead of the image.
	FVM       bool   `envconfig:"MINFS_FVM" yaml:"fvm"`
	SliceSize uint64 `envconfig:"MINFS_SLICE_SIZE" yaml:"sliceSize"`
	Slices    uint64 `envconfig:"MINFS_SLICES" yaml:"slices"`

	S3Bucket string `envconfig:"MINFS_S3_BUCKET" yaml:"s3Bucket"`
	S3Prefix string `envconfig:"MINFS_S3_PREFIX" yaml:"s3Prefix"`

	// Sync writes every transaction as soon as it is committed.
	Sync bool `envconfig:"MINFS_SYNC" yaml:"sync"`

	LogLevel  string `envconfig:"MINFS_LOG_LEVEL" yaml:"logLevel"`
	LogFormat string `envconfig:"MINFS_LOG_FORMAT" yaml:"logFormat"`
}

// DefaultPath is the config file used when MINFS_CONFIG_FILE is unset.
func DefaultPath() string {
	if path := os.Getenv(EnvVarPrefix + "_CONFIG_FILE"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, ".config", appName+".yaml")
}

// Default returns the configuration used for anything neither the file nor
// the environment sets.
func Default() Config {
	return Config{
		Inodes:    32768,
		SliceSize: 1 << 20,
		Slices:    64,
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load starts from Default, reads the YAML file at `path` over it if the file
// exists, and then applies environment variables on top.
func Load(path string) (*Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file `%s`: %w", path, err)
		}
	} else if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshaling config file `%s`: %w", path, err)
	}

	if err := envconfig.Process(EnvVarPrefix, &c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if !c.FVM && c.Image == "" && c.S3Bucket == "" {
		return fmt.Errorf(
			"missing required configuration: image / %s_IMAGE or "+
				"s3Bucket / %s_S3_BUCKET",
			EnvVarPrefix,
			EnvVarPrefix,
		)
	}
	if c.FVM {
		if c.SliceSize == 0 || c.SliceSize%uint64(BlockSize) != 0 {
			return fmt.Errorf(
				"sliceSize / %s_SLICE_SIZE: `%d` is not a multiple of the "+
					"block size `%d`: %w",
				EnvVarPrefix,
				c.SliceSize,
				BlockSize,
				ErrInvalidArgs,
			)
		}
		if c.Slices < 5 {
			return fmt.Errorf(
				"slices / %s_SLICES: a resizable volume needs at least "+
					"`5` slices; found `%d`: %w",
				EnvVarPrefix,
				c.Slices,
				ErrInvalidArgs,
			)
		}
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("logLevel / %s_LOG_LEVEL: %w", EnvVarPrefix, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf(
			"logFormat / %s_LOG_FORMAT: wanted `text` or `json`; found `%s`: %w",
			EnvVarPrefix,
			c.LogFormat,
			ErrInvalidArgs,
		)
	}
	return nil
}

// ConfigureLogging applies the log level and format. The config must be
// valid.
func (c *Config) ConfigureLogging() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if c.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
