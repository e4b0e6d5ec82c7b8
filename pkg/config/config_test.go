package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/weberc2/minfs/pkg/types"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minfs.yaml")
	data := []byte("image: disk.img\nblocks: 4096\nlogLevel: debug\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	t.Setenv("MINFS_BLOCKS", "8192")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load(): unexpected err: %v", err)
	}
	if c.Image != "disk.img" {
		t.Fatalf("image: wanted `disk.img`; found `%s`", c.Image)
	}
	if c.Blocks != 8192 {
		t.Fatalf("blocks: wanted `8192`; found `%d`", c.Blocks)
	}
	if c.Inodes != 32768 {
		t.Fatalf("inodes: wanted `32768`; found `%d`", c.Inodes)
	}
	if c.LogLevel != "debug" {
		t.Fatalf("logLevel: wanted `debug`; found `%s`", c.LogLevel)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate(): unexpected err: %v", err)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minfs.yaml")
	data := []byte(
		"fvm: true\ninodes: 128\nsliceSize: 65536\nslices: 16\n" +
			"logLevel: warn\nlogFormat: json\n",
	)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load(): unexpected err: %v", err)
	}
	wanted := Default()
	wanted.FVM = true
	wanted.Inodes = 128
	wanted.SliceSize = 65536
	wanted.Slices = 16
	wanted.LogLevel = "warn"
	wanted.LogFormat = "json"
	if *c != wanted {
		t.Fatalf("Load(): wanted `%+v`; found `%+v`", wanted, *c)
	}

	// the environment still wins over the file
	t.Setenv("MINFS_LOG_LEVEL", "error")
	if c, err = Load(path); err != nil {
		t.Fatalf("Load(): unexpected err: %v", err)
	}
	if c.LogLevel != "error" || c.Slices != 16 {
		t.Fatalf("Load(): wanted logLevel `error` and slices `16`; found `%s` and `%d`", c.LogLevel, c.Slices)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("MINFS_S3_BUCKET", "images")
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load(): unexpected err: %v", err)
	}
	if c.S3Bucket != "images" {
		t.Fatalf("s3Bucket: wanted `images`; found `%s`", c.S3Bucket)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minfs.yaml")
	if err := os.WriteFile(path, []byte("imagePath: disk.img\n"), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load(): wanted error for unknown field; found `nil`")
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		Image:     "disk.img",
		Inodes:    32768,
		SliceSize: 1 << 20,
		Slices:    64,
		LogLevel:  "info",
		LogFormat: "text",
	}

	type testCase struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		wanted  error
	}

	testCases := []testCase{{
		name:   "valid",
		mutate: func(*Config) {},
	}, {
		name:    "no target",
		mutate:  func(c *Config) { c.Image = "" },
		wantErr: true,
	}, {
		name:   "fvm needs no target",
		mutate: func(c *Config) { c.Image, c.FVM = "", true },
	}, {
		name:    "unaligned slice size",
		mutate:  func(c *Config) { c.FVM, c.SliceSize = true, 1000 },
		wantErr: true,
		wanted:  ErrInvalidArgs,
	}, {
		name:    "too few slices",
		mutate:  func(c *Config) { c.FVM, c.Slices = true, 4 },
		wantErr: true,
		wanted:  ErrInvalidArgs,
	}, {
		name:    "bad log level",
		mutate:  func(c *Config) { c.LogLevel = "loud" },
		wantErr: true,
	}, {
		name:    "bad log format",
		mutate:  func(c *Config) { c.LogFormat = "xml" },
		wantErr: true,
		wanted:  ErrInvalidArgs,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid
			tc.mutate(&c)
			err := c.Validate()
			if !tc.wantErr {
				if err != nil {
					t.Fatalf("Validate(): unexpected err: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate(): wanted error; found `nil`")
			}
			if tc.wanted != nil && !errors.Is(err, tc.wanted) {
				t.Fatalf("Validate(): wanted `%v`; found `%v`", tc.wanted, err)
			}
		})
	}
}
