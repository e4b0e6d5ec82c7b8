package main

import (
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v2"

	"github.com/weberc2/minfs/pkg/config"
	"github.com/weberc2/minfs/pkg/encode"
	"github.com/weberc2/minfs/pkg/fvm"
	"github.com/weberc2/minfs/pkg/io"
	"github.com/weberc2/minfs/pkg/minfs"
	. "github.com/weberc2/minfs/pkg/types"
)

func main() {
	app := cli.App{
		Name:        "minfs",
		Description: "Format and inspect minfs images",
		Usage:       "Format and inspect minfs images",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to the YAML config file",
				Value: config.DefaultPath(),
			},
			&cli.StringFlag{
				Name:  "image",
				Usage: "path to the image file",
			},
			&cli.UintFlag{
				Name:  "offset",
				Usage: "block at which the filesystem starts in the image",
			},
			&cli.StringFlag{
				Name:  "s3-bucket",
				Usage: "store blocks as objects in this bucket",
			},
			&cli.StringFlag{
				Name:  "s3-prefix",
				Usage: "key prefix for block objects",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "logrus level",
			},
			&cli.BoolFlag{
				Name:  "sync",
				Usage: "write each transaction as soon as it commits",
			},
		},
		Commands: []*cli.Command{{
			Name:        "mkfs",
			Aliases:     []string{"format"},
			Description: "Format an image with a fresh filesystem",
			Usage:       "Format an image with a fresh filesystem",
			Flags: []cli.Flag{
				&cli.UintFlag{
					Name:  "blocks",
					Usage: "size the image to this many blocks",
				},
				&cli.UintFlag{
					Name:  "inodes",
					Usage: "inode count of a fixed-size layout",
				},
				&cli.BoolFlag{
					Name:  "fvm",
					Usage: "format a simulated resizable volume in memory",
				},
				&cli.Uint64Flag{
					Name:  "slice-size",
					Usage: "slice size in bytes of the simulated volume",
				},
				&cli.Uint64Flag{
					Name:  "slices",
					Usage: "slice budget of the simulated volume",
				},
			},
			Action: withConfig(mkfs),
		}, {
			Name:        "check",
			Aliases:     []string{"fsck"},
			Description: "Mount an image and verify its allocation state",
			Usage:       "Mount an image and verify its allocation state",
			Action:      withConfig(check),
		}, {
			Name:        "info",
			Description: "Print the superblock of an image",
			Usage:       "Print the superblock of an image",
			Action:      withConfig(info),
		}},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func withConfig(
	f func(*cli.Context, *config.Config) error,
) func(*cli.Context) error {
	return func(ctx *cli.Context) error {
		c, err := config.Load(ctx.String("config"))
		if err != nil {
			return err
		}
		applyFlags(ctx, c)
		if err := c.Validate(); err != nil {
			return err
		}
		c.ConfigureLogging()
		return f(ctx, c)
	}
}

// applyFlags overlays explicitly set flags on top of the config file and
// environment.
func applyFlags(ctx *cli.Context, c *config.Config) {
	if ctx.IsSet("image") {
		c.Image = ctx.String("image")
	}
	if ctx.IsSet("offset") {
		c.Offset = uint32(ctx.Uint("offset"))
	}
	if ctx.IsSet("s3-bucket") {
		c.S3Bucket = ctx.String("s3-bucket")
	}
	if ctx.IsSet("s3-prefix") {
		c.S3Prefix = ctx.String("s3-prefix")
	}
	if ctx.IsSet("log-level") {
		c.LogLevel = ctx.String("log-level")
	}
	if ctx.IsSet("sync") {
		c.Sync = ctx.Bool("sync")
	}
	if ctx.IsSet("blocks") {
		c.Blocks = uint32(ctx.Uint("blocks"))
	}
	if ctx.IsSet("inodes") {
		c.Inodes = uint32(ctx.Uint("inodes"))
	}
	if ctx.IsSet("fvm") {
		c.FVM = ctx.Bool("fvm")
	}
	if ctx.IsSet("slice-size") {
		c.SliceSize = ctx.Uint64("slice-size")
	}
	if ctx.IsSet("slices") {
		c.Slices = ctx.Uint64("slices")
	}
}

// openDevice returns the device described by `c` and a function which
// releases it.
func openDevice(c *config.Config, create bool) (io.Device, func() error, error) {
	var device io.Device
	closer := func() error { return nil }

	if c.S3Bucket != "" {
		if c.Blocks == 0 {
			return nil, nil, fmt.Errorf(
				"opening bucket `%s`: blocks / %s_BLOCKS is required: %w",
				c.S3Bucket,
				config.EnvVarPrefix,
				ErrInvalidArgs,
			)
		}
		sess, err := session.NewSession()
		if err != nil {
			return nil, nil, fmt.Errorf("creating AWS session: %w", err)
		}
		device = &io.ObjectDevice{
			Store:  &io.S3ObjectStore{Client: s3.New(sess)},
			Bucket: c.S3Bucket,
			Prefix: c.S3Prefix,
			Blocks: Block(c.Blocks) + Block(c.Offset),
		}
	} else {
		var blocks Block
		if create && c.Blocks != 0 {
			blocks = Block(c.Blocks) + Block(c.Offset)
		}
		f, err := io.OpenFile(c.Image, blocks)
		if err != nil {
			return nil, nil, err
		}
		device, closer = f, f.Close
	}

	if c.Offset != 0 {
		device = io.NewOffsetDevice(device, Block(c.Offset))
	}
	return device, closer, nil
}

func mkfs(ctx *cli.Context, c *config.Config) error {
	if c.FVM {
		return mkfsSimulated(c)
	}

	device, closer, err := openDevice(c, true)
	if err != nil {
		return err
	}
	defer closer()

	sb, err := minfs.Mkfs(device, nil, minfs.MkfsOptions{Inodes: c.Inodes})
	if err != nil {
		return err
	}
	return printSuperblock(sb)
}

// mkfsSimulated formats an in-memory resizable volume, mounts and checks
// it, and prints the resulting layout.
func mkfsSimulated(c *config.Config) error {
	// the data region starts furthest into the virtual address space and
	// may grow by the whole budget
	bps := c.SliceSize / uint64(BlockSize)
	vslices := uint64(FVMBlockDataStart)/bps + c.Slices
	volume, err := fvm.New(c.SliceSize, vslices, c.Slices)
	if err != nil {
		return err
	}
	sb, err := minfs.Mkfs(volume, volume, minfs.MkfsOptions{})
	if err != nil {
		return err
	}

	fs, root, err := minfs.Mount(volume, volume, minfs.Options{Sync: c.Sync})
	if err != nil {
		return err
	}
	if err := root.Release(); err != nil {
		return err
	}
	if err := fs.Check(); err != nil {
		return err
	}
	if err := fs.Shutdown(); err != nil {
		return err
	}
	log.WithField("extends", volume.Extends()).Debug("simulated volume")
	return printSuperblock(sb)
}

func check(ctx *cli.Context, c *config.Config) error {
	device, closer, err := openDevice(c, false)
	if err != nil {
		return err
	}
	defer closer()

	fs, root, err := minfs.Mount(device, nil, minfs.Options{Sync: c.Sync})
	if err != nil {
		return err
	}
	if err := root.Release(); err != nil {
		return err
	}
	if err := fs.Check(); err != nil {
		return err
	}
	if err := fs.Shutdown(); err != nil {
		return err
	}
	sb := fs.Superblock()
	log.WithFields(log.Fields{
		"volume": sb.VolumeID,
		"blocks": sb.AllocBlockCount,
		"inodes": sb.AllocInodeCount,
	}).Info("filesystem is consistent")
	return nil
}

func info(ctx *cli.Context, c *config.Config) error {
	device, closer, err := openDevice(c, false)
	if err != nil {
		return err
	}
	defer closer()

	var block [BlockSize]byte
	if err := device.ReadBlock(SuperblockBlock, block[:]); err != nil {
		return fmt.Errorf("reading superblock: %w", err)
	}
	var sb Superblock
	encode.DecodeSuperblock(&sb, &block)
	if err := minfs.CheckSuperblock(&sb, device, nil); err != nil {
		log.WithError(err).Warn("superblock failed validation")
	}
	minfs.DumpSuperblock(&sb)
	return printSuperblock(&sb)
}

type superblockReport struct {
	Volume          string `yaml:"volume"`
	Version         uint32 `yaml:"version"`
	Flags           uint32 `yaml:"flags"`
	FVM             bool   `yaml:"fvm"`
	BlockCount      uint32 `yaml:"blockCount"`
	InodeCount      uint32 `yaml:"inodeCount"`
	AllocBlockCount uint32 `yaml:"allocBlockCount"`
	AllocInodeCount uint32 `yaml:"allocInodeCount"`
	InodeBitmap     uint32 `yaml:"inodeBitmapBlock"`
	BlockBitmap     uint32 `yaml:"blockBitmapBlock"`
	InodeTable      uint32 `yaml:"inodeTableBlock"`
	Data            uint32 `yaml:"dataBlock"`
	SliceSize       uint64 `yaml:"sliceSize,omitempty"`
	VSliceCount     uint64 `yaml:"vsliceCount,omitempty"`
}

func printSuperblock(sb *Superblock) error {
	data, err := yaml.Marshal(superblockReport{
		Volume:          sb.VolumeID.String(),
		Version:         sb.Version,
		Flags:           sb.Flags,
		FVM:             sb.FVM(),
		BlockCount:      sb.BlockCount,
		InodeCount:      sb.InodeCount,
		AllocBlockCount: sb.AllocBlockCount,
		AllocInodeCount: sb.AllocInodeCount,
		InodeBitmap:     uint32(sb.InodeBitmapBlock),
		BlockBitmap:     uint32(sb.BlockBitmapBlock),
		InodeTable:      uint32(sb.InodeTableBlock),
		Data:            uint32(sb.DataBlock),
		SliceSize:       sb.SliceSize,
		VSliceCount:     sb.VSliceCount,
	})
	if err != nil {
		return fmt.Errorf("marshaling superblock: %w", err)
	}
	_, err = os.Stdout.Write(data)
	return err
}
