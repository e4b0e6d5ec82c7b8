package minfs

import (
	log "github.com/sirupsen/logrus"

	. "github.com/weberc2/minfs/pkg/types"
)

// DumpSuperblock logs every superblock field at debug level.
func DumpSuperblock(sb *Superblock) {
	fields := log.Fields{
		"volume":          sb.VolumeID,
		"version":         sb.Version,
		"flags":           sb.Flags,
		"blockSize":       sb.BlockSize,
		"inodeSize":       sb.InodeSize,
		"blockCount":      sb.BlockCount,
		"inodeCount":      sb.InodeCount,
		"allocBlockCount": sb.AllocBlockCount,
		"allocInodeCount": sb.AllocInodeCount,
		"inodeBitmap":     sb.InodeBitmapBlock,
		"blockBitmap":     sb.BlockBitmapBlock,
		"inodeTable":      sb.InodeTableBlock,
		"data":            sb.DataBlock,
	}
	if sb.FVM() {
		fields["sliceSize"] = sb.SliceSize
		fields["vsliceCount"] = sb.VSliceCount
		fields["inodeBitmapSlices"] = sb.InodeBitmapSlices
		fields["blockBitmapSlices"] = sb.BlockBitmapSlices
		fields["inodeTableSlices"] = sb.InodeTableSlices
		fields["dataSlices"] = sb.DataSlices
	}
	log.WithFields(fields).Debug("superblock")
}

func DumpInode(ino Ino, inode *Inode) {
	log.WithFields(log.Fields{
		"ino":        ino,
		"type":       inode.Magic,
		"size":       inode.Size,
		"blockCount": inode.BlockCount,
		"linkCount":  inode.LinkCount,
	}).Debug("inode")
}
