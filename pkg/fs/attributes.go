package fs

import (
	"syscall"
	"time"

	. "github.com/weberc2/sfs/pkg/types"
)

type Attributes struct {
	// Block is the inode's home block; it serves as the inode number.
	Block     Block
	Name      string
	FileType  FileType
	Mode      uint32
	Nlink     uint32
	UID       uint32
	GID       uint32
	Size      Byte
	BlockSize Byte
	Blocks    uint64
	ATime     time.Time
	MTime     time.Time
	CTime     time.Time
}

func attributes(inode *Inode) Attributes {
	mode, nlink := uint32(syscall.S_IFREG), uint32(1)
	if inode.FileType == FileTypeDir {
		mode, nlink = syscall.S_IFDIR, 2
	}
	return Attributes{
		Block:     inode.Block,
		Name:      inode.Name,
		FileType:  inode.FileType,
		Mode:      mode | uint32(inode.Mode),
		Nlink:     nlink,
		UID:       inode.UID,
		GID:       inode.GID,
		Size:      inode.Size,
		BlockSize: inode.BlockSize,
		Blocks:    uint64(inode.BlockCount),
		ATime:     time.Unix(inode.ATime, 0),
		MTime:     time.Unix(inode.MTime, 0),
		CTime:     time.Unix(inode.CTime, 0),
	}
}

type Statfs struct {
	BlockSize    Byte
	Blocks       uint64
	FreeBlocks   uint64
	NameCapacity uint32
}

type Entry struct {
	Name     string
	Block    Block
	FileType FileType
}
