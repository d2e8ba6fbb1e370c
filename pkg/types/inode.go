package types

import (
	"fmt"
	"time"
)

const (
	BlockTableCapacity    = 50
	IndirectTableCapacity = 10
	NameCapacity          = 128
)

type Inode struct {
	// Block is the inode's own home block and doubles as its identifier.
	Block      Block
	Name       string
	FileType   FileType
	Mode       uint16
	UID        uint32
	GID        uint32
	ATime      int64
	MTime      int64
	CTime      int64
	BlockSize  Byte
	Size       Byte
	BlockCount uint32
	Blocks     [BlockTableCapacity]Block

	// Indirect is reserved for multi-level addressing and is never read.
	Indirect   [IndirectTableCapacity]Block
	FirstChild Block
	Sibling    Block
}

type InodeParams struct {
	Block    Block
	Name     string
	FileType FileType
	Mode     uint16
	UID      uint32
	GID      uint32
	Now      time.Time
}

// NewInode builds a fresh, unlinked inode. It does no I/O.
func NewInode(params *InodeParams) Inode {
	now := params.Now.Unix()
	return Inode{
		Block:      params.Block,
		Name:       params.Name,
		FileType:   params.FileType,
		Mode:       params.Mode & 0o7777,
		UID:        params.UID,
		GID:        params.GID,
		ATime:      now,
		MTime:      now,
		CTime:      now,
		BlockSize:  BlockSize,
		FirstChild: BlockNil,
		Sibling:    BlockNil,
	}
}

// DataBlocks returns a copy of the live prefix of the block table.
func (inode *Inode) DataBlocks() []Block {
	out := make([]Block, inode.BlockCount)
	copy(out, inode.Blocks[:inode.BlockCount])
	return out
}

func (inode *Inode) AppendBlock(b Block) error {
	if inode.BlockCount >= BlockTableCapacity {
		return fmt.Errorf(
			"appending block `%d` to inode `%d`: table holds `%d` blocks: %w",
			b,
			inode.Block,
			BlockTableCapacity,
			BlockTableFullErr,
		)
	}
	inode.Blocks[inode.BlockCount] = b
	inode.BlockCount++
	return nil
}

// Touch updates the modification and status-change times.
func (inode *Inode) Touch(now time.Time) {
	inode.MTime = now.Unix()
	inode.CTime = inode.MTime
}

type FileType uint8

const (
	FileTypeInvalid FileType = iota
	FileTypeRegular
	FileTypeDir
)

func (ft FileType) String() string {
	switch ft {
	case FileTypeInvalid:
		return "Invalid"
	case FileTypeRegular:
		return "Regular"
	case FileTypeDir:
		return "Dir"
	default:
		return fmt.Sprintf("FileType(%d)", uint8(ft))
	}
}

func (ft FileType) MarshalJSON() ([]byte, error) {
	s := ft.String()
	out := make([]byte, len(s)+2)
	out[0] = '"'
	out[len(out)-1] = '"'
	copy(out[1:], s)
	return out, nil
}

func (ft FileType) Validate() error {
	if ft <= FileTypeInvalid || ft > FileTypeDir {
		return fmt.Errorf(
			"validating file type `%d`: %w",
			ft,
			InvalidFileTypeErr,
		)
	}
	return nil
}
