package types

const SuperblockMagic uint32 = 0x53465331 // ascii "SFS1"

type Superblock struct {
	Magic uint32
	Root  Block
}

func NewSuperblock(root Block) Superblock {
	return Superblock{Magic: SuperblockMagic, Root: root}
}
