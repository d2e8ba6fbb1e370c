package types

type ConstError string

func (err ConstError) Error() string { return string(err) }

const (
	NotFoundErr        ConstError = "not found"
	OutOfSpaceErr      ConstError = "out of space"
	IOFailureErr       ConstError = "i/o failure"
	AlreadyExistsErr   ConstError = "already exists"
	NameTooLongErr     ConstError = "name too long"
	NotAbsolutePathErr ConstError = "not an absolute path"
	BlockTableFullErr  ConstError = "block table full"
	InvalidBlockErr    ConstError = "invalid block index"
	CorruptInodeErr    ConstError = "corrupt inode"
	BadMagicErr        ConstError = "bad magic"
	NotADirErr         ConstError = "not a directory"
	IsADirErr          ConstError = "is a directory"
	DirNotEmptyErr     ConstError = "directory not empty"
	NotSupportedErr    ConstError = "not supported"
	InvalidFileTypeErr ConstError = "invalid file type"
	NotMountedErr      ConstError = "not mounted"
	InvalidNameErr     ConstError = "invalid name"
	InvalidOffsetErr   ConstError = "invalid offset"
	IsRootErr          ConstError = "operation not permitted on the root"
	CorruptImageErr    ConstError = "corrupt image"
)
