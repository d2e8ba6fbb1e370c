package fs

import (
	"errors"
	"syscall"

	. "github.com/weberc2/sfs/pkg/types"
)

var errnos = []struct {
	err   error
	errno syscall.Errno
}{
	{NotFoundErr, syscall.ENOENT},
	{OutOfSpaceErr, syscall.ENOSPC},
	{AlreadyExistsErr, syscall.EEXIST},
	{NameTooLongErr, syscall.ENAMETOOLONG},
	{BlockTableFullErr, syscall.EFBIG},
	{NotADirErr, syscall.ENOTDIR},
	{IsADirErr, syscall.EISDIR},
	{DirNotEmptyErr, syscall.ENOTEMPTY},
	{NotSupportedErr, syscall.ENOSYS},
	{IsRootErr, syscall.EPERM},
	{IOFailureErr, syscall.EIO},
	{CorruptInodeErr, syscall.EIO},
	{NotMountedErr, syscall.EIO},
	{NotAbsolutePathErr, syscall.EINVAL},
	{InvalidNameErr, syscall.EINVAL},
	{InvalidOffsetErr, syscall.EINVAL},
	{InvalidBlockErr, syscall.EINVAL},
}

// Errno maps an operation error to the status code reported to the host.
// Unrecognized errors report EIO.
func Errno(err error) syscall.Errno {
	if err == nil {
		return 0
	}
	for _, e := range errnos {
		if errors.Is(err, e.err) {
			return e.errno
		}
	}
	return syscall.EIO
}
