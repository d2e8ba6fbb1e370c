// Package fuse serves a mounted session to the kernel through go-fuse.
package fuse

import (
	"context"
	"log/slog"
	"path"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	sfs "github.com/weberc2/sfs/pkg/fs"
	. "github.com/weberc2/sfs/pkg/types"
)

// Node is one path in the volume. Nodes hold no state of their own; every
// call goes to the session by path.
type Node struct {
	fs.Inode

	session *sfs.Session
	logger  *slog.Logger
	timeout time.Duration
}

var (
	_ fs.NodeLookuper   = (*Node)(nil)
	_ fs.NodeGetattrer  = (*Node)(nil)
	_ fs.NodeSetattrer  = (*Node)(nil)
	_ fs.NodeReaddirer  = (*Node)(nil)
	_ fs.NodeOpendirer  = (*Node)(nil)
	_ fs.NodeCreater    = (*Node)(nil)
	_ fs.NodeUnlinker   = (*Node)(nil)
	_ fs.NodeMkdirer    = (*Node)(nil)
	_ fs.NodeRmdirer    = (*Node)(nil)
	_ fs.NodeOpener     = (*Node)(nil)
	_ fs.NodeReleaser   = (*Node)(nil)
	_ fs.NodeReader     = (*Node)(nil)
	_ fs.NodeWriter     = (*Node)(nil)
	_ fs.NodeFsyncer    = (*Node)(nil)
	_ fs.NodeStatfser   = (*Node)(nil)
)

func NewRoot(session *sfs.Session, logger *slog.Logger, timeout time.Duration) *Node {
	if logger == nil {
		logger = slog.Default()
	}
	return &Node{
		session: session,
		logger:  logger.With("component", "fuse"),
		timeout: timeout,
	}
}

func (n *Node) path() string { return "/" + n.Path(nil) }

func (n *Node) child(name string) string { return path.Join(n.path(), name) }

func (n *Node) newChild(ctx context.Context, attrs *sfs.Attributes) *fs.Inode {
	return n.NewInode(
		ctx,
		&Node{session: n.session, logger: n.logger, timeout: n.timeout},
		fs.StableAttr{
			Mode: attrs.Mode & syscall.S_IFMT,
			Ino:  uint64(attrs.Block),
		},
	)
}

func (n *Node) errno(op, path string, err error) syscall.Errno {
	errno := sfs.Errno(err)
	if errno == syscall.EIO {
		n.logger.Error(op, "path", path, "err", err)
	} else {
		n.logger.Debug(op, "path", path, "err", err)
	}
	return errno
}

func fillAttr(attrs *sfs.Attributes, out *fuse.Attr) {
	out.Ino = uint64(attrs.Block)
	out.Size = uint64(attrs.Size)
	out.Blocks = attrs.Blocks
	out.Blksize = uint32(attrs.BlockSize)
	out.Mode = attrs.Mode
	out.Nlink = attrs.Nlink
	out.Owner = fuse.Owner{Uid: attrs.UID, Gid: attrs.GID}
	out.SetTimes(&attrs.ATime, &attrs.MTime, &attrs.CTime)
}

func (n *Node) Lookup(
	ctx context.Context,
	name string,
	out *fuse.EntryOut,
) (*fs.Inode, syscall.Errno) {
	p := n.child(name)
	attrs, err := n.session.GetAttributes(ctx, p)
	if err != nil {
		return nil, n.errno("lookup", p, err)
	}
	fillAttr(&attrs, &out.Attr)
	out.SetEntryTimeout(n.timeout)
	out.SetAttrTimeout(n.timeout)
	return n.newChild(ctx, &attrs), 0
}

func (n *Node) Getattr(
	ctx context.Context,
	_ fs.FileHandle,
	out *fuse.AttrOut,
) syscall.Errno {
	p := n.path()
	attrs, err := n.session.GetAttributes(ctx, p)
	if err != nil {
		return n.errno("getattr", p, err)
	}
	fillAttr(&attrs, &out.Attr)
	out.SetTimeout(n.timeout)
	return 0
}

// Setattr only honors size changes; owner, mode and time updates are
// accepted and ignored.
func (n *Node) Setattr(
	ctx context.Context,
	fh fs.FileHandle,
	in *fuse.SetAttrIn,
	out *fuse.AttrOut,
) syscall.Errno {
	p := n.path()
	if size, ok := in.GetSize(); ok {
		if err := n.session.Truncate(ctx, p, int64(size)); err != nil {
			return n.errno("setattr", p, err)
		}
	}
	return n.Getattr(ctx, fh, out)
}

func (n *Node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	p := n.path()
	entries, err := n.session.Entries(ctx, p)
	if err != nil {
		return nil, n.errno("readdir", p, err)
	}

	list := []fuse.DirEntry{
		{Name: ".", Mode: syscall.S_IFDIR},
		{Name: "..", Mode: syscall.S_IFDIR},
	}
	for _, entry := range entries {
		mode := uint32(syscall.S_IFREG)
		if entry.FileType == FileTypeDir {
			mode = syscall.S_IFDIR
		}
		list = append(list, fuse.DirEntry{
			Name: entry.Name,
			Mode: mode,
			Ino:  uint64(entry.Block),
		})
	}
	return fs.NewListDirStream(list), 0
}

func (n *Node) Opendir(ctx context.Context) syscall.Errno {
	p := n.path()
	if err := n.session.OpenDirectory(ctx, p); err != nil {
		return n.errno("opendir", p, err)
	}
	return 0
}

func (n *Node) Create(
	ctx context.Context,
	name string,
	flags uint32,
	mode uint32,
	out *fuse.EntryOut,
) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	p := n.child(name)
	attrs, err := n.session.Create(ctx, p, mode)
	if err != nil {
		return nil, nil, 0, n.errno("create", p, err)
	}
	fillAttr(&attrs, &out.Attr)
	out.SetEntryTimeout(n.timeout)
	out.SetAttrTimeout(n.timeout)
	return n.newChild(ctx, &attrs), nil, fuse.FOPEN_DIRECT_IO, 0
}

func (n *Node) Unlink(ctx context.Context, name string) syscall.Errno {
	p := n.child(name)
	if err := n.session.Remove(ctx, p); err != nil {
		return n.errno("unlink", p, err)
	}
	return 0
}

func (n *Node) Mkdir(
	ctx context.Context,
	name string,
	mode uint32,
	_ *fuse.EntryOut,
) (*fs.Inode, syscall.Errno) {
	p := n.child(name)
	return nil, n.errno("mkdir", p, n.session.MakeDirectory(ctx, p, mode))
}

func (n *Node) Rmdir(ctx context.Context, name string) syscall.Errno {
	p := n.child(name)
	return n.errno("rmdir", p, n.session.RemoveDirectory(ctx, p))
}

// Open returns no handle; reads and writes go through the node. Direct I/O
// keeps the kernel page cache from serving stale data.
func (n *Node) Open(
	ctx context.Context,
	flags uint32,
) (fs.FileHandle, uint32, syscall.Errno) {
	p := n.path()
	if err := n.session.Open(ctx, p); err != nil {
		return nil, 0, n.errno("open", p, err)
	}
	return nil, fuse.FOPEN_DIRECT_IO, 0
}

func (n *Node) Release(ctx context.Context, _ fs.FileHandle) syscall.Errno {
	p := n.path()
	if err := n.session.Release(ctx, p); err != nil {
		return n.errno("release", p, err)
	}
	return 0
}

func (n *Node) Read(
	ctx context.Context,
	_ fs.FileHandle,
	dest []byte,
	off int64,
) (fuse.ReadResult, syscall.Errno) {
	p := n.path()
	read, err := n.session.Read(ctx, p, dest, off)
	if err != nil {
		return nil, n.errno("read", p, err)
	}
	return fuse.ReadResultData(dest[:read]), 0
}

func (n *Node) Write(
	ctx context.Context,
	_ fs.FileHandle,
	data []byte,
	off int64,
) (uint32, syscall.Errno) {
	p := n.path()
	written, err := n.session.Write(ctx, p, data, off)
	if err != nil && written < 1 {
		return 0, n.errno("write", p, err)
	}
	// report the partial count; the error surfaces on the next write
	return uint32(written), 0
}

func (n *Node) Fsync(
	ctx context.Context,
	_ fs.FileHandle,
	_ uint32,
) syscall.Errno {
	if err := n.session.Sync(ctx); err != nil {
		return n.errno("fsync", n.path(), err)
	}
	return 0
}

func (n *Node) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	stat, err := n.session.Statfs(ctx)
	if err != nil {
		return n.errno("statfs", n.path(), err)
	}
	out.Blocks = stat.Blocks
	out.Bfree = stat.FreeBlocks
	out.Bavail = stat.FreeBlocks
	out.Files = stat.Blocks
	out.Ffree = stat.FreeBlocks
	out.Bsize = uint32(stat.BlockSize)
	out.Frsize = uint32(stat.BlockSize)
	out.NameLen = stat.NameCapacity
	return 0
}
