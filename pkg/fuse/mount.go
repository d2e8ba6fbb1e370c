package fuse

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	sfs "github.com/weberc2/sfs/pkg/fs"
)

type Options struct {
	// Timeout bounds how long the kernel caches entries and attributes.
	Timeout    time.Duration
	AllowOther bool
	Debug      bool
	Logger     *slog.Logger
}

// Server is a live kernel mount of a session.
type Server struct {
	server  *fuse.Server
	session *sfs.Session
	logger  *slog.Logger
}

func Mount(dir string, session *sfs.Session, options *Options) (*Server, error) {
	if options == nil {
		options = &Options{}
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	root := NewRoot(session, logger, options.Timeout)
	timeout := options.Timeout
	server, err := fs.Mount(dir, root, &fs.Options{
		MountOptions: fuse.MountOptions{
			FsName:     "sfs",
			Name:       "sfs",
			AllowOther: options.AllowOther,
			Debug:      options.Debug,
			Logger:     slog.NewLogLogger(logger.Handler(), slog.LevelDebug),
		},
		EntryTimeout: &timeout,
		AttrTimeout:  &timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("mounting at `%s`: %w", dir, err)
	}

	logger.Info("serving", "dir", dir, "session", session.ID.String())
	return &Server{server: server, session: session, logger: logger}, nil
}

// Wait blocks until the kernel mount goes away.
func (s *Server) Wait() { s.server.Wait() }

// Unmount detaches the kernel mount and then unmounts the session.
func (s *Server) Unmount(ctx context.Context) error {
	if err := s.server.Unmount(); err != nil {
		return fmt.Errorf("unmounting fuse server: %w", err)
	}
	s.server.Wait()
	return s.session.Unmount(ctx)
}
