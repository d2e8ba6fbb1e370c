package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	goio "io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"github.com/weberc2/sfs/pkg/fs"
	"github.com/weberc2/sfs/pkg/fuse"
	"github.com/weberc2/sfs/pkg/io"
	"github.com/weberc2/sfs/pkg/log"
	"github.com/weberc2/sfs/pkg/objectstore"
	"github.com/weberc2/sfs/pkg/pgdevice"
	"github.com/weberc2/sfs/pkg/snapshot"
	. "github.com/weberc2/sfs/pkg/types"
)

func main() {
	app := cli.App{
		Name:        appName,
		Description: "a tiny single-volume block filesystem",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to the YAML config file",
				EnvVars: []string{envVarPrefix + "_CONFIG_FILE"},
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "where blocks live: `file` or `postgres`",
			},
			&cli.StringFlag{
				Name:  "image",
				Usage: "path to the volume image (file backend)",
			},
			&cli.StringFlag{
				Name:  "volume",
				Usage: "volume name for postgres rows and snapshot keys",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "one of debug, info, warn or error",
			},
		},
		Commands: []*cli.Command{{
			Name:        "mkfs",
			Aliases:     []string{"format"},
			Description: "write an empty volume, discarding any contents",
			Action: withDevice(true, func(
				ctx context.Context,
				c *Config,
				device io.Device,
				cctx *cli.Context,
			) error {
				session, err := fs.Mount(ctx, device, &fs.MountOptions{
					Reformat:       true,
					InodeCacheSize: c.InodeCacheSize,
				})
				if err != nil {
					closeDevice(ctx, device)
					return err
				}
				return session.Unmount(ctx)
			}),
		}, {
			Name:        "mount",
			Description: "serve the volume at a directory until interrupted",
			ArgsUsage:   "DIR",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "allow-other",
					Usage: "let other users access the mount",
				},
				&cli.BoolFlag{
					Name:  "debug",
					Usage: "log every fuse request",
				},
				&cli.DurationFlag{
					Name:  "timeout",
					Usage: "kernel entry and attribute cache lifetime",
					Value: time.Second,
				},
			},
			Action: withSession(serve),
		}, {
			Name:        "stat",
			Description: "print the attributes of a file or directory",
			ArgsUsage:   "PATH",
			Action: withSession(func(
				ctx context.Context,
				session *fs.Session,
				cctx *cli.Context,
			) error {
				attrs, err := session.GetAttributes(ctx, pathArg(cctx))
				if err != nil {
					return err
				}
				return printJSON(attrs)
			}),
		}, {
			Name:        "ls",
			Description: "list a directory",
			ArgsUsage:   "PATH",
			Action: withSession(func(
				ctx context.Context,
				session *fs.Session,
				cctx *cli.Context,
			) error {
				entries, err := session.Entries(ctx, pathArg(cctx))
				if err != nil {
					return err
				}
				for _, entry := range entries {
					fmt.Printf("%d\t%s\t%s\n", entry.Block, entry.FileType, entry.Name)
				}
				return nil
			}),
		}, {
			Name:        "df",
			Description: "print block usage",
			Action: withSession(func(
				ctx context.Context,
				session *fs.Session,
				cctx *cli.Context,
			) error {
				stat, err := session.Statfs(ctx)
				if err != nil {
					return err
				}
				return printJSON(stat)
			}),
		}, {
			Name:        "cat",
			Description: "copy a file to stdout",
			ArgsUsage:   "PATH",
			Action: withSession(func(
				ctx context.Context,
				session *fs.Session,
				cctx *cli.Context,
			) error {
				return cat(ctx, session, pathArg(cctx), os.Stdout)
			}),
		}, {
			Name:        "put",
			Description: "replace a file's contents with stdin, creating it if needed",
			ArgsUsage:   "PATH",
			Action: withSession(func(
				ctx context.Context,
				session *fs.Session,
				cctx *cli.Context,
			) error {
				return put(ctx, session, pathArg(cctx), os.Stdin)
			}),
		}, {
			Name:        "rm",
			Aliases:     []string{"remove", "delete"},
			Description: "remove a file",
			ArgsUsage:   "PATH",
			Action: withSession(func(
				ctx context.Context,
				session *fs.Session,
				cctx *cli.Context,
			) error {
				return session.Remove(ctx, pathArg(cctx))
			}),
		}, {
			Name:        "snapshot",
			Description: "copy volume images to and from S3",
			Subcommands: []*cli.Command{{
				Name:        "push",
				Description: "upload the volume as a new snapshot",
				Action: withSnapshots(func(
					ctx context.Context,
					c *Config,
					snapshots *snapshot.Snapshots,
					cctx *cli.Context,
				) error {
					device, err := openDevice(c, false)
					if err != nil {
						return err
					}
					defer closeDevice(ctx, device)
					key, err := snapshots.Push(ctx, c.VolumeName(), device)
					if err != nil {
						return err
					}
					fmt.Println(key)
					return nil
				}),
			}, {
				Name:        "pull",
				Description: "overwrite the volume with a snapshot",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "key",
						Usage: "the snapshot to pull; defaults to the latest",
					},
				},
				Action: withSnapshots(func(
					ctx context.Context,
					c *Config,
					snapshots *snapshot.Snapshots,
					cctx *cli.Context,
				) error {
					key := cctx.String("key")
					if key == "" {
						latest, err := snapshots.Latest(ctx, c.VolumeName())
						if err != nil {
							return err
						}
						key = latest
					}
					device, err := openDevice(c, true)
					if err != nil {
						return err
					}
					defer closeDevice(ctx, device)
					return snapshots.Pull(ctx, key, device)
				}),
			}, {
				Name:        "list",
				Aliases:     []string{"ls"},
				Description: "list the volume's snapshots, oldest first",
				Action: withSnapshots(func(
					ctx context.Context,
					c *Config,
					snapshots *snapshot.Snapshots,
					cctx *cli.Context,
				) error {
					keys, err := snapshots.List(ctx, c.VolumeName())
					if err != nil {
						return err
					}
					for _, key := range keys {
						fmt.Println(key)
					}
					return nil
				}),
			}, {
				Name:        "delete",
				Aliases:     []string{"rm"},
				Description: "delete a snapshot",
				ArgsUsage:   "KEY",
				Action: withSnapshots(func(
					ctx context.Context,
					c *Config,
					snapshots *snapshot.Snapshots,
					cctx *cli.Context,
				) error {
					return snapshots.Delete(ctx, cctx.Args().First())
				}),
			}},
		}, {
			Name:        "table",
			Description: "commands for interacting with the backing pg table",
			Subcommands: []*cli.Command{{
				Name:        "ensure",
				Aliases:     []string{"make", "create"},
				Description: "create the table if it doesn't already exist",
				Action: withPGDevice(func(device *pgdevice.Device) error {
					return device.EnsureTable()
				}),
			}, {
				Name:        "drop",
				Aliases:     []string{"destroy"},
				Description: "drop the postgres table",
				Action: withPGDevice(func(device *pgdevice.Device) error {
					return device.DropTable()
				}),
			}, {
				Name:        "clear",
				Description: "delete the volume's rows without dropping the table",
				Action: withPGDevice(func(device *pgdevice.Device) error {
					return device.Clear()
				}),
			}},
		}},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(1)
	}
}

type deviceAction func(
	ctx context.Context,
	c *Config,
	device io.Device,
	cctx *cli.Context,
) error

type sessionAction func(
	ctx context.Context,
	session *fs.Session,
	cctx *cli.Context,
) error

type snapshotsAction func(
	ctx context.Context,
	c *Config,
	snapshots *snapshot.Snapshots,
	cctx *cli.Context,
) error

// setup loads the config, applies global flag overrides, and returns a
// context carrying the configured logger.
func setup(cctx *cli.Context) (context.Context, *Config, error) {
	configFile := cctx.String("config")
	if configFile == "" {
		configFile = ConfigFile()
	}
	c, err := LoadConfig(configFile)
	if err != nil {
		return nil, nil, err
	}
	for flag, field := range map[string]*string{
		"backend":   &c.Backend,
		"image":     &c.Image,
		"volume":    &c.Volume,
		"log-level": &c.LogLevel,
	} {
		if cctx.IsSet(flag) {
			*field = cctx.String(flag)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, nil, fmt.Errorf("validating config: %w", err)
	}

	logger, err := log.New(os.Stderr, c.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return log.Context(cctx.Context, logger), c, nil
}

func openDevice(c *Config, create bool) (io.Device, error) {
	switch c.Backend {
	case BackendPostgres:
		db, err := pgdevice.OpenEnv()
		if err != nil {
			return nil, err
		}
		device := pgdevice.New(db, c.Table, c.VolumeName())
		if create {
			if err := device.EnsureTable(); err != nil {
				return nil, errors.Join(err, device.Close())
			}
		}
		return device, nil
	default:
		file, err := io.OpenImage(c.Image, create)
		if err != nil {
			return nil, err
		}
		return io.NewVolumeDevice(file), nil
	}
}

func closeDevice(ctx context.Context, device io.Device) {
	if c, ok := device.(goio.Closer); ok {
		if err := c.Close(); err != nil {
			log.FromContext(ctx).Error("closing device", "err", err)
		}
	}
}

func withDevice(create bool, f deviceAction) cli.ActionFunc {
	return func(cctx *cli.Context) error {
		ctx, c, err := setup(cctx)
		if err != nil {
			return err
		}
		device, err := openDevice(c, create)
		if err != nil {
			return fmt.Errorf("opening device: %w", err)
		}
		return f(ctx, c, device, cctx)
	}
}

// withSession mounts the volume for the duration of `f`. The volume is
// formatted first if it has never been formatted.
func withSession(f sessionAction) cli.ActionFunc {
	return withDevice(true, func(
		ctx context.Context,
		c *Config,
		device io.Device,
		cctx *cli.Context,
	) (err error) {
		session, err := fs.Mount(ctx, device, &fs.MountOptions{
			InodeCacheSize: c.InodeCacheSize,
		})
		if err != nil {
			closeDevice(ctx, device)
			return err
		}
		defer func() {
			if uerr := session.Unmount(ctx); uerr != nil &&
				!errors.Is(uerr, NotMountedErr) {
				err = errors.Join(err, uerr)
			}
		}()
		return f(ctx, session, cctx)
	})
}

func withSnapshots(f snapshotsAction) cli.ActionFunc {
	return func(cctx *cli.Context) error {
		ctx, c, err := setup(cctx)
		if err != nil {
			return err
		}
		if c.Bucket == "" {
			return fmt.Errorf(
				"missing required config `bucket` (env: `%s_BUCKET`)",
				envVarPrefix,
			)
		}
		store, err := objectstore.NewS3ObjectStore(ctx, c.Region, c.Endpoint)
		if err != nil {
			return err
		}
		return f(ctx, c, snapshot.New(store, c.Bucket), cctx)
	}
}

func withPGDevice(f func(*pgdevice.Device) error) cli.ActionFunc {
	return func(cctx *cli.Context) error {
		_, c, err := setup(cctx)
		if err != nil {
			return err
		}
		db, err := pgdevice.OpenEnv()
		if err != nil {
			return err
		}
		device := pgdevice.New(db, c.Table, c.VolumeName())
		defer device.Close()
		return f(device)
	}
}

// serve mounts the session at DIR and blocks until the mount goes away or
// the process is interrupted.
func serve(ctx context.Context, session *fs.Session, cctx *cli.Context) error {
	dir := cctx.Args().First()
	if dir == "" {
		return fmt.Errorf("mounting: missing DIR argument")
	}

	server, err := fuse.Mount(dir, session, &fuse.Options{
		Timeout:    cctx.Duration("timeout"),
		AllowOther: cctx.Bool("allow-other"),
		Debug:      cctx.Bool("debug"),
		Logger:     log.FromContext(ctx),
	})
	if err != nil {
		return err
	}

	signals, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	waited := make(chan struct{})
	go func() {
		server.Wait()
		close(waited)
	}()

	select {
	case <-signals.Done():
		log.FromContext(ctx).Info("interrupted; unmounting", "dir", dir)
		return server.Unmount(ctx)
	case <-waited:
		// unmounted externally (e.g. `fusermount -u`); withSession
		// unmounts the session.
		return nil
	}
}

func pathArg(cctx *cli.Context) string {
	if path := cctx.Args().First(); path != "" {
		return path
	}
	return "/"
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling to JSON: %w", err)
	}
	if _, err := fmt.Printf("%s\n", data); err != nil {
		return fmt.Errorf("writing JSON to stdout: %w", err)
	}
	return nil
}

func cat(ctx context.Context, session *fs.Session, path string, w goio.Writer) error {
	buf := make([]byte, BlockSize)
	var offset int64
	for {
		n, err := session.Read(ctx, path, buf, offset)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		if _, err := w.Write(buf[:n]); err != nil {
			return fmt.Errorf("writing `%s` to output: %w", path, err)
		}
		offset += int64(n)
	}
}

func put(ctx context.Context, session *fs.Session, path string, r goio.Reader) error {
	data, err := goio.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	if _, err := session.Create(ctx, path, 0o644); err != nil &&
		!errors.Is(err, AlreadyExistsErr) {
		return err
	}
	if err := session.Truncate(ctx, path, 0); err != nil {
		return err
	}
	if len(data) < 1 {
		return nil
	}
	_, err = session.Write(ctx, path, data, 0)
	return err
}
