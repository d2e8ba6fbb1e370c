package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sfs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	c, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), *c)
	require.NoError(t, c.Validate())
}

func TestLoadConfig_Layers(t *testing.T) {
	path := writeConfig(t, strings.Join([]string{
		"backend: postgres",
		"volume: from-file",
		"table: blocks",
		"bucket: my-bucket",
	}, "\n"))
	t.Setenv("SFS_VOLUME", "from-env")
	t.Setenv("SFS_INODE_CACHE_SIZE", "7")

	c, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, BackendPostgres, c.Backend)
	require.Equal(t, "blocks", c.Table)
	require.Equal(t, "my-bucket", c.Bucket)
	require.Equal(t, "from-env", c.Volume)
	require.Equal(t, 7, c.InodeCacheSize)
	require.Equal(t, "sfs.img", c.Image)
}

func TestLoadConfig_UnknownField(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "bogus: true\n"))
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	for _, testCase := range []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{{
		name:   "default",
		mutate: func(*Config) {},
	}, {
		name:    "bad-backend",
		mutate:  func(c *Config) { c.Backend = "tape" },
		wantErr: "invalid backend",
	}, {
		name:    "file-without-image",
		mutate:  func(c *Config) { c.Image = "" },
		wantErr: "SFS_IMAGE",
	}, {
		name: "postgres-without-table",
		mutate: func(c *Config) {
			c.Backend = BackendPostgres
			c.Table = ""
		},
		wantErr: "SFS_TABLE",
	}, {
		name:    "negative-cache",
		mutate:  func(c *Config) { c.InodeCacheSize = -1 },
		wantErr: "inode cache size",
	}} {
		t.Run(testCase.name, func(t *testing.T) {
			c := DefaultConfig()
			testCase.mutate(&c)
			err := c.Validate()
			if testCase.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, testCase.wantErr)
		})
	}
}

func TestConfig_VolumeName(t *testing.T) {
	c := DefaultConfig()
	c.Image = "/var/lib/sfs/scratch.img"
	require.Equal(t, "scratch", c.VolumeName())

	c.Volume = "named"
	require.Equal(t, "named", c.VolumeName())
}
