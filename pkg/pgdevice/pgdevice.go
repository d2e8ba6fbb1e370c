// Package pgdevice stores volume blocks as rows in a postgres table so a
// volume can live in a shared database instead of an image file.
package pgdevice

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/lib/pq"
	. "github.com/weberc2/sfs/pkg/types"
)

const DefaultTable = "sfs_blocks"

// Device is a block device whose blocks are rows keyed on
// `(volume, idx)`. Blocks that were never written read as zeros.
type Device struct {
	DB     *sql.DB
	Table  string
	Volume string
}

func New(db *sql.DB, table, volume string) *Device {
	if table == "" {
		table = DefaultTable
	}
	return &Device{DB: db, Table: table, Volume: volume}
}

func OpenEnv() (*sql.DB, error) {
	db, err := sql.Open(
		"postgres",
		fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnv("PG_HOST", "localhost"),
			getEnv("PG_PORT", "5432"),
			getEnv("PG_USER", "postgres"),
			getEnv("PG_PASS", ""),
			getEnv("PG_DB_NAME", "postgres"),
			getEnv("PG_SSL_MODE", "disable"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("opening postgres database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, errors.Join(
			fmt.Errorf("pinging postgres database: %w", err),
			db.Close(),
		)
	}

	return db, nil
}

func getEnv(env, def string) string {
	x := os.Getenv(env)
	if x == "" {
		return def
	}
	return x
}

func (d *Device) table() string { return pq.QuoteIdentifier(d.Table) }

func (d *Device) EnsureTable() error {
	if _, err := d.DB.Exec(
		"CREATE TABLE IF NOT EXISTS " + d.table() + " (" +
			"volume VARCHAR(255) NOT NULL, " +
			"idx INTEGER NOT NULL, " +
			"data BYTEA NOT NULL, " +
			"PRIMARY KEY (volume, idx))",
	); err != nil {
		return fmt.Errorf("creating `%s` postgres table: %w", d.Table, err)
	}
	return nil
}

func (d *Device) DropTable() error {
	if _, err := d.DB.Exec("DROP TABLE IF EXISTS " + d.table()); err != nil {
		return fmt.Errorf("dropping table `%s`: %w", d.Table, err)
	}
	return nil
}

// Clear deletes every block belonging to the device's volume.
func (d *Device) Clear() error {
	if _, err := d.DB.Exec(
		"DELETE FROM "+d.table()+" WHERE volume = $1",
		d.Volume,
	); err != nil {
		return fmt.Errorf(
			"clearing volume `%s` from table `%s`: %w",
			d.Volume,
			d.Table,
			err,
		)
	}
	return nil
}

func (d *Device) ReadBlock(block Block, b *[BlockSize]byte) error {
	if err := block.Validate(); err != nil {
		return fmt.Errorf("reading block: %w", err)
	}

	var data []byte
	if err := d.DB.QueryRow(
		"SELECT data FROM "+d.table()+" WHERE volume = $1 AND idx = $2",
		d.Volume,
		int64(block),
	).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			*b = [BlockSize]byte{}
			return nil
		}
		return fmt.Errorf(
			"reading block `%d` of volume `%s`: %w: %w",
			block,
			d.Volume,
			IOFailureErr,
			err,
		)
	}

	if Byte(len(data)) != BlockSize {
		return fmt.Errorf(
			"reading block `%d` of volume `%s`: row holds `%d` bytes: %w",
			block,
			d.Volume,
			len(data),
			IOFailureErr,
		)
	}
	copy(b[:], data)
	return nil
}

func (d *Device) WriteBlock(block Block, b *[BlockSize]byte) error {
	if err := block.Validate(); err != nil {
		return fmt.Errorf("writing block: %w", err)
	}

	if _, err := d.DB.Exec(
		"INSERT INTO "+d.table()+" (volume, idx, data) VALUES ($1, $2, $3) "+
			"ON CONFLICT (volume, idx) DO UPDATE SET data = EXCLUDED.data",
		d.Volume,
		int64(block),
		b[:],
	); err != nil {
		return fmt.Errorf(
			"writing block `%d` of volume `%s`: %w: %w",
			block,
			d.Volume,
			IOFailureErr,
			err,
		)
	}
	return nil
}

func (d *Device) Close() error { return d.DB.Close() }
