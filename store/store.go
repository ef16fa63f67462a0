// Package store persists recorded buttons in a SQLite file. Each button name
// maps to one pulse train; every mutation runs in its own transaction.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/derktes/rfsniffer/pulse"
)

var (
	ErrNotFound      = errors.New("button not found")
	ErrDuplicateName = errors.New("button already exists")
	ErrEmptyName     = errors.New("button name is empty")
)

const schema = `
CREATE TABLE IF NOT EXISTS buttons (
	name        TEXT PRIMARY KEY NOT NULL,
	samples     TEXT NOT NULL,
	protocol    INTEGER NOT NULL DEFAULT 0,
	recorded_at INTEGER NOT NULL
)`

// Button is a stored train with its metadata. Protocol is the catalog index
// the train was condensed against, 0 for a raw capture.
type Button struct {
	Name       string
	Train      pulse.Train
	Protocol   int
	RecordedAt time.Time
}

type Store struct {
	db   *sql.DB
	path string
}

// DefaultPath is ~/buttons.db.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "buttons.db"
	}
	return filepath.Join(home, "buttons.db")
}

// Open opens or creates the store file at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	// one writer; concurrent processes are not coordinated
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "init %s", path)
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Path() string { return s.path }

// With opens the store, runs fn and closes the store on every path.
func With(ctx context.Context, path string, fn func(*Store) error) (err error) {
	s, err := Open(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close %s", path)
		}
	}()
	return fn(s)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func lookup(ctx context.Context, q querier, name string) (Button, error) {
	var (
		raw        string
		b          = Button{Name: name}
		recordedAt int64
	)
	err := q.QueryRowContext(ctx,
		`SELECT samples, protocol, recorded_at FROM buttons WHERE name = ?`, name).
		Scan(&raw, &b.Protocol, &recordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Button{}, errors.Wrapf(ErrNotFound, "%q", name)
	}
	if err != nil {
		return Button{}, errors.Wrapf(err, "read %q", name)
	}
	if err := json.Unmarshal([]byte(raw), &b.Train); err != nil {
		return Button{}, errors.Wrapf(err, "decode %q", name)
	}
	b.RecordedAt = time.Unix(0, recordedAt)
	return b, nil
}

func exists(ctx context.Context, q querier, name string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM buttons WHERE name = ?`, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "look up %q", name)
	}
	return true, nil
}

func put(ctx context.Context, q querier, b Button) error {
	if b.Name == "" {
		return ErrEmptyName
	}
	if err := b.Train.Validate(); err != nil {
		return errors.WithMessagef(err, "button %q", b.Name)
	}
	train := b.Train
	if train == nil {
		train = pulse.Train{}
	}
	raw, err := json.Marshal(train)
	if err != nil {
		return errors.Wrapf(err, "encode %q", b.Name)
	}
	if b.RecordedAt.IsZero() {
		b.RecordedAt = time.Now()
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO buttons (name, samples, protocol, recorded_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			samples = excluded.samples,
			protocol = excluded.protocol,
			recorded_at = excluded.recorded_at`,
		b.Name, string(raw), b.Protocol, b.RecordedAt.UnixNano())
	return errors.Wrapf(err, "write %q", b.Name)
}

// Get returns the train stored under name.
func (s *Store) Get(ctx context.Context, name string) (pulse.Train, error) {
	b, err := lookup(ctx, s.db, name)
	return b.Train, err
}

// Lookup returns the train stored under name with its metadata.
func (s *Store) Lookup(ctx context.Context, name string) (Button, error) {
	return lookup(ctx, s.db, name)
}

func (s *Store) Contains(ctx context.Context, name string) (bool, error) {
	return exists(ctx, s.db, name)
}

// Set stores b, replacing any train already stored under its name.
func (s *Store) Set(ctx context.Context, b Button) error {
	return put(ctx, s.db, b)
}

// Create stores b and fails with ErrDuplicateName if the name is taken.
func (s *Store) Create(ctx context.Context, b Button) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		if err := free(ctx, tx, b.Name); err != nil {
			return err
		}
		return put(ctx, tx, b)
	})
}

// Delete removes every named button in one transaction. If any name is
// missing nothing is removed and ErrNotFound is returned.
func (s *Store) Delete(ctx context.Context, names ...string) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		for _, name := range names {
			if err := remove(ctx, tx, name); err != nil {
				return err
			}
		}
		return nil
	})
}

func remove(ctx context.Context, q querier, name string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM buttons WHERE name = ?`, name)
	if err != nil {
		return errors.Wrapf(err, "delete %q", name)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "delete %q", name)
	}
	if n == 0 {
		return errors.Wrapf(ErrNotFound, "%q", name)
	}
	return nil
}

// Keys returns every button name in ascending byte order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM buttons ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "list buttons")
	}
	defer rows.Close()
	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "list buttons")
		}
		names = append(names, name)
	}
	return names, errors.Wrap(rows.Err(), "list buttons")
}

// Copy stores the train of src under dst as well.
func (s *Store) Copy(ctx context.Context, src, dst string) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		return copyTx(ctx, tx, src, dst)
	})
}

// Rename moves src to dst in one transaction.
func (s *Store) Rename(ctx context.Context, src, dst string) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		if err := copyTx(ctx, tx, src, dst); err != nil {
			return err
		}
		return remove(ctx, tx, src)
	})
}

// Snapshot returns every stored button keyed by name.
func (s *Store) Snapshot(ctx context.Context) (map[string]Button, error) {
	names, err := s.Keys(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Button, len(names))
	for _, name := range names {
		b, err := lookup(ctx, s.db, name)
		if err != nil {
			return nil, err
		}
		out[name] = b
	}
	return out, nil
}

func copyTx(ctx context.Context, tx *sql.Tx, src, dst string) error {
	b, err := lookup(ctx, tx, src)
	if err != nil {
		return err
	}
	if err := free(ctx, tx, dst); err != nil {
		return err
	}
	b.Name = dst
	return put(ctx, tx, b)
}

func free(ctx context.Context, q querier, name string) error {
	if name == "" {
		return ErrEmptyName
	}
	taken, err := exists(ctx, q, name)
	if err != nil {
		return err
	}
	if taken {
		return errors.Wrapf(ErrDuplicateName, "%q", name)
	}
	return nil
}

func (s *Store) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "commit")
}
