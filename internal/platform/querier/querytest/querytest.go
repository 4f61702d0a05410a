// Package querytest provides an in-memory querier.Querier for store tests.
package querytest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Call is one recorded statement.
type Call struct {
	SQL  string
	Args []any
}

// DB answers statements through the optional hooks. Unset hooks return an
// empty result: no rows, pgx.ErrNoRows from QueryRow, "UPDATE 1" from Exec.
type DB struct {
	mu    sync.Mutex
	Calls []Call

	ExecFunc     func(sql string, args []any) (pgconn.CommandTag, error)
	QueryFunc    func(sql string, args []any) (pgx.Rows, error)
	QueryRowFunc func(sql string, args []any) pgx.Row

	Committed  int
	RolledBack int
}

func (d *DB) record(sql string, args []any) {
	d.mu.Lock()
	d.Calls = append(d.Calls, Call{SQL: sql, Args: args})
	d.mu.Unlock()
}

func (d *DB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	d.record(sql, args)
	if d.ExecFunc != nil {
		return d.ExecFunc(sql, args)
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (d *DB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	d.record(sql, args)
	if d.QueryFunc != nil {
		return d.QueryFunc(sql, args)
	}
	return &Rows{}, nil
}

func (d *DB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	d.record(sql, args)
	if d.QueryRowFunc != nil {
		return d.QueryRowFunc(sql, args)
	}
	return Row{Err: pgx.ErrNoRows}
}

func (d *DB) Begin(context.Context) (pgx.Tx, error) {
	return &Tx{db: d}, nil
}

// Snapshot returns a copy of the recorded calls.
func (d *DB) Snapshot() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Call, len(d.Calls))
	copy(out, d.Calls)
	return out
}

// Tx forwards statements to its DB and counts commits and rollbacks.
type Tx struct {
	db   *DB
	done bool
}

func (t *Tx) Begin(ctx context.Context) (pgx.Tx, error) { return &Tx{db: t.db}, nil }

func (t *Tx) Commit(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.db.mu.Lock()
	t.db.Committed++
	t.db.mu.Unlock()
	return nil
}

func (t *Tx) Rollback(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.db.mu.Lock()
	t.db.RolledBack++
	t.db.mu.Unlock()
	return nil
}

func (t *Tx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("querytest: CopyFrom not supported")
}

func (t *Tx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (t *Tx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }

func (t *Tx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, errors.New("querytest: Prepare not supported")
}

func (t *Tx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.db.Exec(ctx, sql, args...)
}

func (t *Tx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.db.Query(ctx, sql, args...)
}

func (t *Tx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.db.QueryRow(ctx, sql, args...)
}

func (t *Tx) Conn() *pgx.Conn { return nil }

// Row scans Values into the destinations positionally.
type Row struct {
	Values []any
	Err    error
}

func (r Row) Scan(dest ...any) error {
	if r.Err != nil {
		return r.Err
	}
	return assign(r.Values, dest)
}

// Rows iterates Data, one slice of column values per row.
type Rows struct {
	Data    [][]any
	ScanErr error
	IterErr error
	idx     int
}

func (r *Rows) Close()                                       {}
func (r *Rows) Err() error                                   { return r.IterErr }
func (r *Rows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *Rows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *Rows) Values() ([]any, error)                       { return nil, nil }
func (r *Rows) RawValues() [][]byte                          { return nil }
func (r *Rows) Conn() *pgx.Conn                              { return nil }

func (r *Rows) Next() bool {
	if r.idx >= len(r.Data) {
		return false
	}
	r.idx++
	return true
}

func (r *Rows) Scan(dest ...any) error {
	if r.ScanErr != nil {
		return r.ScanErr
	}
	if r.idx == 0 {
		return errors.New("querytest: Scan called before Next")
	}
	return assign(r.Data[r.idx-1], dest)
}

func assign(values, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("querytest: %d values for %d destinations", len(values), len(dest))
	}
	for i, d := range dest {
		target := reflect.ValueOf(d)
		if target.Kind() != reflect.Pointer || target.IsNil() {
			return fmt.Errorf("querytest: destination %d is not a pointer", i)
		}
		elem := target.Elem()
		if values[i] == nil {
			elem.Set(reflect.Zero(elem.Type()))
			continue
		}
		src := reflect.ValueOf(values[i])
		switch {
		case src.Type().AssignableTo(elem.Type()):
			elem.Set(src)
		case elem.Kind() == reflect.Pointer && src.Type().AssignableTo(elem.Type().Elem()):
			ptr := reflect.New(elem.Type().Elem())
			ptr.Elem().Set(src)
			elem.Set(ptr)
		case src.Type().ConvertibleTo(elem.Type()):
			elem.Set(src.Convert(elem.Type()))
		default:
			return fmt.Errorf("querytest: cannot scan %T into %s", values[i], elem.Type())
		}
	}
	return nil
}
