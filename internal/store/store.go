// Package store implements Jary's relational event store: one SQLite
// table per ingress and the deferred q_match query builder the VM's
// QUERY opcode drives (§4.5, §6). Grounded on original_source/lib/jay/
// storage.c's q_match, with its two documented defects fixed per §9:
// join predicates are joined with AND (the original used ",", which
// is accidentally correct only for an inner join but reads as the bug
// it is) and operand values are bound as parameters rather than
// string-formatted into the query text.
package store

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/CTRLRLTY/JARY-sub000/internal/compiler"
	"github.com/CTRLRLTY/JARY-sub000/internal/value"
	"github.com/CTRLRLTY/JARY-sub000/internal/vm"
)

var registerOnce sync.Once

// driverName is registered once per process with a REGEXP user
// function, since SQLite has no builtin regex operator — the teacher's
// stack already depends on mattn/go-sqlite3; this just exercises its
// ConnectHook extension point instead of reaching for a second driver.
const driverName = "jary-sqlite3"

func registerDriver() {
	registerOnce.Do(func() {
		sql.Register(driverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				return conn.RegisterFunc("REGEXP", func(pattern, s string) (bool, error) {
					return regexp.MatchString(pattern, s)
				}, true)
			},
		})
	})
}

// Store is the SQL-backed implementation of vm.Store.
type Store struct {
	db     *sql.DB
	scopes map[uint32]*compiler.EventScope
}

// Open creates (or reopens) the SQLite database at path.
func Open(path string) (*Store, error) {
	registerDriver()
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, errors.Wrap(err, "store: open")
	}
	// A second pooled connection would see its own separate ":memory:"
	// database (and, for a file DB, serializes writes anyway since
	// SQLite takes a whole-database lock) — one connection total per
	// *Store, matching §5's single-writer storage model.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "store: ping")
	}
	return &Store{db: db, scopes: map[uint32]*compiler.EventScope{}}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// CreateTables emits one CREATE TABLE per ingress, per §6's storage
// schema ("<col> TEXT|INTEGER, ..., __arrival__ INTEGER DEFAULT
// (unixepoch())"), and records the scope set QMatch resolves against.
func (s *Store) CreateTables(eventScopes map[int]*compiler.EventScope) error {
	for id, scope := range eventScopes {
		s.scopes[uint32(id)] = scope

		var cols []string
		for i, name := range scope.FieldOrder {
			if name == "__arrival__" {
				cols = append(cols, `"__arrival__" INTEGER DEFAULT (unixepoch())`)
				continue
			}
			cols = append(cols, fmt.Sprintf("%q %s", name, scope.FieldTypes[i]))
		}
		stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %q (%s)", scope.IngressName, strings.Join(cols, ", "))
		if _, err := s.db.Exec(stmt); err != nil {
			return errors.Wrapf(err, "store: create table %q", scope.IngressName)
		}
	}
	return nil
}

// InsertEvent appends one event row, binding every value as a
// parameter (§6's host API insert_event).
func (s *Store) InsertEvent(ingress string, keys []string, values []value.Value) error {
	placeholders := make([]string, len(keys))
	args := make([]interface{}, len(keys))
	cols := make([]string, len(keys))
	for i, k := range keys {
		cols[i] = fmt.Sprintf("%q", k)
		placeholders[i] = "?"
		args[i] = sqlParam(values[i])
	}
	stmt := fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)", ingress, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	_, err := s.db.Exec(stmt, args...)
	if err != nil {
		return errors.Wrapf(err, "store: insert into %q", ingress)
	}
	return nil
}

func sqlParam(v value.Value) interface{} {
	switch v.Kind {
	case value.Str, value.Regex:
		return v.Str()
	case value.Bool:
		if v.Bool() {
			return int64(1)
		}
		return int64(0)
	case value.Long:
		return v.Long()
	case value.ULong, value.Ofs:
		return int64(v.ULong())
	default:
		return v.String()
	}
}
