// Package catalog holds the SQL text of the sparkify song-play warehouse:
// drop, create and insert statements for the songplays fact table and the
// users, songs, artists and time dimensions, the song lookup query, and the
// ordered batches used to tear the schema down and build it up again.
//
// The catalog is pure data. Nothing in here opens a connection or executes a
// statement; see package store for that.
package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Dialect names a SQL engine the catalog is rendered for
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
	DuckDB   Dialect = "duckdb"
)

// ErrUnknownDialect is returned for a dialect name the catalog has no rendering for
var ErrUnknownDialect = errors.New("unknown SQL dialect")

// Dialects lists every supported dialect
func Dialects() []Dialect {
	return []Dialect{Postgres, SQLite, DuckDB}
}

// ParseDialect maps a user-supplied name to a Dialect.
// "postgresql", "pg" and "sqlite3" are accepted as aliases.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "duckdb":
		return DuckDB, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDialect, name)
}

// Table names
const (
	SongplaysTable = "songplays"
	UsersTable     = "users"
	SongsTable     = "songs"
	ArtistsTable   = "artists"
	TimeTable      = "time"
)

// Table describes one warehouse table as the insert statements see it
type Table struct {
	Name string
	// Key is the primary key column. For songplays this is the surrogate
	// key, which is never part of Columns.
	Key string
	// Columns is the insert column order; values must be bound in this order.
	Columns []string
	// IgnoreConflicts is true for dimension tables, whose inserts are
	// no-ops when the key already exists.
	IgnoreConflicts bool
}

// Fact reports whether t is the fact table
func (t Table) Fact() bool {
	return !t.IgnoreConflicts
}

var tables = []Table{
	{
		Name:    SongplaysTable,
		Key:     "songplay_id",
		Columns: []string{"start_time", "user_id", "level", "song_id", "artist_id", "session_id", "location", "user_agent"},
	},
	{
		Name:            UsersTable,
		Key:             "user_id",
		Columns:         []string{"user_id", "first_name", "last_name", "gender", "level"},
		IgnoreConflicts: true,
	},
	{
		Name:            SongsTable,
		Key:             "song_id",
		Columns:         []string{"song_id", "title", "artist_id", "year", "duration"},
		IgnoreConflicts: true,
	},
	{
		Name:            ArtistsTable,
		Key:             "artist_id",
		Columns:         []string{"artist_id", "name", "location", "latitude", "longitude"},
		IgnoreConflicts: true,
	},
	{
		Name:            TimeTable,
		Key:             "start_time",
		Columns:         []string{"start_time", "hour", "day", "week", "month", "year", "weekday"},
		IgnoreConflicts: true,
	},
}

// Tables returns the warehouse tables in batch order:
// songplays, users, songs, artists, time.
func Tables() []Table {
	out := make([]Table, len(tables))
	for i, t := range tables {
		t.Columns = append([]string(nil), t.Columns...)
		out[i] = t
	}
	return out
}

// LookupTable returns the table with the given name
func LookupTable(name string) (Table, bool) {
	for _, t := range Tables() {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// Catalog is the full statement set rendered for one dialect
type Catalog struct {
	Dialect Dialect

	SongplayTableDrop string
	UserTableDrop     string
	SongTableDrop     string
	ArtistTableDrop   string
	TimeTableDrop     string

	SongplayTableCreate string
	UserTableCreate     string
	SongTableCreate     string
	ArtistTableCreate   string
	TimeTableCreate     string

	SongplayTableInsert string
	UserTableInsert     string
	SongTableInsert     string
	ArtistTableInsert   string
	TimeTableInsert     string

	// SongSelect finds (song_id, artist_id) by exact title, artist name
	// and duration. It yields zero or one row.
	SongSelect string
}

// For returns the catalog rendered for dialect d
func For(d Dialect) (*Catalog, error) {
	switch d {
	case Postgres:
		return postgresCatalog(), nil
	case SQLite:
		return sqliteCatalog(), nil
	case DuckDB:
		return duckdbCatalog(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, string(d))
}

// CreateTableQueries returns the create statements in batch order
func (c *Catalog) CreateTableQueries() []string {
	return []string{
		c.SongplayTableCreate,
		c.UserTableCreate,
		c.SongTableCreate,
		c.ArtistTableCreate,
		c.TimeTableCreate,
	}
}

// DropTableQueries returns the drop statements in batch order
func (c *Catalog) DropTableQueries() []string {
	return []string{
		c.SongplayTableDrop,
		c.UserTableDrop,
		c.SongTableDrop,
		c.ArtistTableDrop,
		c.TimeTableDrop,
	}
}

// InsertQuery returns the insert statement for the named table
func (c *Catalog) InsertQuery(table string) (string, bool) {
	switch table {
	case SongplaysTable:
		return c.SongplayTableInsert, true
	case UsersTable:
		return c.UserTableInsert, true
	case SongsTable:
		return c.SongTableInsert, true
	case ArtistsTable:
		return c.ArtistTableInsert, true
	case TimeTable:
		return c.TimeTableInsert, true
	}
	return "", false
}

// StatementKind classifies a catalog statement
type StatementKind string

const (
	KindDrop   StatementKind = "drop"
	KindCreate StatementKind = "create"
	KindInsert StatementKind = "insert"
	KindSelect StatementKind = "select"
)

// Statement is a named catalog entry, used for display and auditing
type Statement struct {
	Kind  StatementKind
	Table string
	SQL   string
}

// Name is a stable identifier such as "songplay_table_create"
func (s Statement) Name() string {
	if s.Kind == KindSelect {
		return "song_select"
	}
	return fmt.Sprintf("%s_table_%s", singular(s.Table), s.Kind)
}

func singular(table string) string {
	if table == TimeTable {
		return table
	}
	return strings.TrimSuffix(table, "s")
}

// Statements lists every statement in the catalog: drops, creates and
// inserts in batch order, then the song lookup.
func (c *Catalog) Statements() []Statement {
	drops := c.DropTableQueries()
	creates := c.CreateTableQueries()

	var out []Statement
	for i, t := range tables {
		out = append(out, Statement{Kind: KindDrop, Table: t.Name, SQL: drops[i]})
	}
	for i, t := range tables {
		out = append(out, Statement{Kind: KindCreate, Table: t.Name, SQL: creates[i]})
	}
	for _, t := range tables {
		q, _ := c.InsertQuery(t.Name)
		out = append(out, Statement{Kind: KindInsert, Table: t.Name, SQL: q})
	}
	out = append(out, Statement{Kind: KindSelect, Table: SongsTable, SQL: c.SongSelect})
	return out
}

// Batch pairs each statement of a create or drop batch with its table
func Batch(queries []string) []Statement {
	out := make([]Statement, 0, len(queries))
	for i, q := range queries {
		st := Statement{SQL: q}
		if i < len(tables) {
			st.Table = tables[i].Name
		}
		if strings.HasPrefix(strings.TrimSpace(q), "DROP") {
			st.Kind = KindDrop
		} else {
			st.Kind = KindCreate
		}
		out = append(out, st)
	}
	return out
}
