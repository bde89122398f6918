// Package store is the persistence layer. It speaks SQLite by default and
// PostgreSQL when the database URL carries a postgres scheme, sharing one
// query set through a small dialect shim.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/Opselon/rubica-bot/internal/cache"
)

// GroupSettings is the per-group moderation record. Absent rows are
// synthesized with AntiLink on and FloodLimit 6, never written back.
type GroupSettings struct {
	ChatID       string
	Title        string
	AntiLink     bool
	AntiFlood    bool
	AntiSpam     bool
	AntiBadwords bool
	AntiForward  bool
	FloodLimit   int
}

func defaultGroup(chatID string) GroupSettings {
	return GroupSettings{ChatID: chatID, AntiLink: true, FloodLimit: 6}
}

// groupFlagColumns whitelists the columns SetGroupFlag may touch.
var groupFlagColumns = map[string]bool{
	"anti_link":     true,
	"anti_flood":    true,
	"anti_spam":     true,
	"anti_badwords": true,
	"anti_forward":  true,
}

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (d dialect) rebind(query string) string {
	if d == dialectSQLite {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d dialect) autoPK() string {
	if d == dialectPostgres {
		return "BIGSERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

// boolCol renders a boolean column with its default. SQLite stores 0/1
// integers, PostgreSQL wants real booleans.
func (d dialect) boolCol(def bool) string {
	if d == dialectPostgres {
		if def {
			return "BOOLEAN NOT NULL DEFAULT TRUE"
		}
		return "BOOLEAN NOT NULL DEFAULT FALSE"
	}
	if def {
		return "INTEGER NOT NULL DEFAULT 1"
	}
	return "INTEGER NOT NULL DEFAULT 0"
}

func (d dialect) realType() string {
	if d == dialectPostgres {
		return "DOUBLE PRECISION"
	}
	return "REAL"
}

// Store wraps the database handle plus the read-through group settings cache.
type Store struct {
	db      *sql.DB
	dialect dialect
	groups  *cache.LRU[string, GroupSettings]
}

// Open connects per the database URL. sqlite:///path/to.db opens a file
// database with the WAL pragma set; postgres:// URLs go through pgx.
func Open(databaseURL string, cacheSize int, cacheTTL time.Duration) (*Store, error) {
	var (
		db  *sql.DB
		d   dialect
		err error
	)
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		d = dialectPostgres
		db, err = sql.Open("pgx", databaseURL)
	default:
		d = dialectSQLite
		db, err = sql.Open("sqlite", sqliteDSN(databaseURL))
		if db != nil {
			// modernc serializes writes; a single connection avoids
			// SQLITE_BUSY churn under the worker pool.
			db.SetMaxOpenConns(1)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &Store{
		db:      db,
		dialect: d,
		groups:  cache.New[string, GroupSettings](cacheSize, cacheTTL),
	}, nil
}

// sqliteDSN strips the sqlite:/// prefix and appends the session pragmas:
// WAL, NORMAL sync, memory temp store, 20MB cache, 3s busy timeout, FKs on.
func sqliteDSN(databaseURL string) string {
	path := databaseURL
	for _, prefix := range []string{"sqlite:///", "sqlite://", "sqlite:"} {
		if strings.HasPrefix(path, prefix) {
			path = strings.TrimPrefix(path, prefix)
			break
		}
	}
	return "file:" + path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=temp_store(MEMORY)" +
		"&_pragma=cache_size(-20000)" +
		"&_pragma=busy_timeout(3000)" +
		"&_pragma=foreign_keys(1)"
}

// Close releases the underlying pool.
func (s *Store) Close() error { return s.db.Close() }

// Ping verifies connectivity; used by the doctor command.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.rebind(query), args...)
}

func nowUTC() time.Time { return time.Now().UTC() }
