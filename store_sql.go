package querycache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// sqlStore persists snapshots in a single table (key, value, expiry in
// unix millis). Expired rows are deleted lazily on load.
type sqlStore struct {
	db         *sql.DB
	table      string
	driverName string
	prefix     string
	defaultTTL time.Duration
	loadStmt   *sql.Stmt
	upsertStmt *sql.Stmt
	deleteStmt *sql.Stmt
	flushStmt  *sql.Stmt
}

var sqlIdentPartRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func newSQLStore(cfg SnapshotConfig) (SnapshotStore, error) {
	if cfg.SQLDriverName == "" || cfg.SQLDSN == "" {
		return nil, errors.New("sql driver requires driver name and dsn")
	}
	db, err := sql.Open(cfg.SQLDriverName, cfg.SQLDSN)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	table := cfg.SQLTable
	if err := validateSQLTableName(table); err != nil {
		return nil, err
	}
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	s := &sqlStore{
		db:         db,
		table:      table,
		driverName: cfg.SQLDriverName,
		prefix:     cfg.Prefix,
		defaultTTL: ttl,
	}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	if err := s.prepareStatements(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *sqlStore) Driver() Driver { return DriverSQL }

func (s *sqlStore) Ready(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlStore) ensureSchema() error {
	var stmt string
	switch s.driverName {
	case "postgres", "pgx":
		stmt = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			k TEXT PRIMARY KEY,
			v BYTEA NOT NULL,
			ea BIGINT NOT NULL
		);`, s.table)
	case "mysql":
		stmt = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			k VARBINARY(255) PRIMARY KEY,
			v LONGBLOB NOT NULL,
			ea BIGINT NOT NULL
		) ENGINE=InnoDB;`, s.table)
	default: // sqlite
		stmt = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			k TEXT PRIMARY KEY,
			v BLOB NOT NULL,
			ea INTEGER NOT NULL
		);`, s.table)
	}
	_, err := s.db.Exec(stmt)
	return err
}

func (s *sqlStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var v []byte
	var exp int64
	err := s.loadStmt.QueryRowContext(ctx, s.storeKey(key)).Scan(&v, &exp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if time.Now().UnixMilli() > exp {
		_ = s.Delete(ctx, key)
		return nil, false, nil
	}
	return cloneBytes(v), true, nil
}

func (s *sqlStore) Save(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	exp := time.Now().Add(ttl).UnixMilli()
	_, err := s.upsertStmt.ExecContext(ctx, s.storeKey(key), value, exp, value, exp)
	return err
}

func (s *sqlStore) Delete(ctx context.Context, key string) error {
	_, err := s.deleteStmt.ExecContext(ctx, s.storeKey(key))
	return err
}

func (s *sqlStore) Flush(ctx context.Context) error {
	_, err := s.flushStmt.ExecContext(ctx)
	return err
}

func (s *sqlStore) storeKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

func (s *sqlStore) upsertSQL() string {
	// Placeholders must be positional for postgres/pgx.
	p1, p2, p3, p4, p5 := s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5)
	switch s.driverName {
	case "postgres", "pgx":
		return fmt.Sprintf("INSERT INTO %s (k, v, ea) VALUES (%s, %s, %s) ON CONFLICT (k) DO UPDATE SET v = %s, ea = %s", s.table, p1, p2, p3, p4, p5)
	case "mysql":
		return fmt.Sprintf("INSERT INTO %s (k, v, ea) VALUES (%s, %s, %s) ON DUPLICATE KEY UPDATE v = %s, ea = %s", s.table, p1, p2, p3, p4, p5)
	default: // sqlite
		return fmt.Sprintf("INSERT INTO %s (k, v, ea) VALUES (%s, %s, %s) ON CONFLICT(k) DO UPDATE SET v = %s, ea = %s", s.table, p1, p2, p3, p4, p5)
	}
}

func (s *sqlStore) prepareStatements() error {
	var err error
	if s.loadStmt, err = s.db.Prepare(fmt.Sprintf("SELECT v, ea FROM %s WHERE k = %s", s.table, s.ph(1))); err != nil {
		return err
	}
	if s.upsertStmt, err = s.db.Prepare(s.upsertSQL()); err != nil {
		return err
	}
	if s.deleteStmt, err = s.db.Prepare(fmt.Sprintf("DELETE FROM %s WHERE k = %s", s.table, s.ph(1))); err != nil {
		return err
	}
	if s.flushStmt, err = s.db.Prepare(fmt.Sprintf("DELETE FROM %s", s.table)); err != nil {
		return err
	}
	return nil
}

func (s *sqlStore) ph(i int) string {
	if s.driverName == "postgres" || s.driverName == "pgx" {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

func validateSQLTableName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("sql table name is required")
	}
	for _, part := range strings.Split(name, ".") {
		if !sqlIdentPartRE.MatchString(part) {
			return fmt.Errorf("invalid sql table name %q", name)
		}
	}
	return nil
}
