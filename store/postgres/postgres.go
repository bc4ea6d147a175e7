package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/juju/errors"
	_ "github.com/lib/pq"

	"github.com/warriorguo/asl/store"
)

var (
	_ store.Store = &pgStore{}

	tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

	sslModes = map[string]bool{
		"disable":     true,
		"require":     true,
		"verify-ca":   true,
		"verify-full": true,
	}
)

const (
	defaultTable   = "asl_token_store"
	connectTimeout = 10 * time.Second
)

// Config holds PostgreSQL connection configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // disable, require, verify-ca, verify-full
	// Table defaults to asl_token_store
	Table string
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "asl",
		SSLMode:  "disable",
		Table:    defaultTable,
	}
}

// DSN builds a PostgreSQL connection string from Config
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Validate checks the configuration, filling SSLMode and Table when empty.
func (c *Config) Validate() error {
	switch {
	case c.Host == "":
		return errors.NotValidf("empty host")
	case c.Port <= 0 || c.Port > 65535:
		return errors.NotValidf("port %d", c.Port)
	case c.User == "":
		return errors.NotValidf("empty user")
	case c.Database == "":
		return errors.NotValidf("empty database")
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if !sslModes[c.SSLMode] {
		return errors.NotValidf("sslmode %s", c.SSLMode)
	}
	if c.Table == "" {
		c.Table = defaultTable
	}
	if !tableName.MatchString(c.Table) {
		return errors.NotValidf("table name %q", c.Table)
	}
	return nil
}

/**
 * ParseDSN reads a keyword/value connection string such as
 * "host=localhost port=5432 user=postgres password=secret dbname=asl sslmode=disable".
 * Missing keywords keep their DefaultConfig value.
 */
func ParseDSN(dsn string) (*Config, error) {
	config := DefaultConfig()

	for _, field := range strings.Fields(dsn) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch key {
		case "host":
			config.Host = value
		case "port":
			port, err := strconv.Atoi(value)
			if err != nil {
				return nil, errors.NotValidf("port %q", value)
			}
			config.Port = port
		case "user":
			config.User = value
		case "password":
			config.Password = value
		case "dbname":
			config.Database = value
		case "sslmode":
			config.SSLMode = value
		}
	}
	return config, config.Validate()
}

type statements struct {
	create string
	get    string
	set    string
	remove string
	list   string
}

func newStatements(table string) statements {
	return statements{
		create: fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %[1]s (
				prefix VARCHAR(255) NOT NULL,
				key VARCHAR(255) NOT NULL,
				value BYTEA,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (prefix, key)
			);
			CREATE INDEX IF NOT EXISTS idx_%[1]s_prefix ON %[1]s(prefix);
		`, table),
		get: fmt.Sprintf(`SELECT value FROM %s WHERE prefix = $1 AND key = $2`, table),
		set: fmt.Sprintf(`
			INSERT INTO %s (prefix, key, value, updated_at)
			VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
			ON CONFLICT (prefix, key)
			DO UPDATE SET value = EXCLUDED.value, updated_at = CURRENT_TIMESTAMP
		`, table),
		remove: fmt.Sprintf(`DELETE FROM %s WHERE prefix = $1 AND key = $2`, table),
		list:   fmt.Sprintf(`SELECT key FROM %s WHERE prefix = $1 ORDER BY key`, table),
	}
}

// pgStore keeps token statuses in PostgreSQL so several hosts can share them
type pgStore struct {
	db  *sql.DB
	sql statements
}

// NewPostgresStore connects with config, DefaultConfig when nil, and creates the table.
func NewPostgresStore(config *Config) (store.Store, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}

	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, errors.Annotatef(err, "failed to open postgres connection")
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Annotatef(err, "failed to ping postgres %s:%d", config.Host, config.Port)
	}

	s := &pgStore{db: db, sql: newStatements(config.Table)}
	if err := s.initTable(ctx); err != nil {
		db.Close()
		return nil, errors.Trace(err)
	}
	return s, nil
}

// NewPostgresStoreWithDB uses an existing connection pool, the store closes it on Close.
func NewPostgresStoreWithDB(ctx context.Context, db *sql.DB, table string) (store.Store, error) {
	if db == nil {
		return nil, errors.NotValidf("nil db")
	}
	if table == "" {
		table = defaultTable
	}
	if !tableName.MatchString(table) {
		return nil, errors.NotValidf("table name %q", table)
	}

	s := &pgStore{db: db, sql: newStatements(table)}
	if err := s.initTable(ctx); err != nil {
		return nil, errors.Trace(err)
	}
	return s, nil
}

func (p *pgStore) initTable(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, p.sql.create); err != nil {
		return errors.Annotatef(err, "failed to create table")
	}
	return nil
}

func (p *pgStore) Get(ctx context.Context, prefix, key string) ([]byte, error) {
	var value []byte
	err := p.db.QueryRowContext(ctx, p.sql.get, prefix, key).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, errors.Annotatef(err, "failed to get value for prefix=%s, key=%s", prefix, key)
	}
	return value, nil
}

func (p *pgStore) Set(ctx context.Context, prefix, key string, value []byte) error {
	if _, err := p.db.ExecContext(ctx, p.sql.set, prefix, key, value); err != nil {
		return errors.Annotatef(err, "failed to set value for prefix=%s, key=%s", prefix, key)
	}
	return nil
}

func (p *pgStore) Remove(ctx context.Context, prefix, key string) error {
	if _, err := p.db.ExecContext(ctx, p.sql.remove, prefix, key); err != nil {
		return errors.Annotatef(err, "failed to remove value for prefix=%s, key=%s", prefix, key)
	}
	return nil
}

func (p *pgStore) List(ctx context.Context, prefix string, iterator func(key string) bool) error {
	rows, err := p.db.QueryContext(ctx, p.sql.list, prefix)
	if err != nil {
		return errors.Annotatef(err, "failed to list keys for prefix=%s", prefix)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return errors.Annotatef(err, "failed to scan key")
		}
		if !iterator(key) {
			break
		}
	}
	return errors.Trace(rows.Err())
}

func (p *pgStore) Close() error {
	return p.db.Close()
}
