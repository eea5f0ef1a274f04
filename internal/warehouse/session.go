package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	_ "github.com/snowflakedb/gosnowflake"

	"canvasetl/pkg/errors"
)

// Executor is the query-execution boundary. The warehouse owns all real
// computation; callers hand it SQL text plus bind parameters and get back
// rows or an affected-row count.
type Executor interface {
	Exec(ctx context.Context, query string, args ...interface{}) (int64, error)
	Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryCount(ctx context.Context, query string, args ...interface{}) (int64, error)
	Ping(ctx context.Context) error
}

// Config holds Snowflake connection configuration
type Config struct {
	Account       string
	Username      string
	Password      string
	Role          string
	Warehouse     string
	Database      string
	SchemaRaw     string
	SchemaCurated string
	// TokenPath is checked for an OAuth token before falling back to
	// password auth. Inside Snowpark Container Services the platform
	// mounts the token at /snowflake/session/token.
	TokenPath string
	Timeout   time.Duration
}

// Validate checks that the configuration can produce a connection
func (c Config) Validate() error {
	if c.Account == "" {
		return errors.ConfigError("account is required", "account")
	}
	if c.Username == "" {
		return errors.ConfigError("username is required", "username")
	}
	if c.Password == "" && !tokenFileExists(c.TokenPath) {
		return errors.ConfigError("password or token file is required", "password")
	}
	if c.Warehouse == "" {
		return errors.ConfigError("warehouse is required", "warehouse")
	}
	if c.Database == "" {
		return errors.ConfigError("database is required", "database")
	}
	return nil
}

// Session implements Executor over database/sql with the gosnowflake
// driver. One Session is safe for concurrent use; pooling is handled by
// database/sql.
type Session struct {
	db      *sql.DB
	timeout time.Duration
}

// Open validates the configuration, opens the connection pool and verifies
// connectivity with retry/backoff.
func Open(ctx context.Context, cfg Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, errors.ConnectionError("Failed to open Snowflake connection", err).
			WithContext("account", cfg.Account).
			WithContext("warehouse", cfg.Warehouse)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(10 * time.Minute)

	s := &Session{db: db, timeout: cfg.Timeout}

	err = errors.RetryWithBackoff(ctx, func(ctx context.Context) error {
		pingCtx, cancel := s.opContext(ctx)
		defer cancel()

		if err := db.PingContext(pingCtx); err != nil {
			if strings.Contains(err.Error(), "authentication") {
				return errors.New(errors.ErrCodeAuthenticationFailed, "Authentication failed").
					WithContext("user", cfg.Username)
			}
			return errors.ConnectionError("Failed to connect to Snowflake", err).
				WithContext("account", cfg.Account)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// NewSessionFromDB wraps an existing database handle. Used by tests.
func NewSessionFromDB(db *sql.DB, timeout time.Duration) *Session {
	return &Session{db: db, timeout: timeout}
}

// Close releases the connection pool
func (s *Session) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

// Exec runs a DML/DDL statement and returns the affected-row count
func (s *Session) Exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	res, err := s.db.ExecContext(opCtx, query, args...)
	if err != nil {
		return 0, errors.SQLError("Failed to execute statement", query, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		// DDL statements do not report a count.
		return 0, nil
	}
	return n, nil
}

// Query runs a query and returns its rows
func (s *Session) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(opCtx, query, args...)
	if err != nil {
		return nil, errors.SQLError("Failed to execute query", query, err)
	}
	return rows, nil
}

// QueryCount runs a single-value query (COUNT and friends) and returns the
// value of the first column of the first row.
func (s *Session) QueryCount(ctx context.Context, query string, args ...interface{}) (int64, error) {
	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	var n int64
	if err := s.db.QueryRowContext(opCtx, query, args...).Scan(&n); err != nil {
		if err == sql.ErrNoRows {
			return 0, errors.New(errors.ErrCodeNoResults, "Query returned no rows").
				WithContext("query", query)
		}
		return 0, errors.SQLError("Failed to execute count query", query, err)
	}
	return n, nil
}

// Ping verifies warehouse connectivity
func (s *Session) Ping(ctx context.Context) error {
	opCtx, cancel := s.opContext(ctx)
	defer cancel()
	return s.db.PingContext(opCtx)
}

func (s *Session) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

// buildDSN assembles a gosnowflake DSN. When an OAuth token file is
// present it wins over password auth.
func buildDSN(cfg Config) (string, error) {
	params := url.Values{}
	params.Set("warehouse", cfg.Warehouse)
	if cfg.Role != "" {
		params.Set("role", cfg.Role)
	}

	schema := cfg.SchemaRaw
	if schema == "" {
		schema = "RAW"
	}

	if token, ok := readTokenFile(cfg.TokenPath); ok {
		params.Set("authenticator", "oauth")
		params.Set("token", token)
		return fmt.Sprintf("%s@%s/%s/%s?%s",
			url.QueryEscape(cfg.Username),
			cfg.Account,
			cfg.Database,
			schema,
			params.Encode(),
		), nil
	}

	if cfg.Password == "" {
		return "", errors.ConfigError("no password and no readable token file", "password")
	}

	return fmt.Sprintf("%s:%s@%s/%s/%s?%s",
		url.QueryEscape(cfg.Username),
		url.QueryEscape(cfg.Password),
		cfg.Account,
		cfg.Database,
		schema,
		params.Encode(),
	), nil
}

func tokenFileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func readTokenFile(path string) (string, bool) {
	if !tokenFileExists(path) {
		return "", false
	}
	data, err := os.ReadFile(path) // #nosec G304 - path comes from service configuration
	if err != nil {
		return "", false
	}
	token := strings.TrimSpace(string(data))
	return token, token != ""
}
