package warehouse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvasetl/pkg/errors"
)

func validConfig() Config {
	return Config{
		Account:   "test123.us-east-1",
		Username:  "etl_user",
		Password:  "secret",
		Role:      "ETL_ROLE",
		Warehouse: "DEMO_TRANSFORM_WH",
		Database:  "DEMO_CANVAS_DB",
		SchemaRaw: "RAW",
		Timeout:   5 * time.Second,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing account", func(c *Config) { c.Account = "" }, "account"},
		{"missing username", func(c *Config) { c.Username = "" }, "username"},
		{"missing password", func(c *Config) { c.Password = "" }, "password"},
		{"missing warehouse", func(c *Config) { c.Warehouse = "" }, "warehouse"},
		{"missing database", func(c *Config) { c.Database = "" }, "database"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetErrorCode(err))
		})
	}

	assert.NoError(t, validConfig().Validate())
}

func TestConfigValidateAcceptsTokenInsteadOfPassword(t *testing.T) {
	tokenPath := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(tokenPath, []byte("tok-123"), 0600))

	cfg := validConfig()
	cfg.Password = ""
	cfg.TokenPath = tokenPath

	assert.NoError(t, cfg.Validate())
}

func TestBuildDSNPasswordAuth(t *testing.T) {
	dsn, err := buildDSN(validConfig())
	require.NoError(t, err)

	assert.Contains(t, dsn, "etl_user:secret@test123.us-east-1/DEMO_CANVAS_DB/RAW")
	assert.Contains(t, dsn, "warehouse=DEMO_TRANSFORM_WH")
	assert.Contains(t, dsn, "role=ETL_ROLE")
	assert.NotContains(t, dsn, "authenticator")
}

func TestBuildDSNOAuthTokenWins(t *testing.T) {
	tokenPath := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(tokenPath, []byte("tok-123\n"), 0600))

	cfg := validConfig()
	cfg.TokenPath = tokenPath

	dsn, err := buildDSN(cfg)
	require.NoError(t, err)

	assert.Contains(t, dsn, "authenticator=oauth")
	assert.Contains(t, dsn, "token=tok-123")
	assert.NotContains(t, dsn, "secret")
}

func TestBuildDSNEmptyTokenFileFallsBack(t *testing.T) {
	tokenPath := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(tokenPath, []byte("  \n"), 0600))

	cfg := validConfig()
	cfg.TokenPath = tokenPath

	dsn, err := buildDSN(cfg)
	require.NoError(t, err)
	assert.Contains(t, dsn, "etl_user:secret@")
}

func TestSessionExecReturnsAffectedRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewSessionFromDB(db, 5*time.Second)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE T SET processing_status = ?")).
		WithArgs("PROCESSED").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := s.Exec(context.Background(), "UPDATE T SET processing_status = ?", "PROCESSED")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionExecWrapsFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewSessionFromDB(db, 5*time.Second)

	mock.ExpectExec("MERGE INTO").WillReturnError(fmt.Errorf("lock conflict"))

	_, err = s.Exec(context.Background(), "MERGE INTO T USING S ON 1=1")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSQLExecution, errors.GetErrorCode(err))
}

func TestSessionQueryCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewSessionFromDB(db, 5*time.Second)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM T WHERE processing_status = ?")).
		WithArgs("PENDING").
		WillReturnRows(sqlmock.NewRows([]string{"CNT"}).AddRow(7))

	n, err := s.QueryCount(context.Background(), "SELECT COUNT(*) FROM T WHERE processing_status = ?", "PENDING")
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)
}
