package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-sql-driver/mysql"
)

// DSN builds the MySQL DSN for the refresh-token store.
// parseTime=true maps DATETIME to time.Time and loc=UTC keeps times consistent.
func DSN(user, pass, host, port, name string) string {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = pass
	cfg.Net = "tcp"
	cfg.Addr = host + ":" + port
	cfg.DBName = name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(user, pass, host, port, name))
	if err != nil {
		return nil, err
	}

	// Pool settings; the backend only touches one small table.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

const refreshTokensDDL = `CREATE TABLE IF NOT EXISTS refresh_tokens (
	id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
	email       VARCHAR(255)    NOT NULL,
	session_id  CHAR(36)        NOT NULL,
	token_hash  CHAR(64)        NOT NULL,
	expires_at  DATETIME        NOT NULL,
	revoked_at  DATETIME        NULL,
	created_at  DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE KEY uq_refresh_token_hash (token_hash),
	KEY idx_refresh_email (email)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// Migrate creates the tables the backend owns.  Reservations, inventory
// and the maintenance schedule live behind the remote APIs.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, refreshTokensDDL)
	return err
}
