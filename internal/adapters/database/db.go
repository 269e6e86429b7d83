package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/avolkhov/newspulse/internal/adapters/config"
	"github.com/avolkhov/newspulse/pkg/logger"
)

// DB wraps a sqlx database connection
type DB struct {
	conn *sqlx.DB
}

// New creates new PostgreSQL connection
func New(cfg *config.DatabaseConfig) (*DB, error) {
	conn, err := sqlx.Connect("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Name),
	)

	return &DB{conn: conn}, nil
}

// NewClickHouse opens a ClickHouse connection through sqlx, for the
// metrics sink
func NewClickHouse(dsn string) (*DB, error) {
	conn, err := sqlx.Open("clickhouse", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open clickhouse connection: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(10 * time.Minute)

	return &DB{conn: conn}, nil
}

// Close closes database connection
func (db *DB) Close() error {
	if db.conn != nil {
		logger.Info("closing database connection")
		return db.conn.Close()
	}
	return nil
}

// Conn returns underlying *sql.DB connection (used by migrations)
func (db *DB) Conn() *sql.DB {
	return db.conn.DB
}

// DB returns the sqlx handle
func (db *DB) DB() *sqlx.DB {
	return db.conn
}

// Ping checks if database is alive
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// BeginTxx starts a new sqlx transaction
func (db *DB) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return db.conn.BeginTxx(ctx, opts)
}

// Health checks database health
func (db *DB) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	return nil
}
