package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// DB wraps the database connection and provides health checks
type DB struct {
	conn *sqlx.DB

	// Cache for frequently accessed configuration
	providerCache *LRUCache
	ruleCache     *LRUCache

	encryption *Encryption
}

// DBConfig holds database configuration
type DBConfig struct {
	DSN string

	// Pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Cache settings
	ProviderCacheSize int
	ProviderCacheTTL  time.Duration
	RuleCacheSize     int
	RuleCacheTTL      time.Duration

	// Base64-encoded AES key for provider credentials. Empty disables
	// decryption; providers with encrypted credentials become unusable.
	EncryptionKey string
}

// DefaultDBConfig returns default database configuration
func DefaultDBConfig() DBConfig {
	return DBConfig{
		DSN: "postgres://postgres@localhost:5432/media_gateway?sslmode=disable",

		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,

		ProviderCacheSize: 200,
		ProviderCacheTTL:  5 * time.Minute,
		RuleCacheSize:     500,
		RuleCacheTTL:      5 * time.Minute,
	}
}

// NewDB creates a new database connection with caching
func NewDB(cfg DBConfig) (*DB, error) {
	conn, err := sqlx.Connect("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	conn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	db := &DB{
		conn:          conn,
		providerCache: NewLRUCache(cfg.ProviderCacheSize, cfg.ProviderCacheTTL),
		ruleCache:     NewLRUCache(cfg.RuleCacheSize, cfg.RuleCacheTTL),
	}

	if cfg.EncryptionKey != "" {
		enc, err := NewEncryptionFromBase64(cfg.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("invalid credential encryption key: %w", err)
		}
		db.encryption = enc
	}

	return db, nil
}

// Close closes the database connection and clears caches
func (db *DB) Close() error {
	db.providerCache.Clear()
	db.ruleCache.Clear()
	return db.conn.Close()
}

// Ping checks if the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Health returns the health status of the database
func (db *DB) Health(ctx context.Context) error {
	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	var result int
	if err := db.conn.GetContext(ctx, &result, "SELECT 1"); err != nil {
		return fmt.Errorf("health check query failed: %w", err)
	}

	return nil
}

// BeginTx starts a new transaction
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return db.conn.BeginTxx(ctx, opts)
}

// Conn returns the underlying sqlx connection
// Use this for custom queries not covered by repositories
func (db *DB) Conn() *sqlx.DB {
	return db.conn
}

// InvalidateConfigCaches drops cached providers and mapping rules. Called
// when an operator edits configuration (directly or via the Redis
// invalidation channel).
func (db *DB) InvalidateConfigCaches() {
	db.providerCache.Clear()
	db.ruleCache.Clear()
}

// CleanupExpiredCacheEntries removes expired entries from all caches
// Should be called periodically (e.g., every minute)
func (db *DB) CleanupExpiredCacheEntries() (providersRemoved, rulesRemoved int) {
	providersRemoved = db.providerCache.CleanupExpired()
	rulesRemoved = db.ruleCache.CleanupExpired()
	return
}

// Repository factory methods

// NewProviderRepository creates a new provider repository
func (db *DB) NewProviderRepository() *ProviderRepository {
	return NewProviderRepository(db)
}

// NewMappingRuleRepository creates a new mapping rule repository
func (db *DB) NewMappingRuleRepository() *MappingRuleRepository {
	return NewMappingRuleRepository(db)
}

// NewTaskRepository creates a new generation task repository
func (db *DB) NewTaskRepository() *TaskRepository {
	return NewTaskRepository(db)
}

// NewLedgerRepository creates a new credit ledger repository
func (db *DB) NewLedgerRepository() *LedgerRepository {
	return NewLedgerRepository(db)
}

// NewCallRecordRepository creates a new call record repository
func (db *DB) NewCallRecordRepository() *CallRecordRepository {
	return NewCallRecordRepository(db)
}
