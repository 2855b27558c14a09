package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/fairbatch/fairbatch/protocol"
)

// PostgresArchive implements ArchiveStore with PostgreSQL persistence.
type PostgresArchive struct {
	db *sql.DB
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// ConnectionString returns the PostgreSQL connection string.
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslMode)
}

// NewPostgresArchive creates a new PostgreSQL-backed archive.
func NewPostgresArchive(config *PostgresConfig) (*PostgresArchive, error) {
	db, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	store := &PostgresArchive{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return store, nil
}

func (s *PostgresArchive) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS batch_records (
		batch_id BIGINT PRIMARY KEY,
		base_asset VARCHAR(32) NOT NULL,
		quote_asset VARCHAR(32) NOT NULL,
		clearing_price VARCHAR(80),
		record JSONB NOT NULL,
		settled_at TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_batch_records_pair ON batch_records(base_asset, quote_asset);
	CREATE INDEX IF NOT EXISTS idx_batch_records_settled ON batch_records(settled_at);
	`

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveBatch persists a batch record, replacing any earlier version.
func (s *PostgresArchive) SaveBatch(record *protocol.BatchRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding batch record: %w", err)
	}

	var clearingPrice sql.NullString
	var settledAt sql.NullTime
	if record.Outcome != nil {
		clearingPrice = sql.NullString{String: record.Outcome.ClearingPrice.String(), Valid: true}
		settledAt = sql.NullTime{Time: record.Outcome.SettledAt, Valid: true}
	}

	query := `
	INSERT INTO batch_records
		(batch_id, base_asset, quote_asset, clearing_price, record, settled_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (batch_id) DO UPDATE SET
		clearing_price = EXCLUDED.clearing_price,
		record = EXCLUDED.record,
		settled_at = EXCLUDED.settled_at
	`

	_, err = s.db.ExecContext(ctx, query,
		int64(record.Batch),
		record.Pair.Base,
		record.Pair.Quote,
		clearingPrice,
		payload,
		settledAt,
	)
	return err
}

// LoadBatch retrieves a persisted batch record.
func (s *PostgresArchive) LoadBatch(batch protocol.BatchID) (*protocol.BatchRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var payload []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT record FROM batch_records WHERE batch_id = $1", int64(batch),
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, err
	}

	record := new(protocol.BatchRecord)
	if err := json.Unmarshal(payload, record); err != nil {
		return nil, fmt.Errorf("decoding batch record: %w", err)
	}
	return record, nil
}

// Close closes the database connection.
func (s *PostgresArchive) Close() error {
	return s.db.Close()
}
