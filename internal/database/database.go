package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"adjust-consumer/internal/config"
	"adjust-consumer/internal/logger"
	"adjust-consumer/internal/metrics"
	"adjust-consumer/internal/models"

	_ "github.com/denisenkom/go-mssqldb"
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned when a delivery record does not exist
var ErrNotFound = errors.New("delivery not found")

// DB is the delivery ledger. It makes forwarding idempotent per message ID.
type DB struct {
	conn *sql.DB
}

// New creates a new database connection
func New(cfg *config.MSSQLConfig) (*DB, error) {
	conn, err := sql.Open("sqlserver", cfg.GetConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	logger.Log.Info("Successfully connected to MS SQL database")

	return NewWithConn(conn), nil
}

// NewWithConn wraps an already opened connection pool
func NewWithConn(conn *sql.DB) *DB {
	return &DB{conn: conn}
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// EnsureSchema creates the deliveries table when missing
func (db *DB) EnsureSchema(ctx context.Context) error {
	query := `
		IF OBJECT_ID(N'deliveries', N'U') IS NULL
		CREATE TABLE deliveries (
			message_id   NVARCHAR(64)  NOT NULL PRIMARY KEY,
			kind         NVARCHAR(32)  NOT NULL,
			name         NVARCHAR(256) NULL,
			consumers    NVARCHAR(512) NOT NULL,
			forwarded_at DATETIME2     NOT NULL
		);
	`

	if _, err := db.conn.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create deliveries table: %w", err)
	}
	return nil
}

// RecordDelivery inserts d unless its message ID is already known. It reports
// whether the row was new, so duplicates can be skipped.
func (db *DB) RecordDelivery(ctx context.Context, d models.Delivery) (bool, error) {
	start := time.Now()
	defer func() {
		metrics.DBLatency.WithLabelValues("record_delivery").Observe(time.Since(start).Seconds())
	}()

	query := `
		INSERT INTO deliveries (message_id, kind, name, consumers, forwarded_at)
		SELECT @p1, @p2, @p3, @p4, @p5
		WHERE NOT EXISTS (SELECT 1 FROM deliveries WITH (UPDLOCK, HOLDLOCK) WHERE message_id = @p1);
	`

	res, err := db.conn.ExecContext(ctx, query,
		d.MessageID,
		string(d.Kind),
		d.Name,
		d.Consumers,
		d.ForwardedAt,
	)
	if err != nil {
		logger.WithMessageID(d.MessageID).WithFields(logrus.Fields{
			"kind":  d.Kind,
			"error": err.Error(),
		}).Error("Failed to record delivery")
		return false, fmt.Errorf("failed to record delivery: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return n == 1, nil
}

// GetDelivery returns the delivery record for messageID
func (db *DB) GetDelivery(ctx context.Context, messageID string) (*models.Delivery, error) {
	start := time.Now()
	defer func() {
		metrics.DBLatency.WithLabelValues("get_delivery").Observe(time.Since(start).Seconds())
	}()

	query := `
		SELECT message_id, kind, name, consumers, forwarded_at
		FROM deliveries
		WHERE message_id = @p1
	`

	var d models.Delivery
	var kind string
	var name sql.NullString

	err := db.conn.QueryRowContext(ctx, query, messageID).Scan(
		&d.MessageID,
		&kind,
		&name,
		&d.Consumers,
		&d.ForwardedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery: %w", err)
	}

	d.Kind = models.MessageKind(kind)
	d.Name = name.String
	return &d, nil
}
