package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"go-ndr-export-dashboard/internal/config"
)

// lastRunDateProperty is the host global property holding the timestamp of
// the last successful NDR run. It seeds the read-only upper bound of the
// export date range.
const lastRunDateProperty = "ndr_last_run_date"

// Store wraps read-only access to the host EMR MySQL database. The dashboard
// never writes here; it only reads global properties and health counters.
type Store struct {
	db           *sql.DB
	queryTimeout time.Duration
	dbName       string
}

// NewStore creates a MySQL-backed settings store.
func NewStore(cfg config.Config) (*Store, error) {
	db, err := sql.Open("mysql", cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}

	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DBConnTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:           db,
		queryTimeout: cfg.DBQueryTimeout,
		dbName:       cfg.DBName,
	}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// LastRunDate reads the ndr_last_run_date global property. A missing or empty
// property returns "", nil so the caller can fall back to its configured
// default.
func (s *Store) LastRunDate(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var value sql.NullString
	err := s.db.QueryRowContext(ctx, `
SELECT property_value
FROM global_property
WHERE property = ?;
`, lastRunDateProperty).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if !value.Valid {
		return "", nil
	}
	return strings.TrimSpace(value.String), nil
}

// ServiceStats contains lightweight DB health counters for the status panel.
type ServiceStats struct {
	PingMS          int64  `json:"ping_ms"`
	UptimeSeconds   int64  `json:"uptime_seconds"`
	GlobalProps     int64  `json:"global_properties_total"`
	LastRunDate     string `json:"last_run_date,omitempty"`
	LastRunDateSeen bool   `json:"last_run_date_present"`
}

// ServiceStats returns MySQL reachability and the current last-run property.
func (s *Store) ServiceStats(ctx context.Context) (*ServiceStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	start := time.Now()
	if err := s.db.PingContext(ctx); err != nil {
		return nil, err
	}

	out := &ServiceStats{
		PingMS: time.Since(start).Milliseconds(),
	}

	var statusName string
	var statusValue sql.NullString
	if err := s.db.QueryRowContext(ctx, `SHOW GLOBAL STATUS LIKE 'Uptime';`).Scan(&statusName, &statusValue); err == nil && statusValue.Valid {
		if v, err := time.ParseDuration(statusValue.String + "s"); err == nil {
			out.UptimeSeconds = int64(v.Seconds())
		}
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM global_property;`).Scan(&out.GlobalProps); err != nil {
		return nil, err
	}

	if lastRun, err := s.LastRunDate(ctx); err == nil && lastRun != "" {
		out.LastRunDate = lastRun
		out.LastRunDateSeen = true
	}

	return out, nil
}
