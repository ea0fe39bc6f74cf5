package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/achupradeep3050/crypto/internal/domain"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Store is the candle cache and order ledger. Queries are written with ?
// placeholders and rebound for the active driver.
type Store struct {
	db *sqlx.DB
}

func NewStore(driver, dsn string) (*Store, error) {
	if driver == "" {
		driver = DriverSQLite
	}
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// one writer at a time; avoids "database is locked" across engines
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func NewSQLiteStore(path string) (*Store, error) {
	return NewStore(DriverSQLite, path)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	realType, tsType, idType := "REAL", "DATETIME", "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.db.DriverName() == DriverPostgres {
		realType, tsType, idType = "DOUBLE PRECISION", "TIMESTAMPTZ", "BIGSERIAL PRIMARY KEY"
	}

	queries := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS candles (
			symbol TEXT NOT NULL,
			timeframe TEXT NOT NULL,
			time BIGINT NOT NULL,
			open %[1]s NOT NULL,
			high %[1]s NOT NULL,
			low %[1]s NOT NULL,
			close %[1]s NOT NULL,
			volume %[1]s NOT NULL DEFAULT 0,
			PRIMARY KEY (symbol, timeframe, time)
		);`, realType),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS trade_logs (
			id %s,
			symbol TEXT NOT NULL,
			strategy TEXT NOT NULL,
			action TEXT NOT NULL,
			price %s NOT NULL,
			volume %s NOT NULL,
			timestamp %s NOT NULL,
			result TEXT NOT NULL
		);`, idType, realType, realType, tsType),
		`CREATE INDEX IF NOT EXISTS idx_trade_logs_symbol ON trade_logs(symbol);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}
	return nil
}

// CandleRepository Implementation

func (s *Store) GetRange(ctx context.Context, symbol, timeframe string, start, end int64) ([]domain.Candle, error) {
	query := s.db.Rebind(`SELECT time, open, high, low, close, volume FROM candles
		WHERE symbol = ? AND timeframe = ? AND time >= ? AND time <= ?
		ORDER BY time ASC`)
	candles := []domain.Candle{}
	if err := s.db.SelectContext(ctx, &candles, query, symbol, timeframe, start, end); err != nil {
		return nil, err
	}
	return candles, nil
}

// Latest returns the newest limit candles of a series, oldest first.
func (s *Store) Latest(ctx context.Context, symbol, timeframe string, limit int) ([]domain.Candle, error) {
	query := s.db.Rebind(`SELECT time, open, high, low, close, volume FROM candles
		WHERE symbol = ? AND timeframe = ?
		ORDER BY time DESC LIMIT ?`)
	candles := []domain.Candle{}
	if err := s.db.SelectContext(ctx, &candles, query, symbol, timeframe, limit); err != nil {
		return nil, err
	}
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
	return candles, nil
}

func (s *Store) SaveCandles(ctx context.Context, symbol, timeframe string, candles []domain.Candle) (int, error) {
	if len(candles) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`INSERT INTO candles (symbol, timeframe, time, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol, timeframe, time) DO NOTHING`))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, c := range candles {
		res, err := stmt.ExecContext(ctx, symbol, timeframe, c.Time, c.Open, c.High, c.Low, c.Close, c.Volume)
		if err != nil {
			return 0, fmt.Errorf("insert candle %s %s %d: %w", symbol, timeframe, c.Time, err)
		}
		n, err := res.RowsAffected()
		if err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

func (s *Store) CountBySeries(ctx context.Context) ([]domain.SeriesCount, error) {
	counts := []domain.SeriesCount{}
	err := s.db.SelectContext(ctx, &counts, `SELECT symbol, timeframe, COUNT(*) AS count FROM candles
		GROUP BY symbol, timeframe ORDER BY symbol, timeframe`)
	return counts, err
}

// TradeRepository Implementation

func (s *Store) SaveTradeLog(ctx context.Context, l *domain.TradeLog) error {
	if l.Timestamp.IsZero() {
		l.Timestamp = time.Now()
	}
	query := s.db.Rebind(`INSERT INTO trade_logs (symbol, strategy, action, price, volume, timestamp, result)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	return s.db.GetContext(ctx, &l.ID, query,
		l.Symbol, l.Strategy, l.Action, l.Price, l.Volume, l.Timestamp.UTC(), l.Result)
}

func (s *Store) ListTradeLogs(ctx context.Context, limit int) ([]*domain.TradeLog, error) {
	query := s.db.Rebind(`SELECT id, symbol, strategy, action, price, volume, timestamp, result
		FROM trade_logs ORDER BY id DESC LIMIT ?`)
	logs := []*domain.TradeLog{}
	if err := s.db.SelectContext(ctx, &logs, query, limit); err != nil {
		return nil, err
	}
	return logs, nil
}
