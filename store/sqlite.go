package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/pairtrade/market"
)

// SQLite backs every store contract with a single SQLite database, the
// same file the out-of-process collectors write into.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Prices(ctx context.Context, symbol string, from, to time.Time) ([]market.PricePoint, error) {
	q := `SELECT symbol, timestamp, last, bid, ask, volume FROM prices WHERE symbol = ?`
	args := []any{symbol}

	if !from.IsZero() {
		q += ` AND timestamp >= ?`
		args = append(args, from)
	}
	if !to.IsZero() {
		q += ` AND timestamp <= ?`
		args = append(args, to)
	}
	q += ` ORDER BY timestamp ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query prices: %w", err)
	}
	defer rows.Close()

	var points []market.PricePoint
	for rows.Next() {
		p, err := scanPrice(rows)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (s *SQLite) LatestPrice(ctx context.Context, symbol string) (market.PricePoint, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT symbol, timestamp, last, bid, ask, volume
		FROM prices WHERE symbol = ?
		ORDER BY timestamp DESC LIMIT 1`, symbol)

	p, err := scanPrice(row)
	if err == sql.ErrNoRows {
		return market.PricePoint{}, false, nil
	}
	if err != nil {
		return market.PricePoint{}, false, err
	}
	return p, true, nil
}

func (s *SQLite) Symbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM prices ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

func (s *SQLite) Candles(ctx context.Context, symbol, timeframe string, before time.Time, limit int) ([]market.Candle, error) {
	q := `SELECT symbol, timeframe, timestamp, open, high, low, close, volume
		FROM candles WHERE symbol = ? AND timeframe = ?`
	args := []any{symbol, timeframe}

	if !before.IsZero() {
		q += ` AND timestamp <= ?`
		args = append(args, before)
	}
	q += ` ORDER BY timestamp DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query candles: %w", err)
	}
	defer rows.Close()

	// Newest first from the query, reversed to oldest first.
	var desc []market.Candle
	for rows.Next() {
		var c market.Candle
		if err := rows.Scan(&c.Symbol, &c.Timeframe, &c.Time,
			&c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, err
		}
		desc = append(desc, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	asc := make([]market.Candle, len(desc))
	for i, c := range desc {
		asc[len(desc)-1-i] = c
	}
	return asc, nil
}

// InsertPrice records one price point. Duplicate (symbol, timestamp)
// rows are ignored, points are immutable once recorded.
func (s *SQLite) InsertPrice(ctx context.Context, p market.PricePoint) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO prices (symbol, timestamp, last, bid, ask, volume)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.Symbol, p.Time, p.Price, nullFloat(p.Bid), nullFloat(p.Ask), nullFloat(p.Volume),
	)
	return err
}

// InsertCandle records one candle, ignoring duplicates per
// (symbol, timeframe, timestamp).
func (s *SQLite) InsertCandle(ctx context.Context, c market.Candle) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO candles (symbol, timeframe, timestamp, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Symbol, c.Timeframe, c.Time, c.Open, c.High, c.Low, c.Close, c.Volume,
	)
	return err
}

func (s *SQLite) RecordTrade(ctx context.Context, rec TradeRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (order_id, symbol, side, price, amount, fee, strategy_id, session_id, paper, time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.OrderID, rec.Symbol, string(rec.Side), rec.Price, rec.Amount,
		rec.Fee, rec.StrategyID, rec.SessionID, rec.Paper, rec.Time,
	)
	return err
}

func (s *SQLite) RecordSignal(ctx context.Context, rec SignalRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signals (symbol, type, strength, price, reason, strategy_id, session_id, acted, time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Symbol, string(rec.Type), rec.Strength, rec.Price, rec.Reason,
		rec.StrategyID, rec.SessionID, rec.Acted, rec.Time,
	)
	return err
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPrice(row scanner) (market.PricePoint, error) {
	var (
		p                sql.NullFloat64
		bid, ask, volume sql.NullFloat64
		point            market.PricePoint
	)
	if err := row.Scan(&point.Symbol, &point.Time, &p, &bid, &ask, &volume); err != nil {
		return market.PricePoint{}, err
	}
	point.Price = p.Float64
	point.Bid = bid.Float64
	point.Ask = ask.Float64
	point.Volume = volume.Float64
	return point, nil
}

func nullFloat(v float64) any {
	if v == 0 {
		return nil
	}
	return v
}
