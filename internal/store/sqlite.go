// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"nifty-trader/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Candles table for historical OHLCV data
	CREATE TABLE IF NOT EXISTS candles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, timeframe, timestamp)
	);

	-- Paper trades table holds the full ledger history
	CREATE TABLE IF NOT EXISTS paper_trades (
		id TEXT PRIMARY KEY,
		seq INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		entry_price REAL NOT NULL,
		stop_loss REAL NOT NULL,
		target REAL NOT NULL,
		entry_time DATETIME NOT NULL,
		exit_price REAL,
		exit_time DATETIME,
		pnl REAL,
		status TEXT NOT NULL,
		signal_strength REAL NOT NULL,
		snapshot TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Ledger metadata, single row
	CREATE TABLE IF NOT EXISTS ledger_meta (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		initial_capital REAL NOT NULL,
		capital REAL NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Trader audit log
	CREATE TABLE IF NOT EXISTS trader_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		kind TEXT NOT NULL,
		symbol TEXT,
		message TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Indexes for common queries
	CREATE INDEX IF NOT EXISTS idx_candles_lookup ON candles(symbol, timeframe, timestamp);
	CREATE INDEX IF NOT EXISTS idx_paper_trades_status ON paper_trades(status);
	CREATE INDEX IF NOT EXISTS idx_paper_trades_symbol ON paper_trades(symbol);
	CREATE INDEX IF NOT EXISTS idx_trader_events_kind ON trader_events(kind, timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Candles Methods
// ============================================================================

// SaveCandles saves candles to the database.
func (s *SQLiteStore) SaveCandles(ctx context.Context, symbol, timeframe string, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO candles (symbol, timeframe, timestamp, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		_, err := stmt.ExecContext(ctx, symbol, timeframe, c.Timestamp, c.Open, c.High, c.Low, c.Close, c.Volume)
		if err != nil {
			return fmt.Errorf("failed to insert candle: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetCandles retrieves candles from the database.
func (s *SQLiteStore) GetCandles(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]models.Candle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, open, high, low, close, volume
		FROM candles
		WHERE symbol = ? AND timeframe = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC
	`, symbol, timeframe, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query candles: %w", err)
	}
	defer rows.Close()

	var candles []models.Candle
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}
		candles = append(candles, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candles: %w", err)
	}

	return candles, nil
}

// GetCandlesFreshness returns the timestamp of the most recent candle.
func (s *SQLiteStore) GetCandlesFreshness(ctx context.Context, symbol, timeframe string) (time.Time, error) {
	var timestamp sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(timestamp) FROM candles WHERE symbol = ? AND timeframe = ?
	`, symbol, timeframe).Scan(&timestamp)
	if err != nil && err != sql.ErrNoRows {
		return time.Time{}, fmt.Errorf("failed to get candles freshness: %w", err)
	}
	if !timestamp.Valid {
		return time.Time{}, nil
	}
	return timestamp.Time, nil
}

// ============================================================================
// Ledger Methods
// ============================================================================

// Load reconstructs the saved ledger state. Returns nil when no ledger
// has been saved yet.
func (s *SQLiteStore) Load() (*models.LedgerState, error) {
	var state models.LedgerState
	err := s.db.QueryRow(`
		SELECT initial_capital, capital FROM ledger_meta WHERE id = 1
	`).Scan(&state.InitialCapital, &state.Capital)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger meta: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT id, symbol, side, quantity, entry_price, stop_loss, target, entry_time,
			exit_price, exit_time, pnl, status, signal_strength, snapshot
		FROM paper_trades
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query paper trades: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t models.PaperTrade
		var exitPrice, pnl sql.NullFloat64
		var exitTime sql.NullTime
		var snapshotJSON sql.NullString

		if err := rows.Scan(&t.ID, &t.Symbol, &t.Side, &t.Quantity, &t.EntryPrice, &t.StopLoss,
			&t.Target, &t.EntryTime, &exitPrice, &exitTime, &pnl, &t.Status,
			&t.SignalStrength, &snapshotJSON); err != nil {
			return nil, fmt.Errorf("failed to scan paper trade: %w", err)
		}

		if exitPrice.Valid {
			t.ExitPrice = &exitPrice.Float64
		}
		if exitTime.Valid {
			t.ExitTime = &exitTime.Time
		}
		if pnl.Valid {
			t.PnL = &pnl.Float64
		}
		if snapshotJSON.Valid && snapshotJSON.String != "" {
			if err := json.Unmarshal([]byte(snapshotJSON.String), &t.Snapshot); err != nil {
				return nil, fmt.Errorf("failed to decode snapshot for %s: %w", t.ID, err)
			}
		}
		state.Trades = append(state.Trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating paper trades: %w", err)
	}

	return &state, nil
}

// Save replaces the stored ledger state with the given one. The write
// is transactional so a crash never leaves a partial ledger behind.
func (s *SQLiteStore) Save(state *models.LedgerState) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO ledger_meta (id, initial_capital, capital, updated_at)
		VALUES (1, ?, ?, CURRENT_TIMESTAMP)
	`, state.InitialCapital, state.Capital)
	if err != nil {
		return fmt.Errorf("failed to save ledger meta: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM paper_trades`); err != nil {
		return fmt.Errorf("failed to clear paper trades: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO paper_trades (id, seq, symbol, side, quantity, entry_price, stop_loss,
			target, entry_time, exit_price, exit_time, pnl, status, signal_strength, snapshot)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, t := range state.Trades {
		snapshotJSON, err := json.Marshal(t.Snapshot)
		if err != nil {
			return fmt.Errorf("failed to encode snapshot for %s: %w", t.ID, err)
		}

		var exitPrice, pnl interface{}
		var exitTime interface{}
		if t.ExitPrice != nil {
			exitPrice = *t.ExitPrice
		}
		if t.ExitTime != nil {
			exitTime = *t.ExitTime
		}
		if t.PnL != nil {
			pnl = *t.PnL
		}

		_, err = stmt.Exec(t.ID, i, t.Symbol, t.Side, t.Quantity, t.EntryPrice, t.StopLoss,
			t.Target, t.EntryTime, exitPrice, exitTime, pnl, t.Status, t.SignalStrength,
			string(snapshotJSON))
		if err != nil {
			return fmt.Errorf("failed to insert paper trade %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ============================================================================
// Trader Events Methods
// ============================================================================

// LogEvent appends an event to the trader audit log.
func (s *SQLiteStore) LogEvent(ctx context.Context, event TraderEvent) error {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trader_events (timestamp, kind, symbol, message)
		VALUES (?, ?, ?, ?)
	`, ts, event.Kind, event.Symbol, event.Message)
	if err != nil {
		return fmt.Errorf("failed to log event: %w", err)
	}
	return nil
}

// GetEvents retrieves trader events, most recent first.
func (s *SQLiteStore) GetEvents(ctx context.Context, filter EventFilter) ([]TraderEvent, error) {
	query := "SELECT id, timestamp, kind, symbol, message FROM trader_events WHERE 1=1"
	args := []interface{}{}

	if filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, filter.Kind)
	}
	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if !filter.StartDate.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, filter.EndDate)
	}

	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []TraderEvent
	for rows.Next() {
		var e TraderEvent
		var symbol, message sql.NullString
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Kind, &symbol, &message); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Symbol = symbol.String
		e.Message = message.String
		events = append(events, e)
	}

	return events, rows.Err()
}

var _ DataStore = (*SQLiteStore)(nil)
