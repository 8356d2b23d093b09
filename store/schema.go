package store

const Schema = `
CREATE TABLE IF NOT EXISTS prices (
	symbol TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	last REAL NOT NULL,
	bid REAL,
	ask REAL,
	volume REAL,
	UNIQUE(symbol, timestamp)
);

CREATE TABLE IF NOT EXISTS candles (
	symbol TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	open REAL NOT NULL,
	high REAL NOT NULL,
	low REAL NOT NULL,
	close REAL NOT NULL,
	volume REAL NOT NULL,
	UNIQUE(symbol, timeframe, timestamp)
);

CREATE TABLE IF NOT EXISTS trades (
	order_id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	price REAL NOT NULL,
	amount REAL NOT NULL,
	fee REAL NOT NULL,
	strategy_id TEXT NOT NULL,
	session_id TEXT,
	paper INTEGER NOT NULL DEFAULT 1,
	time DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS signals (
	symbol TEXT NOT NULL,
	type TEXT NOT NULL,
	strength REAL NOT NULL,
	price REAL NOT NULL,
	reason TEXT NOT NULL,
	strategy_id TEXT NOT NULL,
	session_id TEXT,
	acted INTEGER NOT NULL DEFAULT 0,
	time DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_prices_symbol_time ON prices(symbol, timestamp);
CREATE INDEX IF NOT EXISTS idx_candles_lookup ON candles(symbol, timeframe, timestamp);
CREATE INDEX IF NOT EXISTS idx_trades_session ON trades(session_id);
CREATE INDEX IF NOT EXISTS idx_signals_session ON signals(session_id);
`
