package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tradetracker/internal/domain"
	"tradetracker/internal/ports"

	"github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/shopspring/decimal"
)

// Repository implements the ports.TradeRepository and ports.AccountRepository interfaces using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/trades.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, fmt.Errorf("%w: %v", ports.ErrDBConnection, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, fmt.Errorf("%w: %v", ports.ErrDBConnection, err)
	}

	// A single connection serializes writers; SQLite locks the whole file anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Debug(context.Background(), "Database schema initialized/verified")

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
// Money columns are TEXT so decimals round-trip exactly.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		broker TEXT NOT NULL,
		account_number TEXT NOT NULL UNIQUE,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		asset_kind TEXT NOT NULL,
		action TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		price TEXT NOT NULL,
		commission TEXT NOT NULL,
		trade_time TIMESTAMP NOT NULL,
		account_id INTEGER NULL REFERENCES accounts(id),
		strategy TEXT NOT NULL DEFAULT 'untagged',
		notes TEXT NOT NULL DEFAULT '',
		strike TEXT NULL,
		expiry TIMESTAMP NULL,
		option_right TEXT NULL,
		multiplier INTEGER NULL
	);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol_time ON trades (symbol, trade_time);
	CREATE INDEX IF NOT EXISTS idx_trades_account ON trades (account_id);
	CREATE INDEX IF NOT EXISTS idx_trades_time ON trades (trade_time);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Debug(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// --- AccountRepository Implementation ---

// CreateAccount saves a new account and returns its assigned ID.
func (r *Repository) CreateAccount(ctx context.Context, account *domain.Account) (int64, error) {
	const query = `
	INSERT INTO accounts (name, broker, account_number, is_active, created_at)
	VALUES (?, ?, ?, ?, ?)`

	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	result, err := r.db.ExecContext(ctx, query,
		account.Name, string(account.Broker), account.AccountNumber, account.IsActive, account.CreatedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert account %q: %w", account.Name, classify(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for account %q: %w", account.Name, err)
	}
	account.ID = id
	r.logger.Debug(ctx, "Account created", map[string]interface{}{"accountID": id, "broker": account.Broker})
	return id, nil
}

// FindAccountByID retrieves an account by its unique ID.
func (r *Repository) FindAccountByID(ctx context.Context, id int64) (*domain.Account, error) {
	const query = `
	SELECT id, name, broker, account_number, is_active, created_at
	FROM accounts
	WHERE id = ?`

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Debug(ctx, "Account not found by ID", map[string]interface{}{"accountID": id})
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("failed to query account by ID %d: %w", id, err)
	}
	return a, nil
}

// FindAccounts retrieves all accounts ordered by name.
func (r *Repository) FindAccounts(ctx context.Context) ([]*domain.Account, error) {
	const query = `
	SELECT id, name, broker, account_number, is_active, created_at
	FROM accounts
	ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*domain.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account during FindAccounts: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}
	return accounts, nil
}

// --- TradeRepository Implementation ---

const tradeColumns = `id, symbol, asset_kind, action, quantity, price, commission, trade_time,
	       account_id, strategy, notes, strike, expiry, option_right, multiplier`

// CreateTrade saves a new trade record and returns its assigned ID.
func (r *Repository) CreateTrade(ctx context.Context, trade *domain.Trade) (int64, error) {
	const query = `
	INSERT INTO trades (symbol, asset_kind, action, quantity, price, commission, trade_time,
	                    account_id, strategy, notes, strike, expiry, option_right, multiplier)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var accountID sql.NullInt64
	if trade.AccountID != 0 {
		accountID = sql.NullInt64{Int64: trade.AccountID, Valid: true}
	}
	var (
		strike     decimal.NullDecimal
		expiry     sql.NullTime
		right      sql.NullString
		multiplier sql.NullInt64
	)
	if o := trade.Option; o != nil {
		strike = decimal.NewNullDecimal(o.Strike)
		expiry = sql.NullTime{Time: o.Expiry.UTC(), Valid: true}
		right = sql.NullString{String: string(o.Right), Valid: true}
		multiplier = sql.NullInt64{Int64: o.Multiplier, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query,
		trade.Symbol, string(trade.AssetKind), string(trade.Action), trade.Quantity, trade.Price, trade.Commission,
		trade.Timestamp.UTC(), accountID, string(trade.Strategy), trade.Notes, strike, expiry, right, multiplier)
	if err != nil {
		return 0, fmt.Errorf("failed to insert trade for symbol %s: %w", trade.Symbol, classify(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for trade %s: %w", trade.Symbol, err)
	}
	trade.ID = id // Update domain object
	r.logger.Debug(ctx, "Trade created", map[string]interface{}{"tradeID": id, "symbol": trade.Symbol, "action": trade.Action})
	return id, nil
}

// FindTradeByID retrieves a trade by its unique ID.
func (r *Repository) FindTradeByID(ctx context.Context, id int64) (*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE id = ?`

	t, err := scanTrade(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Debug(ctx, "Trade not found by ID", map[string]interface{}{"tradeID": id})
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("failed to query trade by ID %d: %w", id, err)
	}
	return t, nil
}

// FindTrades retrieves trades matching the filter, ordered by timestamp ascending.
func (r *Repository) FindTrades(ctx context.Context, filter ports.TradeFilter) ([]*domain.Trade, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Symbol != "" {
		where = append(where, "symbol = ?")
		args = append(args, strings.ToUpper(filter.Symbol))
	}
	if filter.AccountID != 0 {
		where = append(where, "account_id = ?")
		args = append(args, filter.AccountID)
	}
	if filter.Strategy != "" {
		where = append(where, "strategy = ?")
		args = append(args, string(filter.Strategy))
	}
	if !filter.From.IsZero() {
		where = append(where, "trade_time >= ?")
		args = append(args, filter.From.UTC())
	}
	if !filter.To.IsZero() {
		where = append(where, "trade_time < ?")
		args = append(args, filter.To.UTC())
	}

	var b strings.Builder
	b.WriteString("SELECT " + tradeColumns + " FROM trades")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY trade_time ASC, id ASC")

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	trades := make([]*domain.Trade, 0)
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade during FindTrades: %w", err)
		}
		trades = append(trades, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %w", err)
	}
	return trades, nil
}

// FindBySymbol retrieves all trades for a symbol, ordered by timestamp ascending.
func (r *Repository) FindBySymbol(ctx context.Context, symbol string) ([]*domain.Trade, error) {
	return r.FindTrades(ctx, ports.TradeFilter{Symbol: symbol})
}

// FindByDateRange retrieves trades with from <= timestamp < to.
func (r *Repository) FindByDateRange(ctx context.Context, from, to time.Time) ([]*domain.Trade, error) {
	return r.FindTrades(ctx, ports.TradeFilter{From: from, To: to})
}

// FindByAccount retrieves all trades recorded against an account.
func (r *Repository) FindByAccount(ctx context.Context, accountID int64) ([]*domain.Trade, error) {
	return r.FindTrades(ctx, ports.TradeFilter{AccountID: accountID})
}

// UpdateStrategy changes the strategy tag of a trade.
func (r *Repository) UpdateStrategy(ctx context.Context, id int64, strategy domain.Strategy) error {
	const query = `UPDATE trades SET strategy = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, string(strategy), id)
	if err != nil {
		return fmt.Errorf("failed to update strategy of trade ID %d: %w: %v", id, ports.ErrUpdateFailed, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for update trade ID %d: %w", id, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("trade ID %d not found for update: %w", id, ports.ErrNotFound)
	}
	r.logger.Debug(ctx, "Trade strategy updated", map[string]interface{}{"tradeID": id, "strategy": strategy})
	return nil
}

// DeleteTrade removes a trade.
func (r *Repository) DeleteTrade(ctx context.Context, id int64) error {
	const query = `DELETE FROM trades WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete trade ID %d: %w: %v", id, ports.ErrDeleteFailed, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for delete trade ID %d: %w", id, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("trade ID %d not found for delete: %w", id, ports.ErrNotFound)
	}
	r.logger.Debug(ctx, "Trade deleted", map[string]interface{}{"tradeID": id})
	return nil
}

// --- Helper Functions ---

// classify maps SQLite constraint failures onto the standard port errors.
func classify(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return fmt.Errorf("%w: %v", ports.ErrQueryFailed, err)
	}
	switch sqliteErr.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return fmt.Errorf("%w: %v", ports.ErrDuplicateEntry, err)
	case sqlite3.ErrConstraintForeignKey:
		return fmt.Errorf("%w: referenced account does not exist", ports.ErrNotFound)
	}
	return fmt.Errorf("%w: %v", ports.ErrQueryFailed, err)
}

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(s scanner) (*domain.Account, error) {
	a := &domain.Account{}
	var broker string
	if err := s.Scan(&a.ID, &a.Name, &broker, &a.AccountNumber, &a.IsActive, &a.CreatedAt); err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	a.Broker = domain.Broker(broker)
	return a, nil
}

// scanTrade scans a row into a domain.Trade struct.
func scanTrade(s scanner) (*domain.Trade, error) {
	t := &domain.Trade{}
	var (
		assetKind, action, strategy string
		accountID                   sql.NullInt64
		strike                      decimal.NullDecimal
		expiry                      sql.NullTime
		right                       sql.NullString
		multiplier                  sql.NullInt64
	)
	err := s.Scan(
		&t.ID, &t.Symbol, &assetKind, &action, &t.Quantity, &t.Price, &t.Commission, &t.Timestamp,
		&accountID, &strategy, &t.Notes, &strike, &expiry, &right, &multiplier)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	t.AssetKind = domain.AssetKind(assetKind)
	t.Action = domain.Action(action)
	t.Strategy = domain.Strategy(strategy)
	t.Timestamp = t.Timestamp.UTC()
	if accountID.Valid {
		t.AccountID = accountID.Int64
	}
	if strike.Valid {
		t.Option = &domain.OptionContract{
			Strike:     strike.Decimal,
			Expiry:     expiry.Time.UTC(),
			Right:      domain.OptionRight(right.String),
			Multiplier: multiplier.Int64,
		}
	}
	return t, nil
}
