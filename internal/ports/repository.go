package ports

import (
	"context"
	"strings"
	"time"

	"tradetracker/internal/domain"
)

// TradeFilter narrows a trade listing. Zero values mean "no constraint".
type TradeFilter struct {
	Symbol    string
	AccountID int64
	Strategy  domain.Strategy
	From      time.Time // Inclusive
	To        time.Time // Exclusive
}

// Scope keeps only the constraints that select a whole matching history
// (symbol and account). Date and strategy constraints would cut lots off
// from the trades that close them.
func (f TradeFilter) Scope() TradeFilter {
	return TradeFilter{Symbol: f.Symbol, AccountID: f.AccountID}
}

// InWindow reports whether ts falls in [From, To).
func (f TradeFilter) InWindow(ts time.Time) bool {
	if !f.From.IsZero() && ts.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !ts.Before(f.To) {
		return false
	}
	return true
}

// Matches applies every constraint of the filter to one trade, with the same
// semantics as the repository query.
func (f TradeFilter) Matches(t *domain.Trade) bool {
	if t == nil {
		return false
	}
	if f.Symbol != "" && !strings.EqualFold(f.Symbol, t.Symbol) {
		return false
	}
	if f.AccountID != 0 && f.AccountID != t.AccountID {
		return false
	}
	if f.Strategy != "" && f.Strategy != t.Strategy {
		return false
	}
	return f.InWindow(t.Timestamp)
}

// TradeRepository defines the interface for storing and retrieving executed trades.
// Trades are immutable once stored except for their strategy tag.
type TradeRepository interface {
	// CreateTrade saves a new trade record and returns its assigned ID.
	CreateTrade(ctx context.Context, trade *domain.Trade) (int64, error)
	// FindTradeByID retrieves a trade by its unique ID.
	// Returns nil, nil if not found.
	FindTradeByID(ctx context.Context, id int64) (*domain.Trade, error)
	// FindTrades retrieves trades matching the filter, ordered by timestamp ascending.
	FindTrades(ctx context.Context, filter TradeFilter) ([]*domain.Trade, error)
	// FindBySymbol retrieves all trades for a symbol, ordered by timestamp ascending.
	FindBySymbol(ctx context.Context, symbol string) ([]*domain.Trade, error)
	// FindByDateRange retrieves trades with from <= timestamp < to.
	FindByDateRange(ctx context.Context, from, to time.Time) ([]*domain.Trade, error)
	// FindByAccount retrieves all trades recorded against an account.
	FindByAccount(ctx context.Context, accountID int64) ([]*domain.Trade, error)
	// UpdateStrategy changes the strategy tag of a trade.
	UpdateStrategy(ctx context.Context, id int64, strategy domain.Strategy) error
	// DeleteTrade removes a trade.
	DeleteTrade(ctx context.Context, id int64) error
}

// AccountRepository defines the interface for storing and retrieving brokerage accounts.
type AccountRepository interface {
	// CreateAccount saves a new account and returns its assigned ID.
	CreateAccount(ctx context.Context, account *domain.Account) (int64, error)
	// FindAccountByID retrieves an account by its unique ID.
	// Returns nil, nil if not found.
	FindAccountByID(ctx context.Context, id int64) (*domain.Account, error)
	// FindAccounts retrieves all accounts ordered by name.
	FindAccounts(ctx context.Context) ([]*domain.Account, error)
}
