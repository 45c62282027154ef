package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"tradetracker/internal/domain"
	"tradetracker/internal/ports"

	"github.com/shopspring/decimal"
)

// timeLayouts are accepted for trade timestamps and option expiries, in order.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// TradeRecord is the flat, file-level representation of a trade shared by
// the CSV and YAML formats. All values are kept as text until conversion.
type TradeRecord struct {
	Timestamp  string `yaml:"timestamp"`
	Symbol     string `yaml:"symbol"`
	AssetKind  string `yaml:"asset_kind"`
	Action     string `yaml:"action"`
	Quantity   string `yaml:"quantity"`
	Price      string `yaml:"price"`
	Commission string `yaml:"commission"`
	Strategy   string `yaml:"strategy,omitempty"`
	AccountID  string `yaml:"account_id,omitempty"`
	Notes      string `yaml:"notes,omitempty"`
	Strike     string `yaml:"strike,omitempty"`
	Expiry     string `yaml:"expiry,omitempty"`
	Right      string `yaml:"right,omitempty"`
	Multiplier string `yaml:"multiplier,omitempty"`
}

// RecordError reports a record that could not be converted into a trade.
type RecordError struct {
	Line int // 1-based source line (CSV) or record index (YAML)
	Err  error
}

func (e RecordError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Line, e.Err)
}

func (e RecordError) Unwrap() error {
	return e.Err
}

// ImportResult holds the trades parsed from a file and the records that failed.
type ImportResult struct {
	Trades []*domain.Trade
	Errors []RecordError
}

// ToTrade converts and validates the record. Empty asset kind defaults to
// option when a strike is present, stock otherwise.
func (r TradeRecord) ToTrade() (*domain.Trade, error) {
	ts, err := parseTime(r.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp: %v", ports.ErrMalformedRecord, err)
	}
	qty, err := strconv.ParseInt(strings.TrimSpace(r.Quantity), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: quantity %q", ports.ErrMalformedRecord, r.Quantity)
	}
	price, err := parseDecimal(r.Price)
	if err != nil {
		return nil, fmt.Errorf("%w: price %q", ports.ErrMalformedRecord, r.Price)
	}
	commission, err := parseDecimal(r.Commission)
	if err != nil {
		return nil, fmt.Errorf("%w: commission %q", ports.ErrMalformedRecord, r.Commission)
	}
	strategy, err := domain.ParseStrategy(r.Strategy)
	if err != nil {
		return nil, err
	}

	kind := domain.AssetKind(strings.ToLower(strings.TrimSpace(r.AssetKind)))
	if kind == "" {
		kind = domain.AssetStock
		if strings.TrimSpace(r.Strike) != "" {
			kind = domain.AssetOption
		}
	}

	t := &domain.Trade{
		Symbol:     r.Symbol,
		AssetKind:  kind,
		Action:     domain.Action(strings.ToLower(strings.TrimSpace(r.Action))),
		Quantity:   qty,
		Price:      price,
		Commission: commission,
		Timestamp:  ts,
		Strategy:   strategy,
		Notes:      strings.TrimSpace(r.Notes),
	}
	if s := strings.TrimSpace(r.AccountID); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: account_id %q", ports.ErrMalformedRecord, r.AccountID)
		}
		t.AccountID = id
	}

	if kind == domain.AssetOption {
		contract, err := r.contract()
		if err != nil {
			return nil, err
		}
		t.Option = contract
	}

	if err := t.Normalize(); err != nil {
		return nil, err
	}
	return t, nil
}

func (r TradeRecord) contract() (*domain.OptionContract, error) {
	strike, err := parseDecimal(r.Strike)
	if err != nil {
		return nil, fmt.Errorf("%w: strike %q", ports.ErrMalformedRecord, r.Strike)
	}
	expiry, err := parseTime(r.Expiry)
	if err != nil {
		return nil, fmt.Errorf("%w: expiry: %v", ports.ErrMalformedRecord, err)
	}
	c := &domain.OptionContract{
		Strike: strike,
		Expiry: expiry,
		Right:  domain.OptionRight(strings.ToLower(strings.TrimSpace(r.Right))),
	}
	if s := strings.TrimSpace(r.Multiplier); s != "" {
		m, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: multiplier %q", ports.ErrMalformedRecord, r.Multiplier)
		}
		c.Multiplier = m
	}
	return c, nil
}

// RecordFromTrade flattens a trade for writing.
func RecordFromTrade(t *domain.Trade) TradeRecord {
	r := TradeRecord{
		Timestamp:  t.Timestamp.UTC().Format(time.RFC3339),
		Symbol:     t.Symbol,
		AssetKind:  string(t.AssetKind),
		Action:     string(t.Action),
		Quantity:   strconv.FormatInt(t.Quantity, 10),
		Price:      t.Price.String(),
		Commission: t.Commission.String(),
		Strategy:   string(t.Strategy),
		Notes:      t.Notes,
	}
	if t.AccountID != 0 {
		r.AccountID = strconv.FormatInt(t.AccountID, 10)
	}
	if o := t.Option; o != nil {
		r.Strike = o.Strike.String()
		r.Expiry = o.Expiry.Format("2006-01-02")
		r.Right = string(o.Right)
		r.Multiplier = strconv.FormatInt(o.Multiplier, 10)
	}
	return r
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.TrimPrefix(s, "$"))
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty value")
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
