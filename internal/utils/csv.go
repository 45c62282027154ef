package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"tradetracker/internal/domain"
	"tradetracker/internal/ports"
)

var csvHeader = []string{
	"timestamp", "symbol", "asset_kind", "action", "quantity", "price", "commission",
	"strategy", "account_id", "notes", "strike", "expiry", "right", "multiplier",
}

// WriteTradesCSV writes trades in the import format, so the output can be
// read back with ReadTradesCSV.
func WriteTradesCSV(w io.Writer, trades []*domain.Trade) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, t := range trades {
		r := RecordFromTrade(t)
		writer.Write([]string{
			r.Timestamp, r.Symbol, r.AssetKind, r.Action, r.Quantity, r.Price, r.Commission,
			r.Strategy, r.AccountID, r.Notes, r.Strike, r.Expiry, r.Right, r.Multiplier,
		})
	}
	writer.Flush()
	return writer.Error()
}

// ReadTradesCSV parses trades from CSV with a header row. Columns are matched
// by name in any order; symbol, action, quantity, price and timestamp are
// required. Rows that fail conversion are reported in the result and do not
// stop the read.
func ReadTradesCSV(r io.Reader) (ImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ImportResult{}, fmt.Errorf("%w: empty CSV", ports.ErrMalformedRecord)
		}
		return ImportResult{}, fmt.Errorf("reading CSV header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"timestamp", "symbol", "action", "quantity", "price"} {
		if _, ok := cols[required]; !ok {
			return ImportResult{}, fmt.Errorf("%w: missing column %q", ports.ErrMalformedRecord, required)
		}
	}

	var res ImportResult
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			res.Errors = append(res.Errors, RecordError{Line: line, Err: fmt.Errorf("%w: %v", ports.ErrMalformedRecord, err)})
			continue
		}
		get := func(name string) string {
			if i, ok := cols[name]; ok && i < len(row) {
				return row[i]
			}
			return ""
		}
		rec := TradeRecord{
			Timestamp:  get("timestamp"),
			Symbol:     get("symbol"),
			AssetKind:  get("asset_kind"),
			Action:     get("action"),
			Quantity:   get("quantity"),
			Price:      get("price"),
			Commission: get("commission"),
			Strategy:   get("strategy"),
			AccountID:  get("account_id"),
			Notes:      get("notes"),
			Strike:     get("strike"),
			Expiry:     get("expiry"),
			Right:      get("right"),
			Multiplier: get("multiplier"),
		}
		t, err := rec.ToTrade()
		if err != nil {
			res.Errors = append(res.Errors, RecordError{Line: line, Err: err})
			continue
		}
		res.Trades = append(res.Trades, t)
	}
	return res, nil
}

// ReadTradesFile dispatches on the file extension (.csv, .yaml, .yml).
func ReadTradesFile(path string) (ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImportResult{}, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadTradesCSV(f)
	case ".yaml", ".yml":
		return ReadTradesYAML(f)
	default:
		return ImportResult{}, fmt.Errorf("%w: %s", ports.ErrUnsupportedFormat, filepath.Ext(path))
	}
}
