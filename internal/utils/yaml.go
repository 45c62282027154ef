package utils

import (
	"errors"
	"fmt"
	"io"

	"tradetracker/internal/domain"
	"tradetracker/internal/ports"

	"gopkg.in/yaml.v3"
)

// tradeFile is the YAML document layout:
//
//	trades:
//	  - timestamp: 2024-01-02T14:30:00Z
//	    symbol: AAPL
//	    action: buy
//	    quantity: 100
//	    price: 150.00
type tradeFile struct {
	Trades []TradeRecord `yaml:"trades"`
}

// ReadTradesYAML parses a YAML trade document. Records that fail conversion
// are reported by their 1-based index.
func ReadTradesYAML(r io.Reader) (ImportResult, error) {
	var doc tradeFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return ImportResult{}, nil
		}
		return ImportResult{}, fmt.Errorf("%w: %v", ports.ErrMalformedRecord, err)
	}

	var res ImportResult
	for i, rec := range doc.Trades {
		t, err := rec.ToTrade()
		if err != nil {
			res.Errors = append(res.Errors, RecordError{Line: i + 1, Err: err})
			continue
		}
		res.Trades = append(res.Trades, t)
	}
	return res, nil
}

// WriteTradesYAML writes trades in the layout read by ReadTradesYAML.
func WriteTradesYAML(w io.Writer, trades []*domain.Trade) error {
	doc := tradeFile{Trades: make([]TradeRecord, 0, len(trades))}
	for _, t := range trades {
		doc.Trades = append(doc.Trades, RecordFromTrade(t))
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
