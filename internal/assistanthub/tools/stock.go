package tools

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

type Quote struct {
	Symbol string
	Date   string
	Open   float64
	Close  float64
	High   float64
	Low    float64
}

func (q Quote) String() string {
	change := q.Close - q.Open
	sign := "+"
	if change < 0 {
		sign = "-"
		change = -change
	}
	return fmt.Sprintf("%s closed at %.2f on %s (%s%.2f from open, range %.2f-%.2f).", q.Symbol, q.Close, q.Date, sign, change, q.Low, q.High)
}

// Stock reads daily quotes from a stooq-style CSV endpoint.
type Stock struct {
	Client *http.Client
	URL    string
}

func (s Stock) Quote(ctx context.Context, symbol string) (Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return Quote{}, fmt.Errorf("stock: empty symbol")
	}
	lookup := strings.ToLower(symbol)
	if !strings.Contains(lookup, ".") {
		lookup += ".us"
	}
	u, err := withQuery(s.URL, url.Values{"s": {lookup}, "f": {"sd2t2ohlcv"}, "h": {""}, "e": {"csv"}})
	if err != nil {
		return Quote{}, err
	}
	body, err := get(ctx, s.Client, u, "text/csv")
	if err != nil {
		return Quote{}, fmt.Errorf("stock: %w", err)
	}
	rows, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	if err != nil {
		return Quote{}, fmt.Errorf("stock: %w", err)
	}
	if len(rows) < 2 {
		return Quote{}, fmt.Errorf("stock %s: %w", symbol, ErrNotFound)
	}
	col := map[string]int{}
	for i, h := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	row := rows[1]
	field := func(name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	num := func(name string) (float64, bool) {
		v, err := strconv.ParseFloat(field(name), 64)
		return v, err == nil
	}
	closeV, ok := num("close")
	if !ok {
		return Quote{}, fmt.Errorf("stock %s: %w", symbol, ErrNotFound)
	}
	open, _ := num("open")
	high, _ := num("high")
	low, _ := num("low")
	return Quote{
		Symbol: symbol,
		Date:   field("date"),
		Open:   open,
		Close:  closeV,
		High:   high,
		Low:    low,
	}, nil
}
