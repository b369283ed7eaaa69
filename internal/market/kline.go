package market

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kline is one futures candle.
type Kline struct {
	OpenTime  time.Time `json:"open_time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	CloseTime time.Time `json:"close_time"`
	Trades    int64     `json:"trades"`
}

// Closes returns the close prices in order.
func Closes(klines []Kline) []float64 {
	out := make([]float64, len(klines))
	for i, k := range klines {
		out[i] = k.Close
	}
	return out
}

// parseKlines converts the raw Binance rows:
// [openTime, open, high, low, close, volume, closeTime, quoteVolume, trades, ...]
func parseKlines(rows [][]json.RawMessage) ([]Kline, error) {
	klines := make([]Kline, 0, len(rows))
	for i, row := range rows {
		k, err := parseKline(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		klines = append(klines, k)
	}
	return klines, nil
}

func parseKline(row []json.RawMessage) (Kline, error) {
	if len(row) < 7 {
		return Kline{}, fmt.Errorf("expected at least 7 fields, got %d", len(row))
	}

	openMs, err := parseInt(row[0])
	if err != nil {
		return Kline{}, fmt.Errorf("open time: %w", err)
	}
	closeMs, err := parseInt(row[6])
	if err != nil {
		return Kline{}, fmt.Errorf("close time: %w", err)
	}

	var prices [5]float64
	for i := range prices {
		if prices[i], err = parseFloat(row[i+1]); err != nil {
			return Kline{}, fmt.Errorf("field %d: %w", i+1, err)
		}
	}

	k := Kline{
		OpenTime:  time.UnixMilli(openMs).UTC(),
		Open:      prices[0],
		High:      prices[1],
		Low:       prices[2],
		Close:     prices[3],
		Volume:    prices[4],
		CloseTime: time.UnixMilli(closeMs).UTC(),
	}
	if len(row) > 8 {
		if trades, err := parseInt(row[8]); err == nil {
			k.Trades = trades
		}
	}
	return k, nil
}

// parseFloat accepts a JSON number or a numeric string. NaN and Inf are rejected.
func parseFloat(raw json.RawMessage) (float64, error) {
	var f float64
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		f = v
	} else if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("not a number: %s", raw)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number: %s", raw)
	}
	return f, nil
}

func parseInt(raw json.RawMessage) (int64, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("not a number: %s", raw)
	}
	if v, err := n.Int64(); err == nil {
		return v, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}
